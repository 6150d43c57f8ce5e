package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
)

// EquipmentHandler serves the equipment catalog, serialized items and their
// service tracking.
type EquipmentHandler struct {
	Repo *repository.EquipmentRepo
	Svc  *service.EquipmentService
	// DueWithinDays is the default look-ahead of GET /equipment-items/due.
	DueWithinDays int
}

func NewEquipmentHandler(r *repository.EquipmentRepo, s *service.EquipmentService, dueWithinDays int) *EquipmentHandler {
	return &EquipmentHandler{Repo: r, Svc: s, DueWithinDays: dueWithinDays}
}

type equipmentReq struct {
	Name                string         `json:"name" validate:"required,max=150"`
	Category            string         `json:"category" validate:"required,max=100"`
	Brand               *string        `json:"brand" validate:"omitempty,max=100"`
	Model               *string        `json:"model" validate:"omitempty,max=100"`
	RentalPrice         billing.Amount `json:"rental_price"`
	ServiceIntervalDays *int           `json:"service_interval_days" validate:"omitempty,gt=0,lte=3650"`
}

func (r equipmentReq) toEquipment(id uint64) (model.Equipment, error) {
	if r.RentalPrice.Sign() < 0 {
		return model.Equipment{}, badRequestf("rental_price cannot be negative")
	}
	return model.Equipment{
		ID:                  id,
		Name:                strings.TrimSpace(r.Name),
		Category:            strings.TrimSpace(r.Category),
		Brand:               trimPtr(r.Brand),
		Model:               trimPtr(r.Model),
		RentalPrice:         r.RentalPrice.Round(2),
		ServiceIntervalDays: r.ServiceIntervalDays,
	}, nil
}

// List GET /v1/equipment?category=
func (h *EquipmentHandler) List(c echo.Context) error {
	p := pageRequest(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Repo.List(ctx, strings.TrimSpace(c.QueryParam("category")), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.NewPage(rows, total, p))
}

// Create POST /v1/equipment
func (h *EquipmentHandler) Create(c echo.Context) error {
	var req equipmentReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	e, err := req.toEquipment(0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Create(ctx, &e); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// Get GET /v1/equipment/:id
func (h *EquipmentHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Update PUT /v1/equipment/:id
func (h *EquipmentHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req equipmentReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	e, err := req.toEquipment(id)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Update(ctx, &e); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Delete DELETE /v1/equipment/:id
func (h *EquipmentHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Items ----

type itemReq struct {
	EquipmentID         uint64      `json:"equipment_id" validate:"required"`
	SerialNo            string      `json:"serial_no" validate:"required,max=100"`
	Size                *string     `json:"size" validate:"omitempty,max=20"`
	Status              string      `json:"status" validate:"omitempty,oneof=Available Maintenance Retired"`
	PurchaseDate        *model.Date `json:"purchase_date"`
	LastServiceDate     *model.Date `json:"last_service_date"`
	NextServiceDate     *model.Date `json:"next_service_date"`
	RequiresService     *bool       `json:"requires_service"`
	ServiceIntervalDays *int        `json:"service_interval_days" validate:"omitempty,gt=0,lte=3650"`
}

func (r itemReq) toItem(id uint64) model.EquipmentItem {
	status := r.Status
	if status == "" {
		status = model.ItemAvailable
	}
	requires := true
	if r.RequiresService != nil {
		requires = *r.RequiresService
	}
	return model.EquipmentItem{
		ID:                  id,
		EquipmentID:         r.EquipmentID,
		SerialNo:            strings.TrimSpace(r.SerialNo),
		Size:                trimPtr(r.Size),
		Status:              status,
		PurchaseDate:        r.PurchaseDate,
		LastServiceDate:     r.LastServiceDate,
		NextServiceDate:     r.NextServiceDate,
		RequiresService:     requires,
		ServiceIntervalDays: r.ServiceIntervalDays,
	}
}

// ListItems GET /v1/equipment-items?equipment_id=&status=
func (h *EquipmentHandler) ListItems(c echo.Context) error {
	var (
		f   repository.ItemFilter
		err error
	)
	if f.EquipmentID, err = queryUint(c, "equipment_id"); err != nil {
		return respondError(c, err)
	}
	f.Status = strings.TrimSpace(c.QueryParam("status"))
	if f.Status != "" && !model.ValidItemStatus(f.Status) {
		return respondError(c, badRequestf("invalid status"))
	}
	p := pageRequest(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Repo.ListItems(ctx, f, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.NewPage(rows, total, p))
}

// CreateItem POST /v1/equipment-items
func (h *EquipmentHandler) CreateItem(c echo.Context) error {
	var req itemReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	it := req.toItem(0)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateItem(ctx, &it); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, it)
}

// GetItem GET /v1/equipment-items/:id
func (h *EquipmentHandler) GetItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	it, err := h.Repo.GetItem(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// UpdateItem PUT /v1/equipment-items/:id. Items that are In Use or Lost are
// moved by basket operations only.
func (h *EquipmentHandler) UpdateItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req itemReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cur, err := h.Repo.GetItem(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	it := req.toItem(id)
	if cur.Status == model.ItemInUse || cur.Status == model.ItemLost {
		if req.Status != "" && req.Status != cur.Status {
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Item is " + cur.Status + "; its status changes through basket returns.",
				"code":  "item_status_locked",
			})
		}
		it.Status = cur.Status
	}
	if err := h.Repo.UpdateItem(ctx, &it); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, it)
}

// DeleteItem DELETE /v1/equipment-items/:id
func (h *EquipmentHandler) DeleteItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteItem(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Overdue GET /v1/equipment-items/overdue
func (h *EquipmentHandler) Overdue(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rep, err := h.Svc.Due(ctx, 0)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rep.Overdue)
}

// Due GET /v1/equipment-items/due?within_days=
func (h *EquipmentHandler) Due(c echo.Context) error {
	days := h.DueWithinDays
	if raw := strings.TrimSpace(c.QueryParam("within_days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 365 {
			return respondError(c, badRequestf("invalid within_days"))
		}
		days = n
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	rep, err := h.Svc.Due(ctx, days)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// History GET /v1/equipment-items/:id/service-history
func (h *EquipmentHandler) History(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Repo.GetItem(ctx, id); err != nil {
		return respondError(c, err)
	}
	out, err := h.Repo.History(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// BulkService POST /v1/equipment-service-history/bulk
func (h *EquipmentHandler) BulkService(c echo.Context) error {
	var req model.BulkService
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.BulkService(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}
