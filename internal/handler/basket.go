package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
)

// BasketHandler serves equipment baskets and the assignment rows they hold.
type BasketHandler struct {
	Svc *service.BasketService
}

func NewBasketHandler(s *service.BasketService) *BasketHandler {
	return &BasketHandler{Svc: s}
}

type bulkEquipmentReq struct {
	Equipment []model.EquipmentSpec `json:"equipment" validate:"required,min=1,max=100"`
}

type returnSelectedReq struct {
	EquipmentIDs []uint64 `json:"equipment_ids" validate:"required,min=1,dive,gt=0"`
}

// List GET /v1/equipment-baskets?status=&customer_id=&booking_id=
func (h *BasketHandler) List(c echo.Context) error {
	var (
		f   repository.BasketFilter
		err error
	)
	f.Status = strings.TrimSpace(c.QueryParam("status"))
	if f.Status != "" && f.Status != model.BasketActive && f.Status != model.BasketReturned {
		return respondError(c, badRequestf("invalid status"))
	}
	if f.CustomerID, err = queryUint(c, "customer_id"); err != nil {
		return respondError(c, err)
	}
	if f.BookingID, err = queryUint(c, "booking_id"); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Svc.List(ctx, f, pageRequest(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Create POST /v1/equipment-baskets
func (h *BasketHandler) Create(c echo.Context) error {
	var req service.CreateBasketInput
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Svc.Create(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get GET /v1/equipment-baskets/:id
func (h *BasketHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Svc.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Update PUT /v1/equipment-baskets/:id
func (h *BasketHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.UpdateBasketInput
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Svc.Update(ctx, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete DELETE /v1/equipment-baskets/:id
func (h *BasketHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddEquipment POST /v1/equipment-baskets/:id/equipment/bulk
func (h *BasketHandler) AddEquipment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req bulkEquipmentReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Svc.AddEquipment(ctx, id, req.Equipment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Return POST /v1/equipment-baskets/:id/return returns every checked out
// row and closes the basket.
func (h *BasketHandler) Return(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.ReturnBasket(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ReturnSelected POST /v1/equipment-baskets/:id/return-selected
func (h *BasketHandler) ReturnSelected(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req returnSelectedReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.ReturnSelected(ctx, id, req.EquipmentIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ReturnOne POST /v1/booking-equipment/:id/return
func (h *BasketHandler) ReturnOne(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.ReturnOne(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// MarkLost POST /v1/booking-equipment/:id/lost
func (h *BasketHandler) MarkLost(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.MarkLost(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateDamage PUT /v1/booking-equipment/:id/damage
func (h *BasketHandler) UpdateDamage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req model.DamageReport
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	row, err := h.Svc.UpdateDamage(ctx, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, row)
}
