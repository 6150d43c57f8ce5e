package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

// BookingHandler serves bookings, their dives and dive groups.
type BookingHandler struct {
	Repo *repository.BookingRepo
}

func NewBookingHandler(r *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Repo: r}
}

type bookingReq struct {
	CustomerID  *uint64    `json:"customer_id"`
	DiveGroupID *uint64    `json:"dive_group_id"`
	BookingDate model.Date `json:"booking_date" validate:"required"`
	Status      string     `json:"status" validate:"omitempty,oneof=Pending Confirmed Completed Cancelled"`
	NumDivers   int        `json:"number_of_divers" validate:"gte=0,lte=500"`
	Notes       *string    `json:"notes"`
}

func (r bookingReq) toBooking(id uint64) (model.Booking, error) {
	if (r.CustomerID == nil) == (r.DiveGroupID == nil) {
		return model.Booking{}, badRequestf("exactly one of customer_id and dive_group_id is required")
	}
	status := r.Status
	if status == "" {
		status = model.BookingPending
	}
	n := r.NumDivers
	if n == 0 {
		n = 1
	}
	return model.Booking{
		ID:          id,
		CustomerID:  r.CustomerID,
		DiveGroupID: r.DiveGroupID,
		BookingDate: r.BookingDate,
		Status:      status,
		NumDivers:   n,
		Notes:       r.Notes,
	}, nil
}

// List GET /v1/bookings?customer_id=&status=&from=&to=
func (h *BookingHandler) List(c echo.Context) error {
	var (
		f   repository.BookingFilter
		err error
	)
	if f.CustomerID, err = queryUint(c, "customer_id"); err != nil {
		return respondError(c, err)
	}
	if f.From, err = queryDate(c, "from"); err != nil {
		return respondError(c, err)
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return respondError(c, err)
	}
	f.Status = strings.TrimSpace(c.QueryParam("status"))
	if f.Status != "" && !model.ValidBookingStatus(f.Status) {
		return respondError(c, badRequestf("invalid status"))
	}
	p := pageRequest(c)
	ctx, cancel := reqCtx(c)
	defer cancel()
	rows, total, err := h.Repo.List(ctx, f, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, model.NewPage(rows, total, p))
}

// Create POST /v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	b, err := req.toBooking(0)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Create(ctx, &b); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Get GET /v1/bookings/:id includes the booking's dives.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	b, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	dives, err := h.Repo.ListDives(ctx, id, nil)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b, "dives": dives})
}

// Update PUT /v1/bookings/:id
func (h *BookingHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req bookingReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	b, err := req.toBooking(id)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Update(ctx, &b); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete DELETE /v1/bookings/:id
func (h *BookingHandler) Delete(c echo.Context) error {
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

// ---- Dives ----

type diveReq struct {
	BookingID  uint64     `json:"booking_id" validate:"required"`
	DiveSite   string     `json:"dive_site" validate:"required,max=150"`
	Boat       *string    `json:"boat" validate:"omitempty,max=100"`
	Instructor *string    `json:"instructor" validate:"omitempty,max=150"`
	DiveDate   model.Date `json:"dive_date" validate:"required"`
	DiveTime   *string    `json:"dive_time" validate:"omitempty,datetime=15:04"`
}

func (r diveReq) toDive(id uint64) model.BookingDive {
	return model.BookingDive{
		ID:         id,
		BookingID:  r.BookingID,
		DiveSite:   strings.TrimSpace(r.DiveSite),
		Boat:       trimPtr(r.Boat),
		Instructor: trimPtr(r.Instructor),
		DiveDate:   r.DiveDate,
		DiveTime:   trimPtr(r.DiveTime),
		Status:     model.DiveScheduled,
	}
}

// ListDives GET /v1/booking-dives?booking_id=&date=
func (h *BookingHandler) ListDives(c echo.Context) error {
	bookingID, err := queryUint(c, "booking_id")
	if err != nil {
		return respondError(c, err)
	}
	date, err := queryDate(c, "date")
	if err != nil {
		return respondError(c, err)
	}
	if bookingID == nil && date == nil {
		return respondError(c, badRequestf("booking_id or date is required"))
	}
	var bid uint64
	if bookingID != nil {
		bid = *bookingID
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Repo.ListDives(ctx, bid, date)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateDive POST /v1/booking-dives
func (h *BookingHandler) CreateDive(c echo.Context) error {
	var req diveReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	d := req.toDive(0)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateDive(ctx, &d); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// GetDive GET /v1/booking-dives/:id
func (h *BookingHandler) GetDive(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Repo.GetDive(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// UpdateDive PUT /v1/booking-dives/:id reschedules a dive still Scheduled.
func (h *BookingHandler) UpdateDive(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req diveReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	d := req.toDive(id)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.UpdateDive(ctx, &d); err != nil {
		return h.diveError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// CompleteDive POST /v1/booking-dives/:id/complete records the dive log.
func (h *BookingHandler) CompleteDive(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var log model.DiveLog
	if err := bindValid(c, &log); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Repo.CompleteDive(ctx, id, log)
	if err != nil {
		return h.diveError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// CancelDive POST /v1/booking-dives/:id/cancel
func (h *BookingHandler) CancelDive(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Repo.CancelDive(ctx, id)
	if err != nil {
		return h.diveError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteDive DELETE /v1/booking-dives/:id
func (h *BookingHandler) DeleteDive(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteDive(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) diveError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "dive is no longer scheduled", "code": "dive_not_scheduled"})
	}
	return respondError(c, err)
}

// ---- Dive groups ----

type groupReq struct {
	Name        string   `json:"name" validate:"required,max=150"`
	Description *string  `json:"description"`
	MemberIDs   []uint64 `json:"member_ids" validate:"dive,gt=0"`
}

// ListGroups GET /v1/dive-groups
func (h *BookingHandler) ListGroups(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Repo.ListGroups(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// CreateGroup POST /v1/dive-groups
func (h *BookingHandler) CreateGroup(c echo.Context) error {
	var req groupReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	g := model.DiveGroup{Name: strings.TrimSpace(req.Name), Description: trimPtr(req.Description), MemberIDs: req.MemberIDs}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.CreateGroup(ctx, &g); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

// GetGroup GET /v1/dive-groups/:id
func (h *BookingHandler) GetGroup(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	g, err := h.Repo.GetGroup(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// UpdateGroup PUT /v1/dive-groups/:id replaces name, description and members.
func (h *BookingHandler) UpdateGroup(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req groupReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	g := model.DiveGroup{ID: id, Name: strings.TrimSpace(req.Name), Description: trimPtr(req.Description), MemberIDs: req.MemberIDs}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.UpdateGroup(ctx, &g); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// DeleteGroup DELETE /v1/dive-groups/:id
func (h *BookingHandler) DeleteGroup(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.DeleteGroup(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
