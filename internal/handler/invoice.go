package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/middleware"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
)

// HeaderReconciled is set on invoice responses whose stored totals had to
// be recalculated while loading. Clients should drop any cached copy.
const HeaderReconciled = "X-Invoice-Reconciled"

// InvoiceHandler serves invoices, their items and payments.
type InvoiceHandler struct {
	Svc *service.InvoiceService
}

func NewInvoiceHandler(s *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: s}
}

type billDamageReq struct {
	BookingEquipmentID uint64 `json:"booking_equipment_id" validate:"required"`
}

func validInvoiceStatus(s string) bool {
	switch s {
	case model.InvoiceDraft, model.InvoicePartiallyPaid, model.InvoicePaid, model.InvoiceCancelled:
		return true
	}
	return false
}

// detail writes an invoice detail, flagging reconciled totals. A reconciled
// read rewrote the invoice, so cached invoice pages are dropped.
func detail(c echo.Context, status int, d service.InvoiceDetail) error {
	if d.Reconciled {
		c.Response().Header().Set(HeaderReconciled, "true")
		middleware.MarkReadWrote(c)
	}
	return c.JSON(status, d)
}

// List GET /v1/invoices?status=&customer_id=&booking_id=
func (h *InvoiceHandler) List(c echo.Context) error {
	var (
		f   repository.InvoiceFilter
		err error
	)
	f.Status = strings.TrimSpace(c.QueryParam("status"))
	if f.Status != "" && !validInvoiceStatus(f.Status) {
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

// Create POST /v1/invoices
func (h *InvoiceHandler) Create(c echo.Context) error {
	var req service.CreateInvoiceInput
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.Create(ctx, req)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusCreated, d)
}

// Get GET /v1/invoices/:id
func (h *InvoiceHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusOK, d)
}

// Update PUT /v1/invoices/:id changes header fields of a Draft invoice.
func (h *InvoiceHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.HeaderInput
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.UpdateHeader(ctx, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusOK, d)
}

// Cancel POST /v1/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.Cancel(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusOK, d)
}

// Delete DELETE /v1/invoices/:id
func (h *InvoiceHandler) Delete(c echo.Context) error {
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

// Recalculate POST /v1/invoices/:id/recalculate
func (h *InvoiceHandler) Recalculate(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.Recalculate(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusOK, d)
}

// AddItem POST /v1/invoices/:id/items
func (h *InvoiceHandler) AddItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.ItemInput
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.AddItem(ctx, id, req)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusCreated, d)
}

// UpdateItem PUT /v1/invoices/:id/items/:itemId
func (h *InvoiceHandler) UpdateItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, err)
	}
	var req service.ItemInput
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.UpdateItem(ctx, id, itemID, req)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusOK, d)
}

// DeleteItem DELETE /v1/invoices/:id/items/:itemId
func (h *InvoiceHandler) DeleteItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	itemID, err := parseID(c, "itemId")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.DeleteItem(ctx, id, itemID)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusOK, d)
}

// BillDamage POST /v1/invoices/:id/damage-charges
func (h *InvoiceHandler) BillDamage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req billDamageReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	d, err := h.Svc.BillDamage(ctx, id, req.BookingEquipmentID)
	if err != nil {
		return respondError(c, err)
	}
	return detail(c, http.StatusCreated, d)
}

// ListPayments GET /v1/invoices/:id/payments
func (h *InvoiceHandler) ListPayments(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Svc.ListPayments(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RecordPayment POST /v1/invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req service.PaymentInput
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	var recordedBy *uint64
	if uid, ok := middleware.UserID(c); ok {
		recordedBy = &uid
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.RecordPayment(ctx, id, req, recordedBy)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// DeletePayment DELETE /v1/payments/:id
func (h *InvoiceHandler) DeletePayment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	res, err := h.Svc.DeletePayment(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
