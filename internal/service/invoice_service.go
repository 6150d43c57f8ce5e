package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

// InvoiceStore is the persistence the invoice rules need.
type InvoiceStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error
	GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Invoice, error)
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Invoice, error)
	List(ctx context.Context, f repository.InvoiceFilter, p model.PageRequest) ([]model.Invoice, int, error)
	UpdateHeaderTx(ctx context.Context, tx *sql.Tx, inv model.Invoice) error
	UpdateTotalsTx(ctx context.Context, tx *sql.Tx, id uint64, t billing.Totals, mode billing.Mode) error
	SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
	ItemsTx(ctx context.Context, tx *sql.Tx, invoiceID uint64) ([]model.InvoiceItem, error)
	GetItemTx(ctx context.Context, tx *sql.Tx, invoiceID, itemID uint64) (model.InvoiceItem, error)
	InsertItemsTx(ctx context.Context, tx *sql.Tx, items []model.InvoiceItem) error
	UpdateItemTx(ctx context.Context, tx *sql.Tx, it model.InvoiceItem) error
	DeleteItemTx(ctx context.Context, tx *sql.Tx, invoiceID, itemID uint64) error
	HasDamageChargeTx(ctx context.Context, tx *sql.Tx, bookingEquipmentID uint64) (bool, error)
}

// PaymentStore is the persistence for payments.
type PaymentStore interface {
	InsertTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error
	GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Payment, error)
	ListByInvoiceTx(ctx context.Context, tx *sql.Tx, invoiceID uint64) ([]model.Payment, error)
	DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error
}

// AssignmentSource resolves the equipment row a damage charge is raised for.
type AssignmentSource interface {
	GetEquipment(ctx context.Context, tx *sql.Tx, id uint64) (model.BookingEquipment, error)
}

// ItemInput is one invoice line as submitted.
type ItemInput struct {
	Description string         `json:"description" validate:"required,max=255"`
	Quantity    billing.Amount `json:"quantity"`
	UnitPrice   billing.Amount `json:"unit_price"`
	Discount    billing.Amount `json:"discount"`
}

// CreateInvoiceInput is the body of POST /invoices.
type CreateInvoiceInput struct {
	CustomerID  uint64         `json:"customer_id" validate:"required"`
	BookingID   *uint64        `json:"booking_id"`
	InvoiceDate *model.Date    `json:"invoice_date"`
	DueDate     *model.Date    `json:"due_date"`
	Currency    string         `json:"currency" validate:"omitempty,len=3"`
	Discount    billing.Amount `json:"discount"`
	Notes       *string        `json:"notes"`
	Items       []ItemInput    `json:"items" validate:"dive"`
}

// HeaderInput changes invoice header fields. Nil fields stay unchanged; a
// discount sent as null or "" resets to zero.
type HeaderInput struct {
	InvoiceDate *model.Date            `json:"invoice_date"`
	DueDate     *model.Date            `json:"due_date"`
	Discount    billing.OptionalAmount `json:"discount"`
	Notes       *string                `json:"notes"`
}

// InvoiceDetail is an invoice with items, payments and the derived
// breakdown shown next to the persisted totals.
type InvoiceDetail struct {
	model.Invoice
	Breakdown        billing.Breakdown `json:"breakdown"`
	AmountPaid       decimal.Decimal   `json:"amount_paid"`
	RemainingBalance decimal.Decimal   `json:"remaining_balance"`
	// Reconciled is set when the stored totals had drifted from the items
	// and were recalculated while loading.
	Reconciled bool `json:"-"`
}

// InvoiceService applies invoice and payment rules.
type InvoiceService struct {
	tx          TxRunner
	invoices    InvoiceStore
	payments    PaymentStore
	settings    SettingsSource
	assignments AssignmentSource
	events      Publisher
	today       func() model.Date
}

// NewInvoiceService wires the service. events may be nil.
func NewInvoiceService(tx TxRunner, invoices InvoiceStore, payments PaymentStore, settings SettingsSource, assignments AssignmentSource, events Publisher) *InvoiceService {
	return &InvoiceService{
		tx:          tx,
		invoices:    invoices,
		payments:    payments,
		settings:    settings,
		assignments: assignments,
		events:      events,
		today:       model.Today,
	}
}

func (in ItemInput) toItem(invoiceID uint64) (model.InvoiceItem, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return model.InvoiceItem{}, invalid("item_description_required", "Item description is required.")
	}
	if in.Quantity.Sign() <= 0 {
		return model.InvoiceItem{}, invalid("item_quantity_invalid", "Item quantity must be greater than zero.")
	}
	if in.UnitPrice.Sign() < 0 {
		return model.InvoiceItem{}, invalid("item_price_invalid", "Item unit price cannot be negative.")
	}
	if in.Discount.Sign() < 0 {
		return model.InvoiceItem{}, invalid("item_discount_invalid", "Item discount cannot be negative.")
	}
	it := model.InvoiceItem{
		InvoiceID:   invoiceID,
		Description: desc,
		Quantity:    in.Quantity.Decimal,
		UnitPrice:   in.UnitPrice.Decimal,
		Discount:    in.Discount.Decimal,
	}
	line := it.Line()
	if line.Discount.GreaterThan(line.Gross()) {
		return model.InvoiceItem{}, invalid("item_discount_exceeds_amount", "Item discount cannot exceed quantity × unit price.")
	}
	it.Total = line.Net().Round(2)
	return it, nil
}

// Create opens a Draft invoice with optional initial items and persists its
// totals.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (InvoiceDetail, error) {
	if in.Discount.Sign() < 0 {
		return InvoiceDetail{}, invalid("discount_invalid", "Invoice discount cannot be negative.")
	}
	inv := model.Invoice{
		CustomerID: in.CustomerID,
		BookingID:  in.BookingID,
		DueDate:    in.DueDate,
		Currency:   strings.ToUpper(strings.TrimSpace(in.Currency)),
		Discount:   in.Discount.Decimal,
		Notes:      in.Notes,
	}
	if in.InvoiceDate != nil {
		inv.InvoiceDate = *in.InvoiceDate
	} else {
		inv.InvoiceDate = s.today()
	}
	items := make([]model.InvoiceItem, 0, len(in.Items))
	for _, ii := range in.Items {
		it, err := ii.toItem(0)
		if err != nil {
			return InvoiceDetail{}, err
		}
		items = append(items, it)
	}

	var out InvoiceDetail
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		settings, err := s.settings.GetTx(ctx, tx)
		if err != nil {
			return err
		}
		if inv.Currency == "" {
			inv.Currency = settings.Currency
		}
		if err := s.invoices.CreateTx(ctx, tx, &inv); err != nil {
			return err
		}
		for i := range items {
			items[i].InvoiceID = inv.ID
		}
		if err := s.invoices.InsertItemsTx(ctx, tx, items); err != nil {
			return err
		}
		if err := s.checkDiscountTx(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.recalculateTx(ctx, tx, &inv); err != nil {
			return err
		}
		out, err = s.detailTx(ctx, tx, inv.ID)
		return err
	})
	return out, err
}

// Get loads an invoice with items, payments and breakdown. The persisted
// total is checked against the items; on drift the invoice is recalculated
// in place and the detail is flagged Reconciled.
func (s *InvoiceService) Get(ctx context.Context, id uint64) (InvoiceDetail, error) {
	var out InvoiceDetail
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		d, err := s.detailTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if d.Status == model.InvoiceCancelled || consistent(d) {
			out = d
			return nil
		}
		inv, err := s.invoices.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		slog.Warn("invoice totals drifted, recalculating",
			"invoice_id", id, "persisted_total", d.Total.String(), "derived_total", d.Breakdown.GrandTotal.String(),
			"persisted_subtotal", d.Subtotal.String(), "items_subtotal", billing.Subtotal(model.Lines(d.Items)).String())
		if err := s.recalculateTx(ctx, tx, &inv); err != nil {
			return err
		}
		if err := s.syncStatusTx(ctx, tx, &inv); err != nil {
			return err
		}
		out, err = s.detailTx(ctx, tx, id)
		out.Reconciled = true
		return err
	})
	return out, err
}

// consistent reports whether the persisted totals agree with the items and
// with the breakdown pipeline.
func consistent(d InvoiceDetail) bool {
	if !billing.Subtotal(model.Lines(d.Items)).Round(2).Equal(d.Subtotal.Round(2)) {
		return false
	}
	return billing.Verify(d.Total, d.Breakdown) == nil
}

// List returns a page of invoice headers.
func (s *InvoiceService) List(ctx context.Context, f repository.InvoiceFilter, p model.PageRequest) (model.Page[model.Invoice], error) {
	rows, total, err := s.invoices.List(ctx, f, p)
	if err != nil {
		return model.Page[model.Invoice]{}, err
	}
	return model.NewPage(rows, total, p), nil
}

// UpdateHeader edits dates, discount and notes of a Draft invoice.
func (s *InvoiceService) UpdateHeader(ctx context.Context, id uint64, in HeaderInput) (InvoiceDetail, error) {
	var out InvoiceDetail
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.editableTx(ctx, tx, id, "its header can no longer be edited")
		if err != nil {
			return err
		}
		if in.InvoiceDate != nil {
			inv.InvoiceDate = *in.InvoiceDate
		}
		if in.DueDate != nil {
			inv.DueDate = in.DueDate
		}
		if in.Notes != nil {
			inv.Notes = in.Notes
		}
		if in.Discount.Set {
			if in.Discount.Sign() < 0 {
				return invalid("discount_invalid", "Invoice discount cannot be negative.")
			}
			inv.Discount = in.Discount.Decimal
		}
		if err := s.checkDiscountTx(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.invoices.UpdateHeaderTx(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.recalculateTx(ctx, tx, &inv); err != nil {
			return err
		}
		out, err = s.detailTx(ctx, tx, id)
		return err
	})
	return out, err
}

// Cancel voids a Draft invoice.
func (s *InvoiceService) Cancel(ctx context.Context, id uint64) (InvoiceDetail, error) {
	var out InvoiceDetail
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.editableTx(ctx, tx, id, "only Draft invoices can be cancelled"); err != nil {
			return err
		}
		if err := s.invoices.SetStatusTx(ctx, tx, id, model.InvoiceCancelled); err != nil {
			return err
		}
		var err error
		out, err = s.detailTx(ctx, tx, id)
		return err
	})
	return out, err
}

// Delete removes a Draft or Cancelled invoice that has no payments.
func (s *InvoiceService) Delete(ctx context.Context, id uint64) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.invoices.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.Status != model.InvoiceDraft && inv.Status != model.InvoiceCancelled {
			return conflict("invoice_not_deletable", "Invoice %s is %s and cannot be deleted.", inv.InvoiceNo, inv.Status)
		}
		payments, err := s.payments.ListByInvoiceTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return conflict("invoice_has_payments", "Invoice %s has recorded payments and cannot be deleted.", inv.InvoiceNo)
		}
		return s.invoices.DeleteTx(ctx, tx, id)
	})
}

// AddItem appends a line to a Draft invoice.
func (s *InvoiceService) AddItem(ctx context.Context, id uint64, in ItemInput) (InvoiceDetail, error) {
	it, err := in.toItem(id)
	if err != nil {
		return InvoiceDetail{}, err
	}
	return s.mutateItems(ctx, id, func(tx *sql.Tx, _ []model.InvoiceItem) error {
		return s.invoices.InsertItemsTx(ctx, tx, []model.InvoiceItem{it})
	})
}

// UpdateItem replaces one line of a Draft invoice.
func (s *InvoiceService) UpdateItem(ctx context.Context, id, itemID uint64, in ItemInput) (InvoiceDetail, error) {
	it, err := in.toItem(id)
	if err != nil {
		return InvoiceDetail{}, err
	}
	return s.mutateItems(ctx, id, func(tx *sql.Tx, _ []model.InvoiceItem) error {
		existing, err := s.invoices.GetItemTx(ctx, tx, id, itemID)
		if err != nil {
			return err
		}
		it.ID = existing.ID
		it.BookingEquipmentID = existing.BookingEquipmentID
		return s.invoices.UpdateItemTx(ctx, tx, it)
	})
}

// DeleteItem removes one line of a Draft invoice. The last line cannot be
// removed; the invoice itself should be deleted instead.
func (s *InvoiceService) DeleteItem(ctx context.Context, id, itemID uint64) (InvoiceDetail, error) {
	return s.mutateItems(ctx, id, func(tx *sql.Tx, items []model.InvoiceItem) error {
		found := false
		for _, it := range items {
			if it.ID == itemID {
				found = true
				break
			}
		}
		if !found {
			return repository.ErrNotFound
		}
		if len(items) == 1 {
			return conflict("last_item", "Cannot delete the last item of an invoice. Delete the invoice instead.")
		}
		return s.invoices.DeleteItemTx(ctx, tx, id, itemID)
	})
}

// Recalculate recomputes and persists the totals of a Draft invoice with the
// current settings.
func (s *InvoiceService) Recalculate(ctx context.Context, id uint64) (InvoiceDetail, error) {
	return s.mutateItems(ctx, id, func(*sql.Tx, []model.InvoiceItem) error { return nil })
}

// BillDamage adds a damage charge line for a damaged assignment to a Draft
// invoice. Each assignment can be billed once.
func (s *InvoiceService) BillDamage(ctx context.Context, id, bookingEquipmentID uint64) (InvoiceDetail, error) {
	return s.mutateItems(ctx, id, func(tx *sql.Tx, _ []model.InvoiceItem) error {
		be, err := s.assignments.GetEquipment(ctx, tx, bookingEquipmentID)
		if err != nil {
			return err
		}
		if !be.DamageReported || !be.ChargeCustomer || be.DamageChargeAmount == nil || be.DamageChargeAmount.Sign() <= 0 {
			return conflict("no_damage_charge", "Equipment assignment %d has no damage charge to bill.", be.ID)
		}
		billed, err := s.invoices.HasDamageChargeTx(ctx, tx, be.ID)
		if err != nil {
			return err
		}
		if billed {
			return conflict("damage_already_billed", "Damage on equipment assignment %d has already been billed.", be.ID)
		}
		desc := "Damage charge"
		if be.DamageDescription != nil && strings.TrimSpace(*be.DamageDescription) != "" {
			desc += ": " + strings.TrimSpace(*be.DamageDescription)
		}
		desc = truncateRunes(desc, maxItemDescription)
		beID := be.ID
		return s.invoices.InsertItemsTx(ctx, tx, []model.InvoiceItem{{
			InvoiceID:          id,
			Description:        desc,
			Quantity:           decimal.NewFromInt(1),
			UnitPrice:          be.DamageChargeAmount.Round(2),
			Discount:           decimal.Zero,
			Total:              be.DamageChargeAmount.Round(2),
			BookingEquipmentID: &beID,
		}})
	})
}

// maxItemDescription is the invoice_items.description width in characters.
const maxItemDescription = 255

// truncateRunes cuts s to at most n characters without splitting a
// multi-byte character.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// mutateItems locks a Draft invoice, applies fn and recalculates.
func (s *InvoiceService) mutateItems(ctx context.Context, id uint64, fn func(tx *sql.Tx, items []model.InvoiceItem) error) (InvoiceDetail, error) {
	var out InvoiceDetail
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.editableTx(ctx, tx, id, "its items can no longer be changed")
		if err != nil {
			return err
		}
		items, err := s.invoices.ItemsTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(tx, items); err != nil {
			return err
		}
		if err := s.checkDiscountTx(ctx, tx, inv); err != nil {
			return err
		}
		if err := s.recalculateTx(ctx, tx, &inv); err != nil {
			return err
		}
		out, err = s.detailTx(ctx, tx, id)
		return err
	})
	return out, err
}

// editableTx locks the invoice and rejects anything but Draft with reason.
func (s *InvoiceService) editableTx(ctx context.Context, tx *sql.Tx, id uint64, reason string) (model.Invoice, error) {
	inv, err := s.invoices.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return model.Invoice{}, err
	}
	if !inv.Editable() {
		return model.Invoice{}, conflict("invoice_not_draft", "Invoice %s is %s; %s.", inv.InvoiceNo, inv.Status, reason)
	}
	return inv, nil
}

// recalculateTx derives and persists totals from the current items and a
// fresh settings read.
func (s *InvoiceService) recalculateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error {
	items, err := s.invoices.ItemsTx(ctx, tx, inv.ID)
	if err != nil {
		return err
	}
	settings, err := s.settings.GetTx(ctx, tx)
	if err != nil {
		return err
	}
	lines := model.Lines(items)
	mode := settings.TaxCalculationMode
	t := billing.Recalculate(lines, inv.Discount, settings.Rates(), mode)
	if err := s.invoices.UpdateTotalsTx(ctx, tx, inv.ID, t, mode); err != nil {
		return err
	}
	inv.Subtotal, inv.ServiceCharge, inv.Tax, inv.Total, inv.TaxMode = t.Subtotal, t.ServiceCharge, t.Tax, t.Total, mode
	inv.Items = items
	return nil
}

// checkDiscountTx rejects an invoice discount larger than the items subtotal.
func (s *InvoiceService) checkDiscountTx(ctx context.Context, tx *sql.Tx, inv model.Invoice) error {
	items, err := s.invoices.ItemsTx(ctx, tx, inv.ID)
	if err != nil {
		return err
	}
	if inv.Discount.GreaterThan(billing.Subtotal(model.Lines(items))) {
		return invalid("discount_exceeds_subtotal", "Invoice discount cannot exceed the items subtotal.")
	}
	return nil
}

// syncStatusTx sets the payment-driven status from the recorded payments.
func (s *InvoiceService) syncStatusTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error {
	if inv.Status == model.InvoiceCancelled {
		return nil
	}
	payments, err := s.payments.ListByInvoiceTx(ctx, tx, inv.ID)
	if err != nil {
		return err
	}
	status := model.StatusForBalance(billing.RemainingBalance(inv.Total, model.Amounts(payments)), len(payments))
	if status == inv.Status {
		return nil
	}
	if err := s.invoices.SetStatusTx(ctx, tx, inv.ID, status); err != nil {
		return err
	}
	inv.Status = status
	return nil
}

// detailTx assembles the response view.
func (s *InvoiceService) detailTx(ctx context.Context, tx *sql.Tx, id uint64) (InvoiceDetail, error) {
	inv, err := s.invoices.GetTx(ctx, tx, id)
	if err != nil {
		return InvoiceDetail{}, err
	}
	if inv.Items, err = s.invoices.ItemsTx(ctx, tx, id); err != nil {
		return InvoiceDetail{}, err
	}
	if inv.Payments, err = s.payments.ListByInvoiceTx(ctx, tx, id); err != nil {
		return InvoiceDetail{}, err
	}
	amounts := model.Amounts(inv.Payments)
	remaining := billing.RemainingBalance(inv.Total, amounts)
	return InvoiceDetail{
		Invoice: inv,
		Breakdown: billing.Calculate(billing.Input{
			Lines:           model.Lines(inv.Items),
			InvoiceDiscount: inv.Discount,
			Subtotal:        inv.Subtotal,
			ServiceCharge:   inv.ServiceCharge,
			Tax:             inv.Tax,
			Mode:            inv.TaxMode,
		}),
		AmountPaid:       inv.Total.Sub(remaining),
		RemainingBalance: remaining,
	}, nil
}
