package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
)

// Invoice statuses.
const (
	InvoiceDraft         = "Draft"
	InvoicePartiallyPaid = "Partially Paid"
	InvoicePaid          = "Paid"
	InvoiceCancelled     = "Cancelled"
)

// Invoice is a billing document. Subtotal, ServiceCharge, Tax and Total are
// persisted by the server and authoritative. TaxMode is the calculation mode
// the totals were last computed under.
type Invoice struct {
	ID            uint64          `json:"id"`
	InvoiceNo     string          `json:"invoice_no"`
	CustomerID    uint64          `json:"customer_id"`
	BookingID     *uint64         `json:"booking_id"`
	InvoiceDate   Date            `json:"invoice_date"`
	DueDate       *Date           `json:"due_date"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	TaxMode       billing.Mode    `json:"tax_calculation_mode"`
	Status        string          `json:"status"`
	Notes         *string         `json:"notes"`
	Items         []InvoiceItem   `json:"items,omitempty"`
	Payments      []Payment       `json:"payments,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InvoiceItem is one billed line. BookingEquipmentID is set for damage
// charges raised against an equipment assignment.
type InvoiceItem struct {
	ID                 uint64          `json:"id"`
	InvoiceID          uint64          `json:"invoice_id"`
	Description        string          `json:"description"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Discount           decimal.Decimal `json:"discount"`
	Total              decimal.Decimal `json:"total"`
	BookingEquipmentID *uint64         `json:"booking_equipment_id"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Line converts the item to its arithmetic view.
func (it InvoiceItem) Line() billing.Line {
	return billing.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice, Discount: it.Discount}
}

// Lines converts items for the billing package.
func Lines(items []InvoiceItem) []billing.Line {
	out := make([]billing.Line, 0, len(items))
	for _, it := range items {
		out = append(out, it.Line())
	}
	return out
}

// Editable reports whether the invoice's items and header may still change.
func (inv Invoice) Editable() bool { return inv.Status == InvoiceDraft }

// StatusForBalance picks the payment-driven status for an invoice.
func StatusForBalance(remaining decimal.Decimal, paymentCount int) string {
	switch {
	case paymentCount == 0:
		return InvoiceDraft
	case remaining.Sign() <= 0:
		return InvoicePaid
	default:
		return InvoicePartiallyPaid
	}
}
