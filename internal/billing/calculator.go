// Package billing derives the monetary breakdown of an invoice from its line
// items and the dive center's tax settings. It holds no state and performs no
// I/O; the invoice service persists what it returns.
package billing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects whether service charge and tax are added on top of the
// discounted subtotal (exclusive) or are already embedded in it (inclusive).
type Mode string

const (
	ModeInclusive Mode = "inclusive"
	ModeExclusive Mode = "exclusive"
)

// DefaultMode applies when the dive center has not configured a mode.
const DefaultMode = ModeExclusive

// ErrTotalMismatch signals that a persisted total no longer matches the total
// derived from the invoice's items.
var ErrTotalMismatch = errors.New("persisted total does not match derived total")

// ParseMode normalises a stored setting. Empty or unknown values fall back to
// DefaultMode.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeInclusive:
		return ModeInclusive
	case ModeExclusive:
		return ModeExclusive
	}
	return DefaultMode
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool { return m == ModeInclusive || m == ModeExclusive }

// Line is the arithmetic view of one invoice item.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// Gross is quantity × unit price before the item's own discount.
func (l Line) Gross() decimal.Decimal { return l.Quantity.Mul(l.UnitPrice) }

// Net is the line total after the item's own discount.
func (l Line) Net() decimal.Decimal { return l.Gross().Sub(l.Discount) }

// Input carries everything Calculate needs. Subtotal is the persisted
// invoice subtotal, already net of item discounts.
type Input struct {
	Lines           []Line
	InvoiceDiscount decimal.Decimal
	Subtotal        decimal.Decimal
	ServiceCharge   decimal.Decimal
	Tax             decimal.Decimal
	Mode            Mode
}

// Breakdown is the displayed and persisted monetary summary of an invoice.
type Breakdown struct {
	SubtotalBeforeDiscounts decimal.Decimal `json:"subtotal_before_discounts"`
	TotalItemDiscounts      decimal.Decimal `json:"total_item_discounts"`
	InvoiceDiscount         decimal.Decimal `json:"invoice_discount"`
	DiscountSum             decimal.Decimal `json:"discount_sum"`
	SubtotalAfterDiscount   decimal.Decimal `json:"subtotal_after_discount"`
	ServiceCharge           decimal.Decimal `json:"service_charge"`
	Tax                     decimal.Decimal `json:"tax"`
	GrandTotal              decimal.Decimal `json:"grand_total"`
	Mode                    Mode            `json:"tax_calculation_mode"`
}

// Calculate runs the totals pipeline: item subtotal, discounts, then service
// charge and tax according to the mode.
func Calculate(in Input) Breakdown {
	mode := in.Mode
	if !mode.Valid() {
		mode = DefaultMode
	}
	before := decimal.Zero
	itemDiscounts := decimal.Zero
	for _, l := range in.Lines {
		before = before.Add(l.Gross())
		itemDiscounts = itemDiscounts.Add(l.Discount)
	}
	invoiceDiscount := in.InvoiceDiscount
	afterDiscount := in.Subtotal.Sub(invoiceDiscount)

	grand := afterDiscount
	if mode == ModeExclusive {
		grand = afterDiscount.Add(in.ServiceCharge).Add(in.Tax)
	}
	return Breakdown{
		SubtotalBeforeDiscounts: before,
		TotalItemDiscounts:      itemDiscounts,
		InvoiceDiscount:         invoiceDiscount,
		DiscountSum:             itemDiscounts.Add(invoiceDiscount),
		SubtotalAfterDiscount:   afterDiscount,
		ServiceCharge:           in.ServiceCharge,
		Tax:                     in.Tax,
		GrandTotal:              grand,
		Mode:                    mode,
	}
}

// Subtotal sums the net line totals. This is the value persisted as the
// invoice subtotal.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Net())
	}
	return sum
}

// Rates are the dive center's percentages, e.g. 10 for 10%.
type Rates struct {
	TaxPercent           decimal.Decimal
	ServiceChargePercent decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Charges derives the service charge and tax amounts for a discounted
// subtotal. In exclusive mode tax is levied on subtotal plus service charge.
// In inclusive mode both are break-outs of the subtotal.
func Charges(base decimal.Decimal, r Rates, mode Mode) (serviceCharge, tax decimal.Decimal) {
	sc := r.ServiceChargePercent.Div(hundred)
	tx := r.TaxPercent.Div(hundred)
	if base.Sign() <= 0 {
		return decimal.Zero, decimal.Zero
	}
	if mode == ModeInclusive {
		tax = base.Sub(base.Div(decimal.NewFromInt(1).Add(tx))).Round(2)
		net := base.Sub(tax)
		serviceCharge = net.Sub(net.Div(decimal.NewFromInt(1).Add(sc))).Round(2)
		return serviceCharge, tax
	}
	serviceCharge = base.Mul(sc).Round(2)
	tax = base.Add(serviceCharge).Mul(tx).Round(2)
	return serviceCharge, tax
}

// Totals is what the invoice service persists after a recalculation.
type Totals struct {
	Subtotal      decimal.Decimal
	ServiceCharge decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

// Recalculate computes the persisted totals from scratch: subtotal from the
// lines, charges from the rates, and the grand total via Calculate so both
// paths share one definition.
func Recalculate(lines []Line, invoiceDiscount decimal.Decimal, r Rates, mode Mode) Totals {
	if !mode.Valid() {
		mode = DefaultMode
	}
	subtotal := Subtotal(lines).Round(2)
	serviceCharge, tax := Charges(subtotal.Sub(invoiceDiscount), r, mode)
	b := Calculate(Input{
		Lines:           lines,
		InvoiceDiscount: invoiceDiscount,
		Subtotal:        subtotal,
		ServiceCharge:   serviceCharge,
		Tax:             tax,
		Mode:            mode,
	})
	return Totals{Subtotal: subtotal, ServiceCharge: serviceCharge, Tax: tax, Total: b.GrandTotal.Round(2)}
}

// RemainingBalance is the invoice total minus every recorded payment.
func RemainingBalance(total decimal.Decimal, payments []decimal.Decimal) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p)
	}
	return total.Sub(paid)
}

// Verify compares the authoritative persisted total with the derived one.
func Verify(persistedTotal decimal.Decimal, b Breakdown) error {
	if !persistedTotal.Round(2).Equal(b.GrandTotal.Round(2)) {
		return ErrTotalMismatch
	}
	return nil
}
