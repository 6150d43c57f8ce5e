package service

import (
	"context"
	"database/sql"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/queue"
)

// PaymentInput is the body of POST /invoices/:id/payments.
type PaymentInput struct {
	Amount      billing.Amount      `json:"amount"`
	PaymentDate *model.Date         `json:"payment_date"`
	Method      model.PaymentMethod `json:"method"`
	Notes       *string             `json:"notes"`
}

// PaymentResult is returned after a payment is recorded or removed.
type PaymentResult struct {
	Payment *model.Payment `json:"payment,omitempty"`
	Invoice InvoiceDetail  `json:"invoice"`
}

// RecordPayment stores a payment against an invoice and moves the invoice to
// Partially Paid or Paid. Overpayment is accepted and leaves a negative
// remaining balance.
func (s *InvoiceService) RecordPayment(ctx context.Context, invoiceID uint64, in PaymentInput, recordedBy *uint64) (PaymentResult, error) {
	if in.Amount.Sign() <= 0 {
		return PaymentResult{}, invalid("amount_invalid", "Payment amount must be greater than zero.")
	}
	if err := in.Method.Validate(); err != nil {
		return PaymentResult{}, invalid("method_invalid", "Invalid payment method: %s.", err.Error())
	}
	p := model.Payment{
		InvoiceID:  invoiceID,
		Amount:     in.Amount.Round(2),
		Method:     in.Method,
		Notes:      in.Notes,
		RecordedBy: recordedBy,
	}
	if in.PaymentDate != nil {
		p.PaymentDate = *in.PaymentDate
	} else {
		p.PaymentDate = s.today()
	}

	var out PaymentResult
	var becamePaid bool
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		inv, err := s.invoices.GetForUpdateTx(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		switch inv.Status {
		case model.InvoiceCancelled:
			return conflict("invoice_cancelled", "Cannot record a payment on a cancelled invoice.")
		case model.InvoicePaid:
			return conflict("invoice_paid", "Invoice is already fully paid.")
		}
		items, err := s.invoices.ItemsTx(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return conflict("invoice_empty", "Cannot record a payment on an invoice without items.")
		}
		if err := s.payments.InsertTx(ctx, tx, &p); err != nil {
			return err
		}
		before := inv.Status
		if err := s.syncStatusTx(ctx, tx, &inv); err != nil {
			return err
		}
		becamePaid = before != model.InvoicePaid && inv.Status == model.InvoicePaid
		detail, err := s.detailTx(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		out = PaymentResult{Payment: &p, Invoice: detail}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	if becamePaid {
		inv := out.Invoice
		publish(ctx, s.events, queue.InvoicePaid, queue.InvoicePaidPayload{
			InvoiceID:  inv.ID,
			InvoiceNo:  inv.InvoiceNo,
			CustomerID: inv.CustomerID,
			Total:      inv.Total.StringFixed(2),
			Currency:   inv.Currency,
		})
	}
	return out, nil
}

// ListPayments returns the payments of one invoice.
func (s *InvoiceService) ListPayments(ctx context.Context, invoiceID uint64) ([]model.Payment, error) {
	var out []model.Payment
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.invoices.GetTx(ctx, tx, invoiceID); err != nil {
			return err
		}
		var err error
		out, err = s.payments.ListByInvoiceTx(ctx, tx, invoiceID)
		return err
	})
	if out == nil {
		out = []model.Payment{}
	}
	return out, err
}

// DeletePayment removes a payment and re-derives the invoice status from
// what remains. Payments on cancelled invoices are kept for the record.
func (s *InvoiceService) DeletePayment(ctx context.Context, paymentID uint64) (PaymentResult, error) {
	var out PaymentResult
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		p, err := s.payments.GetTx(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		inv, err := s.invoices.GetForUpdateTx(ctx, tx, p.InvoiceID)
		if err != nil {
			return err
		}
		if inv.Status == model.InvoiceCancelled {
			return conflict("invoice_cancelled", "Payments on a cancelled invoice cannot be deleted.")
		}
		if err := s.payments.DeleteTx(ctx, tx, paymentID); err != nil {
			return err
		}
		if err := s.syncStatusTx(ctx, tx, &inv); err != nil {
			return err
		}
		out.Invoice, err = s.detailTx(ctx, tx, inv.ID)
		return err
	})
	return out, err
}
