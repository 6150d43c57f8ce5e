package repository

import (
	"context"
	"database/sql"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// PaymentRepo persists payments. The method variant is stored as a type
// column plus a JSON details column.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

func (r *PaymentRepo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

const paymentColumns = "id, invoice_id, amount, payment_date, method_type, method_details, notes, recorded_by, created_at"

func scanPayment(s interface{ Scan(...any) error }, p *model.Payment) error {
	var (
		method  string
		details []byte
	)
	if err := s.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaymentDate, &method, &details, &p.Notes, &p.RecordedBy, &p.CreatedAt); err != nil {
		return err
	}
	m, err := model.DecodePaymentMethod(model.MethodType(method), details)
	if err != nil {
		return err
	}
	p.Method = m
	return nil
}

// InsertTx records a payment.
func (r *PaymentRepo) InsertTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	details, err := p.Method.DetailsJSON()
	if err != nil {
		return err
	}
	var detailsArg any
	if details != nil {
		detailsArg = string(details)
	}
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO payments (invoice_id, amount, payment_date, method_type, method_details, notes, recorded_by)
		VALUES (?,?,?,?,?,?,?)`, p.InvoiceID, p.Amount, p.PaymentDate, string(p.Method.Type), detailsArg, p.Notes, p.RecordedBy)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetTx loads one payment.
func (r *PaymentRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Payment, error) {
	var p model.Payment
	err := scanPayment(r.q(tx).QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id=?", id), &p)
	return p, mapErr(err)
}

// ListByInvoiceTx returns an invoice's payments in the order received.
func (r *PaymentRepo) ListByInvoiceTx(ctx context.Context, tx *sql.Tx, invoiceID uint64) ([]model.Payment, error) {
	rows, err := r.q(tx).QueryContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE invoice_id=? ORDER BY payment_date, id", invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Payment{}
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteTx removes a payment.
func (r *PaymentRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return affected(r.q(tx).ExecContext(ctx, "DELETE FROM payments WHERE id=?", id))
}
