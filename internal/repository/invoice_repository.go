package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// InvoiceRepo persists invoices and their items. Writes take the caller's
// transaction so totals are always recalculated alongside item changes.
type InvoiceRepo struct{ db *sql.DB }

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

func (r *InvoiceRepo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

const invoiceColumns = `id, invoice_no, customer_id, booking_id, invoice_date, due_date, currency, subtotal, discount,
	service_charge, tax, total, tax_calculation_mode, status, notes, created_at, updated_at`

func scanInvoice(s interface{ Scan(...any) error }, inv *model.Invoice) error {
	var (
		no   sql.NullString
		mode string
	)
	err := s.Scan(&inv.ID, &no, &inv.CustomerID, &inv.BookingID, &inv.InvoiceDate, &inv.DueDate, &inv.Currency,
		&inv.Subtotal, &inv.Discount, &inv.ServiceCharge, &inv.Tax, &inv.Total, &mode, &inv.Status, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt)
	inv.InvoiceNo = no.String
	inv.TaxMode = billing.ParseMode(mode)
	return err
}

// CreateTx inserts a Draft invoice header and assigns its invoice number.
func (r *InvoiceRepo) CreateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error {
	res, err := r.q(tx).ExecContext(ctx, `INSERT INTO invoices (customer_id, booking_id, invoice_date, due_date, currency,
		discount, status, notes) VALUES (?,?,?,?,?,?,?,?)`,
		inv.CustomerID, inv.BookingID, inv.InvoiceDate, inv.DueDate, inv.Currency, inv.Discount, model.InvoiceDraft, inv.Notes)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	inv.InvoiceNo = fmt.Sprintf("INV-%s-%06d", inv.InvoiceDate.Format("20060102"), inv.ID)
	inv.Status = model.InvoiceDraft
	_, err = r.q(tx).ExecContext(ctx, "UPDATE invoices SET invoice_no=? WHERE id=?", inv.InvoiceNo, inv.ID)
	return mapErr(err)
}

// GetTx loads an invoice header.
func (r *InvoiceRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Invoice, error) {
	var inv model.Invoice
	err := scanInvoice(r.q(tx).QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id=?", id), &inv)
	return inv, mapErr(err)
}

// GetForUpdateTx loads and locks an invoice header.
func (r *InvoiceRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Invoice, error) {
	var inv model.Invoice
	err := scanInvoice(r.q(tx).QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id=? FOR UPDATE", id), &inv)
	return inv, mapErr(err)
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Status     string
	CustomerID *uint64
	BookingID  *uint64
}

// List returns a page of invoice headers, newest first.
func (r *InvoiceRepo) List(ctx context.Context, f InvoiceFilter, p model.PageRequest) ([]model.Invoice, int, error) {
	where := " WHERE 1=1"
	var args []any
	if f.Status != "" {
		where += " AND status=?"
		args = append(args, f.Status)
	}
	if f.CustomerID != nil {
		where += " AND customer_id=?"
		args = append(args, *f.CustomerID)
	}
	if f.BookingID != nil {
		where += " AND booking_id=?"
		args = append(args, *f.BookingID)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM invoices"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+invoiceColumns+" FROM invoices"+where+
		" ORDER BY invoice_date DESC, id DESC LIMIT ? OFFSET ?", append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := scanInvoice(rows, &inv); err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

// UpdateHeaderTx writes the editable header fields.
func (r *InvoiceRepo) UpdateHeaderTx(ctx context.Context, tx *sql.Tx, inv model.Invoice) error {
	return affected(r.q(tx).ExecContext(ctx, `UPDATE invoices SET invoice_date=?, due_date=?, discount=?, notes=? WHERE id=?`,
		inv.InvoiceDate, inv.DueDate, inv.Discount, inv.Notes, inv.ID))
}

// UpdateTotalsTx persists a recalculation and the mode it ran under.
func (r *InvoiceRepo) UpdateTotalsTx(ctx context.Context, tx *sql.Tx, id uint64, t billing.Totals, mode billing.Mode) error {
	return affected(r.q(tx).ExecContext(ctx,
		"UPDATE invoices SET subtotal=?, service_charge=?, tax=?, total=?, tax_calculation_mode=? WHERE id=?",
		t.Subtotal, t.ServiceCharge, t.Tax, t.Total, string(mode), id))
}

// SetStatusTx changes the invoice status.
func (r *InvoiceRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	return affected(r.q(tx).ExecContext(ctx, "UPDATE invoices SET status=? WHERE id=?", status, id))
}

// DeleteTx removes an invoice; its items cascade.
func (r *InvoiceRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return affected(r.q(tx).ExecContext(ctx, "DELETE FROM invoices WHERE id=?", id))
}

// ---- Items ----

const invoiceItemColumns = "id, invoice_id, description, quantity, unit_price, discount, total, booking_equipment_id, created_at, updated_at"

func scanInvoiceItem(s interface{ Scan(...any) error }, it *model.InvoiceItem) error {
	return s.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Discount, &it.Total,
		&it.BookingEquipmentID, &it.CreatedAt, &it.UpdatedAt)
}

// ItemsTx returns an invoice's items in entry order.
func (r *InvoiceRepo) ItemsTx(ctx context.Context, tx *sql.Tx, invoiceID uint64) ([]model.InvoiceItem, error) {
	rows, err := r.q(tx).QueryContext(ctx, "SELECT "+invoiceItemColumns+" FROM invoice_items WHERE invoice_id=? ORDER BY id", invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.InvoiceItem{}
	for rows.Next() {
		var it model.InvoiceItem
		if err := scanInvoiceItem(rows, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetItemTx loads one item of the given invoice.
func (r *InvoiceRepo) GetItemTx(ctx context.Context, tx *sql.Tx, invoiceID, itemID uint64) (model.InvoiceItem, error) {
	var it model.InvoiceItem
	err := scanInvoiceItem(r.q(tx).QueryRowContext(ctx, "SELECT "+invoiceItemColumns+
		" FROM invoice_items WHERE id=? AND invoice_id=?", itemID, invoiceID), &it)
	return it, mapErr(err)
}

// InsertItemsTx adds items in a single statement.
func (r *InvoiceRepo) InsertItemsTx(ctx context.Context, tx *sql.Tx, items []model.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	query := "INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, discount, total, booking_equipment_id) VALUES "
	args := make([]any, 0, len(items)*7)
	for i, it := range items {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, it.InvoiceID, it.Description, it.Quantity, it.UnitPrice, it.Discount, it.Total, it.BookingEquipmentID)
	}
	_, err := r.q(tx).ExecContext(ctx, query, args...)
	return mapErr(err)
}

// UpdateItemTx overwrites one item.
func (r *InvoiceRepo) UpdateItemTx(ctx context.Context, tx *sql.Tx, it model.InvoiceItem) error {
	return affected(r.q(tx).ExecContext(ctx, `UPDATE invoice_items SET description=?, quantity=?, unit_price=?, discount=?, total=?
		WHERE id=? AND invoice_id=?`, it.Description, it.Quantity, it.UnitPrice, it.Discount, it.Total, it.ID, it.InvoiceID))
}

// DeleteItemTx removes one item of the given invoice.
func (r *InvoiceRepo) DeleteItemTx(ctx context.Context, tx *sql.Tx, invoiceID, itemID uint64) error {
	return affected(r.q(tx).ExecContext(ctx, "DELETE FROM invoice_items WHERE id=? AND invoice_id=?", itemID, invoiceID))
}

// HasDamageChargeTx reports whether an assignment has already been billed.
func (r *InvoiceRepo) HasDamageChargeTx(ctx context.Context, tx *sql.Tx, bookingEquipmentID uint64) (bool, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, "SELECT COUNT(*) FROM invoice_items WHERE booking_equipment_id=?", bookingEquipmentID).Scan(&n)
	return n > 0, err
}
