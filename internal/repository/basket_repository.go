package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// BasketRepo persists equipment baskets and the booking_equipment rows they
// hold. Multi-row operations take the caller's transaction.
type BasketRepo struct{ db *sql.DB }

func NewBasketRepo(db *sql.DB) *BasketRepo { return &BasketRepo{db: db} }

func (r *BasketRepo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

const basketColumns = `id, basket_no, customer_id, booking_id, status, checkout_date, expected_return_date,
	actual_return_date, notes, created_at, updated_at`

func scanBasket(s interface{ Scan(...any) error }, b *model.EquipmentBasket) error {
	var no sql.NullString
	err := s.Scan(&b.ID, &no, &b.CustomerID, &b.BookingID, &b.Status, &b.CheckoutDate, &b.ExpectedReturnDate,
		&b.ActualReturnDate, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
	b.BasketNo = no.String
	return err
}

// CreateBasket inserts an Active basket. A blank basket number is replaced
// by one derived from the id.
func (r *BasketRepo) CreateBasket(ctx context.Context, b *model.EquipmentBasket) error {
	err := NewTxManager(r.db).InTx(ctx, func(tx *sql.Tx) error {
		var no any
		if b.BasketNo != "" {
			no = b.BasketNo
		}
		res, err := tx.ExecContext(ctx, `INSERT INTO equipment_baskets (basket_no, customer_id, booking_id, status,
			checkout_date, expected_return_date, notes) VALUES (?,?,?,?,?,?,?)`,
			no, b.CustomerID, b.BookingID, model.BasketActive, b.CheckoutDate, b.ExpectedReturnDate, b.Notes)
		if err != nil {
			return mapErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
		if b.BasketNo == "" {
			_, err = tx.ExecContext(ctx, "UPDATE equipment_baskets SET basket_no=? WHERE id=?", fmt.Sprintf("BSK-%06d", b.ID), b.ID)
		}
		return mapErr(err)
	})
	if err != nil {
		return err
	}
	got, err := r.GetBasket(ctx, nil, b.ID)
	if err != nil {
		return err
	}
	*b = got
	return nil
}

// GetBasket loads a basket header.
func (r *BasketRepo) GetBasket(ctx context.Context, tx *sql.Tx, id uint64) (model.EquipmentBasket, error) {
	var b model.EquipmentBasket
	err := scanBasket(r.q(tx).QueryRowContext(ctx, "SELECT "+basketColumns+" FROM equipment_baskets WHERE id=?", id), &b)
	return b, mapErr(err)
}

// GetBasketForUpdateTx loads and locks a basket header.
func (r *BasketRepo) GetBasketForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.EquipmentBasket, error) {
	var b model.EquipmentBasket
	err := scanBasket(r.q(tx).QueryRowContext(ctx, "SELECT "+basketColumns+" FROM equipment_baskets WHERE id=? FOR UPDATE", id), &b)
	return b, mapErr(err)
}

// BasketFilter narrows basket listings.
type BasketFilter struct {
	Status     string
	CustomerID *uint64
	BookingID  *uint64
}

// ListBaskets returns a page of baskets, newest first.
func (r *BasketRepo) ListBaskets(ctx context.Context, f BasketFilter, p model.PageRequest) ([]model.EquipmentBasket, int, error) {
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
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM equipment_baskets"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+basketColumns+" FROM equipment_baskets"+where+
		" ORDER BY checkout_date DESC, id DESC LIMIT ? OFFSET ?", append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.EquipmentBasket
	for rows.Next() {
		var b model.EquipmentBasket
		if err := scanBasket(rows, &b); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// UpdateBasketDetails changes the notes and expected return date only.
func (r *BasketRepo) UpdateBasketDetails(ctx context.Context, id uint64, expected *model.Date, notes *string) error {
	return affected(r.db.ExecContext(ctx, "UPDATE equipment_baskets SET expected_return_date=?, notes=? WHERE id=?", expected, notes, id))
}

// DeleteBasketTx removes an empty basket.
func (r *BasketRepo) DeleteBasketTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return affected(r.q(tx).ExecContext(ctx, "DELETE FROM equipment_baskets WHERE id=?", id))
}

// CloseBasketTx marks a basket Returned as of the given date.
func (r *BasketRepo) CloseBasketTx(ctx context.Context, tx *sql.Tx, id uint64, on model.Date) error {
	return affected(r.q(tx).ExecContext(ctx,
		"UPDATE equipment_baskets SET status=?, actual_return_date=? WHERE id=? AND status=?",
		model.BasketReturned, on, id, model.BasketActive))
}

// ---- Booking equipment ----

const equipmentRowColumns = `id, basket_id, booking_id, equipment_source, equipment_item_id, customer_equipment_type,
	customer_equipment_brand, customer_equipment_model, customer_equipment_serial, assignment_status, checkout_date,
	return_date, price, damage_reported, damage_description, charge_customer, damage_charge_amount, notes,
	created_at, updated_at`

func scanEquipmentRow(s interface{ Scan(...any) error }, e *model.BookingEquipment) error {
	var (
		itemID                         sql.NullInt64
		ctype, cbrand, cmodel, cserial sql.NullString
		status                         string
		source                         string
	)
	err := s.Scan(&e.ID, &e.BasketID, &e.BookingID, &source, &itemID, &ctype, &cbrand, &cmodel, &cserial,
		&status, &e.CheckoutDate, &e.ReturnDate, &e.Price, &e.DamageReported, &e.DamageDescription,
		&e.ChargeCustomer, &e.DamageChargeAmount, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}
	e.Source = model.EquipmentSource(source)
	e.AssignmentStatus = model.AssignmentStatus(status)
	switch e.Source {
	case model.SourceCenter:
		e.Center = &model.CenterGear{EquipmentItemID: uint64(itemID.Int64)}
	case model.SourceCustomerOwn:
		e.Customer = &model.CustomerGear{
			Type:     ctype.String,
			Brand:    nullable(cbrand),
			Model:    nullable(cmodel),
			SerialNo: nullable(cserial),
		}
	}
	return nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func collectEquipmentRows(rows *sql.Rows) ([]model.BookingEquipment, error) {
	defer rows.Close()
	out := []model.BookingEquipment{}
	for rows.Next() {
		var e model.BookingEquipment
		if err := scanEquipmentRow(rows, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEquipment returns every row of a basket in assignment order.
func (r *BasketRepo) ListEquipment(ctx context.Context, tx *sql.Tx, basketID uint64) ([]model.BookingEquipment, error) {
	rows, err := r.q(tx).QueryContext(ctx, "SELECT "+equipmentRowColumns+" FROM booking_equipment WHERE basket_id=? ORDER BY id", basketID)
	if err != nil {
		return nil, err
	}
	return collectEquipmentRows(rows)
}

// GetEquipment loads one assignment row.
func (r *BasketRepo) GetEquipment(ctx context.Context, tx *sql.Tx, id uint64) (model.BookingEquipment, error) {
	var e model.BookingEquipment
	err := scanEquipmentRow(r.q(tx).QueryRowContext(ctx, "SELECT "+equipmentRowColumns+" FROM booking_equipment WHERE id=?", id), &e)
	return e, mapErr(err)
}

// EquipmentForUpdateTx locks the given rows of one basket. Ids that do not
// exist or belong to another basket are absent from the result.
func (r *BasketRepo) EquipmentForUpdateTx(ctx context.Context, tx *sql.Tx, basketID uint64, ids []uint64) ([]model.BookingEquipment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := append([]any{basketID}, idArgs(ids)...)
	rows, err := r.q(tx).QueryContext(ctx, "SELECT "+equipmentRowColumns+" FROM booking_equipment WHERE basket_id=? AND id IN ("+
		placeholders(len(ids))+") ORDER BY id FOR UPDATE", args...)
	if err != nil {
		return nil, err
	}
	return collectEquipmentRows(rows)
}

// CheckedOutForUpdateTx locks and returns a basket's rows still Checked Out.
func (r *BasketRepo) CheckedOutForUpdateTx(ctx context.Context, tx *sql.Tx, basketID uint64) ([]model.BookingEquipment, error) {
	rows, err := r.q(tx).QueryContext(ctx, "SELECT "+equipmentRowColumns+
		" FROM booking_equipment WHERE basket_id=? AND assignment_status=? ORDER BY id FOR UPDATE", basketID, model.CheckedOut)
	if err != nil {
		return nil, err
	}
	return collectEquipmentRows(rows)
}

// CountCheckedOutTx counts a basket's rows still Checked Out.
func (r *BasketRepo) CountCheckedOutTx(ctx context.Context, tx *sql.Tx, basketID uint64) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, "SELECT COUNT(*) FROM booking_equipment WHERE basket_id=? AND assignment_status=?",
		basketID, model.CheckedOut).Scan(&n)
	return n, err
}

// CountEquipmentTx counts every row of a basket.
func (r *BasketRepo) CountEquipmentTx(ctx context.Context, tx *sql.Tx, basketID uint64) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, "SELECT COUNT(*) FROM booking_equipment WHERE basket_id=?", basketID).Scan(&n)
	return n, err
}

// InsertEquipmentBulkTx creates Checked Out rows for a basket in a single
// statement.
func (r *BasketRepo) InsertEquipmentBulkTx(ctx context.Context, tx *sql.Tx, rows []model.BookingEquipment) error {
	if len(rows) == 0 {
		return nil
	}
	query := `INSERT INTO booking_equipment (basket_id, booking_id, equipment_source, equipment_item_id,
		customer_equipment_type, customer_equipment_brand, customer_equipment_model, customer_equipment_serial,
		assignment_status, checkout_date, price, notes) VALUES `
	args := make([]any, 0, len(rows)*12)
	for i, e := range rows {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		var (
			itemID                         any
			ctype, cbrand, cmodel, cserial any
		)
		if e.Center != nil {
			itemID = e.Center.EquipmentItemID
		}
		if e.Customer != nil {
			ctype, cbrand, cmodel, cserial = e.Customer.Type, e.Customer.Brand, e.Customer.Model, e.Customer.SerialNo
		}
		args = append(args, e.BasketID, e.BookingID, string(e.Source), itemID, ctype, cbrand, cmodel, cserial,
			string(model.CheckedOut), e.CheckoutDate, e.Price, e.Notes)
	}
	_, err := r.q(tx).ExecContext(ctx, query, args...)
	return mapErr(err)
}

// TransitionTx moves the given rows from Checked Out to status, stamping the
// return date. It returns how many rows changed.
func (r *BasketRepo) TransitionTx(ctx context.Context, tx *sql.Tx, ids []uint64, to model.AssignmentStatus, on model.Date) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{string(to), on, string(model.CheckedOut)}, idArgs(ids)...)
	res, err := r.q(tx).ExecContext(ctx, "UPDATE booking_equipment SET assignment_status=?, return_date=? WHERE assignment_status=? AND id IN ("+
		placeholders(len(ids))+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateDamage records a damage report on an assignment row.
func (r *BasketRepo) UpdateDamage(ctx context.Context, id uint64, d model.DamageReport) error {
	var amount *decimal.Decimal
	if d.ChargeCustomer {
		amount = d.DamageChargeAmount
	}
	return affected(r.db.ExecContext(ctx, `UPDATE booking_equipment SET damage_reported=?, damage_description=?,
		charge_customer=?, damage_charge_amount=? WHERE id=?`, d.DamageReported, d.DamageDescription, d.ChargeCustomer, amount, id))
}
