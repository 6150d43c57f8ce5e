package repository

import (
	"context"
	"database/sql"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// EquipmentRepo persists the equipment catalog, its serialized items and
// their service history.
type EquipmentRepo struct{ db *sql.DB }

func NewEquipmentRepo(db *sql.DB) *EquipmentRepo { return &EquipmentRepo{db: db} }

func (r *EquipmentRepo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.db
}

// ---- Catalog ----

const equipmentColumns = "id, name, category, brand, model, rental_price, service_interval_days, created_at, updated_at"

func scanEquipment(s interface{ Scan(...any) error }, e *model.Equipment) error {
	return s.Scan(&e.ID, &e.Name, &e.Category, &e.Brand, &e.Model, &e.RentalPrice, &e.ServiceIntervalDays, &e.CreatedAt, &e.UpdatedAt)
}

// Create inserts a catalog entry.
func (r *EquipmentRepo) Create(ctx context.Context, e *model.Equipment) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO equipment (name, category, brand, model, rental_price, service_interval_days)
		VALUES (?,?,?,?,?,?)`, e.Name, e.Category, e.Brand, e.Model, e.RentalPrice, e.ServiceIntervalDays)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// GetByID loads one catalog entry.
func (r *EquipmentRepo) GetByID(ctx context.Context, id uint64) (model.Equipment, error) {
	var e model.Equipment
	err := scanEquipment(r.db.QueryRowContext(ctx, "SELECT "+equipmentColumns+" FROM equipment WHERE id=?", id), &e)
	return e, mapErr(err)
}

// List returns a page of catalog entries, optionally of one category.
func (r *EquipmentRepo) List(ctx context.Context, category string, p model.PageRequest) ([]model.Equipment, int, error) {
	where := ""
	var args []any
	if category != "" {
		where = " WHERE category=?"
		args = append(args, category)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM equipment"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+equipmentColumns+" FROM equipment"+where+" ORDER BY category, name, id LIMIT ? OFFSET ?",
		append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Equipment
	for rows.Next() {
		var e model.Equipment
		if err := scanEquipment(rows, &e); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// Update overwrites a catalog entry.
func (r *EquipmentRepo) Update(ctx context.Context, e *model.Equipment) error {
	err := affected(r.db.ExecContext(ctx, `UPDATE equipment SET name=?, category=?, brand=?, model=?, rental_price=?,
		service_interval_days=? WHERE id=?`, e.Name, e.Category, e.Brand, e.Model, e.RentalPrice, e.ServiceIntervalDays, e.ID))
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = got
	return nil
}

// Delete removes a catalog entry that has no items.
func (r *EquipmentRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM equipment WHERE id=?", id))
}

// ---- Items ----

const itemSelect = `SELECT i.id, i.equipment_id, e.name, i.serial_no, i.size, i.status, i.purchase_date,
	i.last_service_date, i.next_service_date, i.requires_service, i.service_interval_days, i.created_at, i.updated_at
	FROM equipment_items i JOIN equipment e ON e.id = i.equipment_id`

func scanItem(s interface{ Scan(...any) error }, it *model.EquipmentItem) error {
	return s.Scan(&it.ID, &it.EquipmentID, &it.EquipmentName, &it.SerialNo, &it.Size, &it.Status, &it.PurchaseDate,
		&it.LastServiceDate, &it.NextServiceDate, &it.RequiresService, &it.ServiceIntervalDays, &it.CreatedAt, &it.UpdatedAt)
}

func collectItems(rows *sql.Rows) ([]model.EquipmentItem, error) {
	defer rows.Close()
	out := []model.EquipmentItem{}
	for rows.Next() {
		var it model.EquipmentItem
		if err := scanItem(rows, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CreateItem inserts a serialized unit.
func (r *EquipmentRepo) CreateItem(ctx context.Context, it *model.EquipmentItem) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO equipment_items (equipment_id, serial_no, size, status, purchase_date,
		last_service_date, next_service_date, requires_service, service_interval_days) VALUES (?,?,?,?,?,?,?,?,?)`,
		it.EquipmentID, it.SerialNo, it.Size, it.Status, it.PurchaseDate, it.LastServiceDate, it.NextServiceDate,
		it.RequiresService, it.ServiceIntervalDays)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetItem(ctx, uint64(id))
	if err != nil {
		return err
	}
	*it = got
	return nil
}

// GetItem loads one item with its type name.
func (r *EquipmentRepo) GetItem(ctx context.Context, id uint64) (model.EquipmentItem, error) {
	var it model.EquipmentItem
	err := scanItem(r.db.QueryRowContext(ctx, itemSelect+" WHERE i.id=?", id), &it)
	return it, mapErr(err)
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	EquipmentID *uint64
	Status      string
}

// ListItems returns a page of items.
func (r *EquipmentRepo) ListItems(ctx context.Context, f ItemFilter, p model.PageRequest) ([]model.EquipmentItem, int, error) {
	where := " WHERE 1=1"
	var args []any
	if f.EquipmentID != nil {
		where += " AND i.equipment_id=?"
		args = append(args, *f.EquipmentID)
	}
	if f.Status != "" {
		where += " AND i.status=?"
		args = append(args, f.Status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM equipment_items i"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, itemSelect+where+" ORDER BY e.name, i.serial_no LIMIT ? OFFSET ?",
		append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectItems(rows)
	return items, total, err
}

// UpdateItem overwrites an item's editable fields.
func (r *EquipmentRepo) UpdateItem(ctx context.Context, it *model.EquipmentItem) error {
	err := affected(r.db.ExecContext(ctx, `UPDATE equipment_items SET serial_no=?, size=?, status=?, purchase_date=?,
		next_service_date=?, requires_service=?, service_interval_days=? WHERE id=?`,
		it.SerialNo, it.Size, it.Status, it.PurchaseDate, it.NextServiceDate, it.RequiresService, it.ServiceIntervalDays, it.ID))
	if err != nil {
		return err
	}
	got, err := r.GetItem(ctx, it.ID)
	if err != nil {
		return err
	}
	*it = got
	return nil
}

// DeleteItem removes an item that was never assigned.
func (r *EquipmentRepo) DeleteItem(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM equipment_items WHERE id=?", id))
}

// DueItems lists items that require service with a next service date on or
// before the given day. Overdue items use today as the cutoff.
func (r *EquipmentRepo) DueItems(ctx context.Context, onOrBefore model.Date) ([]model.EquipmentItem, error) {
	rows, err := r.db.QueryContext(ctx, itemSelect+` WHERE i.requires_service=1 AND i.next_service_date IS NOT NULL
		AND i.next_service_date<=? AND i.status<>'Retired' ORDER BY i.next_service_date, i.id`, onOrBefore)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// ServiceTarget is an item plus the type-level interval needed to compute
// its next service date.
type ServiceTarget struct {
	ItemID       uint64
	ItemInterval *int
	TypeInterval *int
}

// ServiceTargetsForUpdateTx locks the given items and returns their service
// intervals. Unknown ids are simply absent from the result.
func (r *EquipmentRepo) ServiceTargetsForUpdateTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]ServiceTarget, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q(tx).QueryContext(ctx, `SELECT i.id, i.service_interval_days, e.service_interval_days
		FROM equipment_items i JOIN equipment e ON e.id = i.equipment_id
		WHERE i.id IN (`+placeholders(len(ids))+`) ORDER BY i.id FOR UPDATE`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ServiceTarget
	for rows.Next() {
		var t ServiceTarget
		if err := rows.Scan(&t.ItemID, &t.ItemInterval, &t.TypeInterval); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkServicedTx stamps the service date on an item. A nil next date keeps
// the item's existing next_service_date.
func (r *EquipmentRepo) MarkServicedTx(ctx context.Context, tx *sql.Tx, itemID uint64, serviced model.Date, next *model.Date) error {
	return affected(r.q(tx).ExecContext(ctx, `UPDATE equipment_items SET last_service_date=?,
		next_service_date=COALESCE(?, next_service_date) WHERE id=?`, serviced, next, itemID))
}

// InsertHistoryBulkTx writes one service history row per record in a single
// statement.
func (r *EquipmentRepo) InsertHistoryBulkTx(ctx context.Context, tx *sql.Tx, recs []model.ServiceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	query := `INSERT INTO equipment_service_history (equipment_item_id, service_date, service_type, technician,
		service_provider, cost, notes, next_service_due_date) VALUES `
	args := make([]any, 0, len(recs)*8)
	for i, h := range recs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, h.EquipmentItemID, h.ServiceDate, h.ServiceType, h.Technician, h.ServiceProvider, h.Cost, h.Notes, h.NextServiceDueDate)
	}
	_, err := r.q(tx).ExecContext(ctx, query, args...)
	return mapErr(err)
}

// History returns an item's service records, most recent first.
func (r *EquipmentRepo) History(ctx context.Context, itemID uint64) ([]model.ServiceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, equipment_item_id, service_date, service_type, technician,
		service_provider, cost, notes, next_service_due_date, created_at
		FROM equipment_service_history WHERE equipment_item_id=? ORDER BY service_date DESC, id DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ServiceRecord{}
	for rows.Next() {
		var h model.ServiceRecord
		if err := rows.Scan(&h.ID, &h.EquipmentItemID, &h.ServiceDate, &h.ServiceType, &h.Technician,
			&h.ServiceProvider, &h.Cost, &h.Notes, &h.NextServiceDueDate, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ItemStatus is the lockable subset of an item used when assigning gear.
type ItemStatus struct {
	ID        uint64
	Status    string
	Equipment model.Equipment
}

// ItemsForUpdateTx locks the given items and returns their status together
// with the catalog rental price.
func (r *EquipmentRepo) ItemsForUpdateTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]ItemStatus, error) {
	out := make(map[uint64]ItemStatus, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.q(tx).QueryContext(ctx, `SELECT i.id, i.status, e.id, e.name, e.rental_price
		FROM equipment_items i JOIN equipment e ON e.id = i.equipment_id
		WHERE i.id IN (`+placeholders(len(ids))+`) FOR UPDATE`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s ItemStatus
		if err := rows.Scan(&s.ID, &s.Status, &s.Equipment.ID, &s.Equipment.Name, &s.Equipment.RentalPrice); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// SetItemsStatusTx moves the given items to status in one statement.
func (r *EquipmentRepo) SetItemsStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status string) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{status}, idArgs(ids)...)
	_, err := r.q(tx).ExecContext(ctx, "UPDATE equipment_items SET status=? WHERE id IN ("+placeholders(len(ids))+")", args...)
	return err
}
