package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// BookingRepo persists bookings and their scheduled dives.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id, customer_id, dive_group_id, booking_date, status, number_of_divers, notes, created_at, updated_at"

func scanBooking(s interface{ Scan(...any) error }, b *model.Booking) error {
	return s.Scan(&b.ID, &b.CustomerID, &b.DiveGroupID, &b.BookingDate, &b.Status, &b.NumDivers, &b.Notes, &b.CreatedAt, &b.UpdatedAt)
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	CustomerID *uint64
	Status     string
	From       *model.Date
	To         *model.Date
}

// Create inserts a booking.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO bookings (customer_id, dive_group_id, booking_date, status, number_of_divers, notes)
		VALUES (?,?,?,?,?,?)`, b.CustomerID, b.DiveGroupID, b.BookingDate, b.Status, b.NumDivers, b.Notes)
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
	*b = got
	return nil
}

// GetByID loads one booking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id=?", id), &b)
	return b, mapErr(err)
}

// List returns one page of bookings, newest booking date first.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter, p model.PageRequest) ([]model.Booking, int, error) {
	where := " WHERE 1=1"
	var args []any
	if f.CustomerID != nil {
		where += " AND customer_id=?"
		args = append(args, *f.CustomerID)
	}
	if f.Status != "" {
		where += " AND status=?"
		args = append(args, f.Status)
	}
	if f.From != nil {
		where += " AND booking_date>=?"
		args = append(args, *f.From)
	}
	if f.To != nil {
		where += " AND booking_date<=?"
		args = append(args, *f.To)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+bookingColumns+" FROM bookings"+where+
		" ORDER BY booking_date DESC, id DESC LIMIT ? OFFSET ?", append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

// Update overwrites the editable booking fields.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	err := affected(r.db.ExecContext(ctx, `UPDATE bookings SET customer_id=?, dive_group_id=?, booking_date=?, status=?,
		number_of_divers=?, notes=? WHERE id=?`, b.CustomerID, b.DiveGroupID, b.BookingDate, b.Status, b.NumDivers, b.Notes, b.ID))
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = got
	return nil
}

// Delete removes a booking and its dives. Bookings referenced by baskets or
// invoices yield ErrConflict.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id))
}

// ---- Dives ----

const diveColumns = `id, booking_id, dive_site, boat, instructor, dive_date, dive_time, status,
	max_depth, duration_minutes, gas_mix, log_notes, completed_at, created_at, updated_at`

func scanDive(s interface{ Scan(...any) error }, d *model.BookingDive) error {
	return s.Scan(&d.ID, &d.BookingID, &d.DiveSite, &d.Boat, &d.Instructor, &d.DiveDate, &d.DiveTime, &d.Status,
		&d.MaxDepth, &d.DurationMinutes, &d.GasMix, &d.LogNotes, &d.CompletedAt, &d.CreatedAt, &d.UpdatedAt)
}

// CreateDive schedules a dive under a booking.
func (r *BookingRepo) CreateDive(ctx context.Context, d *model.BookingDive) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO booking_dives (booking_id, dive_site, boat, instructor, dive_date, dive_time, status)
		VALUES (?,?,?,?,?,?,?)`, d.BookingID, d.DiveSite, d.Boat, d.Instructor, d.DiveDate, d.DiveTime, d.Status)
	if err != nil {
		return mapErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetDive(ctx, uint64(id))
	if err != nil {
		return err
	}
	*d = got
	return nil
}

// GetDive loads one dive.
func (r *BookingRepo) GetDive(ctx context.Context, id uint64) (model.BookingDive, error) {
	var d model.BookingDive
	err := scanDive(r.db.QueryRowContext(ctx, "SELECT "+diveColumns+" FROM booking_dives WHERE id=?", id), &d)
	return d, mapErr(err)
}

// ListDives returns the dives of a booking, or of all bookings on a date
// when bookingID is zero and date is set.
func (r *BookingRepo) ListDives(ctx context.Context, bookingID uint64, date *model.Date) ([]model.BookingDive, error) {
	where := " WHERE 1=1"
	var args []any
	if bookingID != 0 {
		where += " AND booking_id=?"
		args = append(args, bookingID)
	}
	if date != nil {
		where += " AND dive_date=?"
		args = append(args, *date)
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+diveColumns+" FROM booking_dives"+where+" ORDER BY dive_date, dive_time, id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDive{}
	for rows.Next() {
		var d model.BookingDive
		if err := scanDive(rows, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDive overwrites the schedule fields of a dive still Scheduled.
func (r *BookingRepo) UpdateDive(ctx context.Context, d *model.BookingDive) error {
	res, err := r.db.ExecContext(ctx, `UPDATE booking_dives SET dive_site=?, boat=?, instructor=?, dive_date=?, dive_time=?
		WHERE id=? AND status='Scheduled'`, d.DiveSite, d.Boat, d.Instructor, d.DiveDate, d.DiveTime, d.ID)
	if err := r.scheduledOnly(ctx, d.ID, res, err); err != nil {
		return err
	}
	got, err := r.GetDive(ctx, d.ID)
	if err != nil {
		return err
	}
	*d = got
	return nil
}

// CompleteDive records the dive log and marks the dive Completed.
func (r *BookingRepo) CompleteDive(ctx context.Context, id uint64, log model.DiveLog) (model.BookingDive, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE booking_dives SET status='Completed', max_depth=?, duration_minutes=?,
		gas_mix=?, log_notes=?, completed_at=? WHERE id=? AND status='Scheduled'`,
		log.MaxDepth, log.DurationMinutes, log.GasMix, log.Notes, time.Now().UTC(), id)
	if err := r.scheduledOnly(ctx, id, res, err); err != nil {
		return model.BookingDive{}, err
	}
	return r.GetDive(ctx, id)
}

// CancelDive marks a scheduled dive Cancelled.
func (r *BookingRepo) CancelDive(ctx context.Context, id uint64) (model.BookingDive, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE booking_dives SET status='Cancelled' WHERE id=? AND status='Scheduled'", id)
	if err := r.scheduledOnly(ctx, id, res, err); err != nil {
		return model.BookingDive{}, err
	}
	return r.GetDive(ctx, id)
}

// DeleteDive removes a dive.
func (r *BookingRepo) DeleteDive(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM booking_dives WHERE id=?", id))
}

// scheduledOnly distinguishes a missing dive (ErrNotFound) from one that is
// no longer Scheduled (ErrConflict) after a guarded update touched no rows.
func (r *BookingRepo) scheduledOnly(ctx context.Context, id uint64, res sql.Result, err error) error {
	if err := affected(res, err); err != ErrNotFound {
		return err
	}
	if _, err := r.GetDive(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

// ---- Dive groups ----

// CreateGroup inserts a dive group with its members in one transaction.
func (r *BookingRepo) CreateGroup(ctx context.Context, g *model.DiveGroup) error {
	err := NewTxManager(r.db).InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "INSERT INTO dive_groups (name, description) VALUES (?,?)", g.Name, g.Description)
		if err != nil {
			return mapErr(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		g.ID = uint64(id)
		return r.replaceMembersTx(ctx, tx, g.ID, g.MemberIDs)
	})
	if err != nil {
		return err
	}
	got, err := r.GetGroup(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = got
	return nil
}

// UpdateGroup renames a group and replaces its member list.
func (r *BookingRepo) UpdateGroup(ctx context.Context, g *model.DiveGroup) error {
	err := NewTxManager(r.db).InTx(ctx, func(tx *sql.Tx) error {
		if err := affected(tx.ExecContext(ctx, "UPDATE dive_groups SET name=?, description=? WHERE id=?", g.Name, g.Description, g.ID)); err != nil {
			return err
		}
		return r.replaceMembersTx(ctx, tx, g.ID, g.MemberIDs)
	})
	if err != nil {
		return err
	}
	got, err := r.GetGroup(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = got
	return nil
}

func (r *BookingRepo) replaceMembersTx(ctx context.Context, tx *sql.Tx, groupID uint64, members []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM dive_group_members WHERE dive_group_id=?", groupID); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	query := "INSERT IGNORE INTO dive_group_members (dive_group_id, customer_id) VALUES "
	args := make([]any, 0, len(members)*2)
	for i, m := range members {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, groupID, m)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapErr(err)
}

// GetGroup loads a group with its member ids.
func (r *BookingRepo) GetGroup(ctx context.Context, id uint64) (model.DiveGroup, error) {
	var g model.DiveGroup
	err := r.db.QueryRowContext(ctx, "SELECT id, name, description, created_at, updated_at FROM dive_groups WHERE id=?", id).
		Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return g, mapErr(err)
	}
	g.MemberIDs, err = r.groupMembers(ctx, id)
	return g, err
}

func (r *BookingRepo) groupMembers(ctx context.Context, id uint64) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT customer_id FROM dive_group_members WHERE dive_group_id=? ORDER BY customer_id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []uint64{}
	for rows.Next() {
		var cid uint64
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		ids = append(ids, cid)
	}
	return ids, rows.Err()
}

// ListGroups returns all dive groups by name, members included.
func (r *BookingRepo) ListGroups(ctx context.Context) ([]model.DiveGroup, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, description, created_at, updated_at FROM dive_groups ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	var out []model.DiveGroup
	for rows.Next() {
		var g model.DiveGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].MemberIDs, err = r.groupMembers(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = []model.DiveGroup{}
	}
	return out, nil
}

// DeleteGroup removes a group. Groups referenced by bookings yield
// ErrConflict.
func (r *BookingRepo) DeleteGroup(ctx context.Context, id uint64) error {
	return affected(r.db.ExecContext(ctx, "DELETE FROM dive_groups WHERE id=?", id))
}
