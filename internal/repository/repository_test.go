package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment_items SET status=?")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := NewTxManager(db).InTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(context.Background(), "UPDATE equipment_items SET status=? WHERE id=?", "Lost", 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxCommits(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, NewTxManager(db).InTx(context.Background(), func(*sql.Tx) error { return nil }))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionTxTouchesCheckedOutRowsOnly(t *testing.T) {
	db, mock := newMock(t)
	on, err := model.ParseDate("2026-03-14")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE booking_equipment SET assignment_status=?, return_date=? WHERE assignment_status=? AND id IN (?,?)")).
		WithArgs("Returned", "2026-03-14", "Checked Out", int64(4), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewBasketRepo(db).TransitionTx(context.Background(), nil, []uint64{4, 5}, model.Returned, on)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseBasketTxRequiresActive(t *testing.T) {
	db, mock := newMock(t)
	on, err := model.ParseDate("2026-03-14")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE equipment_baskets SET status=?, actual_return_date=? WHERE id=? AND status=?")).
		WithArgs("Returned", "2026-03-14", int64(8), "Active").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewBasketRepo(db).CloseBasketTx(context.Background(), nil, 8, on)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetItemsStatusTxSkipsEmpty(t *testing.T) {
	db, mock := newMock(t)
	require.NoError(t, NewEquipmentRepo(db).SetItemsStatusTx(context.Background(), nil, nil, model.ItemAvailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapErr(t *testing.T) {
	require.NoError(t, mapErr(nil))
	require.ErrorIs(t, mapErr(sql.ErrNoRows), ErrNotFound)
	require.ErrorIs(t, mapErr(&mysql.MySQLError{Number: 1062}), ErrConflict)
	require.ErrorIs(t, mapErr(&mysql.MySQLError{Number: 1451}), ErrConflict)
	require.ErrorIs(t, mapErr(&mysql.MySQLError{Number: 1452}), ErrNotFound)

	other := &mysql.MySQLError{Number: 1205}
	require.Same(t, other, mapErr(other))
}

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "", placeholders(0))
	require.Equal(t, "?", placeholders(1))
	require.Equal(t, "?,?,?", placeholders(3))
}

func TestConsumeRefreshIsSingleUse(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP()")).
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM refresh_tokens WHERE token_hash=?")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP()")).
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	uid, err := repo.ConsumeRefresh(context.Background(), "h1")
	require.NoError(t, err)
	require.Equal(t, uint64(7), uid)

	_, err = repo.ConsumeRefresh(context.Background(), "h1")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

var diveCols = []string{"id", "booking_id", "dive_site", "boat", "instructor", "dive_date", "dive_time", "status",
	"max_depth", "duration_minutes", "gas_mix", "log_notes", "completed_at", "created_at", "updated_at"}

func diveRow(id int64, status string, logged bool) *sqlmock.Rows {
	at := time.Date(2026, 4, 2, 11, 0, 0, 0, time.UTC)
	if !logged {
		return sqlmock.NewRows(diveCols).AddRow(id, int64(3), "Banana Reef", nil, nil, "2026-04-02", "09:00", status,
			nil, nil, nil, nil, nil, at, at)
	}
	return sqlmock.NewRows(diveCols).AddRow(id, int64(3), "Banana Reef", nil, nil, "2026-04-02", "09:00", status,
		18.5, int64(45), "EAN32", "vis 20m", at, at, at)
}

func TestCompleteDiveRecordsLog(t *testing.T) {
	db, mock := newMock(t)
	notes := "vis 20m"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_dives SET status='Completed', max_depth=?")).
		WithArgs(18.5, int64(45), "EAN32", notes, sqlmock.AnyArg(), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_dives WHERE id=?")).
		WithArgs(int64(9)).
		WillReturnRows(diveRow(9, model.DiveCompleted, true))

	d, err := NewBookingRepo(db).CompleteDive(context.Background(), 9,
		model.DiveLog{MaxDepth: 18.5, DurationMinutes: 45, GasMix: "EAN32", Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, model.DiveCompleted, d.Status)
	require.NotNil(t, d.MaxDepth)
	require.Equal(t, 18.5, *d.MaxDepth)
	require.Equal(t, 45, *d.DurationMinutes)
	require.Equal(t, "EAN32", *d.GasMix)
	require.NotNil(t, d.CompletedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteDiveRequiresScheduled(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_dives SET status='Completed'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_dives WHERE id=?")).
		WithArgs(int64(9)).
		WillReturnRows(diveRow(9, model.DiveCancelled, false))

	_, err := NewBookingRepo(db).CompleteDive(context.Background(), 9,
		model.DiveLog{MaxDepth: 12, DurationMinutes: 40, GasMix: "Air"})
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelDiveUnknownID(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_dives SET status='Cancelled' WHERE id=? AND status='Scheduled'")).
		WithArgs(int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_dives WHERE id=?")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(diveCols))

	_, err := NewBookingRepo(db).CancelDive(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelDiveScheduled(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_dives SET status='Cancelled'")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_dives WHERE id=?")).
		WillReturnRows(diveRow(9, model.DiveCancelled, false))

	d, err := NewBookingRepo(db).CancelDive(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, model.DiveCancelled, d.Status)
	require.Nil(t, d.MaxDepth)
	require.NoError(t, mock.ExpectationsWereMet())
}
