package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/middleware"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
)

func TestBookingNeedsExactlyOneOwner(t *testing.T) {
	db, mock := newMock(t)
	h := NewBookingHandler(repository.NewBookingRepo(db))
	e := newEcho()
	e.POST("/v1/bookings", h.Create)

	for _, body := range []string{
		`{"booking_date":"2026-05-01"}`,
		`{"booking_date":"2026-05-01","customer_id":1,"dive_group_id":2}`,
	} {
		rec := send(e, http.MethodPost, "/v1/bookings", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.JSONEq(t, `{"error":"exactly one of customer_id and dive_group_id is required"}`, rec.Body.String())
	}

	rec := send(e, http.MethodPost, "/v1/bookings", `{"customer_id":1,"status":"Maybe"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDiveLifecycleStatusCodes(t *testing.T) {
	db, mock := newMock(t)
	h := NewBookingHandler(repository.NewBookingRepo(db))
	e := newEcho()
	e.POST("/v1/booking-dives/:id/complete", h.CompleteDive)
	e.POST("/v1/booking-dives/:id/cancel", h.CancelDive)

	rec := send(e, http.MethodPost, "/v1/booking-dives/9/complete", `{"max_depth":0,"duration_minutes":40}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// dive exists but was cancelled
	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_dives SET status='Completed'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_dives WHERE id=?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "booking_id", "dive_site", "boat", "instructor", "dive_date",
			"dive_time", "status", "max_depth", "duration_minutes", "gas_mix", "log_notes", "completed_at",
			"created_at", "updated_at"}).
			AddRow(int64(9), int64(3), "Banana Reef", nil, nil, "2026-04-02", nil, "Cancelled",
				nil, nil, nil, nil, nil, time.Now(), time.Now()))
	rec = send(e, http.MethodPost, "/v1/booking-dives/9/complete", `{"max_depth":18.5,"duration_minutes":45,"gas_mix":"Air"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"dive is no longer scheduled","code":"dive_not_scheduled"}`, rec.Body.String())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE booking_dives SET status='Cancelled'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_dives WHERE id=?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	rec = send(e, http.MethodPost, "/v1/booking-dives/404/cancel", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentDueWindowBounds(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewEquipmentRepo(db)
	h := NewEquipmentHandler(repo, service.NewEquipmentService(repository.NewTxManager(db), repo, nil), 7)
	e := newEcho()
	e.GET("/v1/equipment-items/due", h.Due)

	for _, q := range []string{"-1", "366", "soon"} {
		rec := send(e, http.MethodGet, "/v1/equipment-items/due?within_days="+q, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentHistoryOfUnknownItem(t *testing.T) {
	db, mock := newMock(t)
	repo := repository.NewEquipmentRepo(db)
	h := NewEquipmentHandler(repo, nil, 7)
	e := newEcho()
	e.GET("/v1/equipment-items/:id/service-history", h.History)

	mock.ExpectQuery(regexp.QuoteMeta("FROM equipment_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	rec := send(e, http.MethodGet, "/v1/equipment-items/12/service-history", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceDetailFlagsReconciledTotals(t *testing.T) {
	e := newEcho()

	c, rec := ctxFor(e, "/v1/invoices/1")
	require.NoError(t, detail(c, http.StatusOK, service.InvoiceDetail{Reconciled: true}))
	require.Equal(t, "true", rec.Header().Get(HeaderReconciled))
	require.NotContains(t, rec.Body.String(), "reconciled")
	require.Equal(t, true, c.Get(middleware.CtxReadWrote))

	c, rec = ctxFor(e, "/v1/invoices/2")
	require.NoError(t, detail(c, http.StatusOK, service.InvoiceDetail{}))
	require.Empty(t, rec.Header().Get(HeaderReconciled))
	require.Nil(t, c.Get(middleware.CtxReadWrote))
}

func TestInvoiceListRejectsUnknownStatus(t *testing.T) {
	h := NewInvoiceHandler(nil)
	e := newEcho()
	e.GET("/v1/invoices", h.List)

	rec := send(e, http.MethodGet, "/v1/invoices?status=Overdue", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"invalid status"}`, rec.Body.String())
}

func TestExpenseFilterRange(t *testing.T) {
	e := newEcho()
	c, _ := ctxFor(e, "/v1/expenses?from=2026-03-31&to=2026-03-01")
	_, err := expenseFilter(c)
	require.EqualError(t, err, "from must not be after to")

	c, _ = ctxFor(e, "/v1/expenses?from=2026-03-01&to=2026-03-31&category_id=4")
	f, err := expenseFilter(c)
	require.NoError(t, err)
	require.Equal(t, uint64(4), *f.CategoryID)
	require.Nil(t, f.SupplierID)
}
