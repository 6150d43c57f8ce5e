package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

func customerEcho(t *testing.T) (*CustomerHandler, sqlmock.Sqlmock, func(method, target, body string) (int, string)) {
	t.Helper()
	db, mock := newMock(t)
	h := NewCustomerHandler(repository.NewCustomerRepo(db))
	e := newEcho()
	e.GET("/v1/customers/:id", h.Get)
	e.POST("/v1/customers", h.Create)
	e.GET("/v1/customers/:id/certifications", h.ListCertifications)
	e.DELETE("/v1/customers/:id", h.Delete)
	return h, mock, func(method, target, body string) (int, string) {
		rec := send(e, method, target, body)
		return rec.Code, rec.Body.String()
	}
}

func TestCustomerGetUnknownIs404(t *testing.T) {
	_, mock, do := customerEcho(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM customers WHERE id=?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	code, body := do(http.MethodGet, "/v1/customers/9", "")
	require.Equal(t, http.StatusNotFound, code)
	require.JSONEq(t, `{"error":"not found"}`, body)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerBadID(t *testing.T) {
	_, _, do := customerEcho(t)
	code, body := do(http.MethodGet, "/v1/customers/abc", "")
	require.Equal(t, http.StatusBadRequest, code)
	require.JSONEq(t, `{"error":"invalid id"}`, body)
}

func TestCustomerCreateValidation(t *testing.T) {
	_, mock, do := customerEcho(t)
	code, body := do(http.MethodPost, "/v1/customers", `{"full_name":"","email":"not-an-email"}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.JSONEq(t, `{"error":"validation failed","errors":{
		"full_name":"is required","email":"must be a valid email"}}`, body)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificationsOfUnknownCustomer(t *testing.T) {
	_, mock, do := customerEcho(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM customers WHERE id=?")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	code, _ := do(http.MethodGet, "/v1/customers/5/certifications", "")
	require.Equal(t, http.StatusNotFound, code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomerDeleteStillReferenced(t *testing.T) {
	_, mock, do := customerEcho(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM customers WHERE id=?")).
		WithArgs(int64(3)).
		WillReturnError(mysqlErr(1451))

	code, body := do(http.MethodDelete, "/v1/customers/3", "")
	require.Equal(t, http.StatusConflict, code)
	require.JSONEq(t, `{"error":"conflicts with existing data"}`, body)
}
