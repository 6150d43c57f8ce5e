package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/config"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/middleware"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/utils"
)

const testSecret = "test-secret"

func authEcho(t *testing.T) (sqlmock.Sqlmock, *echo.Echo) {
	t.Helper()
	db, mock := newMock(t)
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	e := newEcho()
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)
	e.GET("/v1/auth/me", h.Me, middleware.JWTAuth(testSecret))
	return mock, e
}

func bearerFor(t *testing.T, id uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(testSecret, id, role, 5)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

const newStaff = `{"email":"ops@reef.test","full_name":"Ops","password":"longenough"}`

func TestRegisterValidation(t *testing.T) {
	mock, e := authEcho(t)
	rec := send(e, http.MethodPost, "/v1/auth/register", `{"email":"x","full_name":"","password":"short","role":"OWNER"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.JSONEq(t, `{"error":"validation failed","errors":{
		"email":"must be a valid email",
		"full_name":"is required",
		"password":"must be at least 8",
		"role":"must be one of: ADMIN STAFF"}}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterAfterFirstAccountNeedsAdmin(t *testing.T) {
	mock, e := authEcho(t)
	count := func() {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
			WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	}

	count()
	rec := send(e, http.MethodPost, "/v1/auth/register", newStaff)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	count()
	rec = send(e, http.MethodPost, "/v1/auth/register", newStaff,
		echo.HeaderAuthorization, bearerFor(t, 2, "STAFF"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	mock, e := authEcho(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("ops@reef.test", "Ops", sqlmock.AnyArg(), "ADMIN").
		WillReturnError(mysqlErr(1062))

	rec := send(e, http.MethodPost, "/v1/auth/register", newStaff)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"email already exists"}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	mock, e := authEcho(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=? LIMIT 1")).
		WithArgs("nobody@reef.test").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := send(e, http.MethodPost, "/v1/auth/login", `{"email":" Nobody@Reef.test ","password":"whatever1"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeRequiresToken(t *testing.T) {
	_, e := authEcho(t)
	require.Equal(t, http.StatusUnauthorized, send(e, http.MethodGet, "/v1/auth/me", "").Code)
}
