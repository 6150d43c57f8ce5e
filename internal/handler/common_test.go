package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
)

func TestRespondErrorMapping(t *testing.T) {
	e := newEcho()
	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"bad request", badRequestf("invalid id"), http.StatusBadRequest, `{"error":"invalid id"}`},
		{"not found", fmt.Errorf("load: %w", repository.ErrNotFound), http.StatusNotFound, `{"error":"not found"}`},
		{"conflict", repository.ErrConflict, http.StatusConflict, `{"error":"conflicts with existing data"}`},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden, `{"error":"forbidden"}`},
		{"unknown", errors.New("socket closed"), http.StatusInternalServerError, `{"error":"internal error"}`},
		{
			"rule conflict",
			&service.RuleError{Kind: service.KindConflict, Code: "basket_returned", Message: "Basket is already returned."},
			http.StatusConflict,
			`{"error":"Basket is already returned.","code":"basket_returned"}`,
		},
		{
			"rule invalid",
			&service.RuleError{Kind: service.KindInvalid, Code: "invalid_amount", Message: "Amount must be positive."},
			http.StatusUnprocessableEntity,
			`{"error":"Amount must be positive.","code":"invalid_amount"}`,
		},
		{
			"rule missing ids",
			fmt.Errorf("wrapped: %w", &service.RuleError{Kind: service.KindNotFound, Code: "equipment_not_found", Message: "Unknown equipment.", IDs: []uint64{4, 9}}),
			http.StatusNotFound,
			`{"error":"Unknown equipment.","code":"equipment_not_found","ids":[4,9]}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := ctxFor(e, "/")
			require.NoError(t, respondError(c, tc.err))
			require.Equal(t, tc.code, rec.Code)
			require.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

type sampleReq struct {
	Email string `json:"email" validate:"required,email"`
	Items []struct {
		Quantity int `json:"quantity" validate:"gt=0"`
	} `json:"items" validate:"dive"`
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	e := newEcho()
	e.POST("/sample", func(c echo.Context) error {
		var req sampleReq
		if err := bindValid(c, &req); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})

	rec := send(e, http.MethodPost, "/sample", `{"email":"nope","items":[{"quantity":0}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.JSONEq(t, `{"error":"validation failed","errors":{
		"email":"must be a valid email",
		"items[0].quantity":"must be greater than 0"}}`, rec.Body.String())

	rec = send(e, http.MethodPost, "/sample", `{"email":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"invalid body"}`, rec.Body.String())

	rec = send(e, http.MethodPost, "/sample", `{"email":"a@b.co","items":[{"quantity":2}]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestParseID(t *testing.T) {
	e := newEcho()
	c, _ := ctxFor(e, "/")
	c.SetParamNames("id")

	c.SetParamValues("42")
	id, err := parseID(c, "id")
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)

	for _, raw := range []string{"0", "-1", "abc", ""} {
		c.SetParamValues(raw)
		_, err := parseID(c, "id")
		require.Error(t, err, raw)
	}
}

func TestQueryHelpers(t *testing.T) {
	e := newEcho()

	c, _ := ctxFor(e, "/?customer_id=7&from=2026-02-01&page=3&per_page=500")
	id, err := queryUint(c, "customer_id")
	require.NoError(t, err)
	require.Equal(t, uint64(7), *id)
	from, err := queryDate(c, "from")
	require.NoError(t, err)
	require.Equal(t, "2026-02-01", from.String())
	p := pageRequest(c)
	require.Equal(t, 3, p.Page)
	require.Equal(t, 100, p.PerPage)

	missing, err := queryUint(c, "booking_id")
	require.NoError(t, err)
	require.Nil(t, missing)

	c, _ = ctxFor(e, "/?customer_id=x&from=01-02-2026")
	_, err = queryUint(c, "customer_id")
	require.EqualError(t, err, "invalid customer_id")
	_, err = queryDate(c, "from")
	require.EqualError(t, err, "invalid from")
}

func TestTrimPtr(t *testing.T) {
	require.Nil(t, trimPtr(nil))
	blank := "   "
	require.Nil(t, trimPtr(&blank))
	v := "  Nitrox 32 "
	require.Equal(t, "Nitrox 32", *trimPtr(&v))
}
