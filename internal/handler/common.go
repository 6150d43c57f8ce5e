package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// Validator adapts go-playground/validator to echo. Field names in errors
// are the JSON names clients send.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// badRequest is a malformed request: unparsable body, path or query value.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

// bindValid binds the body into dst and runs the validator on it.
func bindValid(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequestf("invalid body")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fieldErrors flattens validator output to {"items[0].quantity": "..."}.
func fieldErrors(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		key := fe.Namespace()
		if i := strings.IndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		out[key] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "is invalid"
}

// respondError writes the JSON error response for err. Business-rule
// messages are passed through verbatim.
func respondError(c echo.Context, err error) error {
	var br badRequest
	if errors.As(err, &br) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": br.msg})
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "errors": fieldErrors(ve)})
	}
	if re, ok := service.AsRuleError(err); ok {
		body := echo.Map{"error": re.Message, "code": re.Code}
		if len(re.IDs) > 0 {
			body["ids"] = re.IDs
		}
		status := http.StatusConflict
		switch re.Kind {
		case service.KindInvalid:
			status = http.StatusUnprocessableEntity
		case service.KindNotFound:
			status = http.StatusNotFound
		}
		return c.JSON(status, body)
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflicts with existing data"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	slog.Error("request failed",
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"method", c.Request().Method,
		"route", c.Path(),
		"err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequestf("invalid %s", name)
	}
	return id, nil
}

// pageRequest reads ?page= and ?per_page=, clamped to the list limits.
func pageRequest(c echo.Context) model.PageRequest {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	per, _ := strconv.Atoi(c.QueryParam("per_page"))
	return model.NewPageRequest(page, per)
}

// queryUint reads an optional positive integer query parameter.
func queryUint(c echo.Context, name string) (*uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return nil, badRequestf("invalid %s", name)
	}
	return &v, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter.
func queryDate(c echo.Context, name string) (*model.Date, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, badRequestf("invalid %s", name)
	}
	return &d, nil
}

// trimPtr trims s and turns blank strings into nil.
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
