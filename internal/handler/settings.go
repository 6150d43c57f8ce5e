package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

// SettingsHandler serves the dive-center settings row.
type SettingsHandler struct {
	Repo *repository.SettingsRepo
}

func NewSettingsHandler(r *repository.SettingsRepo) *SettingsHandler {
	return &SettingsHandler{Repo: r}
}

type settingsReq struct {
	Name               string         `json:"name" validate:"required,max=150"`
	Currency           string         `json:"currency" validate:"required,len=3"`
	TaxCalculationMode string         `json:"tax_calculation_mode" validate:"omitempty,oneof=inclusive exclusive"`
	TaxRate            billing.Amount `json:"tax_rate"`
	ServiceChargeRate  billing.Amount `json:"service_charge_rate"`
}

var maxRate = decimal.NewFromInt(100)

func validRate(d decimal.Decimal) bool {
	return d.Sign() >= 0 && d.LessThanOrEqual(maxRate)
}

// Get GET /v1/settings
func (h *SettingsHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Repo.Get(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Update PUT /v1/settings. Rates are percentages between 0 and 100.
func (h *SettingsHandler) Update(c echo.Context) error {
	var req settingsReq
	if err := bindValid(c, &req); err != nil {
		return respondError(c, err)
	}
	if !validRate(req.TaxRate.Decimal) {
		return respondError(c, badRequestf("tax_rate must be between 0 and 100"))
	}
	if !validRate(req.ServiceChargeRate.Decimal) {
		return respondError(c, badRequestf("service_charge_rate must be between 0 and 100"))
	}
	s := model.Settings{
		Name:               strings.TrimSpace(req.Name),
		Currency:           strings.ToUpper(strings.TrimSpace(req.Currency)),
		TaxCalculationMode: billing.ParseMode(req.TaxCalculationMode),
		TaxRate:            req.TaxRate.Round(2),
		ServiceChargeRate:  req.ServiceChargeRate.Round(2),
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Repo.Save(ctx, s); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
