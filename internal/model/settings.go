package model

import (
	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
)

// Settings is the dive center's single configuration row.
type Settings struct {
	Name               string          `json:"name"`
	Currency           string          `json:"currency"`
	TaxCalculationMode billing.Mode    `json:"tax_calculation_mode"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	ServiceChargeRate  decimal.Decimal `json:"service_charge_rate"`
}

// DefaultSettings applies when no settings row exists yet.
func DefaultSettings() Settings {
	return Settings{
		Name:               "Dive Center",
		Currency:           "USD",
		TaxCalculationMode: billing.DefaultMode,
		TaxRate:            decimal.Zero,
		ServiceChargeRate:  decimal.Zero,
	}
}

// Rates converts the percentages for the billing package.
func (s Settings) Rates() billing.Rates {
	return billing.Rates{TaxPercent: s.TaxRate, ServiceChargePercent: s.ServiceChargeRate}
}
