package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
)

// SettingsRepo reads and writes the single dive-center settings row (id 1).
type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// Get returns the stored settings, or the defaults when no row exists.
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	return r.get(ctx, r.db)
}

// GetTx is Get inside a running transaction.
func (r *SettingsRepo) GetTx(ctx context.Context, tx *sql.Tx) (model.Settings, error) {
	if tx == nil {
		return r.get(ctx, r.db)
	}
	return r.get(ctx, tx)
}

func (r *SettingsRepo) get(ctx context.Context, q querier) (model.Settings, error) {
	var (
		s    model.Settings
		mode string
	)
	err := q.QueryRowContext(ctx,
		"SELECT name, currency, tax_calculation_mode, tax_rate, service_charge_rate FROM settings WHERE id=1").
		Scan(&s.Name, &s.Currency, &mode, &s.TaxRate, &s.ServiceChargeRate)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, err
	}
	s.TaxCalculationMode = billing.ParseMode(mode)
	return s, nil
}

// Save upserts the settings row.
func (r *SettingsRepo) Save(ctx context.Context, s model.Settings) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO settings (id, name, currency, tax_calculation_mode, tax_rate, service_charge_rate)
		VALUES (1, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name=VALUES(name), currency=VALUES(currency),
			tax_calculation_mode=VALUES(tax_calculation_mode), tax_rate=VALUES(tax_rate),
			service_charge_rate=VALUES(service_charge_rate)`,
		s.Name, s.Currency, string(s.TaxCalculationMode), s.TaxRate, s.ServiceChargeRate)
	return err
}
