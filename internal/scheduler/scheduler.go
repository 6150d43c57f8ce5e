// Package scheduler runs the periodic background jobs of the API.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
)

// scanTimeout bounds one run of the service-due scan.
const scanTimeout = time.Minute

// DueScanner is the equipment service check run by the scheduler.
type DueScanner interface {
	ScanDue(ctx context.Context, withinDays int) (service.DueReport, error)
}

// Start schedules the service-due scan on spec (standard five-field cron)
// and starts the cron runner. Stop the returned runner on shutdown.
func Start(spec string, withinDays int, s DueScanner) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, scanJob(s, withinDays)); err != nil {
		return nil, fmt.Errorf("schedule service due scan %q: %w", spec, err)
	}
	c.Start()
	slog.Info("scheduler started", "service_due_cron", spec, "within_days", withinDays)
	return c, nil
}

func scanJob(s DueScanner, withinDays int) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()
		if _, err := s.ScanDue(ctx, withinDays); err != nil {
			slog.Error("service due scan failed", "err", err)
		}
	}
}
