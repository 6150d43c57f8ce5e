package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/queue"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

// ServiceStore is the persistence used for servicing equipment items.
type ServiceStore interface {
	ServiceTargetsForUpdateTx(ctx context.Context, tx *sql.Tx, ids []uint64) ([]repository.ServiceTarget, error)
	MarkServicedTx(ctx context.Context, tx *sql.Tx, itemID uint64, serviced model.Date, next *model.Date) error
	InsertHistoryBulkTx(ctx context.Context, tx *sql.Tx, recs []model.ServiceRecord) error
	DueItems(ctx context.Context, onOrBefore model.Date) ([]model.EquipmentItem, error)
}

// BulkServiceResult summarises a bulk service.
type BulkServiceResult struct {
	Serviced int                   `json:"serviced"`
	Records  []model.ServiceRecord `json:"records"`
}

// DueReport splits items needing service into overdue and due soon.
type DueReport struct {
	Overdue []model.EquipmentItem `json:"overdue"`
	DueSoon []model.EquipmentItem `json:"due_soon"`
}

// EquipmentService applies service-tracking rules.
type EquipmentService struct {
	tx     TxRunner
	items  ServiceStore
	events Publisher
	today  func() model.Date
}

// NewEquipmentService wires the service. events may be nil.
func NewEquipmentService(tx TxRunner, items ServiceStore, events Publisher) *EquipmentService {
	return &EquipmentService{tx: tx, items: items, events: events, today: model.Today}
}

// BulkService records one service event against many items in a single
// transaction: a history row per item plus updated service dates. Unknown
// ids abort the whole operation.
func (s *EquipmentService) BulkService(ctx context.Context, in model.BulkService) (BulkServiceResult, error) {
	ids := dedupe(in.ItemIDs)
	if len(ids) == 0 {
		return BulkServiceResult{}, invalid("equipment_item_ids_required", "Select at least one equipment item.")
	}
	if in.Cost != nil && in.Cost.Sign() < 0 {
		return BulkServiceResult{}, invalid("cost_invalid", "Service cost cannot be negative.")
	}
	if in.NextServiceDueDate != nil && in.NextServiceDueDate.Before(in.ServiceDate.Time) {
		return BulkServiceResult{}, invalid("next_service_before_service", "Next service date cannot be before the service date.")
	}

	var out BulkServiceResult
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		targets, err := s.items.ServiceTargetsForUpdateTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(targets) != len(ids) {
			found := make(map[uint64]bool, len(targets))
			for _, t := range targets {
				found[t.ItemID] = true
			}
			var unknown []uint64
			for _, id := range ids {
				if !found[id] {
					unknown = append(unknown, id)
				}
			}
			return missing("equipment_item_not_found", unknown, "Equipment items not found: %s.", joinIDs(unknown))
		}

		recs := make([]model.ServiceRecord, 0, len(targets))
		for _, t := range targets {
			next := in.NextServiceDueDate
			if next == nil {
				next = model.NextServiceDate(in.ServiceDate, t.ItemInterval, t.TypeInterval)
			}
			if err := s.items.MarkServicedTx(ctx, tx, t.ItemID, in.ServiceDate, next); err != nil {
				return err
			}
			recs = append(recs, model.ServiceRecord{
				EquipmentItemID:    t.ItemID,
				ServiceDate:        in.ServiceDate,
				ServiceType:        in.ServiceType,
				Technician:         in.Technician,
				ServiceProvider:    in.ServiceProvider,
				Cost:               in.Cost,
				Notes:              in.Notes,
				NextServiceDueDate: next,
			})
		}
		if err := s.items.InsertHistoryBulkTx(ctx, tx, recs); err != nil {
			return err
		}
		out = BulkServiceResult{Serviced: len(recs), Records: recs}
		return nil
	})
	if err != nil {
		return BulkServiceResult{}, err
	}
	slog.Info("equipment serviced", "items", out.Serviced, "service_type", in.ServiceType, "service_date", in.ServiceDate.String())
	return out, nil
}

// Due lists items overdue today and items falling due within the next
// withinDays days.
func (s *EquipmentService) Due(ctx context.Context, withinDays int) (DueReport, error) {
	if withinDays < 0 {
		withinDays = 0
	}
	today := s.today()
	items, err := s.items.DueItems(ctx, today.AddDays(withinDays))
	if err != nil {
		return DueReport{}, err
	}
	rep := DueReport{Overdue: []model.EquipmentItem{}, DueSoon: []model.EquipmentItem{}}
	for _, it := range items {
		if it.IsOverdue(today) {
			rep.Overdue = append(rep.Overdue, it)
		} else {
			rep.DueSoon = append(rep.DueSoon, it)
		}
	}
	return rep, nil
}

// ScanDue is the scheduled check. It logs the result and publishes one
// equipment.service_due event when anything needs attention.
func (s *EquipmentService) ScanDue(ctx context.Context, withinDays int) (DueReport, error) {
	rep, err := s.Due(ctx, withinDays)
	if err != nil {
		return DueReport{}, err
	}
	total := len(rep.Overdue) + len(rep.DueSoon)
	slog.Info("service due scan", "overdue", len(rep.Overdue), "due_soon", len(rep.DueSoon), "within_days", withinDays)
	if total == 0 {
		return rep, nil
	}
	p := queue.ServiceDuePayload{
		ItemIDs:   make([]uint64, 0, total),
		Serials:   make([]string, 0, total),
		Overdue:   len(rep.Overdue),
		CheckedOn: s.today().String(),
	}
	for _, group := range [][]model.EquipmentItem{rep.Overdue, rep.DueSoon} {
		for _, it := range group {
			p.ItemIDs = append(p.ItemIDs, it.ID)
			p.Serials = append(p.Serials, it.SerialNo)
		}
	}
	publish(ctx, s.events, queue.EquipmentServiceDue, p)
	return rep, nil
}
