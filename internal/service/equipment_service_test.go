package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/queue"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

func intp(n int) *int { return &n }

func newEquipmentFixture(store *memService) (*EquipmentService, *recordingPublisher) {
	events := &recordingPublisher{}
	svc := NewEquipmentService(&noTx{}, store, events)
	svc.today = func() model.Date { return fixedToday }
	return svc, events
}

func TestBulkServiceComputesNextDates(t *testing.T) {
	store := &memService{targets: map[uint64]repository.ServiceTarget{
		1: {ItemID: 1, ItemInterval: intp(30), TypeInterval: intp(365)},
		2: {ItemID: 2, TypeInterval: intp(180)},
		3: {ItemID: 3},
	}}
	svc, _ := newEquipmentFixture(store)
	served := mustDate("2026-01-10")

	res, err := svc.BulkService(context.Background(), model.BulkService{
		ItemIDs:     []uint64{1, 2, 3, 2},
		ServiceDate: served,
		ServiceType: "Annual regulator service",
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Serviced)
	require.Len(t, store.history, 3)
	require.Equal(t, mustDate("2026-02-09"), *store.marked[1])
	require.Equal(t, mustDate("2026-07-09"), *store.marked[2])
	require.Nil(t, store.marked[3])
	for _, h := range store.history {
		require.Equal(t, served, h.ServiceDate)
		require.Equal(t, "Annual regulator service", h.ServiceType)
	}
}

func TestBulkServiceExplicitNextDateWins(t *testing.T) {
	store := &memService{targets: map[uint64]repository.ServiceTarget{
		1: {ItemID: 1, ItemInterval: intp(30)},
		2: {ItemID: 2},
	}}
	svc, _ := newEquipmentFixture(store)
	next := mustDate("2026-12-01")

	_, err := svc.BulkService(context.Background(), model.BulkService{
		ItemIDs:            []uint64{1, 2},
		ServiceDate:        mustDate("2026-01-10"),
		ServiceType:        "Hydro test",
		NextServiceDueDate: &next,
	})
	require.NoError(t, err)
	require.Equal(t, next, *store.marked[1])
	require.Equal(t, next, *store.marked[2])
}

func TestBulkServiceUnknownItemAbortsAll(t *testing.T) {
	store := &memService{targets: map[uint64]repository.ServiceTarget{1: {ItemID: 1}}}
	svc, _ := newEquipmentFixture(store)

	_, err := svc.BulkService(context.Background(), model.BulkService{
		ItemIDs:     []uint64{1, 44},
		ServiceDate: mustDate("2026-01-10"),
		ServiceType: "Visual inspection",
	})
	re := requireRule(t, err, "equipment_item_not_found")
	require.Equal(t, []uint64{44}, re.IDs)
	require.Empty(t, store.history)
	require.Empty(t, store.marked)
}

func TestScanDueSplitsAndPublishes(t *testing.T) {
	past, soon, later := mustDate("2026-03-01"), mustDate("2026-03-18"), mustDate("2026-06-01")
	store := &memService{due: []model.EquipmentItem{
		{ID: 1, SerialNo: "REG-001", RequiresService: true, NextServiceDate: &past},
		{ID: 2, SerialNo: "BCD-002", RequiresService: true, NextServiceDate: &soon},
		{ID: 3, SerialNo: "TNK-003", RequiresService: true, NextServiceDate: &later},
	}}
	svc, events := newEquipmentFixture(store)

	rep, err := svc.ScanDue(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rep.Overdue, 1)
	require.Len(t, rep.DueSoon, 1)
	require.Len(t, events.events, 1)
	require.Equal(t, queue.EquipmentServiceDue, events.events[0].Type)
	p := events.events[0].Payload.(queue.ServiceDuePayload)
	require.Equal(t, []uint64{1, 2}, p.ItemIDs)
	require.Equal(t, 1, p.Overdue)
	require.Equal(t, "2026-03-14", p.CheckedOn)
}

func TestScanDueQuietWhenNothingDue(t *testing.T) {
	svc, events := newEquipmentFixture(&memService{})
	rep, err := svc.ScanDue(context.Background(), 7)
	require.NoError(t, err)
	require.Empty(t, rep.Overdue)
	require.Empty(t, events.events)
}
