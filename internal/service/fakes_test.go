package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/billing"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amt(s string) billing.Amount { return billing.NewAmount(dec(s)) }

var fixedToday = mustDate("2026-03-14")

func mustDate(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// noTx runs fn without a database; fakes ignore the nil *sql.Tx.
type noTx struct{ calls int }

func (n *noTx) InTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	n.calls++
	return fn(nil)
}

type sentEvent struct {
	Type    string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sentEvent{Type: eventType, Payload: payload})
	return nil
}

type staticSettings struct{ s model.Settings }

func (f staticSettings) GetTx(context.Context, *sql.Tx) (model.Settings, error) { return f.s, nil }

// ---- invoices ----

type memInvoices struct {
	invoices map[uint64]model.Invoice
	items    map[uint64][]model.InvoiceItem
	nextID   uint64
	nextItem uint64
	writes   int
}

func newMemInvoices() *memInvoices {
	return &memInvoices{invoices: map[uint64]model.Invoice{}, items: map[uint64][]model.InvoiceItem{}}
}

func (m *memInvoices) seed(inv model.Invoice, items ...model.InvoiceItem) {
	if inv.ID == 0 {
		m.nextID++
		inv.ID = m.nextID
	}
	if inv.InvoiceNo == "" {
		inv.InvoiceNo = fmt.Sprintf("INV-TEST-%06d", inv.ID)
	}
	m.invoices[inv.ID] = inv
	for _, it := range items {
		it.InvoiceID = inv.ID
		m.nextItem++
		it.ID = m.nextItem
		m.items[inv.ID] = append(m.items[inv.ID], it)
	}
}

func (m *memInvoices) CreateTx(_ context.Context, _ *sql.Tx, inv *model.Invoice) error {
	m.nextID++
	inv.ID = m.nextID
	inv.InvoiceNo = fmt.Sprintf("INV-%s-%06d", inv.InvoiceDate.Format("20060102"), inv.ID)
	inv.Status = model.InvoiceDraft
	m.invoices[inv.ID] = *inv
	m.writes++
	return nil
}

func (m *memInvoices) GetTx(_ context.Context, _ *sql.Tx, id uint64) (model.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return model.Invoice{}, repository.ErrNotFound
	}
	return inv, nil
}

func (m *memInvoices) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Invoice, error) {
	return m.GetTx(ctx, tx, id)
}

func (m *memInvoices) List(_ context.Context, f repository.InvoiceFilter, p model.PageRequest) ([]model.Invoice, int, error) {
	var out []model.Invoice
	for _, inv := range m.invoices {
		if f.Status == "" || f.Status == inv.Status {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memInvoices) UpdateHeaderTx(_ context.Context, _ *sql.Tx, inv model.Invoice) error {
	cur := m.invoices[inv.ID]
	cur.InvoiceDate, cur.DueDate, cur.Discount, cur.Notes = inv.InvoiceDate, inv.DueDate, inv.Discount, inv.Notes
	m.invoices[inv.ID] = cur
	m.writes++
	return nil
}

func (m *memInvoices) UpdateTotalsTx(_ context.Context, _ *sql.Tx, id uint64, t billing.Totals, mode billing.Mode) error {
	cur := m.invoices[id]
	cur.Subtotal, cur.ServiceCharge, cur.Tax, cur.Total, cur.TaxMode = t.Subtotal, t.ServiceCharge, t.Tax, t.Total, mode
	m.invoices[id] = cur
	m.writes++
	return nil
}

func (m *memInvoices) SetStatusTx(_ context.Context, _ *sql.Tx, id uint64, status string) error {
	cur := m.invoices[id]
	cur.Status = status
	m.invoices[id] = cur
	m.writes++
	return nil
}

func (m *memInvoices) DeleteTx(_ context.Context, _ *sql.Tx, id uint64) error {
	delete(m.invoices, id)
	delete(m.items, id)
	m.writes++
	return nil
}

func (m *memInvoices) ItemsTx(_ context.Context, _ *sql.Tx, invoiceID uint64) ([]model.InvoiceItem, error) {
	return append([]model.InvoiceItem(nil), m.items[invoiceID]...), nil
}

func (m *memInvoices) GetItemTx(_ context.Context, _ *sql.Tx, invoiceID, itemID uint64) (model.InvoiceItem, error) {
	for _, it := range m.items[invoiceID] {
		if it.ID == itemID {
			return it, nil
		}
	}
	return model.InvoiceItem{}, repository.ErrNotFound
}

func (m *memInvoices) InsertItemsTx(_ context.Context, _ *sql.Tx, items []model.InvoiceItem) error {
	for _, it := range items {
		m.nextItem++
		it.ID = m.nextItem
		m.items[it.InvoiceID] = append(m.items[it.InvoiceID], it)
		m.writes++
	}
	return nil
}

func (m *memInvoices) UpdateItemTx(_ context.Context, _ *sql.Tx, it model.InvoiceItem) error {
	rows := m.items[it.InvoiceID]
	for i := range rows {
		if rows[i].ID == it.ID {
			rows[i] = it
			m.writes++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memInvoices) DeleteItemTx(_ context.Context, _ *sql.Tx, invoiceID, itemID uint64) error {
	rows := m.items[invoiceID]
	for i := range rows {
		if rows[i].ID == itemID {
			m.items[invoiceID] = append(rows[:i:i], rows[i+1:]...)
			m.writes++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memInvoices) HasDamageChargeTx(_ context.Context, _ *sql.Tx, beID uint64) (bool, error) {
	for _, rows := range m.items {
		for _, it := range rows {
			if it.BookingEquipmentID != nil && *it.BookingEquipmentID == beID {
				return true, nil
			}
		}
	}
	return false, nil
}

// ---- payments ----

type memPayments struct {
	rows   map[uint64]model.Payment
	nextID uint64
}

func newMemPayments() *memPayments { return &memPayments{rows: map[uint64]model.Payment{}} }

func (m *memPayments) InsertTx(_ context.Context, _ *sql.Tx, p *model.Payment) error {
	m.nextID++
	p.ID = m.nextID
	m.rows[p.ID] = *p
	return nil
}

func (m *memPayments) GetTx(_ context.Context, _ *sql.Tx, id uint64) (model.Payment, error) {
	p, ok := m.rows[id]
	if !ok {
		return model.Payment{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *memPayments) ListByInvoiceTx(_ context.Context, _ *sql.Tx, invoiceID uint64) ([]model.Payment, error) {
	var out []model.Payment
	for _, p := range m.rows {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memPayments) DeleteTx(_ context.Context, _ *sql.Tx, id uint64) error {
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// ---- baskets and inventory ----

type memBaskets struct {
	baskets map[uint64]model.EquipmentBasket
	rows    map[uint64]model.BookingEquipment
	nextID  uint64
	nextRow uint64
}

func newMemBaskets() *memBaskets {
	return &memBaskets{baskets: map[uint64]model.EquipmentBasket{}, rows: map[uint64]model.BookingEquipment{}}
}

func (m *memBaskets) addRow(r model.BookingEquipment) uint64 {
	m.nextRow++
	r.ID = m.nextRow
	if r.AssignmentStatus == "" {
		r.AssignmentStatus = model.CheckedOut
	}
	m.rows[r.ID] = r
	return r.ID
}

func (m *memBaskets) CreateBasket(_ context.Context, b *model.EquipmentBasket) error {
	m.nextID++
	b.ID = m.nextID
	if b.BasketNo == "" {
		b.BasketNo = fmt.Sprintf("BSK-%06d", b.ID)
	}
	b.Status = model.BasketActive
	m.baskets[b.ID] = *b
	return nil
}

func (m *memBaskets) GetBasket(_ context.Context, _ *sql.Tx, id uint64) (model.EquipmentBasket, error) {
	b, ok := m.baskets[id]
	if !ok {
		return model.EquipmentBasket{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memBaskets) GetBasketForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.EquipmentBasket, error) {
	return m.GetBasket(ctx, tx, id)
}

func (m *memBaskets) ListBaskets(context.Context, repository.BasketFilter, model.PageRequest) ([]model.EquipmentBasket, int, error) {
	var out []model.EquipmentBasket
	for _, b := range m.baskets {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (m *memBaskets) UpdateBasketDetails(_ context.Context, id uint64, expected *model.Date, notes *string) error {
	b, ok := m.baskets[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.ExpectedReturnDate, b.Notes = expected, notes
	m.baskets[id] = b
	return nil
}

func (m *memBaskets) DeleteBasketTx(_ context.Context, _ *sql.Tx, id uint64) error {
	delete(m.baskets, id)
	return nil
}

func (m *memBaskets) CloseBasketTx(_ context.Context, _ *sql.Tx, id uint64, on model.Date) error {
	b := m.baskets[id]
	if b.Status != model.BasketActive {
		return repository.ErrNotFound
	}
	b.Status = model.BasketReturned
	b.ActualReturnDate = &on
	m.baskets[id] = b
	return nil
}

func (m *memBaskets) sorted(keep func(model.BookingEquipment) bool) []model.BookingEquipment {
	var out []model.BookingEquipment
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memBaskets) ListEquipment(_ context.Context, _ *sql.Tx, basketID uint64) ([]model.BookingEquipment, error) {
	return m.sorted(func(r model.BookingEquipment) bool { return r.BasketID == basketID }), nil
}

func (m *memBaskets) GetEquipment(_ context.Context, _ *sql.Tx, id uint64) (model.BookingEquipment, error) {
	r, ok := m.rows[id]
	if !ok {
		return model.BookingEquipment{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memBaskets) EquipmentForUpdateTx(_ context.Context, _ *sql.Tx, basketID uint64, ids []uint64) ([]model.BookingEquipment, error) {
	want := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return m.sorted(func(r model.BookingEquipment) bool { return r.BasketID == basketID && want[r.ID] }), nil
}

func (m *memBaskets) CheckedOutForUpdateTx(_ context.Context, _ *sql.Tx, basketID uint64) ([]model.BookingEquipment, error) {
	return m.sorted(func(r model.BookingEquipment) bool {
		return r.BasketID == basketID && r.AssignmentStatus == model.CheckedOut
	}), nil
}

func (m *memBaskets) CountCheckedOutTx(ctx context.Context, tx *sql.Tx, basketID uint64) (int, error) {
	rows, _ := m.CheckedOutForUpdateTx(ctx, tx, basketID)
	return len(rows), nil
}

func (m *memBaskets) CountEquipmentTx(ctx context.Context, tx *sql.Tx, basketID uint64) (int, error) {
	rows, _ := m.ListEquipment(ctx, tx, basketID)
	return len(rows), nil
}

func (m *memBaskets) InsertEquipmentBulkTx(_ context.Context, _ *sql.Tx, rows []model.BookingEquipment) error {
	for _, r := range rows {
		m.addRow(r)
	}
	return nil
}

func (m *memBaskets) TransitionTx(_ context.Context, _ *sql.Tx, ids []uint64, to model.AssignmentStatus, on model.Date) (int64, error) {
	var n int64
	for _, id := range ids {
		r, ok := m.rows[id]
		if !ok || r.AssignmentStatus != model.CheckedOut {
			continue
		}
		r.AssignmentStatus = to
		r.ReturnDate = &on
		m.rows[id] = r
		n++
	}
	return n, nil
}

func (m *memBaskets) UpdateDamage(_ context.Context, id uint64, d model.DamageReport) error {
	r, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.DamageReported, r.DamageDescription, r.ChargeCustomer, r.DamageChargeAmount =
		d.DamageReported, d.DamageDescription, d.ChargeCustomer, d.DamageChargeAmount
	m.rows[id] = r
	return nil
}

type memInventory struct {
	items map[uint64]repository.ItemStatus
}

func newMemInventory() *memInventory { return &memInventory{items: map[uint64]repository.ItemStatus{}} }

func (m *memInventory) add(id uint64, status string, price string) {
	m.items[id] = repository.ItemStatus{ID: id, Status: status, Equipment: model.Equipment{ID: 1, Name: "BCD", RentalPrice: dec(price)}}
}

func (m *memInventory) ItemsForUpdateTx(_ context.Context, _ *sql.Tx, ids []uint64) (map[uint64]repository.ItemStatus, error) {
	out := make(map[uint64]repository.ItemStatus)
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out[id] = it
		}
	}
	return out, nil
}

func (m *memInventory) SetItemsStatusTx(_ context.Context, _ *sql.Tx, ids []uint64, status string) error {
	for _, id := range ids {
		it := m.items[id]
		it.Status = status
		m.items[id] = it
	}
	return nil
}

// ---- service tracking ----

type memService struct {
	targets map[uint64]repository.ServiceTarget
	marked  map[uint64]*model.Date
	history []model.ServiceRecord
	due     []model.EquipmentItem
}

func (m *memService) ServiceTargetsForUpdateTx(_ context.Context, _ *sql.Tx, ids []uint64) ([]repository.ServiceTarget, error) {
	var out []repository.ServiceTarget
	for _, id := range ids {
		if t, ok := m.targets[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memService) MarkServicedTx(_ context.Context, _ *sql.Tx, itemID uint64, _ model.Date, next *model.Date) error {
	if m.marked == nil {
		m.marked = map[uint64]*model.Date{}
	}
	m.marked[itemID] = next
	return nil
}

func (m *memService) InsertHistoryBulkTx(_ context.Context, _ *sql.Tx, recs []model.ServiceRecord) error {
	m.history = append(m.history, recs...)
	return nil
}

func (m *memService) DueItems(_ context.Context, onOrBefore model.Date) ([]model.EquipmentItem, error) {
	var out []model.EquipmentItem
	for _, it := range m.due {
		if it.NextServiceDate != nil && it.NextServiceDate.OnOrBefore(onOrBefore) {
			out = append(out, it)
		}
	}
	return out, nil
}
