package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/queue"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

type basketFixture struct {
	svc       *BasketService
	baskets   *memBaskets
	inventory *memInventory
	events    *recordingPublisher
}

func newBasketFixture() basketFixture {
	f := basketFixture{baskets: newMemBaskets(), inventory: newMemInventory(), events: &recordingPublisher{}}
	f.svc = NewBasketService(&noTx{}, f.baskets, f.inventory, f.events)
	f.svc.today = func() model.Date { return fixedToday }
	return f
}

func center(itemID uint64) model.EquipmentSpec {
	return model.EquipmentSpec{Source: model.SourceCenter, Center: &model.CenterGear{EquipmentItemID: itemID}}
}

// basketWith creates an Active basket holding one Checked Out center row per
// item id, with the items In Use.
func (f basketFixture) basketWith(t *testing.T, itemIDs ...uint64) (model.EquipmentBasket, []uint64) {
	t.Helper()
	b, err := f.svc.Create(context.Background(), CreateBasketInput{CustomerID: 9})
	require.NoError(t, err)
	var rows []uint64
	for _, id := range itemIDs {
		f.inventory.add(id, model.ItemInUse, "15")
		rows = append(rows, f.baskets.addRow(model.BookingEquipment{
			BasketID: b.ID,
			Source:   model.SourceCenter,
			Center:   &model.CenterGear{EquipmentItemID: id},
		}))
	}
	return b, rows
}

func TestReturnBasketClosesEverything(t *testing.T) {
	f := newBasketFixture()
	b, rows := f.basketWith(t, 101, 102, 103)

	res, err := f.svc.ReturnBasket(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, 3, res.Changed)
	require.True(t, res.BasketClosed)
	require.Equal(t, model.BasketReturned, res.Basket.Status)
	require.Equal(t, fixedToday, *res.Basket.ActualReturnDate)
	for _, id := range rows {
		row := f.baskets.rows[id]
		require.Equal(t, model.Returned, row.AssignmentStatus)
		require.Equal(t, fixedToday, *row.ReturnDate)
	}
	for _, id := range []uint64{101, 102, 103} {
		require.Equal(t, model.ItemAvailable, f.inventory.items[id].Status)
	}
	require.Len(t, f.events.events, 1)
	require.Equal(t, queue.BasketReturned, f.events.events[0].Type)
	require.Equal(t, 3, f.events.events[0].Payload.(queue.BasketReturnedPayload).ReturnedItems)

	_, err = f.svc.ReturnBasket(context.Background(), b.ID)
	requireRule(t, err, "basket_already_returned")
}

func TestReturnSelectedSubsetKeepsBasketActive(t *testing.T) {
	f := newBasketFixture()
	b, rows := f.basketWith(t, 201, 202, 203)

	res, err := f.svc.ReturnSelected(context.Background(), b.ID, []uint64{rows[0], rows[1], rows[0]})
	require.NoError(t, err)
	require.Equal(t, 2, res.Changed)
	require.False(t, res.BasketClosed)
	require.Equal(t, model.BasketActive, res.Basket.Status)
	require.Equal(t, model.CheckedOut, f.baskets.rows[rows[2]].AssignmentStatus)
	require.Equal(t, model.ItemInUse, f.inventory.items[203].Status)
	require.Empty(t, f.events.events)

	res, err = f.svc.ReturnSelected(context.Background(), b.ID, []uint64{rows[2]})
	require.NoError(t, err)
	require.True(t, res.BasketClosed)
	require.Equal(t, model.BasketReturned, res.Basket.Status)
	require.Len(t, f.events.events, 1)
}

func TestReturnSelectedUnknownAndTerminalIDs(t *testing.T) {
	f := newBasketFixture()
	b, rows := f.basketWith(t, 301, 302)
	other, otherRows := f.basketWith(t, 303)
	require.NotEqual(t, b.ID, other.ID)

	_, err := f.svc.ReturnSelected(context.Background(), b.ID, []uint64{rows[0], 999, otherRows[0]})
	re := requireRule(t, err, "equipment_not_found")
	require.Equal(t, KindNotFound, re.Kind)
	require.Equal(t, []uint64{999, otherRows[0]}, re.IDs)
	require.Equal(t, model.CheckedOut, f.baskets.rows[rows[0]].AssignmentStatus)

	_, err = f.svc.ReturnSelected(context.Background(), b.ID, []uint64{rows[0]})
	require.NoError(t, err)

	_, err = f.svc.ReturnSelected(context.Background(), b.ID, []uint64{rows[0], rows[1]})
	re = requireRule(t, err, "equipment_not_checked_out")
	require.Equal(t, KindConflict, re.Kind)
	require.Equal(t, []uint64{rows[0]}, re.IDs)
	require.Equal(t, model.CheckedOut, f.baskets.rows[rows[1]].AssignmentStatus)

	_, err = f.svc.ReturnSelected(context.Background(), b.ID, nil)
	requireRule(t, err, "equipment_ids_required")
}

func TestMarkLostUpdatesInventoryAndClosesBasket(t *testing.T) {
	f := newBasketFixture()
	_, rows := f.basketWith(t, 401)

	res, err := f.svc.MarkLost(context.Background(), rows[0])
	require.NoError(t, err)
	require.True(t, res.BasketClosed)
	require.Equal(t, model.Lost, f.baskets.rows[rows[0]].AssignmentStatus)
	require.Equal(t, model.ItemLost, f.inventory.items[401].Status)

	_, err = f.svc.ReturnOne(context.Background(), rows[0])
	requireRule(t, err, "equipment_not_checked_out")

	_, err = f.svc.ReturnOne(context.Background(), 12345)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAddEquipmentBulk(t *testing.T) {
	f := newBasketFixture()
	b, err := f.svc.Create(context.Background(), CreateBasketInput{CustomerID: 2})
	require.NoError(t, err)
	f.inventory.add(501, model.ItemAvailable, "25")
	f.inventory.add(502, model.ItemAvailable, "30")
	custom := dec("0")

	out, err := f.svc.AddEquipment(context.Background(), b.ID, []model.EquipmentSpec{
		center(501),
		center(502),
		{Source: model.SourceCustomerOwn, Customer: &model.CustomerGear{Type: "Dive computer"}, Price: &custom},
	})
	require.NoError(t, err)
	require.Len(t, out.Equipment, 3)
	requireDecimal(t, "25", out.Equipment[0].Price)
	require.Equal(t, model.CheckedOut, out.Equipment[2].AssignmentStatus)
	require.Equal(t, model.ItemInUse, f.inventory.items[501].Status)
	require.Equal(t, model.ItemInUse, f.inventory.items[502].Status)
}

func TestAddEquipmentRejections(t *testing.T) {
	f := newBasketFixture()
	ctx := context.Background()
	b, err := f.svc.Create(ctx, CreateBasketInput{CustomerID: 2})
	require.NoError(t, err)
	f.inventory.add(601, model.ItemMaintenance, "10")
	f.inventory.add(602, model.ItemAvailable, "10")

	_, err = f.svc.AddEquipment(ctx, b.ID, []model.EquipmentSpec{{Source: "Borrowed"}})
	requireRule(t, err, "equipment_invalid")

	_, err = f.svc.AddEquipment(ctx, b.ID, []model.EquipmentSpec{center(602), center(602)})
	requireRule(t, err, "equipment_duplicate")

	_, err = f.svc.AddEquipment(ctx, b.ID, []model.EquipmentSpec{center(602), center(777)})
	re := requireRule(t, err, "equipment_item_not_found")
	require.Equal(t, []uint64{777}, re.IDs)

	_, err = f.svc.AddEquipment(ctx, b.ID, []model.EquipmentSpec{center(601), center(602)})
	re = requireRule(t, err, "equipment_item_unavailable")
	require.Equal(t, []uint64{601}, re.IDs)
	require.Empty(t, f.baskets.rows)
	require.Equal(t, model.ItemAvailable, f.inventory.items[602].Status)

	_, err = f.svc.ReturnBasket(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.svc.AddEquipment(ctx, b.ID, []model.EquipmentSpec{center(602)})
	requireRule(t, err, "basket_closed")
}

func TestDeleteBasketOnlyWhenEmpty(t *testing.T) {
	f := newBasketFixture()
	full, _ := f.basketWith(t, 701)
	empty, _ := f.basketWith(t)

	requireRule(t, f.svc.Delete(context.Background(), full.ID), "basket_not_empty")
	require.NoError(t, f.svc.Delete(context.Background(), empty.ID))
	require.NotContains(t, f.baskets.baskets, empty.ID)
}

func TestUpdateDamageRequiresAmountForCharge(t *testing.T) {
	f := newBasketFixture()
	_, rows := f.basketWith(t, 801)

	_, err := f.svc.UpdateDamage(context.Background(), rows[0], model.DamageReport{DamageReported: true, ChargeCustomer: true})
	requireRule(t, err, "damage_invalid")

	amount := dec("35")
	row, err := f.svc.UpdateDamage(context.Background(), rows[0], model.DamageReport{DamageReported: true, ChargeCustomer: true, DamageChargeAmount: &amount})
	require.NoError(t, err)
	require.True(t, row.ChargeCustomer)
	requireDecimal(t, "35", *row.DamageChargeAmount)
}
