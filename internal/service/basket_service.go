package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/model"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/queue"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
)

// BasketStore is the persistence for baskets and their assignment rows.
type BasketStore interface {
	CreateBasket(ctx context.Context, b *model.EquipmentBasket) error
	GetBasket(ctx context.Context, tx *sql.Tx, id uint64) (model.EquipmentBasket, error)
	GetBasketForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.EquipmentBasket, error)
	ListBaskets(ctx context.Context, f repository.BasketFilter, p model.PageRequest) ([]model.EquipmentBasket, int, error)
	UpdateBasketDetails(ctx context.Context, id uint64, expected *model.Date, notes *string) error
	DeleteBasketTx(ctx context.Context, tx *sql.Tx, id uint64) error
	CloseBasketTx(ctx context.Context, tx *sql.Tx, id uint64, on model.Date) error
	ListEquipment(ctx context.Context, tx *sql.Tx, basketID uint64) ([]model.BookingEquipment, error)
	GetEquipment(ctx context.Context, tx *sql.Tx, id uint64) (model.BookingEquipment, error)
	EquipmentForUpdateTx(ctx context.Context, tx *sql.Tx, basketID uint64, ids []uint64) ([]model.BookingEquipment, error)
	CheckedOutForUpdateTx(ctx context.Context, tx *sql.Tx, basketID uint64) ([]model.BookingEquipment, error)
	CountCheckedOutTx(ctx context.Context, tx *sql.Tx, basketID uint64) (int, error)
	CountEquipmentTx(ctx context.Context, tx *sql.Tx, basketID uint64) (int, error)
	InsertEquipmentBulkTx(ctx context.Context, tx *sql.Tx, rows []model.BookingEquipment) error
	TransitionTx(ctx context.Context, tx *sql.Tx, ids []uint64, to model.AssignmentStatus, on model.Date) (int64, error)
	UpdateDamage(ctx context.Context, id uint64, d model.DamageReport) error
}

// InventoryStore locks and updates serialized center items.
type InventoryStore interface {
	ItemsForUpdateTx(ctx context.Context, tx *sql.Tx, ids []uint64) (map[uint64]repository.ItemStatus, error)
	SetItemsStatusTx(ctx context.Context, tx *sql.Tx, ids []uint64, status string) error
}

// CreateBasketInput is the body of POST /equipment-baskets.
type CreateBasketInput struct {
	BasketNo           string      `json:"basket_no" validate:"omitempty,max=50"`
	CustomerID         uint64      `json:"customer_id" validate:"required"`
	BookingID          *uint64     `json:"booking_id"`
	CheckoutDate       *model.Date `json:"checkout_date"`
	ExpectedReturnDate *model.Date `json:"expected_return_date"`
	Notes              *string     `json:"notes"`
}

// UpdateBasketInput carries the only basket fields that may change.
type UpdateBasketInput struct {
	ExpectedReturnDate *model.Date `json:"expected_return_date"`
	Notes              *string     `json:"notes"`
}

// ReturnResult reports what a return or loss changed.
type ReturnResult struct {
	Basket       model.EquipmentBasket `json:"basket"`
	Changed      int                   `json:"changed"`
	BasketClosed bool                  `json:"basket_closed"`
}

// BasketService runs the basket and assignment lifecycle.
type BasketService struct {
	tx        TxRunner
	baskets   BasketStore
	inventory InventoryStore
	events    Publisher
	today     func() model.Date
}

// NewBasketService wires the service. events may be nil.
func NewBasketService(tx TxRunner, baskets BasketStore, inventory InventoryStore, events Publisher) *BasketService {
	return &BasketService{tx: tx, baskets: baskets, inventory: inventory, events: events, today: model.Today}
}

// Create opens an Active basket.
func (s *BasketService) Create(ctx context.Context, in CreateBasketInput) (model.EquipmentBasket, error) {
	b := model.EquipmentBasket{
		BasketNo:           strings.TrimSpace(in.BasketNo),
		CustomerID:         in.CustomerID,
		BookingID:          in.BookingID,
		Status:             model.BasketActive,
		ExpectedReturnDate: in.ExpectedReturnDate,
		Notes:              in.Notes,
	}
	if in.CheckoutDate != nil {
		b.CheckoutDate = *in.CheckoutDate
	} else {
		b.CheckoutDate = s.today()
	}
	if b.ExpectedReturnDate != nil && b.ExpectedReturnDate.Before(b.CheckoutDate.Time) {
		return model.EquipmentBasket{}, invalid("return_before_checkout", "Expected return date cannot be before the checkout date.")
	}
	if err := s.baskets.CreateBasket(ctx, &b); err != nil {
		return model.EquipmentBasket{}, err
	}
	b.Equipment = []model.BookingEquipment{}
	return b, nil
}

// Get returns a basket with all of its assignment rows.
func (s *BasketService) Get(ctx context.Context, id uint64) (model.EquipmentBasket, error) {
	return s.load(ctx, nil, id)
}

func (s *BasketService) load(ctx context.Context, tx *sql.Tx, id uint64) (model.EquipmentBasket, error) {
	b, err := s.baskets.GetBasket(ctx, tx, id)
	if err != nil {
		return model.EquipmentBasket{}, err
	}
	if b.Equipment, err = s.baskets.ListEquipment(ctx, tx, id); err != nil {
		return model.EquipmentBasket{}, err
	}
	if b.Equipment == nil {
		b.Equipment = []model.BookingEquipment{}
	}
	return b, nil
}

// List returns a page of baskets without rows.
func (s *BasketService) List(ctx context.Context, f repository.BasketFilter, p model.PageRequest) (model.Page[model.EquipmentBasket], error) {
	rows, total, err := s.baskets.ListBaskets(ctx, f, p)
	if err != nil {
		return model.Page[model.EquipmentBasket]{}, err
	}
	return model.NewPage(rows, total, p), nil
}

// Update changes the notes and expected return date.
func (s *BasketService) Update(ctx context.Context, id uint64, in UpdateBasketInput) (model.EquipmentBasket, error) {
	cur, err := s.baskets.GetBasket(ctx, nil, id)
	if err != nil {
		return model.EquipmentBasket{}, err
	}
	expected, notes := cur.ExpectedReturnDate, cur.Notes
	if in.ExpectedReturnDate != nil {
		if in.ExpectedReturnDate.Before(cur.CheckoutDate.Time) {
			return model.EquipmentBasket{}, invalid("return_before_checkout", "Expected return date cannot be before the checkout date.")
		}
		expected = in.ExpectedReturnDate
	}
	if in.Notes != nil {
		notes = in.Notes
	}
	if err := s.baskets.UpdateBasketDetails(ctx, id, expected, notes); err != nil {
		return model.EquipmentBasket{}, err
	}
	return s.load(ctx, nil, id)
}

// Delete removes a basket that never received equipment.
func (s *BasketService) Delete(ctx context.Context, id uint64) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		b, err := s.baskets.GetBasketForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		n, err := s.baskets.CountEquipmentTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return conflict("basket_not_empty", "Basket %s still holds %d equipment record(s) and cannot be deleted.", b.BasketNo, n)
		}
		return s.baskets.DeleteBasketTx(ctx, tx, id)
	})
}

// AddEquipment assigns several pieces of gear to an Active basket in one
// transaction. Center items must be Available and become In Use.
func (s *BasketService) AddEquipment(ctx context.Context, basketID uint64, specs []model.EquipmentSpec) (model.EquipmentBasket, error) {
	if len(specs) == 0 {
		return model.EquipmentBasket{}, invalid("equipment_required", "At least one equipment entry is required.")
	}
	var centerIDs []uint64
	seen := make(map[uint64]bool)
	for i, sp := range specs {
		if err := sp.Validate(); err != nil {
			return model.EquipmentBasket{}, invalid("equipment_invalid", "Equipment entry %d: %s.", i+1, err.Error())
		}
		if sp.Price != nil && sp.Price.Sign() < 0 {
			return model.EquipmentBasket{}, invalid("equipment_invalid", "Equipment entry %d: price cannot be negative.", i+1)
		}
		if sp.Source == model.SourceCenter {
			id := sp.Center.EquipmentItemID
			if seen[id] {
				return model.EquipmentBasket{}, invalid("equipment_duplicate", "Equipment item %d is listed more than once.", id)
			}
			seen[id] = true
			centerIDs = append(centerIDs, id)
		}
	}

	var out model.EquipmentBasket
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		b, err := s.baskets.GetBasketForUpdateTx(ctx, tx, basketID)
		if err != nil {
			return err
		}
		if b.Status != model.BasketActive {
			return conflict("basket_closed", "Basket %s is %s; equipment can only be added to an Active basket.", b.BasketNo, b.Status)
		}
		items, err := s.inventory.ItemsForUpdateTx(ctx, tx, centerIDs)
		if err != nil {
			return err
		}
		var unknown, unavailable []uint64
		for _, id := range centerIDs {
			it, ok := items[id]
			switch {
			case !ok:
				unknown = append(unknown, id)
			case it.Status != model.ItemAvailable:
				unavailable = append(unavailable, id)
			}
		}
		if len(unknown) > 0 {
			return missing("equipment_item_not_found", unknown, "Equipment items not found: %s.", joinIDs(unknown))
		}
		if len(unavailable) > 0 {
			re := conflict("equipment_item_unavailable", "Equipment items are not available: %s.", joinIDs(unavailable))
			re.IDs = unavailable
			return re
		}

		today := s.today()
		rows := make([]model.BookingEquipment, 0, len(specs))
		for _, sp := range specs {
			row := model.BookingEquipment{
				BasketID:     b.ID,
				BookingID:    b.BookingID,
				Source:       sp.Source,
				Center:       sp.Center,
				Customer:     sp.Customer,
				CheckoutDate: today,
				Notes:        sp.Notes,
			}
			switch {
			case sp.Price != nil:
				row.Price = sp.Price.Round(2)
			case sp.Source == model.SourceCenter:
				row.Price = items[sp.Center.EquipmentItemID].Equipment.RentalPrice
			}
			rows = append(rows, row)
		}
		if err := s.baskets.InsertEquipmentBulkTx(ctx, tx, rows); err != nil {
			return err
		}
		if err := s.inventory.SetItemsStatusTx(ctx, tx, centerIDs, model.ItemInUse); err != nil {
			return err
		}
		out, err = s.load(ctx, tx, basketID)
		return err
	})
	return out, err
}

// ReturnBasket checks every outstanding row back in and closes the basket.
func (s *BasketService) ReturnBasket(ctx context.Context, basketID uint64) (ReturnResult, error) {
	var res ReturnResult
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		b, err := s.baskets.GetBasketForUpdateTx(ctx, tx, basketID)
		if err != nil {
			return err
		}
		if b.Status == model.BasketReturned {
			return conflict("basket_already_returned", "Basket %s has already been returned.", b.BasketNo)
		}
		rows, err := s.baskets.CheckedOutForUpdateTx(ctx, tx, basketID)
		if err != nil {
			return err
		}
		res, err = s.transitionTx(ctx, tx, b, rows, model.Returned)
		return err
	})
	return s.finish(ctx, res, err)
}

// ReturnSelected checks in the listed rows of one basket. The basket closes
// once none of its rows remain Checked Out.
func (s *BasketService) ReturnSelected(ctx context.Context, basketID uint64, ids []uint64) (ReturnResult, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return ReturnResult{}, invalid("equipment_ids_required", "Select at least one equipment record to return.")
	}
	var res ReturnResult
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		b, err := s.baskets.GetBasketForUpdateTx(ctx, tx, basketID)
		if err != nil {
			return err
		}
		rows, err := s.baskets.EquipmentForUpdateTx(ctx, tx, basketID, ids)
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			found := make(map[uint64]bool, len(rows))
			for _, r := range rows {
				found[r.ID] = true
			}
			var unknown []uint64
			for _, id := range ids {
				if !found[id] {
					unknown = append(unknown, id)
				}
			}
			return missing("equipment_not_found", unknown, "Equipment records not found in basket %s: %s.", b.BasketNo, joinIDs(unknown))
		}
		res, err = s.transitionTx(ctx, tx, b, rows, model.Returned)
		return err
	})
	return s.finish(ctx, res, err)
}

// ReturnOne checks in a single assignment row.
func (s *BasketService) ReturnOne(ctx context.Context, rowID uint64) (ReturnResult, error) {
	return s.single(ctx, rowID, model.Returned)
}

// MarkLost records a single assignment as lost. A center item becomes Lost
// in inventory.
func (s *BasketService) MarkLost(ctx context.Context, rowID uint64) (ReturnResult, error) {
	return s.single(ctx, rowID, model.Lost)
}

func (s *BasketService) single(ctx context.Context, rowID uint64, to model.AssignmentStatus) (ReturnResult, error) {
	var res ReturnResult
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		row, err := s.baskets.GetEquipment(ctx, tx, rowID)
		if err != nil {
			return err
		}
		b, err := s.baskets.GetBasketForUpdateTx(ctx, tx, row.BasketID)
		if err != nil {
			return err
		}
		rows, err := s.baskets.EquipmentForUpdateTx(ctx, tx, b.ID, []uint64{rowID})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return repository.ErrNotFound
		}
		res, err = s.transitionTx(ctx, tx, b, rows, to)
		return err
	})
	return s.finish(ctx, res, err)
}

// transitionTx moves locked rows to status, updates center inventory and
// closes the basket when nothing remains Checked Out.
func (s *BasketService) transitionTx(ctx context.Context, tx *sql.Tx, b model.EquipmentBasket, rows []model.BookingEquipment, to model.AssignmentStatus) (ReturnResult, error) {
	var terminal []uint64
	ids := make([]uint64, 0, len(rows))
	var centerIDs []uint64
	for _, r := range rows {
		if !model.CanTransition(r.AssignmentStatus, to) {
			terminal = append(terminal, r.ID)
			continue
		}
		ids = append(ids, r.ID)
		if r.Source == model.SourceCenter && r.Center != nil {
			centerIDs = append(centerIDs, r.Center.EquipmentItemID)
		}
	}
	if len(terminal) > 0 {
		re := conflict("equipment_not_checked_out", "Equipment records are no longer checked out: %s.", joinIDs(terminal))
		re.IDs = terminal
		return ReturnResult{}, re
	}

	today := s.today()
	n, err := s.baskets.TransitionTx(ctx, tx, ids, to, today)
	if err != nil {
		return ReturnResult{}, err
	}
	itemStatus := model.ItemAvailable
	if to == model.Lost {
		itemStatus = model.ItemLost
	}
	if err := s.inventory.SetItemsStatusTx(ctx, tx, centerIDs, itemStatus); err != nil {
		return ReturnResult{}, err
	}

	res := ReturnResult{Changed: int(n)}
	if b.Status == model.BasketActive {
		left, err := s.baskets.CountCheckedOutTx(ctx, tx, b.ID)
		if err != nil {
			return ReturnResult{}, err
		}
		if left == 0 {
			if err := s.baskets.CloseBasketTx(ctx, tx, b.ID, today); err != nil {
				return ReturnResult{}, err
			}
			res.BasketClosed = true
		}
	}
	res.Basket, err = s.load(ctx, tx, b.ID)
	return res, err
}

// finish logs and publishes a closed basket after the transaction committed.
func (s *BasketService) finish(ctx context.Context, res ReturnResult, err error) (ReturnResult, error) {
	if err != nil {
		return ReturnResult{}, err
	}
	if res.BasketClosed {
		b := res.Basket
		slog.Info("basket returned", "basket_id", b.ID, "basket_no", b.BasketNo, "changed", res.Changed)
		returnDate := s.today()
		if b.ActualReturnDate != nil {
			returnDate = *b.ActualReturnDate
		}
		publish(ctx, s.events, queue.BasketReturned, queue.BasketReturnedPayload{
			BasketID:      b.ID,
			BasketNo:      b.BasketNo,
			CustomerID:    b.CustomerID,
			ReturnedItems: res.Changed,
			ReturnDate:    returnDate.String(),
		})
	}
	return res, nil
}

// UpdateDamage records a damage report on an assignment row.
func (s *BasketService) UpdateDamage(ctx context.Context, rowID uint64, d model.DamageReport) (model.BookingEquipment, error) {
	if err := d.Validate(); err != nil {
		return model.BookingEquipment{}, invalid("damage_invalid", "%s.", err.Error())
	}
	if !d.DamageReported && d.ChargeCustomer {
		return model.BookingEquipment{}, invalid("damage_invalid", "A damage charge requires a damage report.")
	}
	if err := s.baskets.UpdateDamage(ctx, rowID, d); err != nil {
		return model.BookingEquipment{}, err
	}
	return s.baskets.GetEquipment(ctx, nil, rowID)
}
