package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Basket statuses.
const (
	BasketActive   = "Active"
	BasketReturned = "Returned"
)

// AssignmentStatus is the lifecycle state of one equipment assignment.
type AssignmentStatus string

const (
	CheckedOut AssignmentStatus = "Checked Out"
	Returned   AssignmentStatus = "Returned"
	Lost       AssignmentStatus = "Lost"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	CheckedOut: {Returned, Lost},
}

// CanTransition reports whether an assignment may move from one status to
// another. Returned and Lost are terminal.
func CanTransition(from, to AssignmentStatus) bool {
	for _, s := range assignmentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s AssignmentStatus) Terminal() bool { return len(assignmentTransitions[s]) == 0 }

// EquipmentBasket is the physical container handed to a diver.
type EquipmentBasket struct {
	ID                 uint64             `json:"id"`
	BasketNo           string             `json:"basket_no"`
	CustomerID         uint64             `json:"customer_id"`
	BookingID          *uint64            `json:"booking_id"`
	Status             string             `json:"status"`
	CheckoutDate       Date               `json:"checkout_date"`
	ExpectedReturnDate *Date              `json:"expected_return_date"`
	ActualReturnDate   *Date              `json:"actual_return_date"`
	Notes              *string            `json:"notes"`
	Equipment          []BookingEquipment `json:"equipment,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// EquipmentSource says who owns the gear in an assignment.
type EquipmentSource string

const (
	SourceCenter      EquipmentSource = "Center"
	SourceCustomerOwn EquipmentSource = "Customer Own"
)

// CenterGear references a serialized unit from the shop's inventory.
type CenterGear struct {
	EquipmentItemID uint64 `json:"equipment_item_id"`
}

// CustomerGear describes equipment the diver brought along.
type CustomerGear struct {
	Type     string  `json:"type"`
	Brand    *string `json:"brand"`
	Model    *string `json:"model"`
	SerialNo *string `json:"serial_no"`
}

// EquipmentSpec is the tagged variant used when adding gear to a basket:
// Center carries an item reference, Customer Own carries a description.
type EquipmentSpec struct {
	Source   EquipmentSource  `json:"source"`
	Center   *CenterGear      `json:"center,omitempty"`
	Customer *CustomerGear    `json:"customer,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	Notes    *string          `json:"notes,omitempty"`
}

var (
	ErrUnknownSource   = errors.New("source must be Center or Customer Own")
	ErrMissingItem     = errors.New("center equipment requires equipment_item_id")
	ErrMissingType     = errors.New("customer equipment requires type")
	ErrMixedSpecFields = errors.New("equipment spec carries fields of the other source")
)

// Validate checks that exactly the variant matching Source is populated.
func (s EquipmentSpec) Validate() error {
	switch s.Source {
	case SourceCenter:
		if s.Customer != nil {
			return ErrMixedSpecFields
		}
		if s.Center == nil || s.Center.EquipmentItemID == 0 {
			return ErrMissingItem
		}
	case SourceCustomerOwn:
		if s.Center != nil {
			return ErrMixedSpecFields
		}
		if s.Customer == nil || strings.TrimSpace(s.Customer.Type) == "" {
			return ErrMissingType
		}
	default:
		return ErrUnknownSource
	}
	return nil
}

// BookingEquipment is one piece of gear assigned to a basket.
type BookingEquipment struct {
	ID                 uint64           `json:"id"`
	BasketID           uint64           `json:"basket_id"`
	BookingID          *uint64          `json:"booking_id"`
	Source             EquipmentSource  `json:"source"`
	Center             *CenterGear      `json:"center,omitempty"`
	Customer           *CustomerGear    `json:"customer,omitempty"`
	AssignmentStatus   AssignmentStatus `json:"assignment_status"`
	CheckoutDate       Date             `json:"checkout_date"`
	ReturnDate         *Date            `json:"return_date"`
	Price              decimal.Decimal  `json:"price"`
	DamageReported     bool             `json:"damage_reported"`
	DamageDescription  *string          `json:"damage_description"`
	ChargeCustomer     bool             `json:"charge_customer"`
	DamageChargeAmount *decimal.Decimal `json:"damage_charge_amount"`
	Notes              *string          `json:"notes"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// DamageReport is the staff-entered damage information for an assignment.
type DamageReport struct {
	DamageReported     bool             `json:"damage_reported"`
	DamageDescription  *string          `json:"damage_description"`
	ChargeCustomer     bool             `json:"charge_customer"`
	DamageChargeAmount *decimal.Decimal `json:"damage_charge_amount"`
}

var ErrChargeWithoutAmount = errors.New("damage_charge_amount must be positive when charge_customer is set")

// Validate enforces that a customer charge always carries an amount.
func (r DamageReport) Validate() error {
	if r.ChargeCustomer && (r.DamageChargeAmount == nil || r.DamageChargeAmount.Sign() <= 0) {
		return ErrChargeWithoutAmount
	}
	return nil
}
