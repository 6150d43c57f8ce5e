package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Equipment item statuses.
const (
	ItemAvailable   = "Available"
	ItemInUse       = "In Use"
	ItemMaintenance = "Maintenance"
	ItemLost        = "Lost"
	ItemRetired     = "Retired"
)

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s string) bool {
	switch s {
	case ItemAvailable, ItemInUse, ItemMaintenance, ItemLost, ItemRetired:
		return true
	}
	return false
}

// Equipment is a catalog entry, e.g. "Aqualung Legend regulator".
type Equipment struct {
	ID                  uint64          `json:"id"`
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	Brand               *string         `json:"brand"`
	Model               *string         `json:"model"`
	RentalPrice         decimal.Decimal `json:"rental_price"`
	ServiceIntervalDays *int            `json:"service_interval_days"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// EquipmentItem is one serialized physical unit of an Equipment type.
type EquipmentItem struct {
	ID                  uint64    `json:"id"`
	EquipmentID         uint64    `json:"equipment_id"`
	EquipmentName       string    `json:"equipment_name,omitempty"`
	SerialNo            string    `json:"serial_no"`
	Size                *string   `json:"size"`
	Status              string    `json:"status"`
	PurchaseDate        *Date     `json:"purchase_date"`
	LastServiceDate     *Date     `json:"last_service_date"`
	NextServiceDate     *Date     `json:"next_service_date"`
	RequiresService     bool      `json:"requires_service"`
	ServiceIntervalDays *int      `json:"service_interval_days"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IsOverdue reports whether the item needs servicing on or before today.
func (it EquipmentItem) IsOverdue(today Date) bool {
	return it.RequiresService && it.NextServiceDate != nil && it.NextServiceDate.OnOrBefore(today)
}

// NextServiceDate computes when the next service falls due after a service on
// serviced. The item's own interval wins over the type's; with neither
// configured there is no next date.
func NextServiceDate(serviced Date, itemInterval, typeInterval *int) *Date {
	interval := typeInterval
	if itemInterval != nil && *itemInterval > 0 {
		interval = itemInterval
	}
	if interval == nil || *interval <= 0 {
		return nil
	}
	next := serviced.AddDays(*interval)
	return &next
}

// ServiceRecord is one entry in an item's service history.
type ServiceRecord struct {
	ID                 uint64           `json:"id"`
	EquipmentItemID    uint64           `json:"equipment_item_id"`
	ServiceDate        Date             `json:"service_date"`
	ServiceType        string           `json:"service_type"`
	Technician         *string          `json:"technician"`
	ServiceProvider    *string          `json:"service_provider"`
	Cost               *decimal.Decimal `json:"cost"`
	Notes              *string          `json:"notes"`
	NextServiceDueDate *Date            `json:"next_service_due_date"`
	CreatedAt          time.Time        `json:"created_at"`
}

// BulkService is one service event applied identically to many items. When
// NextServiceDueDate is nil each item's interval decides its next date.
type BulkService struct {
	ItemIDs            []uint64         `json:"equipment_item_ids" validate:"required,min=1,dive,gt=0"`
	ServiceDate        Date             `json:"service_date" validate:"required"`
	ServiceType        string           `json:"service_type" validate:"required,max=100"`
	Technician         *string          `json:"technician"`
	ServiceProvider    *string          `json:"service_provider"`
	Cost               *decimal.Decimal `json:"cost"`
	Notes              *string          `json:"notes"`
	NextServiceDueDate *Date            `json:"next_service_due_date"`
}
