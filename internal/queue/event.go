// Package queue carries domain events over RabbitMQ: a best-effort publisher
// used after commits and a consumer that keeps an activity log.
package queue

import (
	"encoding/json"
	"time"
)

// Event types.
const (
	InvoicePaid         = "invoice.paid"
	BasketReturned      = "basket.returned"
	EquipmentServiceDue = "equipment.service_due"
)

// Event is the envelope published for every domain event. Payload is the
// event-specific body.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// InvoicePaidPayload accompanies invoice.paid.
type InvoicePaidPayload struct {
	InvoiceID  uint64 `json:"invoice_id"`
	InvoiceNo  string `json:"invoice_no"`
	CustomerID uint64 `json:"customer_id"`
	Total      string `json:"total"`
	Currency   string `json:"currency"`
}

// BasketReturnedPayload accompanies basket.returned.
type BasketReturnedPayload struct {
	BasketID      uint64 `json:"basket_id"`
	BasketNo      string `json:"basket_no"`
	CustomerID    uint64 `json:"customer_id"`
	ReturnedItems int    `json:"returned_items"`
	ReturnDate    string `json:"return_date"`
}

// ServiceDuePayload accompanies equipment.service_due.
type ServiceDuePayload struct {
	ItemIDs   []uint64 `json:"equipment_item_ids"`
	Serials   []string `json:"serial_numbers"`
	Overdue   int      `json:"overdue"`
	CheckedOn string   `json:"checked_on"`
}
