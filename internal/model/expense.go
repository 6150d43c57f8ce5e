package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor the shop pays.
type Supplier struct {
	ID            uint64    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contact_person"`
	Email         *string   `json:"email"`
	Phone         *string   `json:"phone"`
	Address       *string   `json:"address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ExpenseCategory groups expenses for reporting.
type ExpenseCategory struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Expense is an operational cost, independent of bookings and invoices.
type Expense struct {
	ID            uint64          `json:"id"`
	SupplierID    *uint64         `json:"supplier_id"`
	CategoryID    *uint64         `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	ExpenseDate   Date            `json:"expense_date"`
	Description   string          `json:"description"`
	Reference     *string         `json:"reference"`
	AttachmentURL *string         `json:"attachment_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ExpenseFilter narrows expense listings.
type ExpenseFilter struct {
	From       *Date
	To         *Date
	SupplierID *uint64
	CategoryID *uint64
}
