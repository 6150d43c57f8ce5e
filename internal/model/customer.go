package model

import "time"

// Customer is a diver on the shop's books. Travel document fields are kept
// for dive-trip manifests.
type Customer struct {
	ID          uint64    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       *string   `json:"email"`
	Phone       *string   `json:"phone"`
	Gender      *string   `json:"gender"`
	DateOfBirth *Date     `json:"date_of_birth"`
	Nationality *string   `json:"nationality"`
	PassportNo  *string   `json:"passport_no"`
	Address     *string   `json:"address"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Certification is a diving certification held by a customer.
type Certification struct {
	ID                uint64    `json:"id"`
	CustomerID        uint64    `json:"customer_id"`
	Agency            string    `json:"agency"`
	Level             string    `json:"level"`
	CertificationNo   *string   `json:"certification_no"`
	CertificationDate *Date     `json:"certification_date"`
	LastDiveDate      *Date     `json:"last_dive_date"`
	DocumentURL       *string   `json:"document_url"`
	CreatedAt         time.Time `json:"created_at"`
}

// EmergencyContact is who to call when something goes wrong underwater.
type EmergencyContact struct {
	ID           uint64    `json:"id"`
	CustomerID   uint64    `json:"customer_id"`
	Name         string    `json:"name"`
	Relationship *string   `json:"relationship"`
	Phone        string    `json:"phone"`
	Email        *string   `json:"email"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}

// Insurance is a customer's dive insurance policy.
type Insurance struct {
	ID          uint64    `json:"id"`
	CustomerID  uint64    `json:"customer_id"`
	Provider    string    `json:"provider"`
	PolicyNo    string    `json:"policy_no"`
	ExpiryDate  *Date     `json:"expiry_date"`
	DocumentURL *string   `json:"document_url"`
	CreatedAt   time.Time `json:"created_at"`
}
