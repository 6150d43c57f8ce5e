package model

import "time"

// Booking statuses.
const (
	BookingPending   = "Pending"
	BookingConfirmed = "Confirmed"
	BookingCompleted = "Completed"
	BookingCancelled = "Cancelled"
)

// Dive statuses.
const (
	DiveScheduled = "Scheduled"
	DiveCompleted = "Completed"
	DiveCancelled = "Cancelled"
)

// DiveGroup is a named set of customers that book together.
type DiveGroup struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	MemberIDs   []uint64  `json:"member_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Booking ties a customer, or a dive group, to dives, equipment and invoices.
// Exactly one of CustomerID and DiveGroupID is set.
type Booking struct {
	ID          uint64    `json:"id"`
	CustomerID  *uint64   `json:"customer_id"`
	DiveGroupID *uint64   `json:"dive_group_id"`
	BookingDate Date      `json:"booking_date"`
	Status      string    `json:"status"`
	NumDivers   int       `json:"number_of_divers"`
	Notes       *string   `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// BookingDive is one scheduled dive. The log fields stay nil until the dive
// has been completed.
type BookingDive struct {
	ID              uint64     `json:"id"`
	BookingID       uint64     `json:"booking_id"`
	DiveSite        string     `json:"dive_site"`
	Boat            *string    `json:"boat"`
	Instructor      *string    `json:"instructor"`
	DiveDate        Date       `json:"dive_date"`
	DiveTime        *string    `json:"dive_time"`
	Status          string     `json:"status"`
	MaxDepth        *float64   `json:"max_depth"`
	DurationMinutes *int       `json:"duration_minutes"`
	GasMix          *string    `json:"gas_mix"`
	LogNotes        *string    `json:"log_notes"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DiveLog is what staff record once a dive is done.
type DiveLog struct {
	MaxDepth        float64 `json:"max_depth" validate:"gt=0,lte=150"`
	DurationMinutes int     `json:"duration_minutes" validate:"gt=0,lte=600"`
	GasMix          string  `json:"gas_mix" validate:"required"`
	Notes           *string `json:"notes"`
}
