package models

import "time"

type RentalStatus string

const (
	RentalActive   RentalStatus = "Active"
	RentalReturned RentalStatus = "Returned"
)

var validNext = map[RentalStatus]map[RentalStatus]bool{
	RentalActive:   {RentalReturned: true},
	RentalReturned: {},
}

// CanTransition reports whether a rental may move from one status to another.
// Returned is terminal.
func CanTransition(from, to RentalStatus) bool {
	return validNext[from][to]
}

type Rental struct {
	ID              int           `json:"id"`
	CustomerID      int           `json:"customer_id"`
	RentalDate      time.Time     `json:"rental_date"`
	DueDate         time.Time     `json:"due_date"`
	ReturnDate      *time.Time    `json:"return_date,omitempty"`
	TotalAmount     float64       `json:"total_amount"`
	LateFee         float64       `json:"late_fee"`
	Status          RentalStatus  `json:"status"`
	Notes           string        `json:"notes,omitempty"`
	CreatedByUserID *int          `json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Items           []*RentalItem `json:"items,omitempty"`
}

// AmountDue is the rental total plus any late fee.
func (r *Rental) AmountDue() float64 {
	return r.TotalAmount + r.LateFee
}

// RentalItem links a rental to one dress at the price locked in at booking.
type RentalItem struct {
	ID          int     `json:"id"`
	RentalID    int     `json:"rental_id"`
	DressID     int     `json:"dress_id"`
	DressName   string  `json:"dress_name,omitempty"`
	RentalPrice float64 `json:"rental_price"`
}

// CreateRentalRequest represents the request body for creating a rental.
// RentalDate is YYYY-MM-DD.
type CreateRentalRequest struct {
	CustomerID   int    `json:"customer_id"`
	RentalDate   string `json:"rental_date"`
	DurationDays int    `json:"duration_days"`
	DressIDs     []int  `json:"dress_ids"`
	Notes        string `json:"notes"`
}

// ReturnRentalRequest carries an optional YYYY-MM-DD return date; empty means today.
type ReturnRentalRequest struct {
	ReturnDate string `json:"return_date"`
}

type LateFeeResponse struct {
	RentalID  int     `json:"rental_id"`
	DaysLate  int     `json:"days_late"`
	LateFee   float64 `json:"late_fee"`
	AmountDue float64 `json:"amount_due"`
}

// RentalRules holds the configurable business constants of the rental lifecycle.
type RentalRules struct {
	MaxDurationDays  int     `json:"max_duration_days"`
	MaxActiveRentals int     `json:"max_active_rentals"`
	MinItems         int     `json:"min_items"`
	MaxItems         int     `json:"max_items"`
	LateFeePerDay    float64 `json:"late_fee_per_day"`
}

func DefaultRentalRules() RentalRules {
	return RentalRules{
		MaxDurationDays:  14,
		MaxActiveRentals: 3,
		MinItems:         1,
		MaxItems:         5,
		LateFeePerDay:    10,
	}
}
