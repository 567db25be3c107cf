package models

import "time"

type AvailabilityStatus string

const (
	DressAvailable   AvailabilityStatus = "Available"
	DressRented      AvailabilityStatus = "Rented"
	DressMaintenance AvailabilityStatus = "Maintenance"
)

func (s AvailabilityStatus) Valid() bool {
	switch s {
	case DressAvailable, DressRented, DressMaintenance:
		return true
	}
	return false
}

const (
	DefaultCondition = "Good"
	DefaultCleaning  = "Clean"
)

type Dress struct {
	ID                 int                `json:"id"`
	Name               string             `json:"name"`
	Category           string             `json:"category"`
	Size               string             `json:"size"`
	Color              string             `json:"color"`
	RentalPrice        float64            `json:"rental_price"` // per day
	ConditionStatus    string             `json:"condition_status"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
	CleaningStatus     string             `json:"cleaning_status"`
	StockQuantity      int                `json:"stock_quantity"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type CreateDressRequest struct {
	Name               string             `json:"name"`
	Category           string             `json:"category"`
	Size               string             `json:"size"`
	Color              string             `json:"color"`
	RentalPrice        float64            `json:"rental_price"`
	ConditionStatus    string             `json:"condition_status"`
	AvailabilityStatus AvailabilityStatus `json:"availability_status"`
	CleaningStatus     string             `json:"cleaning_status"`
	StockQuantity      int                `json:"stock_quantity"`
}

type UpdateDressRequest = CreateDressRequest

type UpdateAvailabilityRequest struct {
	Status AvailabilityStatus `json:"status"`
}

// AvailabilityResponse answers an availability check for a date range
type AvailabilityResponse struct {
	DressID   int    `json:"dress_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Available bool   `json:"available"`
}
