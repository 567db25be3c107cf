package models

import "time"

type Customer struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	ICNumber    string    `json:"ic_number"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Address     string    `json:"address"`
	DateOfBirth time.Time `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCustomerRequest represents the request body for creating a customer.
// DateOfBirth is YYYY-MM-DD.
type CreateCustomerRequest struct {
	Name        string `json:"name"`
	ICNumber    string `json:"ic_number"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
}

// UpdateCustomerRequest represents the request body for updating a customer
type UpdateCustomerRequest struct {
	Name        string `json:"name"`
	ICNumber    string `json:"ic_number"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
}
