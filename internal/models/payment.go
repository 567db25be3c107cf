package models

import "time"

const (
	PaymentCash       = "Cash"
	PaymentCreditCard = "Credit Card"
	PaymentDebitCard  = "Debit Card"
	PaymentOnline     = "Online"
)

var PaymentMethods = []string{PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentOnline}

const (
	PaymentCompleted = "Completed"
	PaymentPending   = "Pending"
	PaymentFailed    = "Failed"
	PaymentRefunded  = "Refunded"
)

var PaymentStatuses = []string{PaymentCompleted, PaymentPending, PaymentFailed, PaymentRefunded}

type Payment struct {
	ID                   int       `json:"id"`
	RentalID             int       `json:"rental_id"`
	ReceiptNumber        string    `json:"receipt_number"`
	Amount               float64   `json:"amount"`
	PaymentMethod        string    `json:"payment_method"`
	PaymentDate          time.Time `json:"payment_date"`
	Status               string    `json:"status"`
	TransactionReference string    `json:"transaction_reference,omitempty"`
	RecordedByUserID     *int      `json:"recorded_by_user_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

type CreatePaymentRequest struct {
	RentalID             int     `json:"rental_id"`
	Amount               float64 `json:"amount"`
	PaymentMethod        string  `json:"payment_method"`
	TransactionReference string  `json:"transaction_reference"`
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"status"`
}

// RentalPaymentSummary is the paid/outstanding position of one rental
type RentalPaymentSummary struct {
	RentalID    int     `json:"rental_id"`
	TotalAmount float64 `json:"total_amount"`
	LateFee     float64 `json:"late_fee"`
	AmountDue   float64 `json:"amount_due"`
	TotalPaid   float64 `json:"total_paid"`
	Balance     float64 `json:"balance"`
	IsPaid      bool    `json:"is_paid"`
}

// Receipt is everything printed on a payment receipt
type Receipt struct {
	Payment      *Payment              `json:"payment"`
	Rental       *Rental               `json:"rental"`
	Customer     *Customer             `json:"customer"`
	Summary      *RentalPaymentSummary `json:"summary"`
	ShopCurrency string                `json:"currency"`
}
