package models

import "time"

type OnlineTransactionStatus string

const (
	OnlineTxCreated OnlineTransactionStatus = "created"
	OnlineTxSuccess OnlineTransactionStatus = "success"
	OnlineTxFailed  OnlineTransactionStatus = "failed"
)

// OnlineTransaction tracks one payment gateway order for a rental
type OnlineTransaction struct {
	ID               int                     `json:"id"`
	GatewayOrderID   string                  `json:"gateway_order_id"`
	GatewayPaymentID string                  `json:"gateway_payment_id,omitempty"`
	RentalID         int                     `json:"rental_id"`
	Amount           float64                 `json:"amount"`
	Currency         string                  `json:"currency"`
	Status           OnlineTransactionStatus `json:"status"`
	FailureReason    string                  `json:"failure_reason,omitempty"`
	PaymentID        *int                    `json:"payment_id,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

type CreateOnlineOrderRequest struct {
	RentalID int     `json:"rental_id"`
	Amount   float64 `json:"amount"`
}

type CreateOrderResponse struct {
	OrderID     string  `json:"order_id"`
	RentalID    int     `json:"rental_id"`
	Amount      float64 `json:"amount"`
	AmountMinor int     `json:"amount_minor"` // sen
	Currency    string  `json:"currency"`
	KeyID       string  `json:"key_id"`
}

type VerifyOnlinePaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}
