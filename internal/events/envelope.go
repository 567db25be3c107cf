// Package events carries committed rental lifecycle changes to Kafka and to
// connected dashboards.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	RentalCreated   = "RentalCreated"
	RentalReturned  = "RentalReturned"
	PaymentRecorded = "PaymentRecorded"
)

const (
	envelopeVersion = 1
	producerName    = "dress-rental-api"
)

type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // rental id
	Payload       json.RawMessage `json:"payload"`
}

type RentalCreatedPayload struct {
	RentalID    int     `json:"rental_id"`
	CustomerID  int     `json:"customer_id"`
	DressIDs    []int   `json:"dress_ids"`
	RentalDate  string  `json:"rental_date"`
	DueDate     string  `json:"due_date"`
	TotalAmount float64 `json:"total_amount"`
}

type RentalReturnedPayload struct {
	RentalID   int     `json:"rental_id"`
	CustomerID int     `json:"customer_id"`
	DressIDs   []int   `json:"dress_ids"`
	ReturnDate string  `json:"return_date"`
	DaysLate   int     `json:"days_late"`
	LateFee    float64 `json:"late_fee"`
}

type PaymentRecordedPayload struct {
	PaymentID     int     `json:"payment_id"`
	RentalID      int     `json:"rental_id"`
	ReceiptNumber string  `json:"receipt_number"`
	Amount        float64 `json:"amount"`
	Method        string  `json:"method"`
}

// New wraps payload in an envelope with a fresh event id
func New(eventType string, rentalID int, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: fmt.Sprintf("%d", rentalID),
		Payload:       b,
	}, nil
}

// UnwrapPayload decodes the payload of an envelope into T
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// Publisher delivers envelopes. Implementations must not block the caller
// for long; delivery failures are theirs to log.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Noop discards every envelope
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }

// Multi fans an envelope out to every publisher and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
