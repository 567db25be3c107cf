package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/auth"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderGateway creates payment orders with the online gateway
type OrderGateway interface {
	CreateOrder(amountMinor int, currency, receipt string, notes map[string]any) (orderID string, err error)
}

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway returns nil when no key is configured
func NewRazorpayGateway(keyID, keySecret string) OrderGateway {
	if keyID == "" || keySecret == "" {
		return nil
	}
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *razorpayGateway) CreateOrder(amountMinor int, currency, receipt string, notes map[string]any) (string, error) {
	order, err := g.client.Order.Create(map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("create razorpay order: %w", err)
	}
	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", errors.New("razorpay order response has no id")
	}
	return id, nil
}

type OnlineTransactionStore interface {
	Create(ctx context.Context, tx *models.OnlineTransaction) error
	GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error)
	ListByRental(ctx context.Context, rentalID int) ([]*models.OnlineTransaction, error)
	MarkFailed(ctx context.Context, orderID, paymentID, reason string) error
	Complete(ctx context.Context, orderID, paymentID string, recordedBy *int) (*models.Payment, bool, error)
}

// OnlinePaymentService takes rental payments through the card/online gateway.
// Orders are verified by the gateway's HMAC-SHA256 signature over
// "order_id|payment_id" and each order records at most one payment.
type OnlinePaymentService struct {
	Gateway   OrderGateway
	KeyID     string
	KeySecret string
	Currency  string
	Repo      OnlineTransactionStore
	Payments  *PaymentService
}

func NewOnlinePaymentService(gateway OrderGateway, keyID, keySecret, currency string, repo OnlineTransactionStore, payments *PaymentService) *OnlinePaymentService {
	if currency == "" {
		currency = defaultCurrency
	}
	return &OnlinePaymentService{
		Gateway:   gateway,
		KeyID:     keyID,
		KeySecret: keySecret,
		Currency:  currency,
		Repo:      repo,
		Payments:  payments,
	}
}

func (s *OnlinePaymentService) Enabled() bool {
	return s != nil && s.Gateway != nil && s.KeySecret != ""
}

func errGatewayDisabled() error {
	return apperr.Validation(apperr.CodeGatewayDisabled, "online payments are not configured")
}

// CreateOrder opens a gateway order for part or all of a rental's balance.
// A zero amount means the full outstanding balance.
func (s *OnlinePaymentService) CreateOrder(ctx context.Context, req *models.CreateOnlineOrderRequest) (*models.CreateOrderResponse, error) {
	if !s.Enabled() {
		return nil, errGatewayDisabled()
	}
	summary, err := s.Payments.Summary(ctx, req.RentalID)
	if err != nil {
		return nil, err
	}

	amount := req.Amount
	if amount == 0 {
		amount = summary.Balance
	}
	amount = roundMoney(amount)
	if amount <= 0 {
		return nil, invalid("rental %d has nothing left to pay", req.RentalID)
	}

	minor := int(math.Round(amount * 100))
	receipt := fmt.Sprintf("rental_%d_%d", req.RentalID, time.Now().Unix())
	orderID, err := s.Gateway.CreateOrder(minor, s.Currency, receipt, map[string]any{
		"rental_id": req.RentalID,
	})
	if err != nil {
		return nil, apperr.Persistence("create gateway order", err)
	}

	otx := &models.OnlineTransaction{
		GatewayOrderID: orderID,
		RentalID:       req.RentalID,
		Amount:         amount,
		Currency:       s.Currency,
	}
	if err := s.Repo.Create(ctx, otx); err != nil {
		return nil, apperr.Persistence("store online transaction", err)
	}

	log.Printf("[Razorpay] order %s for rental %d: %.2f %s", orderID, req.RentalID, amount, s.Currency)
	return &models.CreateOrderResponse{
		OrderID:     orderID,
		RentalID:    req.RentalID,
		Amount:      amount,
		AmountMinor: minor,
		Currency:    s.Currency,
		KeyID:       s.KeyID,
	}, nil
}

// VerifyPayment checks the gateway signature and records the payment.
// Verifying the same order again returns the payment already recorded.
func (s *OnlinePaymentService) VerifyPayment(ctx context.Context, req *models.VerifyOnlinePaymentRequest) (*models.Payment, error) {
	if !s.Enabled() {
		return nil, errGatewayDisabled()
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, invalid("order id, payment id and signature are required")
	}

	if _, err := s.Repo.GetByOrderID(ctx, req.OrderID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound(apperr.CodeOrderNotFound, fmt.Sprintf("order %s not found", req.OrderID))
		}
		return nil, apperr.Persistence("get online transaction", err)
	}

	if !VerifySignature(s.KeySecret, req.OrderID, req.PaymentID, req.Signature) {
		if err := s.Repo.MarkFailed(ctx, req.OrderID, req.PaymentID, "invalid signature"); err != nil {
			log.Printf("[Razorpay] mark order %s failed: %v", req.OrderID, err)
		}
		return nil, apperr.Validation(apperr.CodeInvalidSignature, "payment signature does not match")
	}

	payment, created, err := s.Repo.Complete(ctx, req.OrderID, req.PaymentID, auth.ActorID(ctx))
	if err != nil {
		return nil, apperr.Persistence("complete online payment", err)
	}
	if created {
		s.Payments.paymentRecorded(ctx, payment)
	}
	return payment, nil
}

func (s *OnlinePaymentService) ListByRental(ctx context.Context, rentalID int) ([]*models.OnlineTransaction, error) {
	txs, err := s.Repo.ListByRental(ctx, rentalID)
	return txs, apperr.Persistence("list online transactions", err)
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID"
func Sign(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, orderID, paymentID)), []byte(signature))
}
