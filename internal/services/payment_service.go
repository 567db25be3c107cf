package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"dress-rental/internal/apperr"
	"dress-rental/internal/auth"
	"dress-rental/internal/events"
	"dress-rental/internal/metrics"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
	"dress-rental/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id int) (*models.Payment, error)
	ListByRental(ctx context.Context, rentalID int) ([]*models.Payment, error)
	List(ctx context.Context) ([]*models.Payment, error)
	TotalPaid(ctx context.Context, rentalID int) (float64, error)
	UpdateStatus(ctx context.Context, id int, status string) error
}

type RentalLookup interface {
	Get(ctx context.Context, id int) (*models.Rental, error)
}

type CustomerLookup interface {
	Get(ctx context.Context, id int) (*models.Customer, error)
}

type CurrencySource interface {
	Currency(ctx context.Context) string
}

type PaymentService struct {
	Repo      PaymentStore
	Rentals   RentalLookup
	Customers CustomerLookup
	Currency  CurrencySource
	Activity  ActivityRecorder
	Events    events.Publisher
}

func NewPaymentService(repo PaymentStore, rentals RentalLookup, customers CustomerLookup, currency CurrencySource, activity ActivityRecorder, publisher events.Publisher) *PaymentService {
	if activity == nil {
		activity = nopRecorder{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PaymentService{
		Repo:      repo,
		Rentals:   rentals,
		Customers: customers,
		Currency:  currency,
		Activity:  activity,
		Events:    publisher,
	}
}

func ValidatePaymentMethod(method string) error {
	if !slices.Contains(models.PaymentMethods, method) {
		return apperr.Validation(apperr.CodeInvalidPaymentMethod,
			fmt.Sprintf("payment method must be one of %s", strings.Join(models.PaymentMethods, ", ")))
	}
	return nil
}

func ValidatePaymentStatus(status string) error {
	if !slices.Contains(models.PaymentStatuses, status) {
		return apperr.Validation(apperr.CodeInvalidPaymentStatus,
			fmt.Sprintf("payment status must be one of %s", strings.Join(models.PaymentStatuses, ", ")))
	}
	return nil
}

func (s *PaymentService) rental(ctx context.Context, id int) (*models.Rental, error) {
	r, err := s.Rentals.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeRentalNotFound, fmt.Sprintf("rental %d not found", id))
	}
	return r, apperr.Persistence("get rental", err)
}

func (s *PaymentService) currency(ctx context.Context) string {
	if s.Currency == nil {
		return defaultCurrency
	}
	return s.Currency.Currency(ctx)
}

// RecordPayment stores a Completed payment against an existing rental
func (s *PaymentService) RecordPayment(ctx context.Context, req *models.CreatePaymentRequest) (*models.Payment, error) {
	method := strings.TrimSpace(req.PaymentMethod)
	if err := ValidatePaymentMethod(method); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, invalid("payment amount must be positive")
	}
	if _, err := s.rental(ctx, req.RentalID); err != nil {
		return nil, err
	}

	p := &models.Payment{
		RentalID:             req.RentalID,
		Amount:               roundMoney(req.Amount),
		PaymentMethod:        method,
		Status:               models.PaymentCompleted,
		TransactionReference: strings.TrimSpace(req.TransactionReference),
		RecordedByUserID:     auth.ActorID(ctx),
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, apperr.Persistence("record payment", err)
	}
	s.paymentRecorded(ctx, p)
	return p, nil
}

// paymentRecorded runs the side effects shared by counter and online payments
func (s *PaymentService) paymentRecorded(ctx context.Context, p *models.Payment) {
	log.Printf("[Payment] %s recorded for rental %d: %.2f %s", p.ReceiptNumber, p.RentalID, p.Amount, p.PaymentMethod)
	metrics.PaymentsRecorded.WithLabelValues(p.PaymentMethod).Inc()
	s.Activity.Record(ctx, models.ActionPayment, "payments", p.ID,
		fmt.Sprintf("%s %.2f %s for rental %d", p.ReceiptNumber, p.Amount, p.PaymentMethod, p.RentalID))

	env, err := events.New(events.PaymentRecorded, p.RentalID, events.PaymentRecordedPayload{
		PaymentID:     p.ID,
		RentalID:      p.RentalID,
		ReceiptNumber: p.ReceiptNumber,
		Amount:        p.Amount,
		Method:        p.PaymentMethod,
	})
	if err != nil {
		log.Printf("[Payment] build event: %v", err)
		return
	}
	if err := s.Events.Publish(ctx, env); err != nil {
		log.Printf("[Payment] publish %s: %v", env.EventType, err)
	}
}

func (s *PaymentService) GetPayment(ctx context.Context, id int) (*models.Payment, error) {
	p, err := s.Repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodePaymentNotFound, fmt.Sprintf("payment %d not found", id))
	}
	return p, apperr.Persistence("get payment", err)
}

func (s *PaymentService) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	payments, err := s.Repo.List(ctx)
	return payments, apperr.Persistence("list payments", err)
}

// ListByRental returns the rental's payments, newest first
func (s *PaymentService) ListByRental(ctx context.Context, rentalID int) ([]*models.Payment, error) {
	if _, err := s.rental(ctx, rentalID); err != nil {
		return nil, err
	}
	payments, err := s.Repo.ListByRental(ctx, rentalID)
	return payments, apperr.Persistence("list rental payments", err)
}

// TotalPaid sums the rental's Completed payments
func (s *PaymentService) TotalPaid(ctx context.Context, rentalID int) (float64, error) {
	total, err := s.Repo.TotalPaid(ctx, rentalID)
	return roundMoney(total), apperr.Persistence("total paid", err)
}

// Summary is the paid position of a rental: amount due is total plus late
// fee, and the rental is paid once completed payments cover it
func (s *PaymentService) Summary(ctx context.Context, rentalID int) (*models.RentalPaymentSummary, error) {
	r, err := s.rental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	paid, err := s.TotalPaid(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	due := roundMoney(r.AmountDue())
	return &models.RentalPaymentSummary{
		RentalID:    r.ID,
		TotalAmount: r.TotalAmount,
		LateFee:     r.LateFee,
		AmountDue:   due,
		TotalPaid:   paid,
		Balance:     roundMoney(due - paid),
		IsPaid:      paid >= due,
	}, nil
}

func (s *PaymentService) Balance(ctx context.Context, rentalID int) (float64, error) {
	sum, err := s.Summary(ctx, rentalID)
	if err != nil {
		return 0, err
	}
	return sum.Balance, nil
}

func (s *PaymentService) IsRentalPaid(ctx context.Context, rentalID int) (bool, error) {
	sum, err := s.Summary(ctx, rentalID)
	if err != nil {
		return false, err
	}
	return sum.IsPaid, nil
}

func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, id int, status string) error {
	status = strings.TrimSpace(status)
	if err := ValidatePaymentStatus(status); err != nil {
		return err
	}
	if err := s.Repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound(apperr.CodePaymentNotFound, fmt.Sprintf("payment %d not found", id))
		}
		return apperr.Persistence("update payment status", err)
	}
	s.Activity.Record(ctx, models.ActionUpdate, "payments", id, "status "+status)
	return nil
}

// Receipt gathers the payment, its rental and customer, and the rental's
// paid position
func (s *PaymentService) Receipt(ctx context.Context, paymentID int) (*models.Receipt, error) {
	p, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	r, err := s.rental(ctx, p.RentalID)
	if err != nil {
		return nil, err
	}
	rec := &models.Receipt{Payment: p, Rental: r, ShopCurrency: s.currency(ctx)}

	if s.Customers != nil {
		c, err := s.Customers.Get(ctx, r.CustomerID)
		switch {
		case err == nil:
			rec.Customer = c
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, apperr.Persistence("get customer", err)
		}
	}

	rec.Summary, err = s.Summary(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ReceiptPDF renders the receipt as a single A5 page
func (s *PaymentService) ReceiptPDF(ctx context.Context, paymentID int) ([]byte, error) {
	rec, err := s.Receipt(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return RenderReceiptPDF(rec)
}

func RenderReceiptPDF(rec *models.Receipt) ([]byte, error) {
	p, r := rec.Payment, rec.Rental
	money := func(v float64) string { return fmt.Sprintf("%s %.2f", rec.ShopCurrency, v) }

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(128, 10, "Dress Rental Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(128, 5, fmt.Sprintf("Printed: %s", timeutil.Now().Format(timeutil.DisplayLayout)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	row := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, label, "1", 0, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(83, 7, value, "1", 1, "L", false, 0, "")
	}
	pdf.SetFillColor(240, 240, 240)

	row("Receipt No", p.ReceiptNumber)
	row("Payment Date", timeutil.FormatDate(p.PaymentDate))
	row("Method", p.PaymentMethod)
	row("Status", p.Status)
	if p.TransactionReference != "" {
		row("Reference", p.TransactionReference)
	}
	row("Amount", money(p.Amount))
	pdf.Ln(4)

	row("Rental", fmt.Sprintf("#%d (%s)", r.ID, r.Status))
	if c := rec.Customer; c != nil {
		row("Customer", c.Name)
		row("IC Number", c.ICNumber)
	}
	row("Period", fmt.Sprintf("%s to %s", timeutil.FormatDate(r.RentalDate), timeutil.FormatDate(r.DueDate)))
	if r.ReturnDate != nil {
		row("Returned", timeutil.FormatDate(*r.ReturnDate))
	}
	pdf.Ln(4)

	if sum := rec.Summary; sum != nil {
		row("Rental Total", money(sum.TotalAmount))
		row("Late Fee", money(sum.LateFee))
		row("Amount Due", money(sum.AmountDue))
		row("Total Paid", money(sum.TotalPaid))

		if sum.IsPaid {
			pdf.SetFillColor(200, 255, 200)
		} else {
			pdf.SetFillColor(255, 200, 200)
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(128, 9, "Balance: "+money(sum.Balance), "1", 1, "C", true, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
