package repositories

import (
	"context"

	"dress-rental/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, rental_id, receipt_number, amount, payment_method, payment_date, status,
	transaction_reference, recorded_by_user_id, created_at`

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func scanPayment(row scanner) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.RentalID, &p.ReceiptNumber, &p.Amount, &p.PaymentMethod,
		&p.PaymentDate, &p.Status, &p.TransactionReference, &p.RecordedByUserID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the payment and assigns the next RCP-000001 style receipt number
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return insertPayment(ctx, r.DB, p)
}

func insertPayment(ctx context.Context, q DBTX, p *models.Payment) error {
	if p.Status == "" {
		p.Status = models.PaymentCompleted
	}
	return q.QueryRow(ctx,
		`INSERT INTO payments(rental_id, receipt_number, amount, payment_method, status,
         transaction_reference, recorded_by_user_id)
         VALUES($1, 'RCP-' || LPAD(nextval('receipt_number_sequence')::text, 6, '0'), $2, $3, $4, $5, $6)
         RETURNING id, receipt_number, payment_date, created_at`,
		p.RentalID, p.Amount, p.PaymentMethod, p.Status, p.TransactionReference, p.RecordedByUserID,
	).Scan(&p.ID, &p.ReceiptNumber, &p.PaymentDate, &p.CreatedAt)
}

func (r *PaymentRepository) Get(ctx context.Context, id int) (*models.Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
}

// ListByRental returns the rental's payments, newest first
func (r *PaymentRepository) ListByRental(ctx context.Context, rentalID int) ([]*models.Payment, error) {
	return r.query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE rental_id=$1 ORDER BY payment_date DESC, id DESC`,
		rentalID)
}

func (r *PaymentRepository) List(ctx context.Context) ([]*models.Payment, error) {
	return r.query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY payment_date DESC, id DESC`)
}

// TotalPaid sums the rental's Completed payments
func (r *PaymentRepository) TotalPaid(ctx context.Context, rentalID int) (float64, error) {
	var total float64
	err := r.DB.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::float8 FROM payments WHERE rental_id=$1 AND status=$2`,
		rentalID, models.PaymentCompleted,
	).Scan(&total)
	return total, err
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	return execOne(ctx, r.DB, `UPDATE payments SET status=$1 WHERE id=$2`, status, id)
}

func (r *PaymentRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Payment, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
