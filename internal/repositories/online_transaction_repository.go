package repositories

import (
	"context"
	"fmt"

	"dress-rental/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OnlineTransactionRepository struct {
	DB *pgxpool.Pool
}

func NewOnlineTransactionRepository(db *pgxpool.Pool) *OnlineTransactionRepository {
	return &OnlineTransactionRepository{DB: db}
}

const onlineTxColumns = `id, gateway_order_id, gateway_payment_id, rental_id, amount, currency, status,
	failure_reason, payment_id, created_at, updated_at`

func scanOnlineTransaction(row scanner) (*models.OnlineTransaction, error) {
	tx := &models.OnlineTransaction{}
	err := row.Scan(
		&tx.ID, &tx.GatewayOrderID, &tx.GatewayPaymentID, &tx.RentalID,
		&tx.Amount, &tx.Currency, &tx.Status, &tx.FailureReason,
		&tx.PaymentID, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Create creates a new online transaction record
func (r *OnlineTransactionRepository) Create(ctx context.Context, tx *models.OnlineTransaction) error {
	query := `
		INSERT INTO online_transactions (gateway_order_id, rental_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.DB.QueryRow(ctx, query,
		tx.GatewayOrderID,
		tx.RentalID,
		tx.Amount,
		tx.Currency,
		models.OnlineTxCreated,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create online transaction: %w", err)
	}

	tx.Status = models.OnlineTxCreated
	return nil
}

// GetByOrderID retrieves a transaction by gateway order ID
func (r *OnlineTransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error) {
	return scanOnlineTransaction(r.DB.QueryRow(ctx,
		`SELECT `+onlineTxColumns+` FROM online_transactions WHERE gateway_order_id = $1`, orderID))
}

func (r *OnlineTransactionRepository) ListByRental(ctx context.Context, rentalID int) ([]*models.OnlineTransaction, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+onlineTxColumns+` FROM online_transactions WHERE rental_id = $1 ORDER BY created_at DESC`,
		rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.OnlineTransaction
	for rows.Next() {
		tx, err := scanOnlineTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// MarkFailed records a failed verification. Completed transactions are left untouched.
func (r *OnlineTransactionRepository) MarkFailed(ctx context.Context, orderID, paymentID, reason string) error {
	query := `
		UPDATE online_transactions
		SET status = $2, gateway_payment_id = $3, failure_reason = $4, updated_at = CURRENT_TIMESTAMP
		WHERE gateway_order_id = $1 AND status <> $5
	`

	_, err := r.DB.Exec(ctx, query, orderID, models.OnlineTxFailed, paymentID, reason, models.OnlineTxSuccess)
	return err
}

// Complete marks the order paid and records the matching payment in one
// transaction. A second call for the same order returns the payment recorded
// by the first and created=false.
func (r *OnlineTransactionRepository) Complete(ctx context.Context, orderID, paymentID string, recordedBy *int) (payment *models.Payment, created bool, err error) {
	err = WithTransaction(ctx, r.DB, func(tx pgx.Tx) error {
		otx, err := scanOnlineTransaction(tx.QueryRow(ctx,
			`SELECT `+onlineTxColumns+` FROM online_transactions WHERE gateway_order_id = $1 FOR UPDATE`, orderID))
		if err != nil {
			return err
		}

		if otx.Status == models.OnlineTxSuccess && otx.PaymentID != nil {
			payment, err = scanPayment(tx.QueryRow(ctx,
				`SELECT `+paymentColumns+` FROM payments WHERE id=$1`, *otx.PaymentID))
			return err
		}

		payment = &models.Payment{
			RentalID:             otx.RentalID,
			Amount:               otx.Amount,
			PaymentMethod:        models.PaymentOnline,
			Status:               models.PaymentCompleted,
			TransactionReference: paymentID,
			RecordedByUserID:     recordedBy,
		}
		if err := insertPayment(ctx, tx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE online_transactions
             SET status = $2, gateway_payment_id = $3, failure_reason = '', payment_id = $4, updated_at = CURRENT_TIMESTAMP
             WHERE gateway_order_id = $1`,
			orderID, models.OnlineTxSuccess, paymentID, payment.ID)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return payment, created, nil
}
