package repositories

import (
	"context"
	"time"

	"dress-rental/internal/models"
	"dress-rental/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rentalColumns = `id, customer_id, rental_date, due_date, return_date, total_amount, late_fee,
	status, notes, created_by_user_id, created_at, updated_at`

// RentalTx is the set of reads and writes the rental lifecycle performs
// inside one transaction. Lock* methods take row locks held until commit.
type RentalTx interface {
	LockCustomer(ctx context.Context, customerID int) (*models.Customer, error)
	CountActiveRentals(ctx context.Context, customerID int) (int, error)
	LockDress(ctx context.Context, dressID int) (*models.Dress, error)
	HasOverlappingRental(ctx context.Context, dressID int, start, end time.Time) (bool, error)
	InsertRental(ctx context.Context, rental *models.Rental) error
	InsertRentalItem(ctx context.Context, item *models.RentalItem) error
	SetDressAvailability(ctx context.Context, dressID int, status models.AvailabilityStatus) error
	LockRental(ctx context.Context, rentalID int) (*models.Rental, error)
	ListRentalItems(ctx context.Context, rentalID int) ([]*models.RentalItem, error)
	MarkReturned(ctx context.Context, rentalID int, returnDate time.Time, lateFee float64) error
}

type RentalRepository struct {
	DB *pgxpool.Pool
}

func NewRentalRepository(db *pgxpool.Pool) *RentalRepository {
	return &RentalRepository{DB: db}
}

// WithTransaction runs fn against a RentalTx bound to a single database transaction
func (r *RentalRepository) WithTransaction(ctx context.Context, fn func(RentalTx) error) error {
	return WithTransaction(ctx, r.DB, func(tx pgx.Tx) error {
		return fn(&rentalTx{q: tx})
	})
}

func scanRental(row scanner) (*models.Rental, error) {
	var rt models.Rental
	err := row.Scan(&rt.ID, &rt.CustomerID, &rt.RentalDate, &rt.DueDate, &rt.ReturnDate,
		&rt.TotalAmount, &rt.LateFee, &rt.Status, &rt.Notes, &rt.CreatedByUserID,
		&rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rt.RentalDate = timeutil.FromDate(rt.RentalDate)
	rt.DueDate = timeutil.FromDate(rt.DueDate)
	rt.ReturnDate = timeutil.FromNullDate(rt.ReturnDate)
	return &rt, nil
}

func queryRentals(ctx context.Context, q DBTX, sql string, args ...any) ([]*models.Rental, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rentals []*models.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rt)
	}
	return rentals, rows.Err()
}

func (r *RentalRepository) Get(ctx context.Context, id int) (*models.Rental, error) {
	return scanRental(r.DB.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id=$1`, id))
}

func (r *RentalRepository) List(ctx context.Context) ([]*models.Rental, error) {
	return queryRentals(ctx, r.DB, `SELECT `+rentalColumns+` FROM rentals ORDER BY id DESC`)
}

func (r *RentalRepository) ListByCustomer(ctx context.Context, customerID int) ([]*models.Rental, error) {
	return queryRentals(ctx, r.DB,
		`SELECT `+rentalColumns+` FROM rentals WHERE customer_id=$1 ORDER BY rental_date DESC, id DESC`,
		customerID)
}

// ListActive returns Active rentals, soonest due first
func (r *RentalRepository) ListActive(ctx context.Context) ([]*models.Rental, error) {
	return queryRentals(ctx, r.DB,
		`SELECT `+rentalColumns+` FROM rentals WHERE status=$1 ORDER BY due_date, id`,
		models.RentalActive)
}

// ListOverdue returns Active rentals whose due date is before today
func (r *RentalRepository) ListOverdue(ctx context.Context, today time.Time) ([]*models.Rental, error) {
	return queryRentals(ctx, r.DB,
		`SELECT `+rentalColumns+` FROM rentals WHERE status=$1 AND due_date < $2 ORDER BY due_date, id`,
		models.RentalActive, today)
}

func (r *RentalRepository) ListItems(ctx context.Context, rentalID int) ([]*models.RentalItem, error) {
	return listRentalItems(ctx, r.DB, rentalID, false)
}

func (r *RentalRepository) HasOverlappingRental(ctx context.Context, dressID int, start, end time.Time) (bool, error) {
	return hasOverlappingRental(ctx, r.DB, dressID, start, end)
}

// UpdateLateFee stores a recomputed fee on a rental that is still Active
func (r *RentalRepository) UpdateLateFee(ctx context.Context, rentalID int, lateFee float64) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE rentals SET late_fee=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2 AND status=$3`,
		lateFee, rentalID, models.RentalActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func listRentalItems(ctx context.Context, q DBTX, rentalID int, lock bool) ([]*models.RentalItem, error) {
	sql := `SELECT ri.id, ri.rental_id, ri.dress_id, d.name, ri.rental_price
            FROM rental_items ri
            JOIN dresses d ON d.id = ri.dress_id
            WHERE ri.rental_id=$1
            ORDER BY ri.id`
	if lock {
		sql += ` FOR UPDATE OF ri`
	}
	rows, err := q.Query(ctx, sql, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.RentalItem
	for rows.Next() {
		var it models.RentalItem
		if err := rows.Scan(&it.ID, &it.RentalID, &it.DressID, &it.DressName, &it.RentalPrice); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// hasOverlappingRental: inclusive ranges [a,b] and [c,d] overlap iff a <= d AND c <= b.
// Only Active rentals block.
func hasOverlappingRental(ctx context.Context, q DBTX, dressID int, start, end time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS(
             SELECT 1 FROM rental_items ri
             JOIN rentals r ON r.id = ri.rental_id
             WHERE ri.dress_id=$1 AND r.status=$2
               AND r.rental_date <= $4 AND r.due_date >= $3)`,
		dressID, models.RentalActive, start, end,
	).Scan(&exists)
	return exists, err
}

type rentalTx struct {
	q DBTX
}

func (t *rentalTx) LockCustomer(ctx context.Context, customerID int) (*models.Customer, error) {
	return scanCustomer(t.q.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id=$1 FOR UPDATE`, customerID))
}

func (t *rentalTx) CountActiveRentals(ctx context.Context, customerID int) (int, error) {
	return countActiveRentals(ctx, t.q, customerID)
}

func (t *rentalTx) LockDress(ctx context.Context, dressID int) (*models.Dress, error) {
	return scanDress(t.q.QueryRow(ctx,
		`SELECT `+dressColumns+` FROM dresses WHERE id=$1 FOR UPDATE`, dressID))
}

func (t *rentalTx) HasOverlappingRental(ctx context.Context, dressID int, start, end time.Time) (bool, error) {
	return hasOverlappingRental(ctx, t.q, dressID, start, end)
}

func (t *rentalTx) InsertRental(ctx context.Context, rt *models.Rental) error {
	return t.q.QueryRow(ctx,
		`INSERT INTO rentals(customer_id, rental_date, due_date, total_amount, late_fee, status, notes, created_by_user_id)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING id, created_at, updated_at`,
		rt.CustomerID, rt.RentalDate, rt.DueDate, rt.TotalAmount, rt.LateFee, rt.Status, rt.Notes, rt.CreatedByUserID,
	).Scan(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
}

func (t *rentalTx) InsertRentalItem(ctx context.Context, it *models.RentalItem) error {
	return t.q.QueryRow(ctx,
		`INSERT INTO rental_items(rental_id, dress_id, rental_price) VALUES($1, $2, $3) RETURNING id`,
		it.RentalID, it.DressID, it.RentalPrice,
	).Scan(&it.ID)
}

func (t *rentalTx) SetDressAvailability(ctx context.Context, dressID int, status models.AvailabilityStatus) error {
	return setDressAvailability(ctx, t.q, dressID, status)
}

func (t *rentalTx) LockRental(ctx context.Context, rentalID int) (*models.Rental, error) {
	return scanRental(t.q.QueryRow(ctx,
		`SELECT `+rentalColumns+` FROM rentals WHERE id=$1 FOR UPDATE`, rentalID))
}

func (t *rentalTx) ListRentalItems(ctx context.Context, rentalID int) ([]*models.RentalItem, error) {
	return listRentalItems(ctx, t.q, rentalID, true)
}

func (t *rentalTx) MarkReturned(ctx context.Context, rentalID int, returnDate time.Time, lateFee float64) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE rentals SET status=$1, return_date=$2, late_fee=$3, updated_at=CURRENT_TIMESTAMP
         WHERE id=$4 AND status=$5`,
		models.RentalReturned, returnDate, lateFee, rentalID, models.RentalActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
