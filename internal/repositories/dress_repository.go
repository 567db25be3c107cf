package repositories

import (
	"context"

	"dress-rental/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dressColumns = `id, name, category, size, color, rental_price, condition_status,
	availability_status, cleaning_status, stock_quantity, created_at, updated_at`

type DressRepository struct {
	DB *pgxpool.Pool
}

func NewDressRepository(db *pgxpool.Pool) *DressRepository {
	return &DressRepository{DB: db}
}

func scanDress(row scanner) (*models.Dress, error) {
	var d models.Dress
	err := row.Scan(&d.ID, &d.Name, &d.Category, &d.Size, &d.Color, &d.RentalPrice,
		&d.ConditionStatus, &d.AvailabilityStatus, &d.CleaningStatus, &d.StockQuantity,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func queryDresses(ctx context.Context, q DBTX, sql string, args ...any) ([]*models.Dress, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dresses []*models.Dress
	for rows.Next() {
		d, err := scanDress(rows)
		if err != nil {
			return nil, err
		}
		dresses = append(dresses, d)
	}
	return dresses, rows.Err()
}

func (r *DressRepository) Create(ctx context.Context, d *models.Dress) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO dresses(name, category, size, color, rental_price, condition_status,
         availability_status, cleaning_status, stock_quantity)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
         RETURNING id, created_at, updated_at`,
		d.Name, d.Category, d.Size, d.Color, d.RentalPrice, d.ConditionStatus,
		d.AvailabilityStatus, d.CleaningStatus, d.StockQuantity,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

func (r *DressRepository) Get(ctx context.Context, id int) (*models.Dress, error) {
	return scanDress(r.DB.QueryRow(ctx, `SELECT `+dressColumns+` FROM dresses WHERE id=$1`, id))
}

func (r *DressRepository) List(ctx context.Context) ([]*models.Dress, error) {
	return queryDresses(ctx, r.DB, `SELECT `+dressColumns+` FROM dresses ORDER BY id`)
}

func (r *DressRepository) ListAvailable(ctx context.Context) ([]*models.Dress, error) {
	return queryDresses(ctx, r.DB,
		`SELECT `+dressColumns+` FROM dresses WHERE availability_status=$1 ORDER BY id`,
		models.DressAvailable)
}

// Search matches name, category, color or size
func (r *DressRepository) Search(ctx context.Context, term string) ([]*models.Dress, error) {
	return queryDresses(ctx, r.DB,
		`SELECT `+dressColumns+` FROM dresses
         WHERE name ILIKE $1 OR category ILIKE $1 OR color ILIKE $1 OR size ILIKE $1
         ORDER BY id`, "%"+term+"%")
}

// ListByCategory returns the available dresses of a category
func (r *DressRepository) ListByCategory(ctx context.Context, category string) ([]*models.Dress, error) {
	return queryDresses(ctx, r.DB,
		`SELECT `+dressColumns+` FROM dresses
         WHERE category ILIKE $1 AND availability_status=$2 ORDER BY id`,
		category, models.DressAvailable)
}

func (r *DressRepository) Update(ctx context.Context, d *models.Dress) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE dresses SET name=$1, category=$2, size=$3, color=$4, rental_price=$5,
         condition_status=$6, availability_status=$7, cleaning_status=$8, stock_quantity=$9,
         updated_at=CURRENT_TIMESTAMP
         WHERE id=$10`,
		d.Name, d.Category, d.Size, d.Color, d.RentalPrice, d.ConditionStatus,
		d.AvailabilityStatus, d.CleaningStatus, d.StockQuantity, d.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DressRepository) UpdateAvailability(ctx context.Context, id int, status models.AvailabilityStatus) error {
	return setDressAvailability(ctx, r.DB, id, status)
}

func setDressAvailability(ctx context.Context, q DBTX, id int, status models.AvailabilityStatus) error {
	tag, err := q.Exec(ctx,
		`UPDATE dresses SET availability_status=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DressRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM dresses WHERE id=$1`, id)
	if foreignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasRentalHistory reports whether any rental line item references the dress
func (r *DressRepository) HasRentalHistory(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM rental_items WHERE dress_id=$1)`, id).Scan(&exists)
	return exists, err
}

// LowStock lists available dresses whose stock is at or below threshold
func (r *DressRepository) LowStock(ctx context.Context, threshold int) ([]*models.LowStockDress, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, stock_quantity FROM dresses
         WHERE availability_status=$1 AND stock_quantity <= $2
         ORDER BY stock_quantity, id`,
		models.DressAvailable, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.LowStockDress
	for rows.Next() {
		var d models.LowStockDress
		if err := rows.Scan(&d.DressID, &d.DressName, &d.StockQuantity); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
