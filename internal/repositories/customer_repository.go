package repositories

import (
	"context"
	"errors"

	"dress-rental/internal/models"
	"dress-rental/internal/timeutil"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateIC is returned when another customer already holds the IC number
var ErrDuplicateIC = errors.New("ic number already registered")

const customerColumns = `id, name, ic_number, phone, email, address, date_of_birth, created_at, updated_at`

type CustomerRepository struct {
	DB *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

func scanCustomer(row scanner) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.Name, &c.ICNumber, &c.Phone, &c.Email, &c.Address,
		&c.DateOfBirth, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.DateOfBirth = timeutil.FromDate(c.DateOfBirth)
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	err := r.DB.QueryRow(ctx,
		`INSERT INTO customers(name, ic_number, phone, email, address, date_of_birth)
         VALUES($1, $2, $3, $4, $5, $6)
         RETURNING id, created_at, updated_at`,
		c.Name, c.ICNumber, c.Phone, c.Email, c.Address, c.DateOfBirth,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if uniqueViolation(err, "customers_ic_number_key") {
		return ErrDuplicateIC
	}
	return err
}

func (r *CustomerRepository) Get(ctx context.Context, id int) (*models.Customer, error) {
	return scanCustomer(r.DB.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
}

func (r *CustomerRepository) GetByIC(ctx context.Context, ic string) (*models.Customer, error) {
	return scanCustomer(r.DB.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE ic_number=$1`, ic))
}

// ICExists reports whether another customer (not excludeID) has the IC number
func (r *CustomerRepository) ICExists(ctx context.Context, ic string, excludeID int) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE ic_number=$1 AND id<>$2)`, ic, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *CustomerRepository) List(ctx context.Context) ([]*models.Customer, error) {
	return r.query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY id`)
}

// Search matches name, IC number, phone or email
func (r *CustomerRepository) Search(ctx context.Context, term string) ([]*models.Customer, error) {
	return r.query(ctx,
		`SELECT `+customerColumns+` FROM customers
         WHERE name ILIKE $1 OR ic_number ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1
         ORDER BY name`, "%"+term+"%")
}

func (r *CustomerRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Customer, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE customers SET name=$1, ic_number=$2, phone=$3, email=$4, address=$5, date_of_birth=$6,
         updated_at=CURRENT_TIMESTAMP
         WHERE id=$7`,
		c.Name, c.ICNumber, c.Phone, c.Email, c.Address, c.DateOfBirth, c.ID)
	if uniqueViolation(err, "customers_ic_number_key") {
		return ErrDuplicateIC
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
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

// CountActiveRentals counts the customer's rentals still Active
func (r *CustomerRepository) CountActiveRentals(ctx context.Context, customerID int) (int, error) {
	return countActiveRentals(ctx, r.DB, customerID)
}

func countActiveRentals(ctx context.Context, q DBTX, customerID int) (int, error) {
	var count int
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM rentals WHERE customer_id=$1 AND status=$2`,
		customerID, models.RentalActive,
	).Scan(&count)
	return count, err
}
