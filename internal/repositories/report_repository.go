package repositories

import (
	"context"
	"time"

	"dress-rental/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository runs the aggregate queries behind the reports.
// Amounts are cast to float8 so NUMERIC sums scan straight into float64.
type ReportRepository struct {
	DB *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{DB: db}
}

func (r *ReportRepository) MonthlySales(ctx context.Context, year int) ([]*models.MonthlySales, error) {
	query := `
		SELECT TO_CHAR(rental_date, 'YYYY-MM') AS month,
		       COALESCE(SUM(total_amount + late_fee), 0)::float8,
		       COUNT(DISTINCT id)
		FROM rentals
		WHERE EXTRACT(YEAR FROM rental_date) = $1
		GROUP BY month
		ORDER BY month
	`
	rows, err := r.DB.Query(ctx, query, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.MonthlySales
	for rows.Next() {
		m := &models.MonthlySales{}
		if err := rows.Scan(&m.Month, &m.TotalSales, &m.RentalCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ReportRepository) InventoryValuation(ctx context.Context) ([]*models.CategoryValuation, error) {
	query := `
		SELECT category, COUNT(*), SUM(rental_price)::float8, AVG(rental_price)::float8
		FROM dresses
		GROUP BY category
		ORDER BY 3 DESC
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CategoryValuation
	for rows.Next() {
		v := &models.CategoryValuation{}
		if err := rows.Scan(&v.Category, &v.DressCount, &v.TotalValue, &v.AveragePrice); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DressUtilization returns the 20 most rented dresses
func (r *ReportRepository) DressUtilization(ctx context.Context) ([]*models.DressUtilization, error) {
	query := `
		SELECT d.id, d.name, COUNT(ri.id),
		       ROUND(COUNT(ri.id) * 100.0 / NULLIF((SELECT COUNT(*) FROM dresses), 0), 2)::float8
		FROM dresses d
		LEFT JOIN rental_items ri ON d.id = ri.dress_id
		GROUP BY d.id, d.name
		ORDER BY 3 DESC, d.id
		LIMIT 20
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.DressUtilization
	for rows.Next() {
		u := &models.DressUtilization{}
		if err := rows.Scan(&u.DressID, &u.DressName, &u.RentalCount, &u.UtilizationRate); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CustomerActivity returns the 20 biggest spenders with at least one rental
func (r *ReportRepository) CustomerActivity(ctx context.Context) ([]*models.CustomerActivity, error) {
	query := `
		SELECT c.id, c.name, COUNT(DISTINCT r.id),
		       SUM(r.total_amount + r.late_fee)::float8,
		       AVG(r.total_amount + r.late_fee)::float8
		FROM customers c
		JOIN rentals r ON c.id = r.customer_id
		GROUP BY c.id, c.name
		ORDER BY 4 DESC
		LIMIT 20
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CustomerActivity
	for rows.Next() {
		a := &models.CustomerActivity{}
		if err := rows.Scan(&a.CustomerID, &a.Name, &a.TotalRentals, &a.TotalSpent, &a.AverageRental); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// OverdueItems lists one row per dress on an Active rental past its due date.
// AccruedFee is left for the caller, which owns the fee rules.
func (r *ReportRepository) OverdueItems(ctx context.Context, today time.Time) ([]*models.OverdueItem, error) {
	query := `
		SELECT r.id, c.id, c.name, c.phone, d.id, d.name,
		       TO_CHAR(r.due_date, 'YYYY-MM-DD'), ($1::date - r.due_date)
		FROM rentals r
		JOIN customers c ON c.id = r.customer_id
		JOIN rental_items ri ON ri.rental_id = r.id
		JOIN dresses d ON d.id = ri.dress_id
		WHERE r.status = $2 AND r.due_date < $1::date
		ORDER BY r.due_date, r.id, d.id
	`
	rows, err := r.DB.Query(ctx, query, today, models.RentalActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.OverdueItem
	for rows.Next() {
		o := &models.OverdueItem{}
		if err := rows.Scan(&o.RentalID, &o.CustomerID, &o.CustomerName, &o.Phone,
			&o.DressID, &o.DressName, &o.DueDate, &o.DaysOverdue); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *ReportRepository) RentalSummaryByStatus(ctx context.Context) ([]*models.RentalStatusSummary, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount + late_fee), 0)::float8
		FROM rentals
		GROUP BY status
		ORDER BY status
	`
	rows, err := r.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.RentalStatusSummary
	for rows.Next() {
		s := &models.RentalStatusSummary{}
		if err := rows.Scan(&s.Status, &s.RentalCount, &s.TotalAmount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// IncomeByMethod sums Completed payments in [from, to) grouped by method
func (r *ReportRepository) IncomeByMethod(ctx context.Context, from, to time.Time) (map[string]float64, int, error) {
	query := `
		SELECT payment_method, COALESCE(SUM(amount), 0)::float8, COUNT(*)
		FROM payments
		WHERE status = $1 AND payment_date >= $2 AND payment_date < $3
		GROUP BY payment_method
	`
	rows, err := r.DB.Query(ctx, query, models.PaymentCompleted, from, to)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	byMethod := make(map[string]float64)
	count := 0
	for rows.Next() {
		var method string
		var total float64
		var n int
		if err := rows.Scan(&method, &total, &n); err != nil {
			return nil, 0, err
		}
		byMethod[method] = total
		count += n
	}
	return byMethod, count, rows.Err()
}

// CustomerLoyalty lists customers with at least minRentals rentals
func (r *ReportRepository) CustomerLoyalty(ctx context.Context, today time.Time, minRentals, limit int) ([]*models.CustomerLoyalty, error) {
	query := `
		SELECT c.id, c.name, COUNT(DISTINCT r.id),
		       SUM(r.total_amount + r.late_fee)::float8,
		       ($1::date - MIN(r.rental_date))
		FROM customers c
		JOIN rentals r ON c.id = r.customer_id
		GROUP BY c.id, c.name
		HAVING COUNT(DISTINCT r.id) >= $2
		ORDER BY 4 DESC
		LIMIT $3
	`
	rows, err := r.DB.Query(ctx, query, today, minRentals, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CustomerLoyalty
	for rows.Next() {
		l := &models.CustomerLoyalty{}
		if err := rows.Scan(&l.CustomerID, &l.Name, &l.RentalCount, &l.TotalSpent, &l.DaysSinceFirstRental); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ProfitByCategory aggregates locked-in item prices of Returned rentals
func (r *ReportRepository) ProfitByCategory(ctx context.Context) ([]*models.CategoryProfit, error) {
	query := `
		SELECT d.category, SUM(ri.rental_price)::float8, COUNT(DISTINCT ri.dress_id),
		       (SUM(ri.rental_price) / COUNT(DISTINCT ri.dress_id))::float8
		FROM rental_items ri
		JOIN dresses d ON ri.dress_id = d.id
		JOIN rentals r ON ri.rental_id = r.id
		WHERE r.status = $1
		GROUP BY d.category
		ORDER BY 2 DESC
	`
	rows, err := r.DB.Query(ctx, query, models.RentalReturned)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CategoryProfit
	for rows.Next() {
		p := &models.CategoryProfit{}
		if err := rows.Scan(&p.Category, &p.TotalRevenue, &p.DressesRented, &p.AvgRevenuePerDress); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Dashboard counts the headline figures. monthStart bounds this month's revenue.
func (r *ReportRepository) Dashboard(ctx context.Context, today, monthStart time.Time) (*models.Dashboard, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM dresses),
			(SELECT COUNT(*) FROM dresses WHERE availability_status = $1),
			(SELECT COUNT(*) FROM rentals WHERE status = $2),
			(SELECT COUNT(*) FROM rentals WHERE status = $2 AND due_date < $3::date),
			(SELECT COALESCE(SUM(amount), 0)::float8 FROM payments WHERE status = $4 AND payment_date >= $5)
	`
	d := &models.Dashboard{}
	err := r.DB.QueryRow(ctx, query,
		models.DressAvailable, models.RentalActive, today, models.PaymentCompleted, monthStart,
	).Scan(&d.TotalCustomers, &d.TotalDresses, &d.AvailableDresses, &d.ActiveRentals, &d.OverdueRentals, &d.MonthRevenue)
	if err != nil {
		return nil, err
	}
	return d, nil
}
