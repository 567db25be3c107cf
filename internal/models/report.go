package models

// Table is a rendered report: a title, column headers and string cells.
// Every export format (CSV, XLSX, PDF) is produced from a Table.
type Table struct {
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type MonthlySales struct {
	Month       string  `json:"month"` // YYYY-MM
	TotalSales  float64 `json:"total_sales"`
	RentalCount int     `json:"rental_count"`
}

type CategoryValuation struct {
	Category     string  `json:"category"`
	DressCount   int     `json:"dress_count"`
	TotalValue   float64 `json:"total_value"`
	AveragePrice float64 `json:"average_price"`
}

// DressUtilization rates each dress by its share of all rental line items
// relative to the size of the inventory.
type DressUtilization struct {
	DressID         int     `json:"dress_id"`
	DressName       string  `json:"dress_name"`
	RentalCount     int     `json:"rental_count"`
	UtilizationRate float64 `json:"utilization_rate"`
}

type CustomerActivity struct {
	CustomerID    int     `json:"customer_id"`
	Name          string  `json:"name"`
	TotalRentals  int     `json:"total_rentals"`
	TotalSpent    float64 `json:"total_spent"`
	AverageRental float64 `json:"average_rental"`
}

type OverdueItem struct {
	RentalID     int     `json:"rental_id"`
	CustomerID   int     `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	Phone        string  `json:"phone"`
	DressID      int     `json:"dress_id"`
	DressName    string  `json:"dress_name"`
	DueDate      string  `json:"due_date"`
	DaysOverdue  int     `json:"days_overdue"`
	AccruedFee   float64 `json:"accrued_fee"`
}

type RentalStatusSummary struct {
	Status      string  `json:"status"`
	RentalCount int     `json:"rental_count"`
	TotalAmount float64 `json:"total_amount"`
}

type IncomeStatement struct {
	From         string             `json:"from"`
	To           string             `json:"to"`
	TotalIncome  float64            `json:"total_income"`
	PaymentCount int                `json:"payment_count"`
	ByMethod     map[string]float64 `json:"by_method"`
}

type CustomerLoyalty struct {
	CustomerID           int     `json:"customer_id"`
	Name                 string  `json:"name"`
	RentalCount          int     `json:"rental_count"`
	TotalSpent           float64 `json:"total_spent"`
	DaysSinceFirstRental int     `json:"days_since_first_rental"`
}

// CategoryProfit covers returned rentals only
type CategoryProfit struct {
	Category           string  `json:"category"`
	TotalRevenue       float64 `json:"total_revenue"`
	DressesRented      int     `json:"dresses_rented"`
	AvgRevenuePerDress float64 `json:"avg_revenue_per_dress"`
}

type LowStockDress struct {
	DressID       int    `json:"dress_id"`
	DressName     string `json:"dress_name"`
	StockQuantity int    `json:"stock_quantity"`
}

type Dashboard struct {
	TotalCustomers   int     `json:"total_customers"`
	TotalDresses     int     `json:"total_dresses"`
	AvailableDresses int     `json:"available_dresses"`
	ActiveRentals    int     `json:"active_rentals"`
	OverdueRentals   int     `json:"overdue_rentals"`
	MonthRevenue     float64 `json:"month_revenue"`
}
