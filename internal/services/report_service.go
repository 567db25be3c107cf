package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/cache"
	"dress-rental/internal/models"
	"dress-rental/internal/timeutil"
)

type ReportStore interface {
	MonthlySales(ctx context.Context, year int) ([]*models.MonthlySales, error)
	InventoryValuation(ctx context.Context) ([]*models.CategoryValuation, error)
	DressUtilization(ctx context.Context) ([]*models.DressUtilization, error)
	CustomerActivity(ctx context.Context) ([]*models.CustomerActivity, error)
	OverdueItems(ctx context.Context, today time.Time) ([]*models.OverdueItem, error)
	RentalSummaryByStatus(ctx context.Context) ([]*models.RentalStatusSummary, error)
	IncomeByMethod(ctx context.Context, from, to time.Time) (map[string]float64, int, error)
	CustomerLoyalty(ctx context.Context, today time.Time, minRentals, limit int) ([]*models.CustomerLoyalty, error)
	ProfitByCategory(ctx context.Context) ([]*models.CategoryProfit, error)
	Dashboard(ctx context.Context, today, monthStart time.Time) (*models.Dashboard, error)
}

type LowStockLister interface {
	LowStock(ctx context.Context, threshold int) ([]*models.LowStockDress, error)
}

// Archiver stores export bundles off the server
type Archiver interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Report names accepted by Table
const (
	ReportMonthlySales       = "monthly-sales"
	ReportInventoryValuation = "inventory-valuation"
	ReportDressUtilization   = "dress-utilization"
	ReportCustomerActivity   = "customer-activity"
	ReportOverdueItems       = "overdue-items"
	ReportRentalSummary      = "rental-summary"
	ReportIncomeStatement    = "income-statement"
	ReportCustomerLoyalty    = "customer-loyalty"
	ReportProfitByCategory   = "profit-by-category"
	ReportLowStock           = "low-stock"
)

var ReportNames = []string{
	ReportMonthlySales, ReportInventoryValuation, ReportDressUtilization, ReportCustomerActivity,
	ReportOverdueItems, ReportRentalSummary, ReportIncomeStatement, ReportCustomerLoyalty,
	ReportProfitByCategory, ReportLowStock,
}

const (
	loyaltyMinRentals = 2
	defaultLoyalty    = 10
	bundleWorkers     = 4
)

// ReportParams narrows a report. Zero values pick the defaults: the current
// year, the current month, the top 10 loyal customers.
type ReportParams struct {
	Year  int
	From  time.Time
	To    time.Time
	Limit int
}

type ReportService struct {
	Repo     ReportStore
	Dresses  LowStockLister
	Rules    RulesProvider
	Settings StockSettings
	Cache    ReadCache
	Archive  Archiver
	Today    func() time.Time
}

func NewReportService(repo ReportStore, dresses LowStockLister, rules RulesProvider, readCache ReadCache, archive Archiver) *ReportService {
	if rules == nil {
		rules = StaticRules(models.DefaultRentalRules())
	}
	if readCache == nil {
		readCache = nopReadCache{}
	}
	s := &ReportService{
		Repo:    repo,
		Dresses: dresses,
		Rules:   rules,
		Cache:   readCache,
		Archive: archive,
		Today:   timeutil.Today,
	}
	if st, ok := rules.(StockSettings); ok {
		s.Settings = st
	}
	return s
}

func (s *ReportService) MonthlySales(ctx context.Context, year int) ([]*models.MonthlySales, error) {
	if year == 0 {
		year = s.Today().Year()
	}
	if year < 2000 || year > 9999 {
		return nil, invalid("year %d out of range", year)
	}
	rows, err := s.Repo.MonthlySales(ctx, year)
	return rows, apperr.Persistence("monthly sales", err)
}

func (s *ReportService) InventoryValuation(ctx context.Context) ([]*models.CategoryValuation, error) {
	rows, err := s.Repo.InventoryValuation(ctx)
	return rows, apperr.Persistence("inventory valuation", err)
}

func (s *ReportService) DressUtilization(ctx context.Context) ([]*models.DressUtilization, error) {
	rows, err := s.Repo.DressUtilization(ctx)
	return rows, apperr.Persistence("dress utilization", err)
}

func (s *ReportService) CustomerActivity(ctx context.Context) ([]*models.CustomerActivity, error) {
	rows, err := s.Repo.CustomerActivity(ctx)
	return rows, apperr.Persistence("customer activity", err)
}

// OverdueItems lists every dress on an overdue rental with the fee accrued so far
func (s *ReportService) OverdueItems(ctx context.Context) ([]*models.OverdueItem, error) {
	rows, err := s.Repo.OverdueItems(ctx, s.Today())
	if err != nil {
		return nil, apperr.Persistence("overdue items", err)
	}
	perDay := s.Rules.RentalRules(ctx).LateFeePerDay
	for _, r := range rows {
		r.AccruedFee = roundMoney(float64(r.DaysOverdue) * perDay)
	}
	return rows, nil
}

func (s *ReportService) RentalSummary(ctx context.Context) ([]*models.RentalStatusSummary, error) {
	rows, err := s.Repo.RentalSummaryByStatus(ctx)
	return rows, apperr.Persistence("rental summary", err)
}

// IncomeStatement sums Completed payments over [from, to] inclusive
func (s *ReportService) IncomeStatement(ctx context.Context, from, to time.Time) (*models.IncomeStatement, error) {
	if from.IsZero() || to.IsZero() {
		today := s.Today()
		from = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, timeutil.Shop)
		to = timeutil.AddDays(from.AddDate(0, 1, 0), -1)
	}
	if timeutil.DaysBetween(from, to) < 0 {
		return nil, apperr.Validation(apperr.CodeInvalidDate, "income statement end date is before start date")
	}

	byMethod, count, err := s.Repo.IncomeByMethod(ctx, from, timeutil.AddDays(to, 1))
	if err != nil {
		return nil, apperr.Persistence("income statement", err)
	}
	var total float64
	for _, v := range byMethod {
		total += v
	}
	if byMethod == nil {
		byMethod = map[string]float64{}
	}
	return &models.IncomeStatement{
		From:         timeutil.FormatDate(from),
		To:           timeutil.FormatDate(to),
		TotalIncome:  roundMoney(total),
		PaymentCount: count,
		ByMethod:     byMethod,
	}, nil
}

func (s *ReportService) CustomerLoyalty(ctx context.Context, limit int) ([]*models.CustomerLoyalty, error) {
	if limit <= 0 {
		limit = defaultLoyalty
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.Repo.CustomerLoyalty(ctx, s.Today(), loyaltyMinRentals, limit)
	return rows, apperr.Persistence("customer loyalty", err)
}

func (s *ReportService) ProfitByCategory(ctx context.Context) ([]*models.CategoryProfit, error) {
	rows, err := s.Repo.ProfitByCategory(ctx)
	return rows, apperr.Persistence("profit by category", err)
}

func (s *ReportService) LowStock(ctx context.Context) ([]*models.LowStockDress, error) {
	threshold := defaultLowStockThreshold
	if s.Settings != nil {
		threshold = s.Settings.LowStockThreshold(ctx)
	}
	rows, err := s.Dresses.LowStock(ctx, threshold)
	return rows, apperr.Persistence("low stock", err)
}

// Dashboard is cached briefly; rental returns and creations invalidate it
func (s *ReportService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var cached models.Dashboard
	if s.Cache.GetJSON(ctx, cache.DashboardKey, &cached) {
		return &cached, nil
	}
	today := s.Today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, timeutil.Shop)
	d, err := s.Repo.Dashboard(ctx, today, monthStart)
	if err != nil {
		return nil, apperr.Persistence("dashboard", err)
	}
	s.Cache.SetJSON(ctx, cache.DashboardKey, d, cache.DashboardTTL)
	return d, nil
}

func money(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

// Table renders a named report as rows of strings for export
func (s *ReportService) Table(ctx context.Context, name string, p ReportParams) (*models.Table, error) {
	t := &models.Table{Name: name}
	switch name {
	case ReportMonthlySales:
		rows, err := s.MonthlySales(ctx, p.Year)
		if err != nil {
			return nil, err
		}
		year := p.Year
		if year == 0 {
			year = s.Today().Year()
		}
		t.Title = fmt.Sprintf("Monthly Sales %d", year)
		t.Headers = []string{"Month", "Rentals", "Total Sales"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{r.Month, strconv.Itoa(r.RentalCount), money(r.TotalSales)})
		}

	case ReportInventoryValuation:
		rows, err := s.InventoryValuation(ctx)
		if err != nil {
			return nil, err
		}
		t.Title = "Inventory Valuation"
		t.Headers = []string{"Category", "Dresses", "Total Value", "Average Price"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{r.Category, strconv.Itoa(r.DressCount), money(r.TotalValue), money(r.AveragePrice)})
		}

	case ReportDressUtilization:
		rows, err := s.DressUtilization(ctx)
		if err != nil {
			return nil, err
		}
		t.Title = "Dress Utilization"
		t.Headers = []string{"Dress ID", "Dress", "Rentals", "Utilization %"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{strconv.Itoa(r.DressID), r.DressName, strconv.Itoa(r.RentalCount), money(r.UtilizationRate)})
		}

	case ReportCustomerActivity:
		rows, err := s.CustomerActivity(ctx)
		if err != nil {
			return nil, err
		}
		t.Title = "Customer Activity"
		t.Headers = []string{"Customer ID", "Name", "Rentals", "Total Spent", "Average Rental"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{strconv.Itoa(r.CustomerID), r.Name, strconv.Itoa(r.TotalRentals), money(r.TotalSpent), money(r.AverageRental)})
		}

	case ReportOverdueItems:
		rows, err := s.OverdueItems(ctx)
		if err != nil {
			return nil, err
		}
		t.Title = "Overdue Items"
		t.Headers = []string{"Rental ID", "Customer", "Phone", "Dress", "Due Date", "Days Overdue", "Accrued Fee"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{strconv.Itoa(r.RentalID), r.CustomerName, r.Phone, r.DressName, r.DueDate, strconv.Itoa(r.DaysOverdue), money(r.AccruedFee)})
		}

	case ReportRentalSummary:
		rows, err := s.RentalSummary(ctx)
		if err != nil {
			return nil, err
		}
		t.Title = "Rental Summary by Status"
		t.Headers = []string{"Status", "Rentals", "Total Amount"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{r.Status, strconv.Itoa(r.RentalCount), money(r.TotalAmount)})
		}

	case ReportIncomeStatement:
		st, err := s.IncomeStatement(ctx, p.From, p.To)
		if err != nil {
			return nil, err
		}
		t.Title = fmt.Sprintf("Income Statement %s to %s", st.From, st.To)
		t.Headers = []string{"Payment Method", "Income"}
		methods := make([]string, 0, len(st.ByMethod))
		for m := range st.ByMethod {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			t.Rows = append(t.Rows, []string{m, money(st.ByMethod[m])})
		}
		t.Rows = append(t.Rows, []string{fmt.Sprintf("Total (%d payments)", st.PaymentCount), money(st.TotalIncome)})

	case ReportCustomerLoyalty:
		rows, err := s.CustomerLoyalty(ctx, p.Limit)
		if err != nil {
			return nil, err
		}
		t.Title = "Customer Loyalty"
		t.Headers = []string{"Customer ID", "Name", "Rentals", "Total Spent", "Days Since First Rental"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{strconv.Itoa(r.CustomerID), r.Name, strconv.Itoa(r.RentalCount), money(r.TotalSpent), strconv.Itoa(r.DaysSinceFirstRental)})
		}

	case ReportProfitByCategory:
		rows, err := s.ProfitByCategory(ctx)
		if err != nil {
			return nil, err
		}
		t.Title = "Profit by Category"
		t.Headers = []string{"Category", "Revenue", "Dresses Rented", "Revenue per Dress"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{r.Category, money(r.TotalRevenue), strconv.Itoa(r.DressesRented), money(r.AvgRevenuePerDress)})
		}

	case ReportLowStock:
		rows, err := s.LowStock(ctx)
		if err != nil {
			return nil, err
		}
		t.Title = "Low Stock"
		t.Headers = []string{"Dress ID", "Dress", "Stock"}
		for _, r := range rows {
			t.Rows = append(t.Rows, []string{strconv.Itoa(r.DressID), r.DressName, strconv.Itoa(r.StockQuantity)})
		}

	default:
		return nil, apperr.NotFound(apperr.CodeReportNotFound, fmt.Sprintf("unknown report %q", name))
	}
	return t, nil
}

// Export renders a named report in the given format
func (s *ReportService) Export(ctx context.Context, name, format string, p ReportParams) ([]byte, error) {
	t, err := s.Table(ctx, name, p)
	if err != nil {
		return nil, err
	}
	return Render(t, format)
}

// BundleResult describes a generated export bundle
type BundleResult struct {
	Filename string   `json:"filename"`
	Reports  []string `json:"reports"`
	Failed   []string `json:"failed,omitempty"`
	Location string   `json:"location,omitempty"`
	Size     int      `json:"size"`
	Data     []byte   `json:"-"`
}

// ExportBundle renders every report in the format through a small worker
// pool and zips them. When an archive is configured the zip is also
// uploaded under reports/<date>/bundle.zip. A report that fails is left
// out and named in Failed.
func (s *ReportService) ExportBundle(ctx context.Context, format string, p ReportParams) (*BundleResult, error) {
	if _, ok := contentTypes[format]; !ok {
		return nil, invalid("unsupported format %q, use csv, xlsx or pdf", format)
	}

	type job struct {
		name string
	}
	type result struct {
		name string
		data []byte
		err  error
	}

	jobs := make(chan job, len(ReportNames))
	results := make(chan result, len(ReportNames))

	var wg sync.WaitGroup
	for i := 0; i < bundleWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					results <- result{name: j.name, err: ctx.Err()}
					continue
				}
				data, err := s.Export(ctx, j.name, format, p)
				results <- result{name: j.name, data: data, err: err}
			}
		}()
	}
	for _, name := range ReportNames {
		jobs <- job{name: name}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	files := make(map[string][]byte, len(ReportNames))
	var failed []string
	for r := range results {
		if r.err != nil {
			log.Printf("[Report] bundle: %s failed: %v", r.name, r.err)
			failed = append(failed, r.name)
			continue
		}
		files[r.name] = r.data
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(failed)

	data, names, err := zipReports(files, format)
	if err != nil {
		return nil, fmt.Errorf("zip reports: %w", err)
	}

	today := timeutil.FormatDate(s.Today())
	res := &BundleResult{
		Filename: fmt.Sprintf("reports-%s-%s.zip", today, format),
		Reports:  names,
		Failed:   failed,
		Size:     len(data),
		Data:     data,
	}

	if s.Archive != nil {
		key := fmt.Sprintf("reports/%s/bundle.zip", today)
		loc, err := s.Archive.Upload(ctx, key, data, "application/zip")
		if err != nil {
			return nil, apperr.Persistence("upload report bundle", err)
		}
		res.Location = loc
		log.Printf("[Report] bundle uploaded to %s (%d bytes)", loc, len(data))
	}
	return res, nil
}

// zipReports writes the files in name order so bundles are reproducible
func zipReports(files map[string][]byte, format string) ([]byte, []string, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		fw, err := zw.Create(name + "." + format)
		if err != nil {
			return nil, nil, err
		}
		if _, err := fw.Write(files[name]); err != nil {
			return nil, nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), names, nil
}
