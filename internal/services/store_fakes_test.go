package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
)

type memCustomers struct {
	byID   map[int]*models.Customer
	active map[int]int
	next   int
	inUse  map[int]bool
}

func newMemCustomers() *memCustomers {
	return &memCustomers{byID: map[int]*models.Customer{}, active: map[int]int{}, inUse: map[int]bool{}}
}

func (m *memCustomers) Create(_ context.Context, c *models.Customer) error {
	for _, o := range m.byID {
		if o.ICNumber == c.ICNumber {
			return repositories.ErrDuplicateIC
		}
	}
	m.next++
	c.ID = m.next
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCustomers) Get(_ context.Context, id int) (*models.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) GetByIC(_ context.Context, ic string) (*models.Customer, error) {
	for _, c := range m.byID {
		if c.ICNumber == ic {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memCustomers) ICExists(_ context.Context, ic string, excludeID int) (bool, error) {
	for id, c := range m.byID {
		if c.ICNumber == ic && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memCustomers) List(context.Context) ([]*models.Customer, error) {
	var out []*models.Customer
	for _, c := range m.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memCustomers) Search(ctx context.Context, term string) ([]*models.Customer, error) {
	all, _ := m.List(ctx)
	var out []*models.Customer
	term = strings.ToLower(term)
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name+" "+c.ICNumber+" "+c.Phone+" "+c.Email), term) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCustomers) Update(_ context.Context, c *models.Customer) error {
	if _, ok := m.byID[c.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCustomers) Delete(_ context.Context, id int) error {
	if _, ok := m.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	if m.inUse[id] {
		return repositories.ErrInUse
	}
	delete(m.byID, id)
	return nil
}

func (m *memCustomers) CountActiveRentals(_ context.Context, id int) (int, error) {
	return m.active[id], nil
}

type memDresses struct {
	byID  map[int]*models.Dress
	next  int
	calls map[string]int
}

func newMemDresses() *memDresses {
	return &memDresses{byID: map[int]*models.Dress{}, calls: map[string]int{}}
}

func (m *memDresses) Create(_ context.Context, d *models.Dress) error {
	m.next++
	d.ID = m.next
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDresses) Get(_ context.Context, id int) (*models.Dress, error) {
	m.calls["get"]++
	d, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memDresses) sorted(keep func(*models.Dress) bool) []*models.Dress {
	var out []*models.Dress
	for _, d := range m.byID {
		if keep(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memDresses) List(context.Context) ([]*models.Dress, error) {
	m.calls["list"]++
	return m.sorted(func(*models.Dress) bool { return true }), nil
}

func (m *memDresses) ListAvailable(context.Context) ([]*models.Dress, error) {
	m.calls["available"]++
	return m.sorted(func(d *models.Dress) bool { return d.AvailabilityStatus == models.DressAvailable }), nil
}

func (m *memDresses) Search(_ context.Context, term string) ([]*models.Dress, error) {
	term = strings.ToLower(term)
	return m.sorted(func(d *models.Dress) bool {
		return strings.Contains(strings.ToLower(d.Name+" "+d.Category+" "+d.Color+" "+d.Size), term)
	}), nil
}

func (m *memDresses) ListByCategory(_ context.Context, category string) ([]*models.Dress, error) {
	return m.sorted(func(d *models.Dress) bool {
		return d.Category == category && d.AvailabilityStatus == models.DressAvailable
	}), nil
}

func (m *memDresses) Update(_ context.Context, d *models.Dress) error {
	if _, ok := m.byID[d.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memDresses) UpdateAvailability(_ context.Context, id int, status models.AvailabilityStatus) error {
	d, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.AvailabilityStatus = status
	return nil
}

func (m *memDresses) Delete(_ context.Context, id int) error {
	if _, ok := m.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memDresses) LowStock(_ context.Context, threshold int) ([]*models.LowStockDress, error) {
	var out []*models.LowStockDress
	for _, d := range m.sorted(func(d *models.Dress) bool {
		return d.AvailabilityStatus == models.DressAvailable && d.StockQuantity <= threshold
	}) {
		out = append(out, &models.LowStockDress{DressID: d.ID, DressName: d.Name, StockQuantity: d.StockQuantity})
	}
	return out, nil
}

// memCache stores JSON like the Redis cache does
type memCache struct {
	data        map[string][]byte
	invalidated int
	dashboard   int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, out any) bool {
	b, ok := c.data[key]
	return ok && json.Unmarshal(b, out) == nil
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) {
	b, _ := json.Marshal(v)
	c.data[key] = b
}

func (c *memCache) InvalidateDresses(context.Context) {
	c.invalidated++
	for k := range c.data {
		if strings.HasPrefix(k, "dresses:") {
			delete(c.data, k)
		}
	}
}

func (c *memCache) InvalidateDashboard(context.Context) {
	c.dashboard++
	delete(c.data, "reports:dashboard")
}

type memPayments struct {
	byID map[int]*models.Payment
	next int
}

func newMemPayments() *memPayments { return &memPayments{byID: map[int]*models.Payment{}} }

func (m *memPayments) Create(_ context.Context, p *models.Payment) error {
	m.next++
	p.ID = m.next
	p.ReceiptNumber = fmt.Sprintf("RCP-%06d", p.ID)
	if p.Status == "" {
		p.Status = models.PaymentCompleted
	}
	p.PaymentDate = mustDate("2024-03-10")
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memPayments) Get(_ context.Context, id int) (*models.Payment, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPayments) ListByRental(_ context.Context, rentalID int) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range m.byID {
		if p.RentalID == rentalID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memPayments) List(context.Context) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range m.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memPayments) TotalPaid(_ context.Context, rentalID int) (float64, error) {
	var total float64
	for _, p := range m.byID {
		if p.RentalID == rentalID && p.Status == models.PaymentCompleted {
			total += p.Amount
		}
	}
	return total, nil
}

func (m *memPayments) UpdateStatus(_ context.Context, id int, status string) error {
	p, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	p.Status = status
	return nil
}

type memUsers struct {
	byID map[int]*models.User
	next int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[int]*models.User{}} }

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	for _, o := range m.byID {
		if o.Username == u.Username {
			return repositories.ErrDuplicateUsername
		}
	}
	m.next++
	u.ID = m.next
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) Get(_ context.Context, id int) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memUsers) List(context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	old, ok := m.byID[u.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	old.FullName, old.Email, old.Phone, old.Role = u.FullName, u.Email, u.Phone, u.Role
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) SetActive(_ context.Context, id int, active bool) error {
	u, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.IsActive = active
	return nil
}

func (m *memUsers) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	u, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (m *memUsers) SetTOTPSecret(_ context.Context, id int, secret string) error {
	u, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.TOTPSecret, u.TOTPEnabled = secret, false
	return nil
}

func (m *memUsers) EnableTOTP(_ context.Context, id int) error {
	u, ok := m.byID[id]
	if !ok || u.TOTPSecret == "" {
		return repositories.ErrNotFound
	}
	u.TOTPEnabled = true
	return nil
}

func (m *memUsers) DisableTOTP(_ context.Context, id int) error {
	u, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.TOTPSecret, u.TOTPEnabled = "", false
	return nil
}

func (m *memUsers) Delete(_ context.Context, id int) error {
	if _, ok := m.byID[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) CountActiveAdministrators(context.Context) (int, error) {
	n := 0
	for _, u := range m.byID {
		if u.IsActive && u.Role == models.RoleAdministrator {
			n++
		}
	}
	return n, nil
}
