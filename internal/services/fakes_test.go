package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"dress-rental/internal/events"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
	"dress-rental/internal/timeutil"
)

// memDB is an in-memory stand-in for the rental tables. WithTransaction
// snapshots it and restores the snapshot when fn fails.
type memDB struct {
	customers  map[int]*models.Customer
	dresses    map[int]*models.Dress
	rentals    map[int]*models.Rental
	items      []*models.RentalItem
	nextRental int
	nextItem   int
}

func newMemDB() *memDB {
	return &memDB{
		customers: map[int]*models.Customer{},
		dresses:   map[int]*models.Dress{},
		rentals:   map[int]*models.Rental{},
	}
}

func (m *memDB) clone() *memDB {
	c := newMemDB()
	for id, v := range m.customers {
		cp := *v
		c.customers[id] = &cp
	}
	for id, v := range m.dresses {
		cp := *v
		c.dresses[id] = &cp
	}
	for id, v := range m.rentals {
		cp := *v
		c.rentals[id] = &cp
	}
	for _, it := range m.items {
		cp := *it
		c.items = append(c.items, &cp)
	}
	c.nextRental, c.nextItem = m.nextRental, m.nextItem
	return c
}

func (m *memDB) addCustomer(id int) {
	m.customers[id] = &models.Customer{ID: id, Name: "Customer", ICNumber: "IC0000000"}
}

func (m *memDB) addDress(id int, name string, price float64) *models.Dress {
	d := &models.Dress{ID: id, Name: name, Category: "Gown", RentalPrice: price, AvailabilityStatus: models.DressAvailable}
	m.dresses[id] = d
	return d
}

// addRental seeds an existing rental over [start, start+days] holding the dresses
func (m *memDB) addRental(customerID int, start string, days int, status models.RentalStatus, dressIDs ...int) *models.Rental {
	m.nextRental++
	sd, _ := timeutil.ParseDate(start)
	r := &models.Rental{
		ID:         m.nextRental,
		CustomerID: customerID,
		RentalDate: sd,
		DueDate:    timeutil.AddDays(sd, days),
		Status:     status,
	}
	m.rentals[r.ID] = r
	for _, id := range dressIDs {
		m.nextItem++
		m.items = append(m.items, &models.RentalItem{ID: m.nextItem, RentalID: r.ID, DressID: id, RentalPrice: m.dresses[id].RentalPrice})
		if status == models.RentalActive {
			m.dresses[id].AvailabilityStatus = models.DressRented
		}
	}
	return r
}

func (m *memDB) itemsOf(rentalID int) []*models.RentalItem {
	var out []*models.RentalItem
	for _, it := range m.items {
		if it.RentalID == rentalID {
			cp := *it
			if d, ok := m.dresses[it.DressID]; ok {
				cp.DressName = d.Name
			}
			out = append(out, &cp)
		}
	}
	return out
}

func (m *memDB) overlapping(dressID int, start, end time.Time) bool {
	for _, it := range m.items {
		if it.DressID != dressID {
			continue
		}
		r := m.rentals[it.RentalID]
		if r.Status == models.RentalActive && Overlaps(r.RentalDate, r.DueDate, start, end) {
			return true
		}
	}
	return false
}

type memRentalStore struct {
	mu  sync.Mutex
	db  *memDB
	txs int

	failInsertItem bool
	failMarkReturn bool
	// runs before UpdateLateFee touches the row
	beforeLateFee func()
}

func newMemRentalStore() *memRentalStore {
	return &memRentalStore{db: newMemDB()}
}

var errInjected = errors.New("injected failure")

func (s *memRentalStore) WithTransaction(ctx context.Context, fn func(repositories.RentalTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs++
	snap := s.db.clone()
	if err := fn(&memRentalTx{s: s}); err != nil {
		s.db = snap
		return err
	}
	return nil
}

func (s *memRentalStore) Get(_ context.Context, id int) (*models.Rental, error) {
	r, ok := s.db.rentals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memRentalStore) List(context.Context) ([]*models.Rental, error) {
	var out []*models.Rental
	for i := 1; i <= s.db.nextRental; i++ {
		if r, ok := s.db.rentals[i]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memRentalStore) ListByCustomer(ctx context.Context, customerID int) ([]*models.Rental, error) {
	all, _ := s.List(ctx)
	var out []*models.Rental
	for _, r := range all {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memRentalStore) ListActive(ctx context.Context) ([]*models.Rental, error) {
	all, _ := s.List(ctx)
	var out []*models.Rental
	for _, r := range all {
		if r.Status == models.RentalActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memRentalStore) ListOverdue(ctx context.Context, today time.Time) ([]*models.Rental, error) {
	active, _ := s.ListActive(ctx)
	var out []*models.Rental
	for _, r := range active {
		if timeutil.DaysBetween(r.DueDate, today) > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memRentalStore) ListItems(_ context.Context, rentalID int) ([]*models.RentalItem, error) {
	return s.db.itemsOf(rentalID), nil
}

func (s *memRentalStore) HasOverlappingRental(_ context.Context, dressID int, start, end time.Time) (bool, error) {
	return s.db.overlapping(dressID, start, end), nil
}

func (s *memRentalStore) UpdateLateFee(_ context.Context, rentalID int, fee float64) error {
	if s.beforeLateFee != nil {
		s.beforeLateFee()
	}
	r, ok := s.db.rentals[rentalID]
	if !ok || r.Status != models.RentalActive {
		return repositories.ErrNotFound
	}
	r.LateFee = fee
	return nil
}

type memRentalTx struct {
	s *memRentalStore
}

func (t *memRentalTx) LockCustomer(_ context.Context, id int) (*models.Customer, error) {
	c, ok := t.s.db.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (t *memRentalTx) CountActiveRentals(_ context.Context, customerID int) (int, error) {
	n := 0
	for _, r := range t.s.db.rentals {
		if r.CustomerID == customerID && r.Status == models.RentalActive {
			n++
		}
	}
	return n, nil
}

func (t *memRentalTx) LockDress(_ context.Context, id int) (*models.Dress, error) {
	d, ok := t.s.db.dresses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (t *memRentalTx) HasOverlappingRental(_ context.Context, dressID int, start, end time.Time) (bool, error) {
	return t.s.db.overlapping(dressID, start, end), nil
}

func (t *memRentalTx) InsertRental(_ context.Context, r *models.Rental) error {
	t.s.db.nextRental++
	r.ID = t.s.db.nextRental
	cp := *r
	cp.Items = nil
	t.s.db.rentals[r.ID] = &cp
	return nil
}

func (t *memRentalTx) InsertRentalItem(_ context.Context, it *models.RentalItem) error {
	if t.s.failInsertItem && len(t.s.db.itemsOf(it.RentalID)) == 1 {
		return errInjected
	}
	t.s.db.nextItem++
	it.ID = t.s.db.nextItem
	cp := *it
	t.s.db.items = append(t.s.db.items, &cp)
	return nil
}

func (t *memRentalTx) SetDressAvailability(_ context.Context, id int, status models.AvailabilityStatus) error {
	d, ok := t.s.db.dresses[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.AvailabilityStatus = status
	return nil
}

func (t *memRentalTx) LockRental(_ context.Context, id int) (*models.Rental, error) {
	r, ok := t.s.db.rentals[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (t *memRentalTx) ListRentalItems(_ context.Context, rentalID int) ([]*models.RentalItem, error) {
	return t.s.db.itemsOf(rentalID), nil
}

func (t *memRentalTx) MarkReturned(_ context.Context, id int, returnDate time.Time, fee float64) error {
	if t.s.failMarkReturn {
		return errInjected
	}
	r, ok := t.s.db.rentals[id]
	if !ok || r.Status != models.RentalActive {
		return repositories.ErrNotFound
	}
	rd := returnDate
	r.Status = models.RentalReturned
	r.ReturnDate = &rd
	r.LateFee = fee
	return nil
}

type recordedActivity struct {
	action   string
	table    string
	recordID int
}

type activitySpy struct {
	entries []recordedActivity
}

func (a *activitySpy) Record(_ context.Context, action, table string, recordID int, _ string) {
	a.entries = append(a.entries, recordedActivity{action, table, recordID})
}

type publisherSpy struct {
	envs []events.Envelope
}

func (p *publisherSpy) Publish(_ context.Context, env events.Envelope) error {
	p.envs = append(p.envs, env)
	return nil
}

type cacheSpy struct {
	dresses, dashboard int
}

func (c *cacheSpy) InvalidateDresses(context.Context)   { c.dresses++ }
func (c *cacheSpy) InvalidateDashboard(context.Context) { c.dashboard++ }

func mustDate(s string) time.Time {
	d, err := timeutil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
