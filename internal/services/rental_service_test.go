package services

import (
	"context"
	"testing"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/events"
	"dress-rental/internal/models"
	"dress-rental/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rentalFixture struct {
	store    *memRentalStore
	svc      *RentalService
	activity *activitySpy
	events   *publisherSpy
	cache    *cacheSpy
}

func newRentalFixture(today string) *rentalFixture {
	f := &rentalFixture{
		store:    newMemRentalStore(),
		activity: &activitySpy{},
		events:   &publisherSpy{},
		cache:    &cacheSpy{},
	}
	f.svc = NewRentalService(f.store, StaticRules(models.DefaultRentalRules()), f.activity, f.events, f.cache)
	day := mustDate(today)
	f.svc.Today = func() time.Time { return day }

	db := f.store.db
	db.addCustomer(1)
	db.addCustomer(2)
	db.addDress(10, "Emerald Gown", 50)
	db.addDress(11, "Silk Kebaya", 80)
	db.addDress(12, "Lace Dress", 35.5)
	db.addDress(13, "Velvet Cape", 20)
	db.addDress(14, "Tulle Skirt", 15)
	db.addDress(15, "Satin Robe", 25)
	return f
}

func (f *rentalFixture) dressStatus(id int) models.AvailabilityStatus {
	return f.store.db.dresses[id].AvailabilityStatus
}

func rentalReq(customerID int, date string, days int, dressIDs ...int) *models.CreateRentalRequest {
	return &models.CreateRentalRequest{CustomerID: customerID, RentalDate: date, DurationDays: days, DressIDs: dressIDs}
}

func TestCreateRentalSuccess(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()

	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 4, 10, 11))
	require.NoError(t, err)

	assert.Equal(t, models.RentalActive, rental.Status)
	assert.Equal(t, "2024-03-05", timeutil.FormatDate(rental.DueDate))
	assert.Equal(t, (50.0+80.0)*4, rental.TotalAmount)
	assert.Zero(t, rental.LateFee)
	require.Len(t, rental.Items, 2)
	assert.Equal(t, 50.0, rental.Items[0].RentalPrice)
	assert.Equal(t, 80.0, rental.Items[1].RentalPrice)

	assert.Equal(t, models.DressRented, f.dressStatus(10))
	assert.Equal(t, models.DressRented, f.dressStatus(11))
	assert.Equal(t, models.DressAvailable, f.dressStatus(12))

	stored := f.store.db.rentals[rental.ID]
	require.NotNil(t, stored)
	assert.Equal(t, 520.0, stored.TotalAmount)

	require.Len(t, f.events.envs, 1)
	assert.Equal(t, events.RentalCreated, f.events.envs[0].EventType)
	payload, err := events.UnwrapPayload[events.RentalCreatedPayload](f.events.envs[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11}, payload.DressIDs)

	require.Len(t, f.activity.entries, 1)
	assert.Equal(t, models.ActionRent, f.activity.entries[0].action)
	assert.Equal(t, 1, f.cache.dresses)
}

func TestCreateRentalTotalUsesEveryItem(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	rental, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 3, 10, 11, 12, 13, 14))
	require.NoError(t, err)
	assert.InDelta(t, (50+80+35.5+20+15)*3, rental.TotalAmount, 0.001)
	assert.Len(t, rental.Items, 5)
}

func TestCreateRentalDurationOutOfRange(t *testing.T) {
	for _, days := range []int{0, -1, 15} {
		f := newRentalFixture("2024-03-01")
		_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", days, 10))

		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, apperr.CodeDurationOutOfRange, apperr.CodeOf(err))
		assert.Empty(t, f.store.db.rentals)
		assert.Equal(t, models.DressAvailable, f.dressStatus(10))
		assert.Empty(t, f.events.envs)
	}
}

func TestCreateRentalDurationBounds(t *testing.T) {
	for _, days := range []int{1, 14} {
		f := newRentalFixture("2024-03-01")
		_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", days, 10))
		assert.NoError(t, err, days)
	}
}

func TestCreateRentalActiveRentalCap(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()

	for _, id := range []int{10, 11, 12} {
		_, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, id))
		require.NoError(t, err)
	}

	_, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, 13))
	assert.Equal(t, apperr.CodeRentalLimitReached, apperr.CodeOf(err))
	assert.Len(t, f.store.db.rentals, 3)
	assert.Equal(t, models.DressAvailable, f.dressStatus(13))

	// another customer is unaffected
	_, err = f.svc.CreateRental(ctx, rentalReq(2, "2024-03-01", 2, 13))
	assert.NoError(t, err)
}

func TestCreateRentalReturnedRentalsDoNotCountTowardsCap(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	db := f.store.db
	db.addRental(1, "2024-01-01", 3, models.RentalReturned, 10)
	db.addRental(1, "2024-01-10", 3, models.RentalReturned, 11)
	db.addRental(1, "2024-02-01", 3, models.RentalActive, 12)
	db.addRental(1, "2024-02-05", 3, models.RentalActive, 13)

	_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 2, 14))
	assert.NoError(t, err)
}

func TestCreateRentalCustomerNotFound(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	_, err := f.svc.CreateRental(context.Background(), rentalReq(99, "2024-03-01", 2, 10))
	assert.True(t, apperr.IsNotFound(err))
	assert.Equal(t, apperr.CodeCustomerNotFound, apperr.CodeOf(err))
}

func TestCreateRentalItemCount(t *testing.T) {
	testCases := []struct {
		name string
		ids  []int
		code apperr.Code
	}{
		{"none", nil, apperr.CodeItemCountOutOfRange},
		{"six", []int{10, 11, 12, 13, 14, 15}, apperr.CodeItemCountOutOfRange},
		{"duplicate", []int{10, 11, 10}, apperr.CodeDuplicateItem},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			f := newRentalFixture("2024-03-01")
			_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 2, tt.ids...))
			assert.Equal(t, tt.code, apperr.CodeOf(err))
			assert.Empty(t, f.store.db.rentals)
		})
	}
}

func TestCreateRentalInvalidDate(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	for _, date := range []string{"", "01/03/2024", "2024-02-30"} {
		_, err := f.svc.CreateRental(context.Background(), rentalReq(1, date, 2, 10))
		assert.Equal(t, apperr.CodeInvalidDate, apperr.CodeOf(err), date)
	}
}

func TestCreateRentalDressesMustBeAvailable(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	f.store.db.dresses[11].AvailabilityStatus = models.DressMaintenance

	_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 2, 10, 11))
	assert.Equal(t, apperr.CodeItemNotAvailable, apperr.CodeOf(err))
	assert.Empty(t, f.store.db.rentals)
	assert.Empty(t, f.store.db.items)
	assert.Equal(t, models.DressAvailable, f.dressStatus(10))
}

func TestCreateRentalDressNotFound(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 2, 10, 404))
	assert.Equal(t, apperr.CodeDressNotFound, apperr.CodeOf(err))
	assert.Equal(t, models.DressAvailable, f.dressStatus(10))
}

func TestCreateRentalRejectsOverlappingBooking(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	db := f.store.db
	r := db.addRental(2, "2024-03-04", 3, models.RentalActive, 12)
	// availability flag out of step with the booking
	db.dresses[12].AvailabilityStatus = models.DressAvailable

	_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 3, 12))
	assert.Equal(t, apperr.CodeItemAlreadyBooked, apperr.CodeOf(err))
	assert.Len(t, db.rentals, 1)
	assert.Equal(t, models.RentalActive, db.rentals[r.ID].Status)
}

func TestCreateRentalRollsBackOnWriteFailure(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	f.store.failInsertItem = true

	_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 2, 10, 11))
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.ErrorIs(t, err, errInjected)

	assert.Empty(t, f.store.db.rentals)
	assert.Empty(t, f.store.db.items)
	assert.Equal(t, models.DressAvailable, f.dressStatus(10))
	assert.Equal(t, models.DressAvailable, f.dressStatus(11))
	assert.Empty(t, f.events.envs)
	assert.Empty(t, f.activity.entries)
}

func TestCreateRentalUsesConfiguredRules(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	rules := models.DefaultRentalRules()
	rules.MaxDurationDays = 7
	rules.MaxItems = 2
	f.svc.Rules = StaticRules(rules)

	_, err := f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 8, 10))
	assert.Equal(t, apperr.CodeDurationOutOfRange, apperr.CodeOf(err))

	_, err = f.svc.CreateRental(context.Background(), rentalReq(1, "2024-03-01", 7, 10, 11, 12))
	assert.Equal(t, apperr.CodeItemCountOutOfRange, apperr.CodeOf(err))
}

func TestIsAvailable(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	db := f.store.db

	ok, err := f.svc.IsAvailable(ctx, 10, mustDate("2024-03-01"), mustDate("2024-03-05"))
	require.NoError(t, err)
	assert.True(t, ok, "no bookings")

	// Active booking 2024-03-10 .. 2024-03-14
	db.addRental(2, "2024-03-10", 4, models.RentalActive, 10)
	testCases := []struct {
		start, end string
		available  bool
	}{
		{"2024-03-01", "2024-03-09", true},
		{"2024-03-15", "2024-03-20", true},
		{"2024-03-01", "2024-03-10", false}, // touches first day
		{"2024-03-14", "2024-03-20", false}, // touches due date
		{"2024-03-11", "2024-03-12", false},
		{"2024-03-01", "2024-03-31", false},
	}
	for _, tt := range testCases {
		ok, err := f.svc.IsAvailable(ctx, 10, mustDate(tt.start), mustDate(tt.end))
		require.NoError(t, err)
		assert.Equal(t, tt.available, ok, tt.start+".."+tt.end)
	}

	// the same range against a Returned booking is free
	db.addRental(2, "2024-04-10", 4, models.RentalReturned, 11)
	ok, err = f.svc.IsAvailable(ctx, 11, mustDate("2024-04-11"), mustDate("2024-04-12"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.IsAvailable(ctx, 10, mustDate("2024-03-05"), mustDate("2024-03-01"))
	assert.Equal(t, apperr.CodeInvalidDate, apperr.CodeOf(err))
}

func TestCheckAvailability(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	resp, err := f.svc.CheckAvailability(context.Background(), 10, "2024-03-01", "2024-03-03")
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.Equal(t, "2024-03-01", resp.StartDate)

	_, err = f.svc.CheckAvailability(context.Background(), 10, "tomorrow", "2024-03-03")
	assert.Equal(t, apperr.CodeInvalidDate, apperr.CodeOf(err))
}

func TestReturnRentalLate(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()

	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 5, 10, 11))
	require.NoError(t, err)

	// due 2024-03-06, returned 3 days later
	returned, err := f.svc.ReturnRental(ctx, rental.ID, "2024-03-09")
	require.NoError(t, err)

	assert.Equal(t, models.RentalReturned, returned.Status)
	assert.Equal(t, 3*10.0, returned.LateFee)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, "2024-03-09", timeutil.FormatDate(*returned.ReturnDate))
	assert.Equal(t, models.DressAvailable, f.dressStatus(10))
	assert.Equal(t, models.DressAvailable, f.dressStatus(11))

	stored := f.store.db.rentals[rental.ID]
	assert.Equal(t, models.RentalReturned, stored.Status)
	assert.Equal(t, 30.0, stored.LateFee)

	require.Len(t, f.events.envs, 2)
	assert.Equal(t, events.RentalReturned, f.events.envs[1].EventType)
	payload, err := events.UnwrapPayload[events.RentalReturnedPayload](f.events.envs[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.DaysLate)
}

func TestReturnRentalOnTimeHasNoFee(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 5, 10))
	require.NoError(t, err)

	returned, err := f.svc.ReturnRental(ctx, rental.ID, "2024-03-06")
	require.NoError(t, err)
	assert.Zero(t, returned.LateFee)

	f2 := newRentalFixture("2024-03-01")
	rental, _ = f2.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 5, 10))
	returned, err = f2.svc.ReturnRental(ctx, rental.ID, "2024-03-02")
	require.NoError(t, err)
	assert.Zero(t, returned.LateFee, "early return")
}

func TestReturnRentalDefaultsToToday(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, 10))
	require.NoError(t, err)

	day := mustDate("2024-03-07")
	f.svc.Today = func() time.Time { return day }

	returned, err := f.svc.ReturnRental(ctx, rental.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 40.0, returned.LateFee) // due 03-03, 4 days late
}

func TestReturnRentalTwice(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, 10))
	require.NoError(t, err)
	_, err = f.svc.ReturnRental(ctx, rental.ID, "2024-03-04")
	require.NoError(t, err)

	// the dress goes out again before the duplicate return arrives
	_, err = f.svc.CreateRental(ctx, rentalReq(2, "2024-03-05", 2, 10))
	require.NoError(t, err)
	activityBefore := len(f.activity.entries)
	eventsBefore := len(f.events.envs)

	_, err = f.svc.ReturnRental(ctx, rental.ID, "2024-03-20")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeAlreadyReturned, apperr.CodeOf(err))

	stored := f.store.db.rentals[rental.ID]
	assert.Equal(t, 10.0, stored.LateFee)
	assert.Equal(t, "2024-03-04", timeutil.FormatDate(*stored.ReturnDate))
	assert.Equal(t, models.DressRented, f.dressStatus(10))
	assert.Len(t, f.activity.entries, activityBefore)
	assert.Len(t, f.events.envs, eventsBefore)
}

func TestReturnRentalExample(t *testing.T) {
	f := newRentalFixture("2024-05-01")
	ctx := context.Background()

	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-05-01", 4, 10)) // 50/day
	require.NoError(t, err)
	assert.Equal(t, 200.0, rental.TotalAmount)

	returned, err := f.svc.ReturnRental(ctx, rental.ID, "2024-05-07") // due 05-05
	require.NoError(t, err)
	assert.Equal(t, 20.0, returned.LateFee)
	assert.Equal(t, 200.0, returned.TotalAmount)
	assert.Equal(t, 220.0, returned.AmountDue())
}

func TestReturnRentalErrors(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()

	_, err := f.svc.ReturnRental(ctx, 404, "")
	assert.Equal(t, apperr.CodeRentalNotFound, apperr.CodeOf(err))

	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-10", 2, 10))
	require.NoError(t, err)

	_, err = f.svc.ReturnRental(ctx, rental.ID, "2024-03-09")
	assert.Equal(t, apperr.CodeReturnBeforeRental, apperr.CodeOf(err))

	_, err = f.svc.ReturnRental(ctx, rental.ID, "next week")
	assert.Equal(t, apperr.CodeInvalidDate, apperr.CodeOf(err))

	assert.Equal(t, models.RentalActive, f.store.db.rentals[rental.ID].Status)
	assert.Equal(t, models.DressRented, f.dressStatus(10))
}

func TestReturnRentalRollsBackOnWriteFailure(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, 10, 11))
	require.NoError(t, err)

	f.store.failMarkReturn = true
	_, err = f.svc.ReturnRental(ctx, rental.ID, "2024-03-05")
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))

	assert.Equal(t, models.RentalActive, f.store.db.rentals[rental.ID].Status)
	assert.Equal(t, models.DressRented, f.dressStatus(10))
	assert.Equal(t, models.DressRented, f.dressStatus(11))
}

func TestCalculateLateFee(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, 10)) // due 03-03, total 100
	require.NoError(t, err)

	resp, err := f.svc.CalculateLateFee(ctx, rental.ID)
	require.NoError(t, err)
	assert.Zero(t, resp.DaysLate)
	assert.Zero(t, resp.LateFee)

	day := mustDate("2024-03-08")
	f.svc.Today = func() time.Time { return day }
	resp, err = f.svc.CalculateLateFee(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.DaysLate)
	assert.Equal(t, 50.0, resp.LateFee)
	assert.Equal(t, 150.0, resp.AmountDue)
	assert.Equal(t, 50.0, f.store.db.rentals[rental.ID].LateFee, "fee is persisted")

	_, err = f.svc.ReturnRental(ctx, rental.ID, "2024-03-05")
	require.NoError(t, err)

	// frozen after return
	later := mustDate("2024-04-01")
	f.svc.Today = func() time.Time { return later }
	resp, err = f.svc.CalculateLateFee(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.DaysLate)
	assert.Equal(t, 20.0, resp.LateFee)

	_, err = f.svc.CalculateLateFee(ctx, 404)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCalculateLateFeeAfterConcurrentReturn(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, 10)) // due 03-03
	require.NoError(t, err)

	day := mustDate("2024-03-08")
	f.svc.Today = func() time.Time { return day }
	returned := mustDate("2024-03-05")
	f.store.beforeLateFee = func() {
		r := f.store.db.rentals[rental.ID]
		r.Status = models.RentalReturned
		r.ReturnDate = &returned
		r.LateFee = 20
	}

	resp, err := f.svc.CalculateLateFee(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.DaysLate)
	assert.Equal(t, 20.0, resp.LateFee)
	assert.Equal(t, 120.0, resp.AmountDue)
	assert.Equal(t, 20.0, f.store.db.rentals[rental.ID].LateFee)
}

func TestPreviewLateFeeDoesNotStore(t *testing.T) {
	f := newRentalFixture("2024-03-01")
	ctx := context.Background()
	rental, err := f.svc.CreateRental(ctx, rentalReq(1, "2024-03-01", 2, 10))
	require.NoError(t, err)

	invalidations := f.cache.dashboard
	day := mustDate("2024-03-06")
	f.svc.Today = func() time.Time { return day }
	resp, err := f.svc.PreviewLateFee(ctx, rental.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.DaysLate)
	assert.Equal(t, 30.0, resp.LateFee)
	assert.Equal(t, 130.0, resp.AmountDue)
	assert.Zero(t, f.store.db.rentals[rental.ID].LateFee)
	assert.Equal(t, invalidations, f.cache.dashboard)

	_, err = f.svc.PreviewLateFee(ctx, 404)
	assert.True(t, apperr.IsNotFound(err))
}

func TestRentalReads(t *testing.T) {
	f := newRentalFixture("2024-03-20")
	ctx := context.Background()
	db := f.store.db
	overdue := db.addRental(1, "2024-03-01", 5, models.RentalActive, 10)
	current := db.addRental(2, "2024-03-18", 5, models.RentalActive, 11)
	db.addRental(1, "2024-02-01", 5, models.RentalReturned, 12)

	got, err := f.svc.GetRental(ctx, overdue.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Emerald Gown", got.Items[0].DressName)

	active, err := f.svc.ListActiveRentals(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	late, err := f.svc.ListOverdueRentals(ctx)
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, overdue.ID, late[0].ID)

	mine, err := f.svc.ListRentalsByCustomer(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	items, err := f.svc.ListRentalItems(ctx, current.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.svc.ListRentalItems(ctx, 404)
	assert.True(t, apperr.IsNotFound(err))
}
