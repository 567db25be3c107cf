package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/auth"
	"dress-rental/internal/events"
	"dress-rental/internal/metrics"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
	"dress-rental/internal/timeutil"
)

type RentalStore interface {
	WithTransaction(ctx context.Context, fn func(repositories.RentalTx) error) error
	Get(ctx context.Context, id int) (*models.Rental, error)
	List(ctx context.Context) ([]*models.Rental, error)
	ListByCustomer(ctx context.Context, customerID int) ([]*models.Rental, error)
	ListActive(ctx context.Context) ([]*models.Rental, error)
	ListOverdue(ctx context.Context, today time.Time) ([]*models.Rental, error)
	ListItems(ctx context.Context, rentalID int) ([]*models.RentalItem, error)
	HasOverlappingRental(ctx context.Context, dressID int, start, end time.Time) (bool, error)
	UpdateLateFee(ctx context.Context, rentalID int, lateFee float64) error
}

// CacheInvalidator drops cached reads made stale by a mutation
type CacheInvalidator interface {
	InvalidateDresses(ctx context.Context)
	InvalidateDashboard(ctx context.Context)
}

type nopCache struct{}

func (nopCache) InvalidateDresses(context.Context)   {}
func (nopCache) InvalidateDashboard(context.Context) {}

// RentalService owns the rental lifecycle: availability, create, return and
// late fees. Both mutations run in a single transaction.
type RentalService struct {
	Store    RentalStore
	Rules    RulesProvider
	Activity ActivityRecorder
	Events   events.Publisher
	Cache    CacheInvalidator
	Today    func() time.Time
}

func NewRentalService(store RentalStore, rules RulesProvider, activity ActivityRecorder, publisher events.Publisher, cache CacheInvalidator) *RentalService {
	if rules == nil {
		rules = StaticRules(models.DefaultRentalRules())
	}
	if activity == nil {
		activity = nopRecorder{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if cache == nil {
		cache = nopCache{}
	}
	return &RentalService{
		Store:    store,
		Rules:    rules,
		Activity: activity,
		Events:   publisher,
		Cache:    cache,
		Today:    timeutil.Today,
	}
}

// IsAvailable reports whether no Active rental holds the dress on any day of [start, end]
func (s *RentalService) IsAvailable(ctx context.Context, dressID int, start, end time.Time) (bool, error) {
	if timeutil.DaysBetween(start, end) < 0 {
		return false, apperr.Validation(apperr.CodeInvalidDate, "end date is before start date")
	}
	overlap, err := s.Store.HasOverlappingRental(ctx, dressID, start, end)
	if err != nil {
		return false, apperr.Persistence("check availability", err)
	}
	return !overlap, nil
}

// CheckAvailability is IsAvailable over YYYY-MM-DD strings
func (s *RentalService) CheckAvailability(ctx context.Context, dressID int, startDate, endDate string) (*models.AvailabilityResponse, error) {
	start, err := timeutil.ParseDate(startDate)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidDate, "start date must be YYYY-MM-DD")
	}
	end, err := timeutil.ParseDate(endDate)
	if err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidDate, "end date must be YYYY-MM-DD")
	}
	ok, err := s.IsAvailable(ctx, dressID, start, end)
	if err != nil {
		return nil, err
	}
	return &models.AvailabilityResponse{
		DressID:   dressID,
		StartDate: timeutil.FormatDate(start),
		EndDate:   timeutil.FormatDate(end),
		Available: ok,
	}, nil
}

// CreateRental books the dresses for the customer. Checks run in order:
// duration, customer and its active-rental cap, item count, rental date,
// then each dress. Nothing is written unless every check passes.
func (s *RentalService) CreateRental(ctx context.Context, req *models.CreateRentalRequest) (*models.Rental, error) {
	rules := s.Rules.RentalRules(ctx)
	if err := ValidateDuration(rules, req.DurationDays); err != nil {
		return nil, err
	}

	var rental *models.Rental
	err := s.Store.WithTransaction(ctx, func(tx repositories.RentalTx) error {
		if _, err := tx.LockCustomer(ctx, req.CustomerID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperr.NotFound(apperr.CodeCustomerNotFound, fmt.Sprintf("customer %d not found", req.CustomerID))
			}
			return apperr.Persistence("lock customer", err)
		}
		active, err := tx.CountActiveRentals(ctx, req.CustomerID)
		if err != nil {
			return apperr.Persistence("count active rentals", err)
		}
		if err := ValidateActiveRentalCount(rules, active); err != nil {
			return err
		}

		if err := ValidateItemCount(rules, req.DressIDs); err != nil {
			return err
		}

		start, err := timeutil.ParseDate(req.RentalDate)
		if err != nil {
			return apperr.Validation(apperr.CodeInvalidDate, fmt.Sprintf("rental date %q must be YYYY-MM-DD", req.RentalDate))
		}
		due := DueDate(start, req.DurationDays)

		// lock in id order so concurrent bookings cannot deadlock
		lockOrder := append([]int(nil), req.DressIDs...)
		sort.Ints(lockOrder)
		dresses := make(map[int]*models.Dress, len(lockOrder))
		for _, id := range lockOrder {
			d, err := tx.LockDress(ctx, id)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return apperr.NotFound(apperr.CodeDressNotFound, fmt.Sprintf("dress %d not found", id))
				}
				return apperr.Persistence("lock dress", err)
			}
			if err := ValidateItemState(d); err != nil {
				return err
			}
			booked, err := tx.HasOverlappingRental(ctx, id, start, due)
			if err != nil {
				return apperr.Persistence("check overlapping rentals", err)
			}
			if booked {
				return apperr.Validation(apperr.CodeItemAlreadyBooked,
					fmt.Sprintf("dress %d is already booked between %s and %s", id, timeutil.FormatDate(start), timeutil.FormatDate(due)))
			}
			dresses[id] = d
		}

		prices := make([]float64, 0, len(req.DressIDs))
		for _, id := range req.DressIDs {
			prices = append(prices, dresses[id].RentalPrice)
		}

		rental = &models.Rental{
			CustomerID:      req.CustomerID,
			RentalDate:      start,
			DueDate:         due,
			TotalAmount:     RentalTotal(prices, req.DurationDays),
			Status:          models.RentalActive,
			Notes:           strings.TrimSpace(req.Notes),
			CreatedByUserID: auth.ActorID(ctx),
		}
		if err := tx.InsertRental(ctx, rental); err != nil {
			return apperr.Persistence("insert rental", err)
		}

		for _, id := range req.DressIDs {
			item := &models.RentalItem{
				RentalID:    rental.ID,
				DressID:     id,
				DressName:   dresses[id].Name,
				RentalPrice: dresses[id].RentalPrice,
			}
			if err := tx.InsertRentalItem(ctx, item); err != nil {
				return apperr.Persistence("insert rental item", err)
			}
			if err := tx.SetDressAvailability(ctx, id, models.DressRented); err != nil {
				return apperr.Persistence("mark dress rented", err)
			}
			rental.Items = append(rental.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("create rental", err)
	}

	log.Printf("[Rental] created rental %d for customer %d: %d dresses, %s to %s, total %.2f",
		rental.ID, rental.CustomerID, len(rental.Items),
		timeutil.FormatDate(rental.RentalDate), timeutil.FormatDate(rental.DueDate), rental.TotalAmount)

	metrics.RentalsCreated.Inc()
	s.Cache.InvalidateDresses(ctx)
	s.Activity.Record(ctx, models.ActionRent, "rentals", rental.ID,
		fmt.Sprintf("customer %d, dresses %v, total %.2f", rental.CustomerID, req.DressIDs, rental.TotalAmount))
	s.publish(ctx, events.RentalCreated, rental.ID, events.RentalCreatedPayload{
		RentalID:    rental.ID,
		CustomerID:  rental.CustomerID,
		DressIDs:    dressIDs(rental.Items),
		RentalDate:  timeutil.FormatDate(rental.RentalDate),
		DueDate:     timeutil.FormatDate(rental.DueDate),
		TotalAmount: rental.TotalAmount,
	})
	return rental, nil
}

// ReturnRental closes an Active rental. An empty returnDate means today.
// Returning twice fails with ALREADY_RETURNED and changes nothing.
func (s *RentalService) ReturnRental(ctx context.Context, rentalID int, returnDate string) (*models.Rental, error) {
	rules := s.Rules.RentalRules(ctx)

	compare := s.Today()
	if returnDate != "" {
		d, err := timeutil.ParseDate(returnDate)
		if err != nil {
			return nil, apperr.Validation(apperr.CodeInvalidDate, fmt.Sprintf("return date %q must be YYYY-MM-DD", returnDate))
		}
		compare = d
	}

	var rental *models.Rental
	var daysLate int
	err := s.Store.WithTransaction(ctx, func(tx repositories.RentalTx) error {
		var err error
		rental, err = tx.LockRental(ctx, rentalID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperr.NotFound(apperr.CodeRentalNotFound, fmt.Sprintf("rental %d not found", rentalID))
			}
			return apperr.Persistence("lock rental", err)
		}
		if !models.CanTransition(rental.Status, models.RentalReturned) {
			return apperr.Validation(apperr.CodeAlreadyReturned, fmt.Sprintf("rental %d is already returned", rentalID))
		}
		if timeutil.DaysBetween(rental.RentalDate, compare) < 0 {
			return apperr.Validation(apperr.CodeReturnBeforeRental,
				fmt.Sprintf("return date %s is before rental date %s", timeutil.FormatDate(compare), timeutil.FormatDate(rental.RentalDate)))
		}

		var fee float64
		daysLate, fee = LateFee(rules, rental.DueDate, compare)

		items, err := tx.ListRentalItems(ctx, rentalID)
		if err != nil {
			return apperr.Persistence("list rental items", err)
		}
		for _, it := range items {
			if err := tx.SetDressAvailability(ctx, it.DressID, models.DressAvailable); err != nil {
				return apperr.Persistence("release dress", err)
			}
		}
		if err := tx.MarkReturned(ctx, rentalID, compare, fee); err != nil {
			return apperr.Persistence("mark rental returned", err)
		}

		returned := compare
		rental.Status = models.RentalReturned
		rental.ReturnDate = &returned
		rental.LateFee = fee
		rental.Items = items
		return nil
	})
	if err != nil {
		return nil, apperr.Persistence("return rental", err)
	}

	log.Printf("[Rental] returned rental %d on %s: %d days late, fee %.2f",
		rental.ID, timeutil.FormatDate(compare), daysLate, rental.LateFee)

	metrics.RentalsReturned.Inc()
	metrics.LateFeesTotal.Add(rental.LateFee)
	s.Cache.InvalidateDresses(ctx)
	s.Activity.Record(ctx, models.ActionReturn, "rentals", rental.ID,
		fmt.Sprintf("returned %s, %d days late, fee %.2f", timeutil.FormatDate(compare), daysLate, rental.LateFee))
	s.publish(ctx, events.RentalReturned, rental.ID, events.RentalReturnedPayload{
		RentalID:   rental.ID,
		CustomerID: rental.CustomerID,
		DressIDs:   dressIDs(rental.Items),
		ReturnDate: timeutil.FormatDate(compare),
		DaysLate:   daysLate,
		LateFee:    rental.LateFee,
	})
	return rental, nil
}

// CalculateLateFee stores the fee accrued as of today on an Active rental.
// A Returned rental keeps the fee frozen at return.
func (s *RentalService) CalculateLateFee(ctx context.Context, rentalID int) (*models.LateFeeResponse, error) {
	rental, err := s.getRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status == models.RentalReturned {
		return frozenLateFee(rental), nil
	}

	days, fee := LateFee(s.Rules.RentalRules(ctx), rental.DueDate, s.Today())
	if fee != rental.LateFee {
		err := s.Store.UpdateLateFee(ctx, rental.ID, fee)
		if errors.Is(err, repositories.ErrNotFound) {
			// returned between the read and the update
			return s.returnedLateFee(ctx, rentalID, err)
		}
		if err != nil {
			return nil, apperr.Persistence("update late fee", err)
		}
		rental.LateFee = fee
		s.Cache.InvalidateDashboard(ctx)
	}
	return &models.LateFeeResponse{
		RentalID:  rental.ID,
		DaysLate:  days,
		LateFee:   fee,
		AmountDue: rental.AmountDue(),
	}, nil
}

// PreviewLateFee reports what CalculateLateFee would store, without writing
func (s *RentalService) PreviewLateFee(ctx context.Context, rentalID int) (*models.LateFeeResponse, error) {
	rental, err := s.getRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status == models.RentalReturned {
		return frozenLateFee(rental), nil
	}

	days, fee := LateFee(s.Rules.RentalRules(ctx), rental.DueDate, s.Today())
	rental.LateFee = fee
	return &models.LateFeeResponse{
		RentalID:  rental.ID,
		DaysLate:  days,
		LateFee:   fee,
		AmountDue: rental.AmountDue(),
	}, nil
}

func (s *RentalService) returnedLateFee(ctx context.Context, rentalID int, cause error) (*models.LateFeeResponse, error) {
	rental, err := s.getRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if rental.Status != models.RentalReturned {
		return nil, apperr.Persistence("update late fee", cause)
	}
	return frozenLateFee(rental), nil
}

func frozenLateFee(rental *models.Rental) *models.LateFeeResponse {
	compare := rental.DueDate
	if rental.ReturnDate != nil {
		compare = *rental.ReturnDate
	}
	return &models.LateFeeResponse{
		RentalID:  rental.ID,
		DaysLate:  DaysLate(rental.DueDate, compare),
		LateFee:   rental.LateFee,
		AmountDue: rental.AmountDue(),
	}
}

// GetRental returns the rental with its items
func (s *RentalService) GetRental(ctx context.Context, id int) (*models.Rental, error) {
	rental, err := s.getRental(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.Store.ListItems(ctx, id)
	if err != nil {
		return nil, apperr.Persistence("list rental items", err)
	}
	rental.Items = items
	return rental, nil
}

func (s *RentalService) getRental(ctx context.Context, id int) (*models.Rental, error) {
	rental, err := s.Store.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeRentalNotFound, fmt.Sprintf("rental %d not found", id))
	}
	if err != nil {
		return nil, apperr.Persistence("get rental", err)
	}
	return rental, nil
}

func (s *RentalService) ListRentals(ctx context.Context) ([]*models.Rental, error) {
	rentals, err := s.Store.List(ctx)
	return rentals, apperr.Persistence("list rentals", err)
}

func (s *RentalService) ListRentalsByCustomer(ctx context.Context, customerID int) ([]*models.Rental, error) {
	rentals, err := s.Store.ListByCustomer(ctx, customerID)
	return rentals, apperr.Persistence("list customer rentals", err)
}

// ListActiveRentals orders by due date, soonest first
func (s *RentalService) ListActiveRentals(ctx context.Context) ([]*models.Rental, error) {
	rentals, err := s.Store.ListActive(ctx)
	return rentals, apperr.Persistence("list active rentals", err)
}

// ListOverdueRentals returns Active rentals due before today
func (s *RentalService) ListOverdueRentals(ctx context.Context) ([]*models.Rental, error) {
	rentals, err := s.Store.ListOverdue(ctx, s.Today())
	return rentals, apperr.Persistence("list overdue rentals", err)
}

func (s *RentalService) ListRentalItems(ctx context.Context, rentalID int) ([]*models.RentalItem, error) {
	if _, err := s.getRental(ctx, rentalID); err != nil {
		return nil, err
	}
	items, err := s.Store.ListItems(ctx, rentalID)
	return items, apperr.Persistence("list rental items", err)
}

func (s *RentalService) publish(ctx context.Context, eventType string, rentalID int, payload any) {
	env, err := events.New(eventType, rentalID, payload)
	if err != nil {
		log.Printf("[Rental] build %s event: %v", eventType, err)
		return
	}
	if err := s.Events.Publish(ctx, env); err != nil {
		log.Printf("[Rental] publish %s for rental %d: %v", eventType, rentalID, err)
	}
}

func dressIDs(items []*models.RentalItem) []int {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.DressID)
	}
	return ids
}
