package services

import (
	"fmt"
	"math"
	"time"

	"dress-rental/internal/apperr"
	"dress-rental/internal/models"
	"dress-rental/internal/timeutil"
)

// ValidateDuration requires 1 <= days <= rules.MaxDurationDays
func ValidateDuration(rules models.RentalRules, days int) error {
	if days < 1 || days > rules.MaxDurationDays {
		return apperr.Validation(apperr.CodeDurationOutOfRange,
			fmt.Sprintf("rental duration must be between 1 and %d days, got %d", rules.MaxDurationDays, days))
	}
	return nil
}

// ValidateActiveRentalCount fails once the customer holds the maximum number of Active rentals
func ValidateActiveRentalCount(rules models.RentalRules, active int) error {
	if active >= rules.MaxActiveRentals {
		return apperr.Validation(apperr.CodeRentalLimitReached,
			fmt.Sprintf("customer already has %d active rentals (limit %d)", active, rules.MaxActiveRentals))
	}
	return nil
}

// ValidateItemCount checks the number of dresses and rejects repeated ids
func ValidateItemCount(rules models.RentalRules, dressIDs []int) error {
	n := len(dressIDs)
	if n < rules.MinItems || n > rules.MaxItems {
		return apperr.Validation(apperr.CodeItemCountOutOfRange,
			fmt.Sprintf("a rental must have between %d and %d dresses, got %d", rules.MinItems, rules.MaxItems, n))
	}
	seen := make(map[int]bool, n)
	for _, id := range dressIDs {
		if seen[id] {
			return apperr.Validation(apperr.CodeDuplicateItem, fmt.Sprintf("dress %d listed more than once", id))
		}
		seen[id] = true
	}
	return nil
}

// ValidateItemState requires the dress to be Available
func ValidateItemState(d *models.Dress) error {
	if d.AvailabilityStatus != models.DressAvailable {
		return apperr.Validation(apperr.CodeItemNotAvailable,
			fmt.Sprintf("dress %d (%s) is %s", d.ID, d.Name, d.AvailabilityStatus))
	}
	return nil
}

// DueDate is the rental date plus the duration in calendar days
func DueDate(rentalDate time.Time, days int) time.Time {
	return timeutil.AddDays(rentalDate, days)
}

// DaysLate counts whole days after the due date, never negative
func DaysLate(dueDate, compareDate time.Time) int {
	if d := timeutil.DaysBetween(dueDate, compareDate); d > 0 {
		return d
	}
	return 0
}

// LateFee is the days late times the daily penalty
func LateFee(rules models.RentalRules, dueDate, compareDate time.Time) (int, float64) {
	days := DaysLate(dueDate, compareDate)
	return days, roundMoney(float64(days) * rules.LateFeePerDay)
}

// Overlaps reports whether inclusive ranges [a,b] and [c,d] share a day
// compared as calendar days in the shop timezone
func Overlaps(a, b, c, d time.Time) bool {
	return timeutil.DaysBetween(a, d) >= 0 && timeutil.DaysBetween(c, b) >= 0
}

// RentalTotal is the sum of every price times the duration
func RentalTotal(prices []float64, days int) float64 {
	var total float64
	for _, p := range prices {
		total += p * float64(days)
	}
	return roundMoney(total)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
