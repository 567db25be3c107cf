package services

import (
	"testing"
	"time"
	_ "time/tzdata"

	"dress-rental/internal/apperr"
	"dress-rental/internal/models"
	"dress-rental/internal/timeutil"

	"github.com/stretchr/testify/assert"
)

func TestValidateDuration(t *testing.T) {
	rules := models.DefaultRentalRules()
	testCases := []struct {
		days    int
		wantErr bool
	}{
		{-3, true},
		{0, true},
		{1, false},
		{7, false},
		{14, false},
		{15, true},
	}
	for _, tt := range testCases {
		err := ValidateDuration(rules, tt.days)
		if tt.wantErr {
			assert.Equal(t, apperr.CodeDurationOutOfRange, apperr.CodeOf(err), tt.days)
		} else {
			assert.NoError(t, err, tt.days)
		}
	}
}

func TestValidateActiveRentalCount(t *testing.T) {
	rules := models.DefaultRentalRules()
	assert.NoError(t, ValidateActiveRentalCount(rules, 0))
	assert.NoError(t, ValidateActiveRentalCount(rules, 2))
	assert.Equal(t, apperr.CodeRentalLimitReached, apperr.CodeOf(ValidateActiveRentalCount(rules, 3)))
	assert.Equal(t, apperr.CodeRentalLimitReached, apperr.CodeOf(ValidateActiveRentalCount(rules, 4)))
}

func TestValidateItemCount(t *testing.T) {
	rules := models.DefaultRentalRules()
	assert.NoError(t, ValidateItemCount(rules, []int{1}))
	assert.NoError(t, ValidateItemCount(rules, []int{1, 2, 3, 4, 5}))
	assert.Equal(t, apperr.CodeItemCountOutOfRange, apperr.CodeOf(ValidateItemCount(rules, []int{})))
	assert.Equal(t, apperr.CodeItemCountOutOfRange, apperr.CodeOf(ValidateItemCount(rules, []int{1, 2, 3, 4, 5, 6})))
	assert.Equal(t, apperr.CodeDuplicateItem, apperr.CodeOf(ValidateItemCount(rules, []int{4, 2, 4})))
}

func TestValidateItemState(t *testing.T) {
	for status, ok := range map[models.AvailabilityStatus]bool{
		models.DressAvailable:   true,
		models.DressRented:      false,
		models.DressMaintenance: false,
	} {
		err := ValidateItemState(&models.Dress{ID: 1, Name: "Gown", AvailabilityStatus: status})
		if ok {
			assert.NoError(t, err)
		} else {
			assert.Equal(t, apperr.CodeItemNotAvailable, apperr.CodeOf(err), string(status))
		}
	}
}

func TestDueDate(t *testing.T) {
	assert.Equal(t, "2024-03-05", timeutil.FormatDate(DueDate(mustDate("2024-03-01"), 4)))
	assert.Equal(t, "2024-03-01", timeutil.FormatDate(DueDate(mustDate("2024-02-28"), 2)))
	assert.Equal(t, "2025-01-04", timeutil.FormatDate(DueDate(mustDate("2024-12-21"), 14)))
}

func TestLateFee(t *testing.T) {
	rules := models.DefaultRentalRules()
	due := mustDate("2024-03-10")
	testCases := []struct {
		compare string
		days    int
		fee     float64
	}{
		{"2024-03-01", 0, 0},
		{"2024-03-10", 0, 0},
		{"2024-03-11", 1, 10},
		{"2024-03-13", 3, 30},
		{"2024-04-09", 30, 300},
	}
	for _, tt := range testCases {
		days, fee := LateFee(rules, due, mustDate(tt.compare))
		assert.Equal(t, tt.days, days, tt.compare)
		assert.Equal(t, tt.fee, fee, tt.compare)
	}

	rules.LateFeePerDay = 12.5
	_, fee := LateFee(rules, due, mustDate("2024-03-12"))
	assert.Equal(t, 25.0, fee)
}

func TestDaysLateAcrossStorageZones(t *testing.T) {
	// DATE columns come back as UTC midnight
	stored := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysLate(stored, mustDate("2024-03-12")))
	assert.Equal(t, 0, DaysLate(stored, mustDate("2024-03-10")))
}

func TestDaysLateWestOfUTC(t *testing.T) {
	prev := timeutil.Shop
	defer func() { timeutil.Shop = prev }()
	if err := timeutil.SetLocation("America/New_York"); err != nil {
		t.Fatal(err)
	}

	due := timeutil.FromDate(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 3, DaysLate(due, mustDate("2024-03-13")))

	days, fee := LateFee(models.DefaultRentalRules(), due, mustDate("2024-03-10"))
	assert.Equal(t, 0, days)
	assert.Equal(t, 0.0, fee)
}

func TestOverlaps(t *testing.T) {
	a, b := mustDate("2024-03-10"), mustDate("2024-03-14")
	testCases := []struct {
		start, end string
		expected   bool
	}{
		{"2024-03-01", "2024-03-09", false},
		{"2024-03-01", "2024-03-10", true},
		{"2024-03-12", "2024-03-12", true},
		{"2024-03-14", "2024-03-20", true},
		{"2024-03-15", "2024-03-20", false},
		{"2024-03-01", "2024-03-31", true},
	}
	for _, tt := range testCases {
		assert.Equal(t, tt.expected, Overlaps(a, b, mustDate(tt.start), mustDate(tt.end)), tt.start+".."+tt.end)
	}
}

func TestRentalTotal(t *testing.T) {
	assert.Equal(t, 520.0, RentalTotal([]float64{50, 80}, 4))
	assert.Equal(t, 200.0, RentalTotal([]float64{50}, 4))
	assert.Equal(t, 0.0, RentalTotal(nil, 4))
	assert.Equal(t, 0.9, RentalTotal([]float64{0.1, 0.2}, 3))
}
