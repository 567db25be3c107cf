package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"dress-rental/internal/apperr"
	"dress-rental/internal/timeutil"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^[+]?[\d\s\-()]{8,20}$`)
	icPattern    = regexp.MustCompile(`^[a-zA-Z0-9]{8,20}$`)
)

const (
	minCustomerAge    = 18
	minPasswordLength = 8
	maxPasswordLength = 50
)

func invalid(format string, args ...any) error {
	return apperr.Validation(apperr.CodeInvalidInput, fmt.Sprintf(format, args...))
}

func requireText(field, value string, max int) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return invalid("%s is required", field)
	}
	if max > 0 && len(v) > max {
		return invalid("%s must be at most %d characters", field, max)
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalid("invalid email address %q", email)
	}
	return nil
}

func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return invalid("invalid phone number %q", phone)
	}
	return nil
}

// ValidateIC checks the government ID format: 8 to 20 letters or digits
func ValidateIC(ic string) error {
	if !icPattern.MatchString(ic) {
		return invalid("ic number must be 8 to 20 letters or digits")
	}
	return nil
}

// ValidateDateOfBirth parses YYYY-MM-DD and requires an adult as of today
func ValidateDateOfBirth(value string, today time.Time) (time.Time, error) {
	dob, err := timeutil.ParseDate(value)
	if err != nil {
		return time.Time{}, apperr.Validation(apperr.CodeInvalidDate, "date of birth must be YYYY-MM-DD")
	}
	if dob.After(today) {
		return time.Time{}, apperr.Validation(apperr.CodeInvalidDate, "date of birth is in the future")
	}
	if ageOn(dob, today) < minCustomerAge {
		return time.Time{}, apperr.Validation(apperr.CodeUnderage,
			fmt.Sprintf("customer must be at least %d years old", minCustomerAge))
	}
	return dob, nil
}

// ageOn returns completed years between dob and day
func ageOn(dob, day time.Time) int {
	d := day.In(timeutil.Shop)
	b := dob.In(timeutil.Shop)
	age := d.Year() - b.Year()
	if d.Month() < b.Month() || (d.Month() == b.Month() && d.Day() < b.Day()) {
		age--
	}
	return age
}

// ValidatePassword enforces 8..50 characters with upper, lower, digit and special
func ValidatePassword(pw string) error {
	if len(pw) < minPasswordLength || len(pw) > maxPasswordLength {
		return apperr.Validation(apperr.CodeWeakPassword,
			fmt.Sprintf("password must be %d to %d characters", minPasswordLength, maxPasswordLength))
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return apperr.Validation(apperr.CodeWeakPassword,
			"password needs an uppercase letter, a lowercase letter, a digit and a special character")
	}
	return nil
}
