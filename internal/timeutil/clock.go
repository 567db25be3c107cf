package timeutil

import (
	"time"
)

// Shop is the business timezone (Malaysia Time, UTC+8). Rental and due
// dates are calendar days in this zone.
var Shop *time.Location

func init() {
	var err error
	Shop, err = time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		// Fallback: fixed zone if tzdata is missing
		Shop = time.FixedZone("MYT", 8*60*60)
	}
}

// SetLocation switches the shop timezone. Call once at startup, before
// any request is served.
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Shop = loc
	return nil
}

// Now returns the current time in the shop timezone
func Now() time.Time {
	return time.Now().In(Shop)
}

// Today returns midnight of the current day in the shop timezone
func Today() time.Time {
	return StartOfDay(Now())
}

// ParseDate parses a YYYY-MM-DD string as midnight in the shop timezone
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, Shop)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// FromDate maps a calendar date read from storage onto midnight in the
// shop timezone. The driver returns DATE columns as UTC midnight, which
// converts into the previous day anywhere west of UTC.
func FromDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, Shop)
}

// FromNullDate is FromDate for nullable columns
func FromNullDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := FromDate(*t)
	return &d
}

// FormatDate formats a time as YYYY-MM-DD in the shop timezone
func FormatDate(t time.Time) string {
	return t.In(Shop).Format(DateLayout)
}

// StartOfDay returns 00:00:00 in the shop timezone for the given time
func StartOfDay(t time.Time) time.Time {
	l := t.In(Shop)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Shop)
}

// EndOfDay returns 23:59:59 in the shop timezone for the given time
func EndOfDay(t time.Time) time.Time {
	l := t.In(Shop)
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, 999999999, Shop)
}

// AddDays adds calendar days, not 24h periods.
func AddDays(t time.Time, days int) time.Time {
	l := StartOfDay(t)
	return time.Date(l.Year(), l.Month(), l.Day()+days, 0, 0, 0, 0, Shop)
}

// DaysBetween returns the number of calendar days from a to b.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	da := StartOfDay(a)
	db := StartOfDay(b)
	// Use UTC dates so DST-free arithmetic stays exact
	ua := time.Date(da.Year(), da.Month(), da.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(db.Year(), db.Month(), db.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
