package ledger

import (
	"fmt"
	"time"

	"github.com/tinoosan/tesouraria/internal/errs"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

// Period is a calendar month.
type Period struct {
	Year  int
	Month int
}

// NewPeriod validates month in 1..12 and year in 1..9999.
func NewPeriod(month, year int) (Period, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return Period{}, errs.ErrInvalidPeriod
	}
	return Period{Year: year, Month: month}, nil
}

// Prev returns the preceding month, rolling January back to December of the previous year.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Range returns the half-open interval [from, to) covering the month, in UTC.
func (p Period) Range() (from, to time.Time) {
	from = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Contains reports whether the calendar date d falls inside the month.
func (p Period) Contains(d time.Time) bool {
	return d.Year() == p.Year && int(d.Month()) == p.Month
}

// String renders the period as "M/YYYY".
func (p Period) String() string { return fmt.Sprintf("%d/%d", p.Month, p.Year) }

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
