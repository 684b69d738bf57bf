package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DateLayout is the wire and storage format of a calendar day.
const DateLayout = "2006-01-02"

var dateOnlyRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ErrMalformedDate is returned when a value is not a real YYYY-MM-DD date.
var ErrMalformedDate = errors.New("date must be YYYY-MM-DD")

// CalendarDay is a date without a time component. Two days are equal when
// year, month and day are equal; there is no zone attached.
type CalendarDay struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCalendarDay normalizes y/m/d the same way time.Date does (e.g. Jan 32 -> Feb 1).
func NewCalendarDay(year int, month time.Month, day int) CalendarDay {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return CalendarDay{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseCalendarDay parses a strict YYYY-MM-DD string. Impossible dates such as
// 2026-02-30 are rejected instead of being rolled over.
func ParseCalendarDay(value string) (CalendarDay, error) {
	value = strings.TrimSpace(value)
	if !dateOnlyRegex.MatchString(value) {
		return CalendarDay{}, ErrMalformedDate
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return CalendarDay{}, fmt.Errorf("%w: %q", ErrMalformedDate, value)
	}
	return CalendarDay{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero reports whether d is the zero value.
func (d CalendarDay) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of d. UTC has no DST so day arithmetic on it is exact.
func (d CalendarDay) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n calendar days.
func (d CalendarDay) AddDays(n int) CalendarDay {
	return NewCalendarDay(d.Year, d.Month, d.Day+n)
}

func (d CalendarDay) Equal(other CalendarDay) bool {
	return d == other
}

func (d CalendarDay) Before(other CalendarDay) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d CalendarDay) After(other CalendarDay) bool {
	return other.Before(d)
}

func (d CalendarDay) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Value stores the day as YYYY-MM-DD text, which both Postgres DATE columns
// and SQLite accept.
func (d CalendarDay) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan accepts what lib/pq (time.Time) and modernc sqlite (string, []byte or time.Time)
// return for a DATE column.
func (d *CalendarDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = CalendarDay{Year: v.Year(), Month: v.Month(), Day: v.Day()}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = CalendarDay{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into CalendarDay", src)
	}
}

func (d *CalendarDay) scanString(v string) error {
	if len(v) > len(DateLayout) {
		v = v[:len(DateLayout)]
	}
	parsed, err := ParseCalendarDay(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d CalendarDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *CalendarDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCalendarDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
