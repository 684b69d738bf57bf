package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/AnshRaj112/nutrilog-backend/internal/models"
)

// LoadZone resolves an IANA zone name. "Local" is rejected because it means the
// server's zone, which is never what a user configured.
func LoadZone(tz string) (*time.Location, error) {
	name := strings.TrimSpace(tz)
	if name == "" || strings.EqualFold(name, "local") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

// ResolveLocalDate returns the calendar date the wall clock in tz shows at
// instant. It goes through the zone database, so half-hour offsets and DST
// transitions come out right.
func ResolveLocalDate(instant time.Time, tz string) (models.CalendarDay, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return models.CalendarDay{}, err
	}
	local := instant.In(loc)
	return models.CalendarDay{Year: local.Year(), Month: local.Month(), Day: local.Day()}, nil
}

// ParseDay parses a YYYY-MM-DD query value, reporting ErrInvalidDate.
func ParseDay(value string) (models.CalendarDay, error) {
	day, err := models.ParseCalendarDay(value)
	if err != nil {
		return models.CalendarDay{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return day, nil
}
