package scheduling

import (
	"fmt"
	"slices"
	"time"
)

// ClockTime is a wall clock time of day, independent of any date or zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a "15:04" formatted time of day.
func ParseClock(value string) (ClockTime, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", value, err)
	}

	return ClockTime{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant of c on the given date in loc.
func (c ClockTime) On(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, c.Hour, c.Minute, 0, 0, loc)
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// BusinessHours is the policy for when meetings may take place.
type BusinessHours struct {
	Start    ClockTime
	End      ClockTime
	Weekdays []time.Weekday
}

func (h BusinessHours) allows(day time.Weekday) bool {
	return slices.Contains(h.Weekdays, day)
}

// Length is the length of a single business day.
func (h BusinessHours) Length() time.Duration {
	return time.Duration(h.End.minutes()-h.Start.minutes()) * time.Minute
}

// WeekdaysFromIndices converts Monday-based weekday indices (0 = Monday,
// 6 = Sunday), the notation used in company profiles, into [time.Weekday]
// values.
func WeekdaysFromIndices(indices []int) ([]time.Weekday, error) {
	weekdays := make([]time.Weekday, 0, len(indices))
	for _, index := range indices {
		if index < 0 || index > 6 {
			return nil, fmt.Errorf("weekday index %d out of range 0-6", index)
		}
		weekdays = append(weekdays, time.Weekday((index+1)%7))
	}

	return weekdays, nil
}
