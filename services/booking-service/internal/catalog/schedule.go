package catalog

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

const StudioTimezone = "Europe/Berlin"

// Schedule describes when appointments can start.
type Schedule struct {
	OpenDays     []time.Weekday
	OpenMinute   int // minutes after midnight of the first slot
	CloseMinute  int // appointments must end by this minute
	StepMin      int
	MaxDaysAhead int
	Capacity     int
	Location     *time.Location
}

// DefaultSchedule is Tue–Sat 11:00–19:30 in 30 minute steps, up to 60 days
// ahead, four chairs.
func DefaultSchedule(loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return Schedule{
		OpenDays:     []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		OpenMinute:   11 * 60,
		CloseMinute:  19*60 + 30,
		StepMin:      30,
		MaxDaysAhead: 60,
		Capacity:     4,
		Location:     loc,
	}
}

// LoadSchedule builds the default schedule in the named timezone.
func LoadSchedule(timezone string) (Schedule, error) {
	if timezone == "" {
		timezone = StudioTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Schedule{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return DefaultSchedule(loc), nil
}

func (s Schedule) IsOpen(day time.Weekday) bool {
	for _, d := range s.OpenDays {
		if d == day {
			return true
		}
	}
	return false
}
