package availability

import (
	"errors"
	"time"

	"github.com/parrylicious/salonbook/services/booking-service/internal/catalog"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrDayClosed   = errors.New("studio is closed on that day")
	ErrOutOfRange  = errors.New("date is outside the booking window")
	ErrOffGrid     = errors.New("time is not a bookable slot")
)

const dateLayout = "2006-01-02"

// Slot is one start time on the day grid.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

func today(s catalog.Schedule, now time.Time) time.Time {
	n := now.In(s.Location)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.Location)
}

// ParseDay parses an ISO date in the studio timezone.
func ParseDay(s catalog.Schedule, dateISO string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, dateISO, s.Location)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// CheckBookableDay validates that dateISO is an open day between today and
// MaxDaysAhead days from now.
func CheckBookableDay(s catalog.Schedule, dateISO string, now time.Time) error {
	day, err := ParseDay(s, dateISO)
	if err != nil {
		return err
	}
	if !s.IsOpen(day.Weekday()) {
		return ErrDayClosed
	}
	first := today(s, now)
	last := first.AddDate(0, 0, s.MaxDaysAhead)
	if day.Before(first) || day.After(last) {
		return ErrOutOfRange
	}
	return nil
}

// CheckOnGrid validates that clock is a grid start time and that an
// appointment of durationMin ends by closing time.
func CheckOnGrid(s catalog.Schedule, clock string, durationMin int) error {
	start, err := ParseClock(clock)
	if err != nil {
		return ErrOffGrid
	}
	if start < s.OpenMinute || (start-s.OpenMinute)%s.StepMin != 0 || start+durationMin > s.CloseMinute {
		return ErrOffGrid
	}
	return nil
}

// BookableDays lists the open days from today through MaxDaysAhead.
func BookableDays(s catalog.Schedule, now time.Time) []string {
	first := today(s, now)
	var days []string
	for i := 0; i <= s.MaxDaysAhead; i++ {
		d := first.AddDate(0, 0, i)
		if s.IsOpen(d.Weekday()) {
			days = append(days, d.Format(dateLayout))
		}
	}
	return days
}

// DaySlots builds the slot grid for dateISO: a start every StepMin minutes
// from opening while the appointment still ends by closing time. Slots in
// the past are unavailable.
func DaySlots(s catalog.Schedule, dateISO string, durationMin int, stylistID string, existing []Booking, now time.Time) ([]Slot, error) {
	day, err := ParseDay(s, dateISO)
	if err != nil {
		return nil, err
	}
	if durationMin <= 0 || s.StepMin <= 0 {
		return nil, nil
	}
	capacity := s.Capacity
	if capacity <= 0 {
		capacity = Capacity
	}

	var slots []Slot
	for m := s.OpenMinute; m+durationMin <= s.CloseMinute; m += s.StepMin {
		clock := FormatClock(m)
		startAt := day.Add(time.Duration(m) * time.Minute)
		available := !startAt.Before(now) && isSlotAvailable(Request{
			DateISO:     dateISO,
			Time:        clock,
			DurationMin: durationMin,
			StylistID:   stylistID,
		}, existing, capacity)
		slots = append(slots, Slot{Time: clock, Available: available})
	}
	return slots, nil
}
