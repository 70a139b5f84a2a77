// Package availability decides whether an appointment fits into the studio's
// day without overbooking the chairs or double-booking a stylist.
package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/parrylicious/salonbook/services/booking-service/internal/catalog"
)

// Capacity is the number of appointments that may overlap when no specific
// stylist is requested.
const Capacity = 4

// ErrSlotUnavailable is returned when a booking is rejected because the slot
// filled up, including when the database rejects an insert the advisory
// check had accepted.
var ErrSlotUnavailable = errors.New("slot no longer available")

const statusCanceled = "canceled"

// Booking is the part of an existing booking that occupies a chair.
type Booking struct {
	ID          string
	StylistID   string
	DateISO     string
	Time        string
	DurationMin int
	Status      string
}

// Request is a candidate appointment.
type Request struct {
	DateISO          string `json:"dateISO"`
	Time             string `json:"time"`
	DurationMin      int    `json:"durationMin"`
	StylistID        string `json:"stylistId"`
	ExcludeBookingID string `json:"excludeBookingId,omitempty"`
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	hh, err := strconv.Atoi(h)
	if err != nil || hh < 0 || hh > 23 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	mm, err := strconv.Atoi(m)
	if err != nil || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return hh*60 + mm, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func interval(clock string, durationMin int) (time.Time, time.Time, error) {
	start, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(start) * time.Minute)
	return base, base.Add(time.Duration(durationMin) * time.Minute), nil
}

func isAuto(stylistID string) bool {
	stylistID = strings.TrimSpace(stylistID)
	return stylistID == "" || stylistID == catalog.AutoStylist
}

// IsSlotAvailable applies the placement rules to the bookings of the
// requested day. A specific stylist must be free for the whole interval;
// with no preference fewer than Capacity bookings may overlap it.
// Canceled bookings and ExcludeBookingID never count.
func IsSlotAvailable(req Request, existing []Booking) bool {
	return isSlotAvailable(req, existing, Capacity)
}

func isSlotAvailable(req Request, existing []Booking, capacity int) bool {
	if req.DurationMin <= 0 {
		return false
	}
	start, end, err := interval(req.Time, req.DurationMin)
	if err != nil {
		return false
	}

	auto := isAuto(req.StylistID)
	overlapping := 0
	for _, b := range existing {
		if b.Status == statusCanceled || b.DateISO != req.DateISO {
			continue
		}
		if req.ExcludeBookingID != "" && b.ID == req.ExcludeBookingID {
			continue
		}
		bStart, bEnd, err := interval(b.Time, b.DurationMin)
		if err != nil || !Overlaps(start, end, bStart, bEnd) {
			continue
		}
		if !auto {
			if b.StylistID == req.StylistID {
				return false
			}
			continue
		}
		overlapping++
	}
	return overlapping < capacity
}
