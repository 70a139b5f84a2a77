package bookings

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

var csvHeader = []string{
	"id", "status", "createdAt", "date", "time", "service", "durationMin", "deposit",
	"firstName", "lastName", "phone", "email", "address", "notes",
}

// ExportCSV writes the bookings visible to p as CSV.
func (s *Service) ExportCSV(ctx context.Context, p auth.Principal, w io.Writer) error {
	list, err := s.List(ctx, p, Filter{Limit: 1000})
	if err != nil {
		return err
	}
	return WriteCSV(w, list)
}

func WriteCSV(w io.Writer, list []model.Booking) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range list {
		c := b.Customer
		record := []string{
			b.ID,
			b.Status,
			b.CreatedAt.UTC().Format(time.RFC3339),
			b.DateISO,
			b.Time,
			b.ServiceName,
			strconv.Itoa(b.DurationMin),
			strconv.FormatFloat(b.Deposit, 'f', -1, 64),
			c.FirstName,
			c.LastName,
			c.Phone,
			c.Email,
			c.Address,
			c.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	icsProdID   = "-//Parrylicious//Booking Demo//DE"
	icsLocation = "Bahlenstraße 42, 40589 Düsseldorf"
	icsLayout   = "20060102T150405Z"
)

// ICS renders b as a single-event iCalendar file. Times are studio local
// and written in UTC.
func (s *Service) ICS(b model.Booking) ([]byte, error) {
	day, err := availability.ParseDay(s.schedule, b.DateISO)
	if err != nil {
		return nil, err
	}
	minute, err := availability.ParseClock(b.Time)
	if err != nil {
		return nil, err
	}
	start := day.Add(time.Duration(minute) * time.Minute)
	end := start.Add(time.Duration(b.DurationMin) * time.Minute)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + icsProdID,
		"BEGIN:VEVENT",
		"UID:" + b.ID + "@parrylicious",
		"DTSTAMP:" + s.now().UTC().Format(icsLayout),
		"DTSTART:" + start.UTC().Format(icsLayout),
		"DTEND:" + end.UTC().Format(icsLayout),
		"SUMMARY:" + icsEscape(fmt.Sprintf("%s – Parrylicious Studio", b.ServiceName)),
		"LOCATION:" + icsEscape(icsLocation),
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n"), nil
}

func icsEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)
	return r.Replace(s)
}
