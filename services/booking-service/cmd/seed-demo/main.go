package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	libconfig "github.com/parrylicious/salonbook/libs/config"
	"github.com/parrylicious/salonbook/libs/db"
	"github.com/parrylicious/salonbook/libs/runtime"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/catalog"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

func main() {
	_ = libconfig.LoadDotenv()
	logger := runtime.NewLogger("seed-demo")

	var (
		customers = flag.Int("customers", 25, "demo customer profiles")
		bookings  = flag.Int("bookings", 120, "bookings to attempt across the bookable days")
		waitlist  = flag.Int("waitlist", 10, "waitlist entries")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	dsn, err := libconfig.RequiredString("DATABASE_URL")
	if err != nil {
		fatal(logger, err)
	}
	sched, err := catalog.LoadSchedule(libconfig.String("STUDIO_TIMEZONE", catalog.StudioTimezone))
	if err != nil {
		fatal(logger, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.OpenWithOptions(ctx, dsn, db.Options{ApplicationName: "seed-demo", MaxConns: 2})
	if err != nil {
		fatal(logger, fmt.Errorf("connect postgres: %w", err))
	}
	defer pool.Close()

	gofakeit.Seed(*seed)

	people := fakeCustomers(*customers)
	demo := plan(sched, time.Now(), people, *bookings)
	entries := fakeWaitlist(people, *waitlist)

	tx, err := pool.Begin(ctx)
	if err != nil {
		fatal(logger, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertProfiles(ctx, tx, people); err != nil {
		fatal(logger, fmt.Errorf("seed profiles: %w", err))
	}
	if err := insertBookings(ctx, tx, demo); err != nil {
		fatal(logger, fmt.Errorf("seed bookings: %w", err))
	}
	if err := insertWaitlist(ctx, tx, entries); err != nil {
		fatal(logger, fmt.Errorf("seed waitlist: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		fatal(logger, err)
	}

	logger.Info("seed complete", "profiles", len(people), "bookings", len(demo), "waitlist", len(entries))
}

type customer struct {
	ID string
	model.Customer
}

type demoBooking struct {
	UserID  string
	Status  string
	Service catalog.Service
	Stylist catalog.Stylist
	DateISO string
	Time    string
	Payment string
	model.Customer
}

func fakeCustomers(n int) []customer {
	out := make([]customer, 0, n)
	for i := 0; i < n; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		out = append(out, customer{
			ID: uuid.NewString(),
			Customer: model.Customer{
				FirstName: first,
				LastName:  last,
				Phone:     "+49" + gofakeit.Phone(),
				Email:     gofakeit.Email(),
				Address:   fmt.Sprintf("%s, %s %s", gofakeit.Street(), gofakeit.Zip(), gofakeit.City()),
				Notes:     gofakeit.RandomString([]string{"", "", "Erstbesuch", "Bitte Parkplatz reservieren", "Allergie gegen Duftstoffe"}),
			},
		})
	}
	return out
}

// plan draws random appointments on the bookable days and keeps only the
// ones the availability rules accept against what was already planned.
func plan(sched catalog.Schedule, now time.Time, people []customer, attempts int) []demoBooking {
	days := availability.BookableDays(sched, now)
	services := catalog.Services()
	stylists := catalog.Stylists()
	if len(days) == 0 || len(people) == 0 || len(services) == 0 {
		return nil
	}

	var (
		out      []demoBooking
		occupied = map[string][]availability.Booking{}
	)
	for i := 0; i < attempts; i++ {
		svc := services[gofakeit.Number(0, len(services)-1)]
		stylist := stylists[gofakeit.Number(0, len(stylists)-1)]
		day := days[gofakeit.Number(0, len(days)-1)]

		latest := sched.CloseMinute - svc.DurationMin
		if latest < sched.OpenMinute {
			continue
		}
		steps := (latest - sched.OpenMinute) / sched.StepMin
		clock := availability.FormatClock(sched.OpenMinute + gofakeit.Number(0, steps)*sched.StepMin)

		req := availability.Request{DateISO: day, Time: clock, DurationMin: svc.DurationMin, StylistID: stylist.ID}
		if !availability.IsSlotAvailable(req, occupied[day]) {
			continue
		}

		status := gofakeit.RandomString([]string{"requested", "requested", "confirmed", "confirmed", "canceled"})
		payment := "unpaid"
		if status == "confirmed" && gofakeit.Bool() {
			payment = "paid"
		}
		who := people[gofakeit.Number(0, len(people)-1)]
		out = append(out, demoBooking{
			UserID:   who.ID,
			Status:   status,
			Service:  svc,
			Stylist:  stylist,
			DateISO:  day,
			Time:     clock,
			Payment:  payment,
			Customer: who.Customer,
		})
		occupied[day] = append(occupied[day], availability.Booking{
			ID:          fmt.Sprintf("demo-%d", i),
			StylistID:   stylist.ID,
			DateISO:     day,
			Time:        clock,
			DurationMin: svc.DurationMin,
			Status:      status,
		})
	}
	return out
}

func fakeWaitlist(people []customer, n int) []model.WaitlistEntry {
	services := catalog.Services()
	if len(people) == 0 || len(services) == 0 {
		return nil
	}
	out := make([]model.WaitlistEntry, 0, n)
	for i := 0; i < n; i++ {
		who := people[gofakeit.Number(0, len(people)-1)]
		svc := services[gofakeit.Number(0, len(services)-1)]
		out = append(out, model.WaitlistEntry{
			UserID:      who.ID,
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			Email:       who.Email,
			Phone:       who.Phone,
			Note:        gofakeit.RandomString([]string{"", "Gerne auch kurzfristig", "Nur samstags"}),
		})
	}
	return out
}

func insertProfiles(ctx context.Context, tx pgx.Tx, people []customer) error {
	for _, p := range people {
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (id, email, full_name, phone, address, role)
			VALUES ($1, $2, $3, $4, $5, 'customer')
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Email, p.FirstName+" "+p.LastName, p.Phone, p.Address)
		if err != nil {
			return err
		}
	}
	return nil
}

func insertBookings(ctx context.Context, tx pgx.Tx, list []demoBooking) error {
	for _, b := range list {
		contact, err := json.Marshal(b.Customer)
		if err != nil {
			return err
		}
		paid := b.Payment == "paid"
		var paidAt *time.Time
		if paid {
			now := time.Now().UTC()
			paidAt = &now
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO bookings
				(user_id, status, service_id, service_name, duration_min, price_from, deposit,
				 stylist_id, stylist_name, date_iso, time, customer, deposit_paid, payment_status, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		`, b.UserID, b.Status, b.Service.ID, b.Service.Name, b.Service.DurationMin, b.Service.PriceFrom,
			b.Service.Deposit, b.Stylist.ID, b.Stylist.Name, b.DateISO, b.Time, contact, paid, b.Payment, paidAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func insertWaitlist(ctx context.Context, tx pgx.Tx, list []model.WaitlistEntry) error {
	for _, e := range list {
		_, err := tx.Exec(ctx, `
			INSERT INTO waitlist (user_id, service_id, service_name, email, phone, note)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.UserID, e.ServiceID, e.ServiceName, e.Email, e.Phone, e.Note)
		if err != nil {
			return err
		}
	}
	return nil
}

func fatal(logger *slog.Logger, err error) {
	logger.Error("seed failed", "err", err)
	os.Exit(1)
}
