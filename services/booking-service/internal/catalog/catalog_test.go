package catalog

import (
	"testing"
	"time"
)

func TestServiceLookup(t *testing.T) {
	if got := len(Services()); got != 11 {
		t.Fatalf("expected 11 services, got %d", got)
	}
	svc, ok := ServiceByID("comb_twist")
	if !ok || svc.DurationMin != 90 || svc.Deposit != 25 {
		t.Fatalf("unexpected comb_twist: %+v", svc)
	}
	if _, ok := ServiceByID("nope"); ok {
		t.Fatal("expected unknown service to be missing")
	}
}

func TestStylistByIDDefaultsToAuto(t *testing.T) {
	s, ok := StylistByID("")
	if !ok || s.ID != AutoStylist || s.Name != "Egal (automatisch)" {
		t.Fatalf("unexpected stylist %+v", s)
	}
	if _, ok := StylistByID("stylist_z"); ok {
		t.Fatal("expected unknown stylist")
	}
}

func TestFilterByTag(t *testing.T) {
	if got := len(FilterByTag("all")); got != 11 {
		t.Fatalf("expected all services, got %d", got)
	}
	locs := FilterByTag("Locs")
	if len(locs) != 3 {
		t.Fatalf("expected 3 locs services, got %d", len(locs))
	}
	for _, s := range locs {
		if s.Category != "Locs & Dreads" {
			t.Fatalf("unexpected category %q", s.Category)
		}
	}
	if got := FilterByTag("perm"); len(got) != 0 {
		t.Fatalf("expected no services, got %d", len(got))
	}
}

func TestLoadSchedule(t *testing.T) {
	s, err := LoadSchedule("")
	if err != nil {
		t.Fatalf("LoadSchedule: %v", err)
	}
	if s.Location.String() != StudioTimezone || s.Capacity != 4 {
		t.Fatalf("unexpected schedule %+v", s)
	}
	if s.IsOpen(time.Monday) || s.IsOpen(time.Sunday) || !s.IsOpen(time.Saturday) {
		t.Fatal("expected Tue-Sat opening days")
	}
	if _, err := LoadSchedule("Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
