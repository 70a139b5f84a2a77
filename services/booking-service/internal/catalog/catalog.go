// Package catalog holds the studio's static service menu, stylist roster
// and opening schedule.
package catalog

import "strings"

type Service struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	PriceFrom   float64  `json:"priceFrom"`
	DurationMin int      `json:"durationMin"`
	Deposit     float64  `json:"deposit"`
	Description string   `json:"description"`
}

type Stylist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Focus string `json:"focus"`
	Role  string `json:"role"`
}

// AutoStylist means "any available stylist"; the capacity rule applies.
const AutoStylist = "auto"

var services = []Service{
	{
		ID:          "dreadlocs_retwist",
		Name:        "Dreadlocs – Interlocking / Retwist + Styling",
		Category:    "Locs & Dreads",
		Tags:        []string{"locs"},
		PriceFrom:   55,
		DurationMin: 120,
		Deposit:     30,
		Description: "Retwist/Interlocking inkl. Styling – Zusatzkosten bei sehr dickem oder ungekämmtem Haar möglich.",
	},
	{
		ID:          "instant_locs",
		Name:        "Häckeln – Instant Locs",
		Category:    "Locs & Dreads",
		Tags:        []string{"locs"},
		PriceFrom:   100,
		DurationMin: 180,
		Deposit:     40,
		Description: "Instant Locs per Häkeltechnik.",
	},
	{
		ID:          "starter_locs",
		Name:        "Starter-Locs (Unisex) + Barrel / Twist / Open",
		Category:    "Locs & Dreads",
		Tags:        []string{"locs", "twists"},
		PriceFrom:   65,
		DurationMin: 150,
		Deposit:     35,
		Description: "Perfekter Start für permanente Locs – Zusatzkosten bei aufwändigem Haarzustand möglich.",
	},
	{
		ID:          "plain_twist_braids",
		Name:        "Plain Twist & Braids",
		Category:    "Twists",
		Tags:        []string{"twists", "braids"},
		PriceFrom:   60,
		DurationMin: 120,
		Deposit:     30,
		Description: "Klassische Twists/Braids – clean & elegant.",
	},
	{
		ID:          "comb_twist",
		Name:        "Comb Twist",
		Category:    "Twists",
		Tags:        []string{"twists"},
		PriceFrom:   45,
		DurationMin: 90,
		Deposit:     25,
		Description: "Schneller Twist-Look – ideal für Definition.",
	},
	{
		ID:          "cornrows",
		Name:        "Cornrows / Twistn´Cornrows",
		Category:    "Braids",
		Tags:        []string{"braids"},
		PriceFrom:   60,
		DurationMin: 120,
		Deposit:     30,
		Description: "Cornrows & Kombi-Styles – je nach Anzahl der Reihen.",
	},
	{
		ID:          "ponytail_europe",
		Name:        "Europe Hair Braided Ponytail",
		Category:    "Ponytails",
		Tags:        []string{"ponytails", "braids"},
		PriceFrom:   65,
		DurationMin: 120,
		Deposit:     30,
		Description: "Braided Ponytail mit Europe Hair.",
	},
	{
		ID:          "ponytail_afrohair",
		Name:        "Afrohair Braided Ponytail",
		Category:    "Ponytails",
		Tags:        []string{"ponytails", "braids"},
		PriceFrom:   65,
		DurationMin: 120,
		Deposit:     30,
		Description: "Braided Ponytail mit Afrohair.",
	},
	{
		ID:          "half_down_half_up",
		Name:        "Half down Half up",
		Category:    "Ponytails",
		Tags:        []string{"ponytails"},
		PriceFrom:   70,
		DurationMin: 150,
		Deposit:     35,
		Description: "Half up / Half down – elegant, editorial.",
	},
	{
		ID:          "braids_feed_in",
		Name:        "Braids (Boho) / Feed‑In Cornrows",
		Category:    "Braids",
		Tags:        []string{"braids"},
		PriceFrom:   90,
		DurationMin: 180,
		Deposit:     40,
		Description: "Boho Braids oder Feed‑In Cornrows.",
	},
	{
		ID:          "passion_twist",
		Name:        "Passion Twist",
		Category:    "Twists",
		Tags:        []string{"twists"},
		PriceFrom:   110,
		DurationMin: 180,
		Deposit:     40,
		Description: "Passion Twists – weicher, voluminöser Look.",
	},
}

var stylists = []Stylist{
	{ID: AutoStylist, Name: "Egal (automatisch)", Focus: "System entscheidet", Role: "auto"},
	{ID: "dreads", Name: "Stylist A (Dreads/Locs)", Focus: "Dreads Fokus", Role: "staff"},
	{ID: "stylist_b", Name: "Stylist B", Focus: "Allround", Role: "staff"},
	{ID: "stylist_c", Name: "Stylist C", Focus: "Allround", Role: "staff"},
	{ID: "stylist_d", Name: "Stylist D", Focus: "Allround", Role: "staff"},
}

// Services returns a copy of the menu in display order.
func Services() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

func Stylists() []Stylist {
	out := make([]Stylist, len(stylists))
	copy(out, stylists)
	return out
}

func ServiceByID(id string) (Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// StylistByID resolves an empty id to the auto stylist.
func StylistByID(id string) (Stylist, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = AutoStylist
	}
	for _, s := range stylists {
		if s.ID == id {
			return s, true
		}
	}
	return Stylist{}, false
}

// FilterByTag returns the services carrying tag; "all" or "" returns everything.
func FilterByTag(tag string) []Service {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || tag == "all" {
		return Services()
	}
	var out []Service
	for _, s := range services {
		for _, t := range s.Tags {
			if t == tag {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
