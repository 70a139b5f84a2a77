package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

const webhookPath = "/api/v1/payments/stripe-webhook"

var sessionEvents = map[string]string{
	"checkout.session.completed":               "paid",
	"checkout.session.async_payment_succeeded": "paid",
	"checkout.session.expired":                 "unpaid",
	"checkout.session.async_payment_failed":    "unpaid",
}

func main() {
	var (
		baseURL   = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		evtType   = flag.String("type", getenv("STRIPE_EVENT_TYPE", "checkout.session.completed"), "stripe event type")
		bookingID = flag.String("booking-id", getenv("BOOKING_ID", ""), "booking_id metadata")
		sessionID = flag.String("session-id", getenv("SESSION_ID", ""), "checkout session id (generated when empty)")
		amount    = flag.Int64("amount", 3000, "amount_total in cents")
		secret    = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
		unsigned  = flag.Bool("unsigned", false, "send a bad signature to exercise the re-fetch fallback")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" && !*unsigned {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*bookingID) == "" {
		fatal("BOOKING_ID is required")
	}

	now := time.Now().UTC()
	eventID := fmt.Sprintf("evt_test_%d", now.UnixNano())
	if *sessionID == "" {
		*sessionID = fmt.Sprintf("cs_test_%d", now.UnixNano())
	}

	payload, err := buildEventJSON(eventID, *evtType, now, *sessionID, *bookingID, *amount)
	if err != nil {
		fatal(err.Error())
	}

	signature := "t=0,v1=invalid"
	if !*unsigned {
		signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
			Payload:   payload,
			Secret:    *secret,
			Timestamp: now,
			Scheme:    "v1",
		})
		signature = signed.Header
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+webhookPath, bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("event=%s status=%d body=%s\n", eventID, resp.StatusCode, strings.TrimSpace(string(body)))
}

func buildEventJSON(eventID, eventType string, t time.Time, sessionID, bookingID string, amount int64) ([]byte, error) {
	paymentStatus, ok := sessionEvents[eventType]
	if !ok {
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	status := "complete"
	if eventType == "checkout.session.expired" {
		status = "expired"
	}
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        eventType,
		"api_version": "2024-06-20",
		"data": map[string]any{
			"object": map[string]any{
				"id":                  sessionID,
				"object":              "checkout.session",
				"mode":                "payment",
				"status":              status,
				"payment_status":      paymentStatus,
				"amount_total":        amount,
				"currency":            "eur",
				"client_reference_id": bookingID,
				"metadata": map[string]any{
					"booking_id": bookingID,
				},
			},
		},
	})
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
