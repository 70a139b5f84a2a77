// Package stripeclient wraps the parts of the Stripe API the deposit flow
// uses behind a small interface.
package stripeclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const expandCharge = "payment_intent.latest_charge"

// Session is a checkout session reduced to the fields bookings care about.
type Session struct {
	ID                string
	URL               string
	Status            string
	PaymentStatus     string
	AmountTotal       int64
	Currency          string
	ClientReferenceID string
	Metadata          map[string]string
	PaymentIntentID   string
	ReceiptURL        string
}

// BookingID prefers the metadata written at checkout over the client reference.
func (s Session) BookingID() string {
	if id := s.Metadata["booking_id"]; id != "" {
		return id
	}
	return s.ClientReferenceID
}

func (s Session) Paid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

func (s Session) Expired() bool {
	return s.Status == string(stripe.CheckoutSessionStatusExpired)
}

// Event is a verified (or re-fetched) Stripe event.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	// Object is the raw data.object of the event.
	Object json.RawMessage
	// Payload is the full event as received or fetched.
	Payload []byte
}

type CheckoutParams struct {
	BookingID     string
	CustomerEmail string
	ProductName   string
	AmountCents   int64
	Currency      string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Gateway is implemented by *Client.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (Session, error)
	GetCheckoutSession(ctx context.Context, id string) (Session, error)
	GetEvent(ctx context.Context, id string) (Event, error)
}

type Client struct {
	api *client.API
}

func New(secretKey string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (Session, error) {
	currency := p.Currency
	if currency == "" {
		currency = string(stripe.CurrencyEUR)
	}
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ClientReferenceID:  stripe.String(p.BookingID),
		SuccessURL:         stripe.String(p.SuccessURL),
		CancelURL:          stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(p.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(p.ProductName),
				},
			},
		}},
		Metadata: p.Metadata,
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return FromStripe(s), nil
}

// GetCheckoutSession retrieves a session with its payment intent and latest
// charge expanded, so the receipt URL is available.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand(expandCharge)
	s, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe get checkout session %s: %w", id, err)
	}
	return FromStripe(s), nil
}

func (c *Client) GetEvent(ctx context.Context, id string) (Event, error) {
	evt, err := c.api.Events.Get(id, &stripe.EventParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return Event{}, fmt.Errorf("stripe get event %s: %w", id, err)
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Event{}, err
	}
	return fromStripeEvent(*evt, payload), nil
}

// VerifyEvent checks the Stripe-Signature header over the raw body.
func VerifyEvent(payload []byte, signature, secret string, tolerance time.Duration) (Event, error) {
	if secret == "" {
		return Event{}, errors.New("webhook secret not configured")
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, err
	}
	return fromStripeEvent(evt, payload), nil
}

// SessionFromJSON decodes the data.object of a checkout.session.* event.
func SessionFromJSON(raw []byte) (Session, error) {
	var s stripe.CheckoutSession
	if len(raw) == 0 {
		return Session{}, errors.New("empty checkout session")
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode checkout session: %w", err)
	}
	return FromStripe(&s), nil
}

func FromStripe(s *stripe.CheckoutSession) Session {
	if s == nil {
		return Session{}
	}
	out := Session{
		ID:                s.ID,
		URL:               s.URL,
		Status:            string(s.Status),
		PaymentStatus:     string(s.PaymentStatus),
		AmountTotal:       s.AmountTotal,
		Currency:          string(s.Currency),
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if pi := s.PaymentIntent; pi != nil {
		out.PaymentIntentID = pi.ID
		if pi.LatestCharge != nil {
			out.ReceiptURL = pi.LatestCharge.ReceiptURL
		}
	}
	return out
}

func fromStripeEvent(evt stripe.Event, payload []byte) Event {
	out := Event{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Created: time.Unix(evt.Created, 0).UTC(),
		Payload: payload,
	}
	if evt.Data != nil {
		out.Object = evt.Data.Raw
	}
	return out
}
