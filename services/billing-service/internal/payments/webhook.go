package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/parrylicious/salonbook/services/billing-service/internal/storage"
	"github.com/parrylicious/salonbook/services/billing-service/internal/stripeclient"
)

var (
	successEvents = map[string]bool{
		"checkout.session.completed":               true,
		"checkout.session.async_payment_succeeded": true,
	}
	failureEvents = map[string]bool{
		"checkout.session.expired":              true,
		"checkout.session.async_payment_failed": true,
	}
)

// WebhookResult is the JSON body returned to Stripe.
type WebhookResult struct {
	Received  bool   `json:"received"`
	Status    string `json:"status,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Event     string `json:"event,omitempty"`
	Reason    string `json:"reason,omitempty"`
	BookingID string `json:"bookingId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// WebhookConfigured reports whether deliveries can be verified at all.
func (s *Service) WebhookConfigured() bool {
	return s.cfg.WebhookSecret != "" || s.gateway != nil
}

// HandleWebhook verifies a Stripe delivery and applies checkout outcomes to
// the booking it references. When the signature cannot be verified the event
// is fetched from Stripe by id instead, which needs the secret key.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	if !s.WebhookConfigured() {
		return WebhookResult{}, ErrNotConfigured
	}
	evt, err := s.verifyEvent(ctx, payload, signature)
	if err != nil {
		s.metrics.ObserveWebhook("unknown", "unverified")
		return WebhookResult{}, err
	}

	res := WebhookResult{Received: true, Event: evt.Type}
	success, failure := successEvents[evt.Type], failureEvents[evt.Type]
	if !success && !failure {
		res.Ignored = true
		s.metrics.ObserveWebhook(evt.Type, "ignored")
		return res, nil
	}

	session, err := stripeclient.SessionFromJSON(evt.Object)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	res.SessionID = session.ID
	bookingID := session.BookingID()
	if bookingID == "" {
		res.Ignored = true
		res.Reason = "booking_id missing"
		s.metrics.ObserveWebhook(evt.Type, "ignored")
		return res, nil
	}
	res.BookingID = bookingID

	if session.ID != "" && s.gateway != nil {
		expanded, err := s.gateway.GetCheckoutSession(ctx, session.ID)
		if err != nil {
			s.logger.Warn("stripe webhook: session refetch failed; using event payload", "session_id", session.ID, "err", err)
		} else if expanded.ID != "" {
			session = expanded
		}
	}

	target := StatusPaid
	if failure {
		target = StatusFailed
	}

	err = s.store.WithTx(ctx, func(tx storage.Tx) error {
		if err := tx.RecordProviderEvent(ctx, storage.ProviderEvent{
			Provider:        provider,
			ProviderEventID: evt.ID,
			EventType:       evt.Type,
			Payload:         evt.Payload,
		}); err != nil {
			return err
		}
		current, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !acceptsOutcome(current, session.ID, target) {
			res.Ignored = true
			res.Reason = "payment transition not allowed"
			if current.PaymentStatus == StatusPaid {
				res.Reason = "deposit already paid"
			}
			return nil
		}
		var changed bool
		return s.applyOutcome(ctx, tx, current, session, target, &changed)
	})
	switch {
	case errors.Is(err, storage.ErrDuplicateProviderEvent):
		s.logger.Info("stripe webhook duplicate ignored", "provider_event_id", evt.ID, "event_type", evt.Type)
		s.metrics.ObserveWebhook(evt.Type, "duplicate")
		return WebhookResult{Received: true, Status: "duplicate", Event: evt.Type}, nil
	case errors.Is(err, storage.ErrNotFound):
		// The provider event is not recorded so a later redelivery can still apply.
		s.metrics.ObserveWebhook(evt.Type, "ignored")
		res.Ignored = true
		res.Reason = "booking not found"
		return res, nil
	case err != nil:
		s.metrics.ObserveWebhook(evt.Type, "error")
		return WebhookResult{}, err
	}

	if res.Ignored {
		s.metrics.ObserveWebhook(evt.Type, "ignored")
		s.logger.Info("stripe webhook ignored", "provider_event_id", evt.ID, "booking_id", bookingID, "reason", res.Reason)
		return res, nil
	}
	s.metrics.ObserveWebhook(evt.Type, "applied")
	s.logger.Info("stripe webhook applied",
		"provider_event_id", evt.ID,
		"event_type", evt.Type,
		"booking_id", bookingID,
		"payment_status", target,
	)
	return res, nil
}

func (s *Service) verifyEvent(ctx context.Context, payload []byte, signature string) (stripeclient.Event, error) {
	if s.cfg.WebhookSecret != "" && strings.TrimSpace(signature) != "" {
		evt, err := stripeclient.VerifyEvent(payload, signature, s.cfg.WebhookSecret, s.cfg.WebhookTolerance)
		if err == nil {
			return evt, nil
		}
		s.logger.Warn("stripe webhook signature rejected; trying event fetch", "err", err)
	}

	var body struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(payload, &body)
	if strings.TrimSpace(body.ID) == "" {
		return stripeclient.Event{}, fmt.Errorf("%w: invalid signature and no event id", ErrUnverifiedEvent)
	}
	if s.gateway == nil {
		return stripeclient.Event{}, fmt.Errorf("%w: secret key required to fetch the event", ErrUnverifiedEvent)
	}
	evt, err := s.gateway.GetEvent(ctx, body.ID)
	if err != nil {
		return stripeclient.Event{}, fmt.Errorf("%w: %v", ErrUnverifiedEvent, err)
	}
	return evt, nil
}
