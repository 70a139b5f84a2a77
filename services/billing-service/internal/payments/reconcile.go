package payments

import (
	"context"
	"fmt"

	"github.com/parrylicious/salonbook/services/billing-service/internal/storage"
)

// Reconcile re-reads the checkout session of a pending booking and settles
// it when Stripe reports a final outcome. It returns the resulting payment
// status; pending sessions are left alone.
func (s *Service) Reconcile(ctx context.Context, b storage.Booking) (string, error) {
	if s.gateway == nil {
		return "", ErrNotConfigured
	}
	if b.SessionID == "" {
		return b.PaymentStatus, nil
	}
	session, err := s.gateway.GetCheckoutSession(ctx, b.SessionID)
	if err != nil {
		return "", fmt.Errorf("reconcile booking %s: %w", b.ID, err)
	}

	var target string
	switch {
	case session.Paid():
		target = StatusPaid
	case session.Expired():
		target = StatusFailed
	default:
		return StatusPending, nil
	}
	if _, err := s.settle(ctx, b.ID, session, target); err != nil {
		return "", fmt.Errorf("reconcile booking %s: %w", b.ID, err)
	}
	s.metrics.ObserveReconciled(target)
	return target, nil
}
