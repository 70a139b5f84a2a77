package payments

import "github.com/parrylicious/salonbook/services/billing-service/internal/storage"

// canMovePayment is the deposit state machine. A capture Stripe confirms
// is accepted from any state that has not been paid yet.
func canMovePayment(from, to string) bool {
	switch from {
	case StatusUnpaid:
		return to == StatusPending || to == StatusPaid
	case StatusPending:
		return to == StatusPending || to == StatusPaid || to == StatusFailed || to == StatusUnpaid
	case StatusFailed:
		return to == StatusPending || to == StatusPaid
	case StatusPaid:
		return to == StatusRefunded
	default:
		return false
	}
}

// acceptsOutcome reports whether target, read from session, may be written
// onto b. Only the booking's current session may restate or downgrade it;
// a stale session can still report a capture.
func acceptsOutcome(b storage.Booking, sessionID, target string) bool {
	current := b.SessionID == "" || sessionID == "" || sessionID == b.SessionID
	if b.PaymentStatus == target {
		return current
	}
	if !canMovePayment(b.PaymentStatus, target) {
		return false
	}
	return current || target == StatusPaid
}
