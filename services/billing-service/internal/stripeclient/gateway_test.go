package stripeclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
)

const sessionJSON = `{
	"id": "cs_test_1",
	"object": "checkout.session",
	"status": "complete",
	"payment_status": "paid",
	"amount_total": 2500,
	"currency": "eur",
	"client_reference_id": "bk-ref",
	"metadata": {"booking_id": "bk-1"},
	"payment_intent": {"id": "pi_1", "object": "payment_intent", "latest_charge": {"id": "ch_1", "object": "charge", "receipt_url": "https://pay.stripe.com/receipts/1"}}
}`

func TestSessionFromJSON(t *testing.T) {
	s, err := SessionFromJSON([]byte(sessionJSON))
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", s.ID)
	require.True(t, s.Paid())
	require.False(t, s.Expired())
	require.Equal(t, "bk-1", s.BookingID())
	require.Equal(t, "pi_1", s.PaymentIntentID)
	require.Equal(t, "https://pay.stripe.com/receipts/1", s.ReceiptURL)
	require.Equal(t, int64(2500), s.AmountTotal)
}

func TestSessionUnexpandedIntent(t *testing.T) {
	s, err := SessionFromJSON([]byte(`{"id":"cs_2","status":"expired","payment_status":"unpaid","client_reference_id":"bk-2","payment_intent":"pi_2"}`))
	require.NoError(t, err)
	require.Equal(t, "bk-2", s.BookingID())
	require.Equal(t, "pi_2", s.PaymentIntentID)
	require.Empty(t, s.ReceiptURL)
	require.True(t, s.Expired())
	require.False(t, s.Paid())

	if _, err := SessionFromJSON(nil); err == nil {
		t.Fatal("expected error for empty object")
	}
}

func TestVerifyEvent(t *testing.T) {
	const secret = "whsec_test"
	body := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","created":1773050400,"data":{"object":` + sessionJSON + `}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	evt, err := VerifyEvent(signed.Payload, signed.Header, secret, 300*time.Second)
	require.NoError(t, err)
	require.Equal(t, "evt_1", evt.ID)
	require.Equal(t, "checkout.session.completed", evt.Type)

	s, err := SessionFromJSON(evt.Object)
	require.NoError(t, err)
	require.Equal(t, "bk-1", s.BookingID())

	if _, err := VerifyEvent(signed.Payload, signed.Header, "whsec_other", 300*time.Second); err == nil {
		t.Fatal("expected signature mismatch")
	}
	if _, err := VerifyEvent(signed.Payload, signed.Header, "", 300*time.Second); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestVerifyEventTolerance(t *testing.T) {
	const secret = "whsec_test"
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(`{"id":"evt_old","object":"event","type":"checkout.session.completed","data":{"object":{}}}`),
		Secret:    secret,
		Timestamp: time.Now().Add(-10 * time.Minute),
	})
	if _, err := VerifyEvent(signed.Payload, signed.Header, secret, 300*time.Second); err == nil {
		t.Fatal("expected stale signature to be rejected")
	}
}
