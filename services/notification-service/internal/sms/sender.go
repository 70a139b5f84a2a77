// Package sms delivers booking text messages through Twilio, a generic
// webhook, or nowhere at all.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Sender delivers a single SMS to an E.164 number.
type Sender interface {
	Send(ctx context.Context, to string, body string) error
	ProviderID() string
}

// ErrInvalidPhone is returned by NormalizePhone for numbers that cannot be
// turned into E.164.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts the formats customers type into the booking form
// ("0176 123 456 78", "0049 176/12345678", "+49 (176) 1234-5678") into
// E.164. Numbers without a country code are German.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '/' || r == '(' || r == ')' || r == '.':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
		}
	}
	n := b.String()
	switch {
	case strings.HasPrefix(n, "+"):
	case strings.HasPrefix(n, "00"):
		n = "+" + n[2:]
	case strings.HasPrefix(n, "0"):
		n = "+49" + n[1:]
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	digits := len(n) - 1
	if digits < 8 || digits > 15 || n[1] == '0' {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, raw)
	}
	return n, nil
}

type WebhookConfig struct {
	URL     string
	Token   string
	Sender  string // alphanumeric sender id shown on the handset
	Timeout time.Duration
}

// WebhookSender posts messages as JSON to an SMS relay.
type WebhookSender struct {
	url    string
	token  string
	sender string
	http   *http.Client
}

type webhookMessage struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	Sender string `json:"sender,omitempty"`
}

func NewWebhookSender(cfg WebhookConfig) *WebhookSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &WebhookSender{
		url:    strings.TrimSpace(cfg.URL),
		token:  strings.TrimSpace(cfg.Token),
		sender: strings.TrimSpace(cfg.Sender),
		http:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *WebhookSender) ProviderID() string {
	return "sms-webhook"
}

func (s *WebhookSender) Send(ctx context.Context, to string, body string) error {
	if s.url == "" {
		return errors.New("sms webhook url not configured")
	}
	raw, err := json.Marshal(webhookMessage{To: to, Body: body, Sender: s.sender})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		if msg := strings.TrimSpace(string(snippet)); msg != "" {
			return fmt.Errorf("sms webhook returned status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("sms webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopSender accepts every message. Local setups use it so bookings still
// produce a notification log entry.
type NoopSender struct{}

func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

func (s *NoopSender) ProviderID() string {
	return "sms-noop"
}

func (s *NoopSender) Send(_ context.Context, _ string, _ string) error {
	return nil
}
