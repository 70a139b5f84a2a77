// Package dispatch sends a booking message over email and SMS in parallel
// and logs every attempt.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/parrylicious/salonbook/libs/metrics"
	"github.com/parrylicious/salonbook/services/notification-service/internal/email"
	"github.com/parrylicious/salonbook/services/notification-service/internal/sms"
	"github.com/parrylicious/salonbook/services/notification-service/internal/storage"
	"github.com/parrylicious/salonbook/services/notification-service/internal/templates"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Log persists dispatch attempts.
type Log interface {
	Insert(ctx context.Context, n storage.Notification) error
}

// ChannelResult is the outcome of one channel.
type ChannelResult struct {
	Sent     bool   `json:"sent"`
	Skipped  bool   `json:"skipped,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Result struct {
	OK    bool          `json:"ok"`
	Email ChannelResult `json:"email"`
	SMS   ChannelResult `json:"sms"`
}

// Request identifies the booking and who to tell.
type Request struct {
	Kind      templates.Kind
	BookingID string
	Data      templates.Data
	Email     string
	ToName    string
	Phone     string
}

type Dispatcher struct {
	email   email.Sender
	sms     sms.Sender
	log     Log
	logger  *slog.Logger
	metrics *metrics.NotificationMetrics
	timeout time.Duration
}

type Option func(*Dispatcher)

func WithMetrics(m *metrics.NotificationMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTimeout bounds each provider call.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

// New builds a dispatcher. A nil sender means the channel is not configured.
func New(emailSender email.Sender, smsSender sms.Sender, log Log, logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		email:   emailSender,
		sms:     smsSender,
		log:     log,
		logger:  logger,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch renders the message for req and sends it on both channels
// concurrently. OK is false when a configured channel failed to send.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	msg := templates.Render(req.Kind, req.Data)

	var (
		wg  sync.WaitGroup
		res Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.Email = d.sendEmail(ctx, req, msg)
	}()
	go func() {
		defer wg.Done()
		res.SMS = d.sendSMS(ctx, req, msg)
	}()
	wg.Wait()

	res.OK = res.Email.Error == "" && res.SMS.Error == ""
	return res
}

func (d *Dispatcher) sendEmail(ctx context.Context, req Request, msg templates.Message) ChannelResult {
	to := strings.TrimSpace(req.Email)
	switch {
	case d.email == nil:
		return d.skip(ctx, req, ChannelEmail, to, "email provider not configured")
	case to == "":
		return d.skip(ctx, req, ChannelEmail, to, "no email address")
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err := d.email.Send(ctx, email.Message{To: to, ToName: req.ToName, Subject: msg.Subject, Body: msg.Body})
	return d.record(ctx, req, ChannelEmail, to, d.email.ProviderID(), msg, err)
}

func (d *Dispatcher) sendSMS(ctx context.Context, req Request, msg templates.Message) ChannelResult {
	to := strings.TrimSpace(req.Phone)
	switch {
	case d.sms == nil:
		return d.skip(ctx, req, ChannelSMS, to, "sms provider not configured")
	case to == "":
		return d.skip(ctx, req, ChannelSMS, to, "no phone number")
	}

	normalized, err := sms.NormalizePhone(to)
	if err != nil {
		return d.record(ctx, req, ChannelSMS, to, d.sms.ProviderID(), msg, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	err = d.sms.Send(ctx, normalized, msg.Body)
	return d.record(ctx, req, ChannelSMS, normalized, d.sms.ProviderID(), msg, err)
}

func (d *Dispatcher) skip(ctx context.Context, req Request, channel, to, reason string) ChannelResult {
	d.metrics.ObserveDispatch(channel, "none", StatusSkipped)
	d.persist(ctx, storage.Notification{
		BookingID: req.BookingID,
		EventType: string(req.Kind),
		Channel:   channel,
		Recipient: to,
		Provider:  "none",
		Status:    StatusSkipped,
		Error:     reason,
	})
	return ChannelResult{Sent: false, Skipped: true, Reason: reason}
}

func (d *Dispatcher) record(ctx context.Context, req Request, channel, to, provider string, msg templates.Message, err error) ChannelResult {
	n := storage.Notification{
		BookingID: req.BookingID,
		EventType: string(req.Kind),
		Channel:   channel,
		Recipient: to,
		Provider:  provider,
		Status:    StatusSent,
		Payload:   map[string]any{"subject": msg.Subject, "body": msg.Body},
	}
	out := ChannelResult{Sent: true, Provider: provider}
	if err != nil {
		d.logger.Error("notification send failed", "channel", channel, "provider", provider, "booking_id", req.BookingID, "err", err)
		n.Status = StatusFailed
		n.Error = err.Error()
		out = ChannelResult{Sent: false, Provider: provider, Error: err.Error()}
	} else {
		d.logger.Info("notification sent", "channel", channel, "provider", provider, "booking_id", req.BookingID, "kind", req.Kind)
	}
	d.metrics.ObserveDispatch(channel, provider, n.Status)
	d.persist(ctx, n)
	return out
}

func (d *Dispatcher) persist(ctx context.Context, n storage.Notification) {
	if d.log == nil {
		return
	}
	// The send already happened; a cancelled request must not drop the log row.
	ctx = context.WithoutCancel(ctx)
	if err := d.log.Insert(ctx, n); err != nil {
		d.logger.Error("failed to persist notification", "err", err, "channel", n.Channel, "booking_id", n.BookingID)
	}
}
