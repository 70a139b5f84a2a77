package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics covers the booking write path.
type BookingMetrics struct {
	created       *prometheus.CounterVec
	slotConflicts *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Bookings created, by write path (rpc or fallback)",
		}, []string{"path"}),
		slotConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "bookings",
			Name:      "slot_conflicts_total",
			Help:      "Booking attempts rejected because the slot was taken or locked",
		}, []string{"reason"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "bookings",
			Name:      "status_changes_total",
			Help:      "Booking status transitions",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.slotConflicts, m.statusChanges)
	return m
}

func (m *BookingMetrics) ObserveCreated(path string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(path).Inc()
}

func (m *BookingMetrics) ObserveSlotConflict(reason string) {
	if m == nil {
		return
	}
	m.slotConflicts.WithLabelValues(reason).Inc()
}

func (m *BookingMetrics) ObserveStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// PaymentMetrics covers checkout sessions, webhooks and reconciliation.
type PaymentMetrics struct {
	checkouts  *prometheus.CounterVec
	webhooks   *prometheus.CounterVec
	reconciled *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "payments",
			Name:      "checkout_sessions_total",
			Help:      "Stripe checkout sessions requested",
		}, []string{"result"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "payments",
			Name:      "webhooks_total",
			Help:      "Stripe webhook deliveries",
		}, []string{"event_type", "result"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "payments",
			Name:      "reconciled_total",
			Help:      "Pending deposits re-checked by the reconciler",
		}, []string{"payment_status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checkouts, m.webhooks, m.reconciled)
	return m
}

func (m *PaymentMetrics) ObserveCheckout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

func (m *PaymentMetrics) ObserveWebhook(eventType, result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(eventType, result).Inc()
}

func (m *PaymentMetrics) ObserveReconciled(paymentStatus string) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(paymentStatus).Inc()
}

// NotificationMetrics counts dispatched messages per channel.
type NotificationMetrics struct {
	sent *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Notifications dispatched, by channel, provider and outcome",
		}, []string{"channel", "provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sent)
	return m
}

func (m *NotificationMetrics) ObserveDispatch(channel, provider, status string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(channel, provider, status).Inc()
}

// OutboxMetrics counts events relayed to Kafka.
type OutboxMetrics struct {
	published *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer, service string) *OutboxMetrics {
	m := &OutboxMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "salon",
			Subsystem:   "outbox",
			Name:        "published_total",
			Help:        "Outbox events written to Kafka",
			ConstLabels: prometheus.Labels{"service": service},
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.published)
	return m
}

func (m *OutboxMetrics) ObservePublished(eventType string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(eventType).Inc()
}
