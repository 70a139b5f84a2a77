package kafkax

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID       = "event_id"
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
	HeaderAggregateID   = "aggregate_id"
	HeaderOccurredAt    = "occurred_at"
)

// EventMeta travels in the headers of every booking and payment event so
// consumers can dedupe and route without decoding the payload.
type EventMeta struct {
	EventID       string
	EventType     string
	AggregateType string
	AggregateID   string
	OccurredAt    time.Time
}

// Headers renders the non-empty fields of m.
func (m EventMeta) Headers() []kafka.Header {
	hs := make([]kafka.Header, 0, 5)
	add := func(key, value string) {
		if value != "" {
			hs = append(hs, kafka.Header{Key: key, Value: []byte(value)})
		}
	}
	add(HeaderEventID, m.EventID)
	add(HeaderEventType, m.EventType)
	add(HeaderAggregateType, m.AggregateType)
	add(HeaderAggregateID, m.AggregateID)
	if !m.OccurredAt.IsZero() {
		add(HeaderOccurredAt, m.OccurredAt.UTC().Format(time.RFC3339Nano))
	}
	return hs
}

// ExtractEventMeta reads m from msg. Messages from producers that set no
// headers get a positional event id, the topic as type and the key as
// aggregate id. Event ids that are not UUIDs are replaced by a UUIDv5 of
// their text so inbox dedupe can store them.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	m := EventMeta{
		EventID:       HeaderValue(msg.Headers, HeaderEventID),
		EventType:     HeaderValue(msg.Headers, HeaderEventType),
		AggregateType: HeaderValue(msg.Headers, HeaderAggregateType),
		AggregateID:   HeaderValue(msg.Headers, HeaderAggregateID),
	}
	if m.EventID == "" {
		m.EventID = fmt.Sprintf("kafka://%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}
	if _, err := uuid.Parse(m.EventID); err != nil {
		m.EventID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(m.EventID)).String()
	}
	if m.EventType == "" {
		m.EventType = msg.Topic
	}
	if m.AggregateID == "" {
		m.AggregateID = string(msg.Key)
	}
	if ts, err := time.Parse(time.RFC3339Nano, HeaderValue(msg.Headers, HeaderOccurredAt)); err == nil {
		m.OccurredAt = ts
	} else {
		m.OccurredAt = msg.Time
	}
	return m
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// SplitBrokers parses a comma separated broker list.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
