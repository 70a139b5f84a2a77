package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("salonbook.kafka")

// headers adapts Kafka message headers to the otel propagator.
type headers []kafka.Header

func (h *headers) Get(key string) string {
	return HeaderValue(*h, key)
}

func (h *headers) Keys() []string {
	keys := make([]string, len(*h))
	for i, hdr := range *h {
		keys[i] = hdr.Key
	}
	return keys
}

func (h *headers) Set(key string, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headers)(nil)

// InjectTraceHeaders adds the W3C trace context of ctx to hs.
func InjectTraceHeaders(ctx context.Context, hs []kafka.Header) []kafka.Header {
	carrier := headers(hs)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	return carrier
}

// ExtractTraceContext continues the producer's trace carried in msg.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	carrier := headers(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}

// StartConsumeSpan opens the consumer span for msg as a child of the trace
// the outbox publisher attached to it.
func StartConsumeSpan(ctx context.Context, msg kafka.Message) (context.Context, trace.Span) {
	meta := ExtractEventMeta(msg)
	return tracer.Start(ExtractTraceContext(ctx, msg), msg.Topic+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.message.id", meta.EventID),
			attribute.Int("messaging.kafka.destination.partition", msg.Partition),
			attribute.Int64("messaging.kafka.message.offset", msg.Offset),
		),
	)
}
