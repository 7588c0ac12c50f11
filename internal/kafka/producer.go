package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/tracing"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// HeaderEventID identifies one publish call; every retry of it carries the same id.
const HeaderEventID = "x-event-id"

var ErrProducerClosed = errors.New("producer closed")

// Outcome is the broker's verdict on one published record.
type Outcome struct {
	Topic     string
	Key       string
	Partition int
	Offset    int64
	Timestamp time.Time
	Err       error
}

// SendError is returned by PublishSync when the record was not acknowledged.
type SendError struct {
	Topic string
	Key   string
	Err   error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s (key=%s): %v", e.Topic, e.Key, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// MessageWriter is the part of *kafka.Writer the producer relies on. In async
// mode WriteMessages only enqueues; results arrive through Completion.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	BatchBytes   int64
	BatchTimeout time.Duration
}

type Producer struct {
	w     MessageWriter
	topic string
	log   *zap.Logger

	// OnComplete observes every outcome. The default only logs, so a failed
	// async publish is visible but not acted upon.
	OnComplete func(Outcome)

	mu      sync.Mutex
	pending map[string]chan Outcome
	closed  bool
}

// NewProducer builds an async kafka-go writer: acks from all in-sync replicas,
// bounded retries, gzip, small batches keyed by hash so one order id always
// maps to one partition.
func NewProducer(cfg ProducerConfig, log *zap.Logger) *Producer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BatchBytes <= 0 {
		cfg.BatchBytes = 16384
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  cfg.MaxAttempts,
		Compression:  kafka.Gzip,
		BatchBytes:   cfg.BatchBytes,
		BatchTimeout: cfg.BatchTimeout,
		Async:        true,
	}
	p := newProducer(w, cfg.Topic, log)
	w.Completion = p.complete
	return p
}

func newProducer(w MessageWriter, topic string, log *zap.Logger) *Producer {
	p := &Producer{
		w:       w,
		topic:   topic,
		log:     log.With(zap.String("topic", topic)),
		pending: map[string]chan Outcome{},
	}
	p.OnComplete = p.logOutcome
	return p
}

// Publish encodes event as JSON and hands it to the writer without waiting.
// The returned channel receives exactly one Outcome; callers may ignore it.
func (p *Producer) Publish(ctx context.Context, key string, event any, headers ...kafka.Header) <-chan Outcome {
	value, err := Marshal(event)
	if err != nil {
		return p.resolved(Outcome{Topic: p.topic, Key: key, Partition: -1, Err: err})
	}
	return p.PublishMessage(ctx, kafka.Message{Key: []byte(key), Value: value, Headers: headers})
}

// PublishSync blocks until the broker acknowledges the record or ctx ends.
func (p *Producer) PublishSync(ctx context.Context, key string, event any, headers ...kafka.Header) (Outcome, error) {
	ch := p.Publish(ctx, key, event, headers...)
	select {
	case out := <-ch:
		if out.Err != nil {
			return out, &SendError{Topic: p.topic, Key: key, Err: out.Err}
		}
		return out, nil
	case <-ctx.Done():
		return Outcome{Topic: p.topic, Key: key, Partition: -1, Err: ctx.Err()},
			&SendError{Topic: p.topic, Key: key, Err: ctx.Err()}
	}
}

// PublishMessage sends a pre-encoded record, used when forwarding records as-is.
func (p *Producer) PublishMessage(ctx context.Context, m kafka.Message) <-chan Outcome {
	ctx, span := otel.Tracer("kafka-producer").Start(ctx, "publish "+p.topic)
	defer span.End()

	id := uuid.NewString()
	m.Topic = ""
	m.Time = time.Now()
	m.Headers = tracing.InjectKafkaHeaders(ctx, append(withoutHeader(m.Headers, HeaderEventID),
		kafka.Header{Key: HeaderEventID, Value: []byte(id)}))
	span.SetAttributes(
		attribute.String("messaging.destination.name", p.topic),
		attribute.String("messaging.kafka.message.key", string(m.Key)),
	)

	ch := make(chan Outcome, 1)
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return p.resolved(Outcome{Topic: p.topic, Key: string(m.Key), Partition: -1, Err: ErrProducerClosed})
	}
	p.pending[id] = ch
	p.mu.Unlock()

	// async writer: an error here means the record never got queued
	if err := p.w.WriteMessages(ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.resolve(id, Outcome{Topic: p.topic, Key: string(m.Key), Partition: -1, Err: err})
	}
	return ch
}

// complete is the writer's Completion callback. Messages carry the partition,
// offset and time assigned by the broker.
func (p *Producer) complete(msgs []kafka.Message, err error) {
	for _, m := range msgs {
		out := Outcome{
			Topic:     p.topic,
			Key:       string(m.Key),
			Partition: m.Partition,
			Offset:    m.Offset,
			Timestamp: m.Time,
			Err:       err,
		}
		if err != nil {
			out.Partition, out.Offset = -1, -1
		}
		p.resolve(headerValue(m.Headers, HeaderEventID), out)
	}
}

func (p *Producer) resolve(id string, out Outcome) {
	p.mu.Lock()
	ch, ok := p.pending[id]
	delete(p.pending, id)
	p.mu.Unlock()
	if !ok {
		return
	}
	if p.OnComplete != nil {
		p.OnComplete(out)
	}
	ch <- out
}

func (p *Producer) resolved(out Outcome) <-chan Outcome {
	if p.OnComplete != nil {
		p.OnComplete(out)
	}
	ch := make(chan Outcome, 1)
	ch <- out
	return ch
}

func (p *Producer) logOutcome(out Outcome) {
	if out.Err != nil {
		p.log.Error("publish failed", zap.String("key", out.Key), zap.Error(out.Err))
		return
	}
	p.log.Info("event published",
		zap.String("key", out.Key),
		zap.Int("partition", out.Partition),
		zap.Int64("offset", out.Offset),
		zap.Time("timestamp", out.Timestamp),
	)
}

// Close flushes queued batches. Outcomes still pending after the flush are
// resolved with ErrProducerClosed.
func (p *Producer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	err := p.w.Close()

	p.mu.Lock()
	left := p.pending
	p.pending = map[string]chan Outcome{}
	p.mu.Unlock()
	for _, ch := range left {
		ch <- Outcome{Topic: p.topic, Partition: -1, Err: ErrProducerClosed}
	}
	return err
}

func withoutHeader(h []kafka.Header, key string) []kafka.Header {
	out := make([]kafka.Header, 0, len(h)+1)
	for _, hh := range h {
		if hh.Key != key {
			out = append(out, hh)
		}
	}
	return out
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
