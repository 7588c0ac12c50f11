package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// HeaderDeadLetterReason carries the handler error on dead-lettered records.
const HeaderDeadLetterReason = "x-dead-letter-reason"

// Handler processes one record. Whether its error affects the offset commit
// depends on the consumer's CommitPolicy.
type Handler func(ctx context.Context, m kafka.Message) error

type CommitPolicy int

const (
	// CommitAfterProcess commits once the handler returns, whatever it returned.
	// A failed handler therefore loses the record's effect.
	CommitAfterProcess CommitPolicy = iota
	// CommitBeforeProcess commits as soon as the record is handed to a worker.
	CommitBeforeProcess
	// DeadLetterOnFailure forwards failed and undecodable records to the
	// dead-letter topic, then commits.
	DeadLetterOnFailure
)

func ParseCommitPolicy(s string) (CommitPolicy, error) {
	switch s {
	case "", "after-process":
		return CommitAfterProcess, nil
	case "before-process":
		return CommitBeforeProcess, nil
	case "dead-letter":
		return DeadLetterOnFailure, nil
	}
	return 0, fmt.Errorf("unknown commit policy %q", s)
}

func (p CommitPolicy) String() string {
	switch p {
	case CommitBeforeProcess:
		return "before-process"
	case DeadLetterOnFailure:
		return "dead-letter"
	default:
		return "after-process"
	}
}

// MessageReader is the part of *kafka.Reader the consumer relies on.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterFunc receives records whose handling failed under DeadLetterOnFailure.
type DeadLetterFunc func(ctx context.Context, m kafka.Message, cause error) error

type ConsumerConfig struct {
	Brokers        []string
	Group          string
	Topic          string
	Workers        int
	CommitInterval time.Duration
	Policy         CommitPolicy
	DeadLetter     DeadLetterFunc
}

type Consumer struct {
	r          MessageReader
	group      string
	topic      string
	workers    int
	policy     CommitPolicy
	deadLetter DeadLetterFunc
	log        *zap.Logger
}

// NewConsumer joins cfg.Group on cfg.Topic. Commits are batched by kafka-go
// and flushed every CommitInterval.
func NewConsumer(cfg ConsumerConfig, log *zap.Logger) *Consumer {
	if cfg.CommitInterval <= 0 {
		cfg.CommitInterval = time.Second
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.Group,
		Topic:             cfg.Topic,
		MinBytes:          1,
		MaxBytes:          10e6,
		StartOffset:       kafka.FirstOffset,
		CommitInterval:    cfg.CommitInterval,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 10 * time.Second,
	})
	return newConsumer(r, cfg, log)
}

func newConsumer(r MessageReader, cfg ConsumerConfig, log *zap.Logger) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Consumer{
		r:          r,
		group:      cfg.Group,
		topic:      cfg.Topic,
		workers:    cfg.Workers,
		policy:     cfg.Policy,
		deadLetter: cfg.DeadLetter,
		log:        log.With(zap.String("group", cfg.Group), zap.String("topic", cfg.Topic)),
	}
}

// Start fetches records until ctx ends. Each worker owns a subset of
// partitions, so records of one partition are handled in offset order while
// different partitions run concurrently.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range jobs {
		jobs[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.process(ctx, h, m)
			}
		}(jobs[i])
	}
	stop := func() {
		for _, ch := range jobs {
			close(ch)
		}
		wg.Wait()
	}

	c.log.Info("consumer started", zap.Int("workers", c.workers), zap.Stringer("policy", c.policy))
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			stop()
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.Info("consumer stopped")
				return nil
			}
			return fmt.Errorf("fetch from %s: %w", c.topic, err)
		}
		select {
		case jobs[c.slot(m)] <- m:
		case <-ctx.Done():
			stop()
			c.log.Info("consumer stopped")
			return nil
		}
	}
}

func (c *Consumer) slot(m kafka.Message) int {
	if m.Partition < 0 {
		return 0
	}
	return m.Partition % c.workers
}

func (c *Consumer) process(ctx context.Context, h Handler, m kafka.Message) {
	log := c.log.With(
		zap.ByteString("key", m.Key),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	if c.policy == CommitBeforeProcess {
		c.commit(ctx, m, log)
	}

	err := c.handle(ctx, h, m)
	switch {
	case err == nil:
	case IsDecodeError(err):
		log.Error("malformed record", zap.Error(err))
	default:
		log.Error("handler failed", zap.Error(err))
	}

	if err != nil && c.policy == DeadLetterOnFailure && c.deadLetter != nil {
		if dlErr := c.deadLetter(context.WithoutCancel(ctx), m, err); dlErr != nil {
			log.Error("dead-letter forward failed", zap.Error(dlErr))
		} else {
			log.Warn("record dead-lettered")
		}
	}

	if c.policy != CommitBeforeProcess {
		c.commit(ctx, m, log)
	}
}

// handle runs h with the producer's trace context and turns panics into errors.
func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) (err error) {
	ctx = tracing.ExtractKafkaHeaders(ctx, m.Headers)
	ctx, span := otel.Tracer("kafka-consumer").Start(ctx, "consume "+c.topic)
	span.SetAttributes(
		attribute.String("messaging.consumer.group.name", c.group),
		attribute.Int("messaging.kafka.partition", m.Partition),
		attribute.Int64("messaging.kafka.offset", m.Offset),
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return h(ctx, m)
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message, log *zap.Logger) {
	// shutdown must not drop the commit of a record that was already handled
	if err := c.r.CommitMessages(context.WithoutCancel(ctx), m); err != nil {
		log.Error("commit failed", zap.Error(err))
	}
}

// DeadLetterTo returns a DeadLetterFunc that republishes the original record
// (same key, value and headers) through p with the failure reason attached.
func DeadLetterTo(p *Producer) DeadLetterFunc {
	return func(ctx context.Context, m kafka.Message, cause error) error {
		fwd := kafka.Message{
			Key:   m.Key,
			Value: m.Value,
			Headers: append(withoutHeader(m.Headers, HeaderDeadLetterReason),
				kafka.Header{Key: HeaderDeadLetterReason, Value: []byte(cause.Error())}),
		}
		select {
		case out := <-p.PublishMessage(ctx, fwd):
			return out.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// NewConsumerWithDeadLetter builds the group consumer and, when cfg.Policy is
// DeadLetterOnFailure, the producer that feeds the dead-letter topic. The
// returned producer is nil otherwise; callers close it after the consumer stops.
func NewConsumerWithDeadLetter(cfg ConsumerConfig, dlq ProducerConfig, log *zap.Logger) (*Consumer, *Producer) {
	var p *Producer
	if cfg.Policy == DeadLetterOnFailure {
		p = NewProducer(dlq, log)
		cfg.DeadLetter = DeadLetterTo(p)
	}
	return NewConsumer(cfg, log), p
}
