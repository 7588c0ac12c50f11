package email

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Transport delivers a composed message.
type Transport interface {
	Deliver(ctx context.Context, m Message) error
}

// LogTransport stands in for an SMTP relay: it walks through the stages of a
// send with fixed delays and logs the message instead of transmitting it.
type LogTransport struct {
	Log      *zap.Logger
	Render   time.Duration
	Connect  time.Duration
	Transmit time.Duration
}

func NewLogTransport(log *zap.Logger, scale func(time.Duration) time.Duration) *LogTransport {
	return &LogTransport{
		Log:      log,
		Render:   scale(300 * time.Millisecond),
		Connect:  scale(200 * time.Millisecond),
		Transmit: scale(300 * time.Millisecond),
	}
}

func (t *LogTransport) Deliver(ctx context.Context, m Message) error {
	log := t.Log.With(zap.String("to", m.To), zap.String("subject", m.Subject))
	for _, stage := range []struct {
		msg string
		d   time.Duration
	}{
		{"rendering template", t.Render},
		{"connecting to mail server", t.Connect},
		{"transmitting", t.Transmit},
	} {
		log.Debug(stage.msg)
		if err := wait(ctx, stage.d); err != nil {
			log.Warn("email send interrupted", zap.String("stage", stage.msg))
			return err
		}
	}
	log.Info("email sent",
		zap.String("from", m.From),
		zap.Bool("html", m.HTML),
		zap.String("priority", m.Priority),
		zap.String("body", m.Body),
	)
	return nil
}

type Mailer struct {
	Transport Transport
	// Sender is used when a message has no From.
	Sender string
	Log    *zap.Logger
}

func (ml *Mailer) Send(ctx context.Context, m Message) error {
	if m.From == "" {
		m.From = ml.Sender
	}
	ctx, span := otel.Tracer("email").Start(ctx, "send email")
	defer span.End()
	span.SetAttributes(
		attribute.String("email.to", m.To),
		attribute.String("email.priority", m.Priority),
		attribute.String("order.id", m.OrderID),
	)

	if err := ml.Transport.Deliver(ctx, m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deliver to %s: %w", m.To, err)
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
