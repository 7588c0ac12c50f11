package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/email"
	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// ModeRequest sends a composed email.Request to the sidecar.
	ModeRequest = "request"
	// ModeOrder posts the order and lets the sidecar compose the email.
	ModeOrder = "order"
)

type EmailSender interface {
	Send(ctx context.Context, r email.Request) (email.Response, error)
	SendOrder(ctx context.Context, o orders.Order) (email.Response, error)
}

// Report says what was done for one order. A failed email never turns SMS
// or push into failures.
type Report struct {
	OrderID  string
	SMS      bool
	Push     bool
	Email    email.Response
	EmailErr error
}

func (r Report) EmailSent() bool { return r.EmailErr == nil }

type Dispatcher struct {
	Sidecar EmailSender
	Mode    string
	Log     *zap.Logger
}

// Notify fires SMS and push, then delegates email to the sidecar. It never
// fails: sidecar errors are logged and kept in the report, with no retry.
func (d *Dispatcher) Notify(ctx context.Context, o orders.Order) Report {
	ctx, span := otel.Tracer("notification").Start(ctx, "notify order")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", o.ID))

	rep := Report{OrderID: o.ID}
	rep.SMS = d.sendSMS(o)
	rep.Push = d.sendPush(o)

	resp, err := d.delegateEmail(ctx, o)
	rep.Email, rep.EmailErr = resp, err
	if err != nil {
		span.RecordError(err)
		d.Log.Error("email delegation failed",
			zap.String("order_id", o.ID),
			zap.String("mode", d.Mode),
			zap.Error(err),
		)
	} else {
		d.Log.Info("email delegated",
			zap.String("order_id", o.ID),
			zap.String("recipient", resp.Recipient),
			zap.String("message", resp.Message),
		)
	}
	span.SetAttributes(attribute.Bool("notify.email_sent", err == nil))
	return rep
}

func (d *Dispatcher) sendSMS(o orders.Order) bool {
	d.Log.Info("sms sent",
		zap.String("order_id", o.ID),
		zap.String("to", "+55 11 9999-"+strings.ReplaceAll(o.CustomerID, "CLI", "")),
		zap.String("text", fmt.Sprintf("Order %s received! Total: %s.", o.ID, o.TotalAmount.StringFixed(2))),
	)
	return true
}

func (d *Dispatcher) sendPush(o orders.Order) bool {
	d.Log.Info("push sent",
		zap.String("order_id", o.ID),
		zap.String("device", "device-"+o.CustomerID),
		zap.String("title", "Order confirmed!"),
		zap.String("text", fmt.Sprintf("Your order %s is being processed", o.ID)),
	)
	return true
}

func (d *Dispatcher) delegateEmail(ctx context.Context, o orders.Order) (email.Response, error) {
	if d.Mode == ModeOrder {
		return d.Sidecar.SendOrder(ctx, o)
	}
	m, err := email.Compose(o, "")
	if err != nil {
		return email.Response{}, err
	}
	return d.Sidecar.Send(ctx, email.Request{
		Recipient: m.To,
		Subject:   m.Subject,
		Body:      m.Body,
		HTML:      m.HTML,
		Priority:  email.PriorityNormal,
		Context:   "order-notification",
	})
}

type Service struct {
	Dispatcher *Dispatcher
	Log        *zap.Logger
	// Delay simulates processing before notifications go out.
	Delay time.Duration
}

// HandleOrderCreated is installed as the notification consumer's handler.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	o, err := kafkax.Decode[orders.Order](m)
	if err != nil {
		return err
	}
	log := s.Log.With(zap.String("order_id", o.ID), zap.String("customer_id", o.CustomerID))
	log.Info("processing notification", zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))

	if err := sleep(ctx, s.Delay); err != nil {
		log.Warn("processing interrupted", zap.Error(err))
	}

	rep := s.Dispatcher.Notify(context.WithoutCancel(ctx), o)
	log.Info("notifications done",
		zap.Bool("sms", rep.SMS),
		zap.Bool("push", rep.Push),
		zap.Bool("email", rep.EmailSent()),
	)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
