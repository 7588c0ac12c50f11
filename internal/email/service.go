package email

import (
	"context"
	"fmt"

	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Service is the sidecar's email routine. The HTTP endpoints and the bus
// subscription all end in deliver; nothing is deduplicated between them, so
// one order reaching the sidecar by both paths yields two emails.
type Service struct {
	Mailer *Mailer
	Log    *zap.Logger
}

// SendRequest sends a caller-composed message. r is expected to be validated.
func (s *Service) SendRequest(ctx context.Context, r Request) Response {
	s.Log.Info("email requested",
		zap.String("recipient", r.Recipient),
		zap.String("subject", r.Subject),
		zap.String("context", r.Context),
	)
	return s.deliver(ctx, r.Message(), "Email sent successfully")
}

func (s *Service) SendOrderConfirmation(ctx context.Context, o orders.Order) Response {
	s.Log.Info("order confirmation requested",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
	)
	m, err := Compose(o, s.Mailer.Sender)
	if err != nil {
		resp := NewResponse(false, "Failed to compose email")
		resp.OrderID, resp.ErrorCode, resp.Details = o.ID, ErrCodeSendFailed, err.Error()
		return resp
	}
	return s.deliver(ctx, m, "Order confirmation email sent")
}

// HandleOrderCreated is the sidecar's own bus subscription.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	o, err := kafkax.Decode[orders.Order](m)
	if err != nil {
		return err
	}
	s.Log.Info("order event received",
		zap.String("order_id", o.ID),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)
	if resp := s.SendOrderConfirmation(ctx, o); !resp.Success {
		return fmt.Errorf("confirmation for %s: %s", o.ID, resp.Details)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, m Message, okMsg string) Response {
	if err := s.Mailer.Send(ctx, m); err != nil {
		s.Log.Error("email failed", zap.String("recipient", m.To), zap.String("order_id", m.OrderID), zap.Error(err))
		resp := NewResponse(false, "Failed to send email: "+err.Error())
		resp.Recipient, resp.OrderID = m.To, m.OrderID
		resp.ErrorCode, resp.Details = ErrCodeSendFailed, err.Error()
		return resp
	}
	resp := NewResponse(true, okMsg)
	resp.Recipient, resp.OrderID = m.To, m.OrderID
	return resp
}
