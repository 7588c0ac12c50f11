package orders

import (
	"context"
	"fmt"
	"time"

	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any, headers ...kafkago.Header) <-chan kafkax.Outcome
	PublishSync(ctx context.Context, key string, event any, headers ...kafkago.Header) (kafkax.Outcome, error)
}

// Service builds orders and hands them to the bus. The caller never sees what
// downstream consumers do with the event.
type Service struct {
	Producer Publisher
	Log      *zap.Logger
	// Sync waits for broker acknowledgement before CreateOrder returns.
	Sync    bool
	Timeout time.Duration
}

func (s *Service) CreateOrder(ctx context.Context, customerID string, items []OrderItem) (Order, error) {
	o := NewOrder(customerID, items)
	s.Log.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("customer_id", o.CustomerID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)

	if !s.Sync {
		// outcome is reported by the producer's completion hook
		s.Producer.Publish(ctx, o.ID, o, OrderCreatedHeaders()...)
		return o, nil
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if _, err := s.Producer.PublishSync(ctx, o.ID, o, OrderCreatedHeaders()...); err != nil {
		return Order{}, fmt.Errorf("publish order %s: %w", o.ID, err)
	}
	return o, nil
}
