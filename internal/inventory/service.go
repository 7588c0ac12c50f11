package inventory

import (
	"context"
	"time"

	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Engine *Engine
	Log    *zap.Logger
	// Delay simulates warehouse processing before the check.
	Delay time.Duration
}

// HandleOrderCreated is installed as the inventory consumer's handler. An
// order that cannot be fully served is logged and acknowledged; ledger
// failures and unreservable quantities are returned.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	o, err := kafkax.Decode[orders.Order](m)
	if err != nil {
		return err
	}
	log := s.Log.With(zap.String("order_id", o.ID), zap.String("customer_id", o.CustomerID))
	log.Info("processing stock update",
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)

	if err := sleep(ctx, s.Delay); err != nil {
		log.Warn("processing interrupted", zap.Error(err))
	}

	out, err := s.Engine.Reserve(context.WithoutCancel(ctx), o)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		res := out.PerItem[it.Code]
		log.Info("availability",
			zap.String("code", it.Code),
			zap.String("name", it.Name),
			zap.Int("available", res.Available),
			zap.Int("requested", res.Requested),
			zap.Bool("sufficient", res.Sufficient),
		)
	}
	if !out.AllSufficient {
		log.Warn("insufficient stock, order not reserved")
		return nil
	}

	for code, res := range out.PerItem {
		left := res.Available - res.Requested
		log.Info("stock updated",
			zap.String("code", code),
			zap.Int("before", res.Available),
			zap.Int("after", left),
			zap.String("level", string(LevelOf(left))),
		)
	}
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
