package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrContention is returned when every attempt lost its compare-and-deduct
// to a concurrent reservation.
var ErrContention = errors.New("stock contention: reservation attempts exhausted")

// ErrInvalidQuantity rejects orders whose quantities cannot be reserved:
// non-positive lines or per-product sums that overflow.
var ErrInvalidQuantity = errors.New("invalid item quantity")

const defaultMaxAttempts = 8

type ItemOutcome struct {
	Available  int
	Requested  int
	Sufficient bool
}

// Outcome is the verdict for one order. Stock was deducted iff AllSufficient.
type Outcome struct {
	AllSufficient bool
	PerItem       map[string]ItemOutcome
}

type Engine struct {
	Ledger      Ledger
	Log         *zap.Logger
	MaxAttempts int
}

// Reserve checks every item against the ledger and deducts all of them or
// none. The deduction only applies to the quantities that were checked; if
// they changed in between, the check runs again.
func (e *Engine) Reserve(ctx context.Context, o orders.Order) (Outcome, error) {
	ctx, span := otel.Tracer("inventory").Start(ctx, "reserve stock")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", o.ID))

	requested, err := Requested(o.Items)
	if err != nil {
		return Outcome{}, fmt.Errorf("order %s: %w", o.ID, err)
	}
	codes := sortedCodes(requested)

	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		available, err := e.Ledger.Get(ctx, codes)
		if err != nil {
			return Outcome{}, fmt.Errorf("read stock for %s: %w", o.ID, err)
		}
		out := evaluate(available, requested)
		if !out.AllSufficient || len(codes) == 0 {
			return out, nil
		}
		ok, err := e.Ledger.CompareAndDeduct(ctx, available, requested)
		if err != nil {
			return Outcome{}, fmt.Errorf("deduct stock for %s: %w", o.ID, err)
		}
		if ok {
			span.SetAttributes(attribute.Int("reserve.attempts", attempt))
			return out, nil
		}
		e.Log.Debug("stock changed during reservation, retrying",
			zap.String("order_id", o.ID), zap.Int("attempt", attempt))
	}
	span.SetAttributes(attribute.Int("reserve.attempts", attempts))
	return Outcome{}, fmt.Errorf("order %s: %w", o.ID, ErrContention)
}

// Requested sums quantities per product code.
func Requested(items []orders.OrderItem) (map[string]int, error) {
	out := make(map[string]int, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s has quantity %d", ErrInvalidQuantity, it.Code, it.Quantity)
		}
		if out[it.Code] > math.MaxInt-it.Quantity {
			return nil, fmt.Errorf("%w: %s total overflows", ErrInvalidQuantity, it.Code)
		}
		out[it.Code] += it.Quantity
	}
	return out, nil
}

func evaluate(available, requested map[string]int) Outcome {
	out := Outcome{AllSufficient: true, PerItem: make(map[string]ItemOutcome, len(requested))}
	for code, qty := range requested {
		ok := available[code] >= qty
		out.PerItem[code] = ItemOutcome{Available: available[code], Requested: qty, Sufficient: ok}
		if !ok {
			out.AllSufficient = false
		}
	}
	return out
}

type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// LevelOf classifies a remaining quantity for restock alerts.
func LevelOf(qty int) Level {
	switch {
	case qty < 20:
		return LevelLow
	case qty < 50:
		return LevelMedium
	default:
		return LevelHigh
	}
}
