package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest"
)

func record(t *testing.T, v any) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return kafkago.Message{Topic: "orders", Partition: 1, Offset: 7, Value: b}
}

func TestHandleOrderCreatedDeducts(t *testing.T) {
	l := NewMemoryLedger(seedStock())
	svc := &Service{Engine: newEngine(t, l), Log: zaptest.NewLogger(t)}

	if err := svc.HandleOrderCreated(context.Background(), record(t, order(line("PROD001", 5)))); err != nil {
		t.Fatal(err)
	}
	if got := stockOf(t, l, "PROD001"); got != 95 {
		t.Fatalf("PROD001 = %d, want 95", got)
	}
}

func TestHandleOrderCreatedInsufficientIsNotAnError(t *testing.T) {
	l := NewMemoryLedger(seedStock())
	svc := &Service{Engine: newEngine(t, l), Log: zaptest.NewLogger(t)}

	if err := svc.HandleOrderCreated(context.Background(), record(t, order(line("PROD002", 60)))); err != nil {
		t.Fatalf("insufficient stock should be acknowledged, got %v", err)
	}
	if got := stockOf(t, l, "PROD002"); got != 50 {
		t.Fatalf("PROD002 = %d, want 50", got)
	}
}

func TestHandleOrderCreatedMalformed(t *testing.T) {
	svc := &Service{Engine: newEngine(t, NewMemoryLedger(nil)), Log: zaptest.NewLogger(t)}

	err := svc.HandleOrderCreated(context.Background(), kafkago.Message{Value: []byte("{not json")})
	if !kafkax.IsDecodeError(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestHandleOrderCreatedInterruptedStillReserves(t *testing.T) {
	l := NewMemoryLedger(seedStock())
	svc := &Service{Engine: newEngine(t, l), Log: zaptest.NewLogger(t), Delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.HandleOrderCreated(ctx, record(t, order(line("PROD003", 1)))); err != nil {
		t.Fatal(err)
	}
	if got := stockOf(t, l, "PROD003"); got != 199 {
		t.Fatalf("PROD003 = %d, want 199", got)
	}
}

type brokenLedger struct{ *MemoryLedger }

func (brokenLedger) Get(context.Context, []string) (map[string]int, error) {
	return nil, errors.New("connection refused")
}

func TestHandleOrderCreatedLedgerFailure(t *testing.T) {
	svc := &Service{Engine: newEngine(t, brokenLedger{NewMemoryLedger(nil)}), Log: zaptest.NewLogger(t)}

	if err := svc.HandleOrderCreated(context.Background(), record(t, order(line("PROD001", 1)))); err == nil {
		t.Fatal("ledger errors must reach the consumer")
	}
}

func TestHandleOrderCreatedInvalidQuantity(t *testing.T) {
	l := NewMemoryLedger(seedStock())
	svc := &Service{Engine: newEngine(t, l), Log: zaptest.NewLogger(t)}

	err := svc.HandleOrderCreated(context.Background(), record(t, order(line("PROD001", -3))))
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if got := stockOf(t, l, "PROD001"); got != 100 {
		t.Fatalf("PROD001 = %d, want 100", got)
	}
}
