package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap/zaptest"
)

type published struct {
	key     string
	order   Order
	headers []kafkago.Header
	sync    bool
}

type fakePublisher struct {
	calls   []published
	syncErr error
}

func (f *fakePublisher) Publish(_ context.Context, key string, event any, headers ...kafkago.Header) <-chan kafkax.Outcome {
	f.calls = append(f.calls, published{key: key, order: event.(Order), headers: headers})
	ch := make(chan kafkax.Outcome, 1)
	ch <- kafkax.Outcome{Key: key}
	return ch
}

func (f *fakePublisher) PublishSync(ctx context.Context, key string, event any, headers ...kafkago.Header) (kafkax.Outcome, error) {
	f.calls = append(f.calls, published{key: key, order: event.(Order), headers: headers, sync: true})
	if _, ok := ctx.Deadline(); !ok {
		return kafkax.Outcome{}, errors.New("sync publish without deadline")
	}
	if f.syncErr != nil {
		return kafkax.Outcome{}, &kafkax.SendError{Topic: "orders", Key: key, Err: f.syncErr}
	}
	return kafkax.Outcome{Key: key}, nil
}

func TestCreateOrderPublishesKeyedByID(t *testing.T) {
	pub := &fakePublisher{}
	svc := &Service{Producer: pub, Log: zaptest.NewLogger(t)}

	o, err := svc.CreateOrder(context.Background(), "CLI001", []OrderItem{item("PROD001", 5, "10.00")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(pub.calls) != 1 || pub.calls[0].sync {
		t.Fatalf("expected one async publish, got %+v", pub.calls)
	}
	c := pub.calls[0]
	if c.key != o.ID || c.order.ID != o.ID {
		t.Fatalf("record key %q / payload id %q, want %q", c.key, c.order.ID, o.ID)
	}
	if o.TotalAmount.StringFixed(2) != "50.00" {
		t.Fatalf("total = %s", o.TotalAmount)
	}
	var typ string
	for _, h := range c.headers {
		if h.Key == HeaderEventType {
			typ = string(h.Value)
		}
	}
	if typ != EventOrderCreated {
		t.Fatalf("event type header = %q", typ)
	}
}

func TestCreateOrderSyncFailure(t *testing.T) {
	pub := &fakePublisher{syncErr: errors.New("no leader")}
	svc := &Service{Producer: pub, Log: zaptest.NewLogger(t), Sync: true, Timeout: time.Second}

	_, err := svc.CreateOrder(context.Background(), "CLI001", []OrderItem{item("PROD001", 1, "10.00")})
	var se *kafkax.SendError
	if !errors.As(err, &se) {
		t.Fatalf("expected SendError, got %v", err)
	}
}

func TestCreateOrderSyncSuccess(t *testing.T) {
	pub := &fakePublisher{}
	svc := &Service{Producer: pub, Log: zaptest.NewLogger(t), Sync: true, Timeout: time.Second}

	if _, err := svc.CreateOrder(context.Background(), "CLI001", []OrderItem{item("PROD001", 1, "10.00")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(pub.calls) != 1 || !pub.calls[0].sync {
		t.Fatalf("expected one sync publish, got %+v", pub.calls)
	}
}
