package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/email"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/notification"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

type memTransport struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *memTransport) Deliver(_ context.Context, msg email.Message) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memTransport) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func sidecar(t *testing.T, tr email.Transport) (*email.Service, *httptest.Server) {
	t.Helper()
	log := zaptest.NewLogger(t)
	svc := &email.Service{
		Mailer: &email.Mailer{Transport: tr, Sender: "noreply@order-pipeline.local", Log: log},
		Log:    log,
	}
	r := NewRouter(log)
	(&EmailHandler{Email: svc, Validate: NewValidator(), Log: log}).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return svc, srv
}

func sampleOrder() orders.Order {
	return orders.NewOrder("CLI001", []orders.OrderItem{
		{Code: "PROD001", Name: "Notebook", Quantity: 5, Price: decimal.NewFromInt(10)},
	})
}

func TestSendEmail(t *testing.T) {
	tr := &memTransport{}
	_, srv := sidecar(t, tr)

	res, body := post(t, srv.URL+"/sidecar/email/send",
		`{"recipient":"CLI001@email.com","subject":"Hi","body":"<p>hello</p>","html":true,"priority":"HIGH"}`)
	if res.StatusCode != http.StatusOK || body["success"] != true || body["recipient"] != "CLI001@email.com" {
		t.Fatalf("status %d, body %v", res.StatusCode, body)
	}
	if tr.count() != 1 {
		t.Fatalf("sent %d emails", tr.count())
	}
}

func TestSendEmailValidation(t *testing.T) {
	tr := &memTransport{}
	_, srv := sidecar(t, tr)

	for _, b := range []string{
		`{"subject":"Hi","body":"x"}`,
		`{"recipient":" ","subject":"Hi","body":"x"}`,
		`{"recipient":"a@b.c","subject":"Hi","body":"x","priority":"URGENT"}`,
		`not json`,
	} {
		res, body := post(t, srv.URL+"/sidecar/email/send", b)
		if res.StatusCode != http.StatusBadRequest || body["errorCode"] != email.ErrCodeValidation || body["success"] != false {
			t.Fatalf("%s: status %d, body %v", b, res.StatusCode, body)
		}
	}
	if tr.count() != 0 {
		t.Fatal("invalid requests must not send")
	}
}

func TestSendEmailFailure(t *testing.T) {
	_, srv := sidecar(t, &memTransport{err: errors.New("relay down")})

	res, body := post(t, srv.URL+"/sidecar/email/send", `{"recipient":"a@b.c","subject":"Hi","body":"x"}`)
	if res.StatusCode != http.StatusInternalServerError || body["errorCode"] != email.ErrCodeSendFailed {
		t.Fatalf("status %d, body %v", res.StatusCode, body)
	}
}

func TestSendOrderEmail(t *testing.T) {
	tr := &memTransport{}
	_, srv := sidecar(t, tr)

	o := sampleOrder()
	b, _ := json.Marshal(o)
	res, body := post(t, srv.URL+"/sidecar/email/order", string(b))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d, body %v", res.StatusCode, body)
	}
	if body["orderId"] != o.ID || body["recipient"] != "CLI001@email.com" {
		t.Fatalf("unexpected body %v", body)
	}

	res, body = post(t, srv.URL+"/sidecar/email/order", `{"id":"PED-1","customerId":"","items":[]}`)
	if res.StatusCode != http.StatusBadRequest || body["errorCode"] != email.ErrCodeValidation {
		t.Fatalf("status %d, body %v", res.StatusCode, body)
	}

	o.Status = "LOST"
	b, _ = json.Marshal(o)
	res, body = post(t, srv.URL+"/sidecar/email/order", string(b))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown status accepted: %d, body %v", res.StatusCode, body)
	}
	if d, _ := body["details"].(string); !strings.Contains(d, "status") {
		t.Fatalf("details %v", body["details"])
	}
	if tr.count() != 1 {
		t.Fatalf("sent %d emails", tr.count())
	}
}

// One order reaching the sidecar from its own subscription and from the
// notification service's HTTP call produces two emails.
func TestSidecarDualPath(t *testing.T) {
	for _, mode := range []string{notification.ModeRequest, notification.ModeOrder} {
		t.Run(mode, func(t *testing.T) {
			tr := &memTransport{}
			svc, srv := sidecar(t, tr)
			o := sampleOrder()

			b, _ := json.Marshal(o)
			if err := svc.HandleOrderCreated(context.Background(), kafkago.Message{Topic: "orders", Value: b}); err != nil {
				t.Fatalf("bus path: %v", err)
			}

			d := &notification.Dispatcher{
				Sidecar: notification.NewSidecarClient(srv.URL, 5*time.Second),
				Mode:    mode,
				Log:     zaptest.NewLogger(t),
			}
			rep := d.Notify(context.Background(), o)
			if !rep.EmailSent() || !rep.Email.Success {
				t.Fatalf("http path: %+v", rep)
			}
			if tr.count() != 2 {
				t.Fatalf("expected 2 emails, got %d", tr.count())
			}
		})
	}
}
