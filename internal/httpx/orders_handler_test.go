package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	kafkax "github.com/Vitor0389/SistemaProcessamentoPedidos/internal/kafka"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	"go.uber.org/zap/zaptest"
)

type creatorFunc func(ctx context.Context, customerID string, items []orders.OrderItem) (orders.Order, error)

func (f creatorFunc) CreateOrder(ctx context.Context, customerID string, items []orders.OrderItem) (orders.Order, error) {
	return f(ctx, customerID, items)
}

func ordersServer(t *testing.T, c OrderCreator) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	r := NewRouter(log)
	(&OrdersHandler{Orders: c, Validate: NewValidator(), Log: log}).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(res.Body).Decode(&m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return res, m
}

func newOrder(_ context.Context, customerID string, items []orders.OrderItem) (orders.Order, error) {
	return orders.NewOrder(customerID, items), nil
}

func TestCreateOrder(t *testing.T) {
	srv := ordersServer(t, creatorFunc(newOrder))

	res, body := post(t, srv.URL+"/orders",
		`{"customerId":"CLI001","items":[{"code":"PROD001","name":"Notebook","quantity":5,"price":10.00}]}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", res.StatusCode, body)
	}
	if id, _ := body["id"].(string); !strings.HasPrefix(id, "PED-") {
		t.Fatalf("unexpected id %v", body["id"])
	}
	if body["status"] != "CREATED" || body["customerId"] != "CLI001" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["totalAmount"] != float64(50) {
		t.Fatalf("totalAmount = %v", body["totalAmount"])
	}
	for _, k := range []string{"items", "createdAt", "message"} {
		if _, ok := body[k]; !ok {
			t.Fatalf("missing %q", k)
		}
	}
}

func TestCreateOrderSubCentTotal(t *testing.T) {
	srv := ordersServer(t, creatorFunc(newOrder))

	res, body := post(t, srv.URL+"/orders",
		`{"customerId":"CLI001","items":[{"code":"A","name":"a","quantity":1,"price":0.004},{"code":"B","name":"b","quantity":3,"price":1.333}]}`)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %v", res.StatusCode, body)
	}
	if body["totalAmount"] != 4.003 {
		t.Fatalf("totalAmount = %v, want 4.003", body["totalAmount"])
	}
}

func TestCreateOrderValidation(t *testing.T) {
	called := false
	srv := ordersServer(t, creatorFunc(func(ctx context.Context, c string, it []orders.OrderItem) (orders.Order, error) {
		called = true
		return newOrder(ctx, c, it)
	}))

	cases := []struct {
		name   string
		body   string
		fields []string
	}{
		{"blank customer", `{"customerId":"  ","items":[{"code":"A","name":"a","quantity":1,"price":1}]}`, []string{"customerId"}},
		{"missing items", `{"customerId":"CLI001"}`, []string{"items"}},
		{"empty items", `{"customerId":"CLI001","items":[]}`, []string{"items"}},
		{"bad item", `{"customerId":"CLI001","items":[{"code":"","name":"a","quantity":0,"price":0}]}`,
			[]string{"items[0].code", "items[0].quantity", "items[0].price"}},
		{"quantity too large", `{"customerId":"CLI001","items":[{"code":"A","name":"a","quantity":1000001,"price":1}]}`,
			[]string{"items[0].quantity"}},
		{"negative price", `{"customerId":"CLI001","items":[{"code":"A","name":"a","quantity":1,"price":-2}]}`,
			[]string{"items[0].price"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, body := post(t, srv.URL+"/orders", tc.body)
			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d", res.StatusCode)
			}
			if body["path"] != "/orders" || body["status"] != float64(400) || body["timestamp"] == nil {
				t.Fatalf("unexpected envelope %v", body)
			}
			fields, _ := body["validationErrors"].(map[string]any)
			for _, f := range tc.fields {
				if _, ok := fields[f]; !ok {
					t.Fatalf("missing validation error for %q in %v", f, fields)
				}
			}
		})
	}
	if called {
		t.Fatal("invalid requests must not create orders")
	}
}

func TestCreateOrderMalformedJSON(t *testing.T) {
	srv := ordersServer(t, creatorFunc(newOrder))
	res, _ := post(t, srv.URL+"/orders", `{"customerId":`)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestCreateOrderPublishFailure(t *testing.T) {
	srv := ordersServer(t, creatorFunc(func(context.Context, string, []orders.OrderItem) (orders.Order, error) {
		return orders.Order{}, &kafkax.SendError{Topic: "orders", Key: "PED-1", Err: errors.New("broker unavailable")}
	}))

	res, body := post(t, srv.URL+"/orders",
		`{"customerId":"CLI001","items":[{"code":"PROD001","name":"Notebook","quantity":1,"price":1}]}`)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "broker unavailable") {
		t.Fatalf("unexpected message %v", body["message"])
	}
}
