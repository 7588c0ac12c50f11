package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/email"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	PathSend  = "/sidecar/email/send"
	PathOrder = "/sidecar/email/order"
)

// StatusError is a non-2xx answer from the sidecar.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sidecar returned %d", e.Code)
	}
	return fmt.Sprintf("sidecar returned %d: %s", e.Code, e.Message)
}

// SidecarClient calls the co-located email sidecar over HTTP.
type SidecarClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewSidecarClient(baseURL string, timeout time.Duration) *SidecarClient {
	return &SidecarClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

func (c *SidecarClient) Send(ctx context.Context, r email.Request) (email.Response, error) {
	return c.post(ctx, PathSend, r)
}

func (c *SidecarClient) SendOrder(ctx context.Context, o orders.Order) (email.Response, error) {
	return c.post(ctx, PathOrder, o)
}

func (c *SidecarClient) post(ctx context.Context, path string, body any) (email.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return email.Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return email.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return email.Response{}, fmt.Errorf("call sidecar %s: %w", path, err)
	}
	defer res.Body.Close()

	var out email.Response
	decodeErr := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return out, &StatusError{Code: res.StatusCode, Message: out.Message}
	}
	if decodeErr != nil {
		return out, fmt.Errorf("malformed sidecar response: %w", decodeErr)
	}
	if !out.Success {
		return out, fmt.Errorf("sidecar reported failure: %s", out.Message)
	}
	return out, nil
}
