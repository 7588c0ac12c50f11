package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, customerID string, items []orders.OrderItem) (orders.Order, error)
}

type CreateOrderReq struct {
	CustomerID string             `json:"customerId" validate:"required,notblank"`
	Items      []orders.OrderItem `json:"items" validate:"required,min=1,dive"`
}

type CreateOrderResp struct {
	orders.Order
	Message string `json:"message"`
}

type OrdersHandler struct {
	Orders   OrderCreator
	Validate *validator.Validate
	Log      *zap.Logger
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Malformed request body", map[string]string{"body": err.Error()})
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		h.fail(w, r, http.StatusBadRequest, "Validation failed", fieldErrors(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Orders.CreateOrder(ctx, req.CustomerID, req.Items)
	if err != nil {
		h.Log.Error("create order failed", zap.String("customer_id", req.CustomerID), zap.Error(err))
		h.fail(w, r, http.StatusInternalServerError, "Internal server error: "+err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusCreated, CreateOrderResp{
		Order:   o,
		Message: "Order created and published for processing",
	})
}

func (h *OrdersHandler) fail(w http.ResponseWriter, r *http.Request, code int, msg string, fields map[string]string) {
	writeJSON(w, code, ErrorResponse{
		Status:           code,
		Error:            http.StatusText(code),
		Message:          msg,
		ValidationErrors: fields,
		Path:             r.URL.Path,
		Timestamp:        time.Now(),
	})
}
