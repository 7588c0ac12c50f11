package httpx

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/email"
	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type EmailSender interface {
	SendRequest(ctx context.Context, r email.Request) email.Response
	SendOrderConfirmation(ctx context.Context, o orders.Order) email.Response
}

// EmailHandler is the sidecar's HTTP ingress.
type EmailHandler struct {
	Email    EmailSender
	Validate *validator.Validate
	Log      *zap.Logger
}

func (h *EmailHandler) Register(r chi.Router) {
	r.Route("/sidecar/email", func(r chi.Router) {
		r.Post("/send", h.send)
		r.Post("/order", h.sendOrder)
	})
}

func (h *EmailHandler) send(w http.ResponseWriter, r *http.Request) {
	var req email.Request
	if !h.decode(w, r, &req) {
		return
	}
	resp := h.Email.SendRequest(r.Context(), req)
	writeJSON(w, statusOf(resp), resp)
}

func (h *EmailHandler) sendOrder(w http.ResponseWriter, r *http.Request) {
	var o orders.Order
	if !h.decode(w, r, &o) {
		return
	}
	h.Log.Info("order email requested over http", zap.String("order_id", o.ID))
	resp := h.Email.SendOrderConfirmation(r.Context(), o)
	writeJSON(w, statusOf(resp), resp)
}

func (h *EmailHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	var details string
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		details = "body: " + err.Error()
	} else if err := h.Validate.Struct(v); err != nil {
		details = joinFieldErrors(fieldErrors(err))
	} else {
		return true
	}
	resp := email.NewResponse(false, "Invalid request")
	resp.ErrorCode, resp.Details = email.ErrCodeValidation, details
	writeJSON(w, http.StatusBadRequest, resp)
	return false
}

func statusOf(resp email.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}
