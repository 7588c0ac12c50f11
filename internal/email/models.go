package email

import "time"

const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
)

const (
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeSendFailed = "SEND_FAILED"
)

// Request asks the sidecar to send a ready-made message.
type Request struct {
	Recipient string `json:"recipient" validate:"required,notblank"`
	Subject   string `json:"subject" validate:"required,notblank"`
	Body      string `json:"body" validate:"required,notblank"`
	HTML      bool   `json:"html"`
	Sender    string `json:"sender,omitempty"`
	Priority  string `json:"priority,omitempty" validate:"omitempty,oneof=LOW NORMAL HIGH"`
	Context   string `json:"context,omitempty"`
}

// Response is returned by both sidecar endpoints.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
	OrderID   string `json:"orderId,omitempty"`
	// Timestamp is milliseconds since the epoch.
	Timestamp int64  `json:"timestamp"`
	ErrorCode string `json:"errorCode,omitempty"`
	Details   string `json:"details,omitempty"`
}

func NewResponse(success bool, message string) Response {
	return Response{Success: success, Message: message, Timestamp: time.Now().UnixMilli()}
}

// Message is a composed email ready for a Transport.
type Message struct {
	From     string
	To       string
	Subject  string
	Body     string
	HTML     bool
	Priority string
	Context  string
	OrderID  string
}

func (r Request) Message() Message {
	p := r.Priority
	if p == "" {
		p = PriorityNormal
	}
	return Message{
		From:     r.Sender,
		To:       r.Recipient,
		Subject:  r.Subject,
		Body:     r.Body,
		HTML:     r.HTML,
		Priority: p,
		Context:  r.Context,
	}
}
