package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// amounts go on the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderItem struct {
	Code     string          `json:"code" validate:"required,notblank"`
	Name     string          `json:"name" validate:"required,notblank"`
	// bounded so per-product sums stay far from integer overflow
	Quantity int             `json:"quantity" validate:"required,min=1,max=1000000"`
	Price    decimal.Decimal `json:"price" validate:"gt=0"`
}

// Subtotal is computed on demand and never stored.
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Order is the record carried on the bus. Consumers receive their own decoded
// copy and treat it as read-only.
type Order struct {
	ID          string          `json:"id" validate:"required,notblank"`
	CustomerID  string          `json:"customerId" validate:"required,notblank"`
	Items       []OrderItem     `json:"items" validate:"dive"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      Status          `json:"status" validate:"orderstatus"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func NewOrder(customerID string, items []OrderItem) Order {
	o := Order{
		ID:         NewOrderID(),
		CustomerID: customerID,
		Status:     StatusCreated,
		CreatedAt:  time.Now(),
	}
	o.SetItems(items)
	return o
}

// SetItems replaces the items and keeps TotalAmount consistent with them.
func (o *Order) SetItems(items []OrderItem) {
	o.Items = append([]OrderItem(nil), items...)
	o.RecalculateTotal()
}

func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	o.TotalAmount = total
}

// NewOrderID returns "PED-" followed by eight upper-case hex characters.
func NewOrderID() string {
	return "PED-" + strings.ToUpper(uuid.NewString()[:8])
}
