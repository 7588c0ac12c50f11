package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/Vitor0389/SistemaProcessamentoPedidos/internal/orders"
)

const DateLayout = "02/01/2006 15:04:05"

var confirmation = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html><body>
<h2>Order confirmed</h2>
<p>Hello, customer <strong>{{.CustomerID}}</strong>!</p>
<p>Your order <strong>{{.ID}}</strong> was received.</p>
<p>Date: {{.Date}}</p>
<p>Total: {{.Total}}</p>
<p>Status: {{.Status}}</p>
<h3>Items</h3>
<ul>
{{- range .Items}}
<li>{{.Quantity}} x {{.Name}} - {{.Subtotal}}</li>
{{- end}}
</ul>
<p>Thank you for your purchase!</p>
</body></html>
`))

type confirmationLine struct {
	Quantity int
	Name     string
	Subtotal string
}

type confirmationData struct {
	CustomerID string
	ID         string
	Date       string
	Total      string
	Status     string
	Items      []confirmationLine
}

func Recipient(customerID string) string { return customerID + "@email.com" }

func Subject(orderID string) string { return "Order confirmation " + orderID }

// Compose renders the confirmation email for o. The output depends only on
// o and sender.
func Compose(o orders.Order, sender string) (Message, error) {
	data := confirmationData{
		CustomerID: o.CustomerID,
		ID:         o.ID,
		Date:       o.CreatedAt.Format(DateLayout),
		Total:      o.TotalAmount.StringFixed(2),
		Status:     o.Status.Description(),
	}
	for _, it := range o.Items {
		data.Items = append(data.Items, confirmationLine{
			Quantity: it.Quantity,
			Name:     it.Name,
			Subtotal: it.Subtotal().StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := confirmation.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation for %s: %w", o.ID, err)
	}
	return Message{
		From:     sender,
		To:       Recipient(o.CustomerID),
		Subject:  Subject(o.ID),
		Body:     buf.String(),
		HTML:     true,
		Priority: PriorityNormal,
		Context:  "order-confirmation",
		OrderID:  o.ID,
	}, nil
}
