package orders

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusProcessing Status = "PROCESSING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCanceled   Status = "CANCELED"
)

var descriptions = map[Status]string{
	StatusCreated:    "Order created and awaiting processing",
	StatusProcessing: "Order being processed",
	StatusConfirmed:  "Order confirmed",
	StatusShipped:    "Order shipped",
	StatusDelivered:  "Order delivered to the customer",
	StatusCanceled:   "Order canceled",
}

func (s Status) Valid() bool {
	_, ok := descriptions[s]
	return ok
}

// Description is the customer-facing wording used in notifications.
func (s Status) Description() string {
	if d, ok := descriptions[s]; ok {
		return d
	}
	return string(s)
}
