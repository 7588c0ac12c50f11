package orders

import kafkago "github.com/segmentio/kafka-go"

const (
	EventOrderCreated = "OrderCreated"
	EventVersion      = "1"

	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// Partition key = order id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

func OrderCreatedHeaders() []kafkago.Header {
	return []kafkago.Header{
		{Key: HeaderEventType, Value: []byte(EventOrderCreated)},
		{Key: HeaderEventVersion, Value: []byte(EventVersion)},
	}
}
