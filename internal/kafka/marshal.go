package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// DecodeError marks a record whose payload could not be decoded. It is kept
// apart from handler failures: retrying a malformed record never helps.
type DecodeError struct {
	Topic     string
	Partition int
	Offset    int64
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s[%d]@%d: %v", e.Topic, e.Partition, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

func Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return b, nil
}

// Decode unmarshals the record value into T.
func Decode[T any](m kafka.Message) (T, error) {
	var t T
	if err := json.Unmarshal(m.Value, &t); err != nil {
		return t, &DecodeError{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset, Err: err}
	}
	return t, nil
}
