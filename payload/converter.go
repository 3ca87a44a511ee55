// Package payload converts between Go values and the serialized payloads that
// are exchanged with the orchestration engine.
package payload

import (
	"fmt"

	"github.com/dogmatiq/marshalkit/codec/json"
)

// Converter marshals and unmarshals task inputs, outputs and entity state.
type Converter interface {
	// Marshal returns the serialized representation of v.
	Marshal(v interface{}) ([]byte, error)

	// Unmarshal populates v from its serialized representation.
	Unmarshal(data []byte, v interface{}) error
}

// DefaultConverter is the converter used when none is configured. It encodes
// values as JSON.
var DefaultConverter Converter = &json.Codec{}

// Unmarshal populates v from data using c.
//
// It is a no-op if data is empty, leaving v untouched. This allows optional
// inputs to be expressed as nil payloads.
func Unmarshal(c Converter, data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}

	if err := c.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unable to unmarshal %T: %w", v, err)
	}

	return nil
}

// Marshal returns the serialized representation of v using c.
func Marshal(c Converter, v interface{}) ([]byte, error) {
	data, err := c.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal %T: %w", v, err)
	}

	return data, nil
}
