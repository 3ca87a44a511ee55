package entity

import "github.com/dogmatiq/durabletask/payload"

// State is an immutable snapshot of an entity's serialized state.
//
// The zero value represents an entity with no state.
type State struct {
	data      []byte
	converter payload.Converter
}

// NewState returns a state containing the given serialized data. A nil slice
// represents an entity with no state.
func NewState(data []byte, c payload.Converter) State {
	return State{data, c}
}

// Exists returns true if the entity has state.
func (s State) Exists() bool {
	return s.data != nil
}

// Get unmarshals the state into v. v is left untouched if the entity has no
// state.
func (s State) Get(v interface{}) error {
	return payload.Unmarshal(converterOrDefault(s.converter), s.data, v)
}

// Set returns a new state containing v. s itself is not modified.
func (s State) Set(v interface{}) (State, error) {
	data, err := payload.Marshal(converterOrDefault(s.converter), v)
	if err != nil {
		return s, err
	}

	return State{data, s.converter}, nil
}

// Delete returns a state representing an entity with no state.
func (s State) Delete() State {
	return State{nil, s.converter}
}

// Bytes returns the serialized state, or nil if the entity has no state.
func (s State) Bytes() []byte {
	return s.data
}
