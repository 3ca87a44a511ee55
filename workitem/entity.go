package workitem

import (
	"fmt"
	"strings"
)

// EntityID uniquely identifies an entity instance.
type EntityID struct {
	Name string
	Key  string
}

// String returns the canonical "@name@key" representation of the ID.
func (id EntityID) String() string {
	return "@" + strings.ToLower(id.Name) + "@" + id.Key
}

// ParseEntityID parses an entity ID in the "@name@key" form.
func ParseEntityID(s string) (EntityID, error) {
	if !strings.HasPrefix(s, "@") {
		return EntityID{}, fmt.Errorf("invalid entity ID %q: must begin with '@'", s)
	}

	name, key, ok := strings.Cut(s[1:], "@")
	if !ok || name == "" {
		return EntityID{}, fmt.Errorf("invalid entity ID %q: expected '@name@key'", s)
	}

	return EntityID{name, key}, nil
}

// OperationRequest is a single operation within an entity batch.
type OperationRequest struct {
	// Operation is the name of the operation.
	Operation string

	// Input is the serialized operation input, or nil if there is none.
	Input []byte
}

// OperationResult is the outcome of a single entity operation.
//
// Exactly one of Result and Failure is set.
type OperationResult struct {
	// Result is the serialized return value of a successful operation.
	Result []byte

	// Failure describes the error that caused the operation to fail.
	Failure *FailureDetails
}

// Succeeded returns true if the operation completed successfully.
func (r OperationResult) Succeeded() bool {
	return r.Failure == nil
}

// EntityBatchResult is the outcome of applying an entity batch.
type EntityBatchResult struct {
	// Results contains one entry per operation, in the same order as the
	// operations in the batch.
	Results []OperationResult

	// State is the entity's serialized state after the batch. It is nil if
	// the entity has no state.
	State []byte
}
