package entity

import "fmt"

// NotFoundError indicates that an entity batch referred to an entity that is
// not registered with the worker.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no entity named '%s' is registered", e.Name)
}
