package activity

import "fmt"

// NotFoundError indicates that an activity work item referred to an activity
// that is not registered with the worker.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("no activity named '%s' is registered", e.Name)
}

// NonRetriable marks err as an error that the engine must not retry.
func NonRetriable(err error) error {
	return nonRetriable{err}
}

type nonRetriable struct {
	error
}

func (e nonRetriable) Unwrap() error      { return e.error }
func (e nonRetriable) NonRetriable() bool { return true }
