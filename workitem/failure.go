package workitem

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
)

// FailureDetails is a structured description of an error raised by user code.
type FailureDetails struct {
	ErrorType      string
	ErrorMessage   string
	StackTrace     string
	Inner          *FailureDetails
	IsNonRetriable bool
}

// Error returns a human-readable description of the failure.
func (f *FailureDetails) Error() string {
	return fmt.Sprintf("%s: %s", f.ErrorType, f.ErrorMessage)
}

// NonRetriable is implemented by errors that the engine must not retry.
type NonRetriable interface {
	error
	NonRetriable() bool
}

// NewFailureDetails returns the failure details that describe err.
//
// If err wraps other errors, the wrapped error is described by the Inner field.
func NewFailureDetails(err error) *FailureDetails {
	if err == nil {
		return nil
	}

	f := &FailureDetails{
		ErrorType:    typeName(err),
		ErrorMessage: err.Error(),
	}

	var nr NonRetriable
	if errors.As(err, &nr) {
		f.IsNonRetriable = nr.NonRetriable()
	}

	if inner := errors.Unwrap(err); inner != nil {
		f.Inner = NewFailureDetails(inner)
	}

	return f
}

// NewPanicFailureDetails returns the failure details that describe a recovered
// panic value, including the current goroutine's stack trace.
func NewPanicFailureDetails(v interface{}) *FailureDetails {
	f := &FailureDetails{
		ErrorType:  "panic",
		StackTrace: string(debug.Stack()),
	}

	if err, ok := v.(error); ok {
		f.ErrorMessage = err.Error()
		f.Inner = NewFailureDetails(err)
	} else {
		f.ErrorMessage = fmt.Sprint(v)
	}

	return f
}

func typeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}
