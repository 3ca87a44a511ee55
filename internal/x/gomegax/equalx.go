// Package gomegax contains Gomega matchers used by tests throughout the
// module.
package gomegax

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
	"google.golang.org/protobuf/testing/protocmp"
)

// DefaultOptions are the comparison options used by EqualX() when none are
// given.
//
// Protocol buffers messages are compared by content, and nil slices and maps
// are considered equal to empty ones, as they are indistinguishable once
// encoded on the wire.
var DefaultOptions = cmp.Options{
	protocmp.Transform(),
	cmpopts.EquateEmpty(),
}

// EqualX returns a matcher that uses go-cmp to check that a value is
// semantically equal to expected.
//
// If no options are given, DefaultOptions is used.
func EqualX(expected interface{}, options ...cmp.Option) types.GomegaMatcher {
	opts := cmp.Options(options)
	if len(opts) == 0 {
		opts = DefaultOptions
	}

	return &cmpMatcher{expected, opts}
}

type cmpMatcher struct {
	expected interface{}
	options  cmp.Options
}

func (m *cmpMatcher) Match(actual interface{}) (bool, error) {
	return cmp.Equal(actual, m.expected, m.options), nil
}

func (m *cmpMatcher) FailureMessage(actual interface{}) string {
	return m.message(actual, "to equal")
}

func (m *cmpMatcher) NegatedFailureMessage(actual interface{}) string {
	return m.message(actual, "not to equal")
}

func (m *cmpMatcher) message(actual interface{}, relation string) string {
	return format.Message(actual, relation, m.expected) +
		"\n\nDiff (-actual +expected):\n" +
		format.IndentString(cmp.Diff(actual, m.expected, m.options), 1)
}
