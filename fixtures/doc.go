// Package fixtures contains test stubs and in-memory infrastructure shared by
// the tests of several packages.
package fixtures
