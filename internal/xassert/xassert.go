// Package xassert extends the testify assert package with helpers for checking log output.
package xassert

import (
	"strings"
	"testing"
	"time"

	"github.com/ErikKalkoken/go-set"
	"github.com/stretchr/testify/assert"
)

// EqualDuration asserts that got is almost equal to want.
func EqualDuration(t *testing.T, want, got, delta time.Duration) bool {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return assert.True(t, diff <= delta, "%s is not almost equal to %s (+/- %s)", got, want, delta)
}

// EqualSet asserts that two sets are equal.
func EqualSet[T comparable](t *testing.T, want, got set.Set[T]) bool {
	t.Helper()
	return assert.Truef(t, got.Equal(want), "Not equal:\nexpected: %s\nactual  : %s", want, got)
}

// ContainsOnce asserts that s contains substr exactly once.
func ContainsOnce(t *testing.T, s, substr string) bool {
	t.Helper()
	n := strings.Count(s, substr)
	return assert.Equalf(t, 1, n, "%q should contain %q exactly once, but found it %d times", s, substr, n)
}

// HeaderNames returns the names of all header lines in a formatted log message.
func HeaderNames(msg string) set.Set[string] {
	var names []string
	sections := strings.Split(msg, "\n\n")
	if len(sections) < 2 {
		return set.Of[string]()
	}
	for _, line := range strings.Split(sections[1], "\n") {
		name, _, found := strings.Cut(line, ": ")
		if found {
			names = append(names, name)
		}
	}
	return set.Of(names...)
}
