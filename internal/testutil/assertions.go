package testutil

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/junioryono/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertResolvable checks that T resolves to a non-nil instance
func AssertResolvable[T any](t *testing.T, l *locator.Locator) T {
	t.Helper()
	instance, err := locator.Resolve[T](l)
	require.NoError(t, err, "failed to resolve %s", reflect.TypeFor[T]())
	require.NotNil(t, instance, "resolved instance is nil")
	return instance
}

// AssertResolveFails checks that T fails to resolve with an error of type E
func AssertResolveFails[T any, E error](t *testing.T, l *locator.Locator) E {
	t.Helper()
	_, err := locator.Resolve[T](l)
	require.Error(t, err, "expected %s to fail", reflect.TypeFor[T]())
	return AssertErrorType[E](t, err)
}

// AssertSameInstance verifies two instances are the same
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two instances are different
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	assert.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}

// AssertCircularDependency checks that err is a circular dependency error
// whose message names every given type.
func AssertCircularDependency(t *testing.T, err error, types ...reflect.Type) {
	t.Helper()
	require.Error(t, err)

	var cycleErr locator.CircularDependencyError
	require.True(t, errors.As(err, &cycleErr), "expected circular dependency error, got: %v", err)

	msg := cycleErr.Error()
	for _, typ := range types {
		assert.True(t, strings.Contains(msg, typ.String()), "cycle message should contain %s: %s", typ, msg)
	}
}

// AssertClosed checks that resolution fails on a closed locator
func AssertClosed(t *testing.T, l *locator.Locator) {
	t.Helper()

	_, err := l.Resolve(reflect.TypeFor[*locator.Locator]())
	assert.ErrorIs(t, err, locator.ErrLocatorClosed)

	_, err = l.ResolveAll(reflect.TypeFor[error]())
	assert.ErrorIs(t, err, locator.ErrLocatorClosed)
}
