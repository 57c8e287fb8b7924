package locator

import (
	"fmt"
	"reflect"
)

// Resolve resolves an instance of type T from the locator.
// This is a generic convenience function that handles type assertions.
// When T is a base class the subclass instance is returned through its
// embedded base.
//
// Example:
//
//	store, err := locator.Resolve[Store](l)
//	if err != nil {
//	    // Handle error
//	}
func Resolve[T any](l *Locator) (T, error) {
	var zero T

	if l == nil {
		return zero, ErrLocatorNil
	}

	t := reflect.TypeFor[T]()
	instance, err := l.Resolve(t)
	if err != nil {
		return zero, err
	}

	if instance == nil {
		return zero, nil
	}

	return as[T](instance, t, "type assertion")
}

// MustResolve resolves an instance of type T from the locator.
// It panics if the instance cannot be resolved.
//
// Example:
//
//	// Panics if the store cannot be resolved
//	store := locator.MustResolve[Store](l)
func MustResolve[T any](l *Locator) T {
	instance, err := Resolve[T](l)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", formatType(reflect.TypeFor[T]()), err))
	}

	return instance
}

// ResolveAll resolves every implementation of T.
//
// Example:
//
//	handlers, err := locator.ResolveAll[Handler](l)
func ResolveAll[T any](l *Locator) ([]T, error) {
	if l == nil {
		return nil, ErrLocatorNil
	}

	t := reflect.TypeFor[T]()
	instances, err := l.ResolveAll(t)
	if err != nil {
		return nil, err
	}

	results := make([]T, 0, len(instances))
	for i, instance := range instances {
		result, err := as[T](instance, t, fmt.Sprintf("type assertion for item %d", i))
		if err != nil {
			return nil, err
		}

		results = append(results, result)
	}

	return results, nil
}

// MustResolveAll resolves every implementation of T.
// It panics if they cannot be resolved.
func MustResolveAll[T any](l *Locator) []T {
	instances, err := ResolveAll[T](l)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve all %s: %v", formatType(reflect.TypeFor[T]()), err))
	}

	return instances
}

func formatTypeOf(v any) string {
	return formatType(reflect.TypeOf(v))
}

// as converts instance to T, viewing a subclass through its embedded base.
func as[T any](instance any, t reflect.Type, what string) (T, error) {
	if result, ok := instance.(T); ok {
		return result, nil
	}

	var zero T
	v, err := assignable(instance, t)
	if err != nil {
		return zero, TypeMismatchError{Expected: t, Actual: reflect.TypeOf(instance), Context: what}
	}

	return v.Interface().(T), nil
}
