// Package digbridge exposes types resolved by a locator.Locator to a
// go.uber.org/dig container, so code wired with dig can consume services
// built from a catalog.
//
// Example usage:
//
//	l := locator.New(locator.WithModules(StorageModule))
//
//	c := dig.New()
//	if err := digbridge.ProvideAll(c, l); err != nil {
//	    log.Fatal(err)
//	}
//
//	c.Invoke(func(users *UserService) { ... })
//
// Every exported type is resolved lazily, the first time dig needs it. dig
// caches the result, so always-new types are resolved once per container.
package digbridge

import (
	"errors"
	"reflect"

	"github.com/junioryono/locator"
	"github.com/junioryono/locator/internal/reflection"
	"go.uber.org/dig"
)

// ErrContainerNil is returned when the dig container is nil.
var ErrContainerNil = errors.New("dig container cannot be nil")

var errorType = reflect.TypeFor[error]()

// Provide registers a dig constructor for each type, resolving it from l.
// Types must be classes or interfaces. An abstract class is provided as the
// base embedded in its single subclass.
func Provide(c *dig.Container, l *locator.Locator, types ...reflect.Type) error {
	if c == nil {
		return ErrContainerNil
	}
	if l == nil {
		return locator.ErrLocatorNil
	}

	for _, t := range types {
		if err := provide(c, l, t); err != nil {
			return err
		}
	}

	return nil
}

// ProvideAll registers every concrete catalog type of l with c.
func ProvideAll(c *dig.Container, l *locator.Locator) error {
	if l == nil {
		return locator.ErrLocatorNil
	}
	return Provide(c, l, l.Types()...)
}

// ProvideType registers T with c.
func ProvideType[T any](c *dig.Container, l *locator.Locator) error {
	return Provide(c, l, reflect.TypeFor[T]())
}

func provide(c *dig.Container, l *locator.Locator, t reflect.Type) error {
	if t == nil {
		return locator.RegistrationError{Operation: "provide to dig", Cause: locator.ErrTypeNil}
	}

	d, err := locator.DescribeType(t)
	if err != nil {
		return locator.RegistrationError{Type: t, Operation: "provide to dig", Cause: err}
	}

	switch d.Kind {
	case locator.KindConcrete, locator.KindAbstract, locator.KindInterface:
	default:
		return locator.RegistrationError{
			Type:      t,
			Operation: "provide to dig",
			Cause:     locator.InvalidTargetError{Type: t},
		}
	}

	if err := c.Provide(constructorFor(l, t)); err != nil {
		return locator.RegistrationError{Type: t, Operation: "provide to dig", Cause: err}
	}

	return nil
}

// constructorFor builds a func() (T, error) resolving t from l.
func constructorFor(l *locator.Locator, t reflect.Type) any {
	fnType := reflect.FuncOf(nil, []reflect.Type{t, errorType}, false)

	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		instance, err := l.Resolve(t)
		if err != nil {
			return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
		}

		v := reflect.ValueOf(instance)
		if !v.Type().AssignableTo(t) {
			base, ok := reflection.Upcast(v, t)
			if !ok {
				err = locator.TypeMismatchError{Expected: t, Actual: v.Type(), Context: "provide to dig"}
				return []reflect.Value{reflect.Zero(t), reflect.ValueOf(&err).Elem()}
			}
			v = base
		}

		return []reflect.Value{v, reflect.Zero(errorType)}
	})

	return fn.Interface()
}
