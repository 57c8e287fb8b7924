package locator

import (
	"context"
	"fmt"
)

// Initializer is implemented by types that finish their setup after
// construction. Initialize runs once per constructed instance, after the
// resolution that built it popped the type. For a root resolution that is
// after every injection point was assigned; for nested resolutions it runs
// before the root's injection points are flushed.
type Initializer interface {
	Initialize()
}

// Disposable is implemented by cached singletons holding resources released
// by Locator.Close.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// DisposableWithContext allows disposal with context for graceful shutdown.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// Close disposes the cached singletons in reverse creation order and marks
// the Locator closed. Later resolutions fail with ErrLocatorClosed.
// Instances of always-new types are owned by their callers and not disposed.
func (l *Locator) Close() error {
	return l.CloseContext(context.Background())
}

// CloseContext is Close passing ctx to DisposableWithContext singletons.
// A resolution still running when the Locator closes fails with
// ErrLocatorClosed, and the singletons it built are disposed.
func (l *Locator) CloseContext(ctx context.Context) error {
	if l == nil {
		return ErrLocatorNil
	}

	if !l.closed.CompareAndSwap(false, true) {
		return nil // Already closed
	}

	instances := l.cache.drain()
	errs := dispose(ctx, instances)

	l.options.logger.Debug("locator closed", "locator", l.id, "disposed", len(instances), "errors", len(errs))

	if len(errs) > 0 {
		return DisposalError{
			Context: "locator",
			Errors:  errs,
		}
	}

	return nil
}

// dispose closes instances in reverse order, collecting the failures.
func dispose(ctx context.Context, instances []any) []error {
	var errs []error

	for i := len(instances) - 1; i >= 0; i-- {
		var err error
		switch d := instances[i].(type) {
		case DisposableWithContext:
			err = d.Close(ctx)
		case Disposable:
			err = d.Close()
		default:
			continue
		}

		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", formatTypeOf(instances[i]), err))
		}
	}

	return errs
}
