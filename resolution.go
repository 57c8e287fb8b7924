package locator

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/junioryono/locator/internal/graph"
)

// resolution tracks one root resolution call: the types under construction,
// the injection points waiting for the stack to unwind and the singletons
// built so far, which are published only once the root call succeeds.
type resolution struct {
	id string

	mu       sync.Mutex
	stack    []reflect.Type
	pending  []pendingInjection
	flushing bool
	built    []builtInstance
}

// builtInstance is a singleton constructed by a resolution and not yet published.
type builtInstance struct {
	typ      reflect.Type
	instance any
}

// pendingInjection is a property assignment deferred until the stack is empty.
type pendingInjection struct {
	owner    reflect.Value
	property *Property
}

// newResolution creates the state for a root resolution call
func newResolution() *resolution {
	return &resolution{
		id:    uuid.NewString(),
		stack: make([]reflect.Type, 0, 8),
	}
}

type resolutionKey struct{}

// resolutionValue binds a resolution to the Locator that owns it, so a
// context carried into another Locator starts a fresh resolution.
type resolutionValue struct {
	locator *Locator
	r       *resolution
}

func withResolution(ctx context.Context, l *Locator, r *resolution) context.Context {
	return context.WithValue(ctx, resolutionKey{}, resolutionValue{locator: l, r: r})
}

func resolutionFrom(ctx context.Context, l *Locator) (*resolution, bool) {
	v, ok := ctx.Value(resolutionKey{}).(resolutionValue)
	if !ok || v.locator != l {
		return nil, false
	}
	return v.r, true
}

// push marks t as under construction. A type already on the stack is a
// cycle: the error lists the stack oldest first and the stack is reset.
func (r *resolution) push(t reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.stack, t) {
		path := make([]graph.NodeKey, len(r.stack))
		for i, s := range r.stack {
			path[i] = graph.Key(s)
		}

		r.stack = r.stack[:0]
		r.pending = nil

		return CircularDependencyError{Node: graph.Key(t), Path: path}
	}

	r.stack = append(r.stack, t)
	return nil
}

// pop removes t from the top of the stack. It reports whether the stack is
// now empty and the caller must flush pending injections.
func (r *resolution) pop(t reflect.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.stack); n > 0 && r.stack[n-1] == t {
		r.stack = r.stack[:n-1]
	}

	if len(r.stack) > 0 || r.flushing || len(r.pending) == 0 {
		return false
	}

	r.flushing = true
	return true
}

// enqueue defers the assignment of property on owner.
func (r *resolution) enqueue(owner reflect.Value, property *Property) {
	r.mu.Lock()
	r.pending = append(r.pending, pendingInjection{owner: owner, property: property})
	r.mu.Unlock()
}

// take removes and returns the pending injections. When none remain the
// flush is over.
func (r *resolution) take() []pendingInjection {
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := r.pending
	r.pending = nil
	if len(batch) == 0 {
		r.flushing = false
	}
	return batch
}

// record keeps instance as the singleton of t for the rest of the resolution.
func (r *resolution) record(t reflect.Type, instance any) {
	r.mu.Lock()
	r.built = append(r.built, builtInstance{typ: t, instance: instance})
	r.mu.Unlock()
}

// instance returns the singleton of t built by this resolution.
func (r *resolution) instance(t reflect.Type) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.built {
		if b.typ == t {
			return b.instance, true
		}
	}
	return nil, false
}

// settled reports whether the root call has finished constructing and
// injecting, so the built singletons can be published.
func (r *resolution) settled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack) == 0 && !r.flushing
}

// takeBuilt removes and returns the built singletons in creation order.
func (r *resolution) takeBuilt() []builtInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	built := r.built
	r.built = nil
	return built
}

// depth returns the number of types under construction.
func (r *resolution) depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack)
}

// unwind discards the stack above depth, after a failure. At depth zero the
// pending injections and the unpublished singletons are dropped too.
func (r *resolution) unwind(depth int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if depth < len(r.stack) {
		r.stack = r.stack[:depth]
	}

	if depth == 0 {
		r.pending = nil
		r.flushing = false
		r.built = nil
	}
}
