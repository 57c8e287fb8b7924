package locator

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/junioryono/locator/internal/reflection"
)

var locatorType = reflect.TypeFor[*Locator]()

// Locator resolves fully constructed instances by type. Types are discovered
// from its modules; concrete types are singletons unless marked always-new.
//
// A Locator is safe for concurrent use. Each root call to Resolve owns its
// own resolution stack, so unrelated goroutines never observe each other's
// in-flight constructions.
type Locator struct {
	id      string
	options *options

	catalog func() *catalog
	cache   *instanceCache

	// descriptors of classes resolved without a declaration
	undeclared sync.Map // map[reflect.Type]*TypeDescriptor

	closed atomic.Bool
}

// New creates a Locator. The catalog is built on first use.
//
// Example:
//
//	l := locator.New(locator.WithModules(StorageModule, APIModule))
//	defer l.Close()
//
//	api, err := locator.Resolve[*API](l)
func New(opts ...Option) *Locator {
	o := &options{
		loader: RegistryLoader(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	l := &Locator{
		id:      uuid.NewString(),
		options: o,
		cache:   newInstanceCache(),
	}

	l.catalog = sync.OnceValue(func() *catalog {
		modules := o.modules
		if o.registered {
			modules = append(RegisteredModules(), modules...)
		}
		return buildCatalog(modules, o.moduleNames, o.loader, o.logger.With("locator", l.id))
	})

	return l
}

// ID returns the unique identifier of the Locator.
func (l *Locator) ID() string {
	return l.id
}

// Types returns the concrete types of the catalog in catalog order.
func (l *Locator) Types() []reflect.Type {
	return l.catalog().typeList()
}

// Modules returns the names of the modules loaded into the catalog, in load order.
func (l *Locator) Modules() []string {
	return append([]string(nil), l.catalog().modules...)
}

// Resolve returns a fully constructed instance of t.
func (l *Locator) Resolve(t reflect.Type) (any, error) {
	return l.ResolveContext(context.Background(), t)
}

// ResolveAll returns one instance per catalog type implementing the
// interface t, or per strict subclass of the class t.
func (l *Locator) ResolveAll(t reflect.Type) ([]any, error) {
	return l.ResolveAllContext(context.Background(), t)
}

// ResolveContext is Resolve carrying ctx. A constructor that takes a
// context.Context receives one bound to the resolution in progress; passing
// it back to ResolveContext joins that resolution instead of starting a new
// one, so cycles through the nested call are detected.
func (l *Locator) ResolveContext(ctx context.Context, t reflect.Type) (any, error) {
	if l == nil {
		return nil, ErrLocatorNil
	}

	return l.run(ctx, t, func(ctx context.Context, r *resolution) (any, error) {
		return l.resolve(ctx, r, t)
	})
}

// ResolveAllContext is ResolveAll carrying ctx. See ResolveContext.
func (l *Locator) ResolveAllContext(ctx context.Context, t reflect.Type) ([]any, error) {
	if l == nil {
		return nil, ErrLocatorNil
	}

	result, err := l.run(ctx, t, func(ctx context.Context, r *resolution) (any, error) {
		return l.resolveAll(ctx, r, t)
	})
	if err != nil {
		return nil, err
	}

	return result.([]any), nil
}

// run starts or joins a resolution, unwinding it on failure and reporting
// the outcome to the configured callbacks.
func (l *Locator) run(ctx context.Context, t reflect.Type, fn func(context.Context, *resolution) (any, error)) (any, error) {
	if l.closed.Load() {
		return nil, ErrLocatorClosed
	}

	if t == nil {
		return nil, ErrTypeNil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	r, joined := resolutionFrom(ctx, l)
	if !joined {
		r = newResolution()
		ctx = withResolution(ctx, l, r)
	}

	start := time.Now()
	depth := r.depth()

	result, err := fn(ctx, r)
	if err != nil {
		r.unwind(depth)
		l.options.logger.Debug("resolution failed", "type", t.String(), "resolution", r.id, "error", err)
		if l.options.onError != nil {
			l.options.onError(t, err)
		}
		return nil, err
	}

	if l.options.onResolved != nil {
		l.options.onResolved(t, result, time.Since(start))
	}

	return result, nil
}

// resolve implements the resolution of a single type.
func (l *Locator) resolve(ctx context.Context, r *resolution, t reflect.Type) (any, error) {
	if t == nil {
		return nil, ErrTypeNil
	}

	if t == locatorType {
		return l, nil
	}

	switch reflection.Classify(t) {
	case reflection.ShapeValue:
		return reflect.Zero(t).Interface(), nil
	case reflection.ShapeInterface:
		return l.resolveSingle(ctx, r, t)
	case reflection.ShapeClass:
	default:
		return nil, InvalidTargetError{Type: t}
	}

	d := l.describe(t)
	switch d.Kind {
	case KindAbstract, KindInterface:
		return l.resolveSingle(ctx, r, t)
	case KindConcrete:
	default:
		return nil, InvalidTargetError{Type: t}
	}

	if !d.AlwaysNew {
		if instance, ok := r.instance(t); ok {
			return instance, nil
		}
		if instance, ok := l.cache.get(t); ok {
			return instance, nil
		}
	}

	if err := r.push(t); err != nil {
		return nil, err
	}

	ctor := selectConstructor(d.Constructors)
	if ctor == nil {
		return nil, NoPublicConstructorError{Type: t}
	}

	for _, p := range d.Properties {
		if !p.Settable {
			return nil, InvalidOperationError{Type: t, Property: p.Name, Reason: "field is not exported"}
		}
	}

	args, err := l.resolveArguments(ctx, r, t, ctor)
	if err != nil {
		return nil, err
	}

	instance, err := l.invoke(t, ctor, args)
	if err != nil {
		return nil, err
	}

	if !d.AlwaysNew {
		r.record(t, instance)
	}

	owner := reflect.ValueOf(instance)
	for _, p := range d.Properties {
		r.enqueue(owner, p)
	}

	if r.pop(t) {
		if err := l.flush(ctx, r); err != nil {
			return nil, err
		}
	}

	if initializer, ok := instance.(Initializer); ok {
		initializer.Initialize()
	}

	if r.settled() {
		if err := l.publish(ctx, r); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// publish moves the singletons built by r into the shared cache. A race
// loser keeps the instance it built. When the Locator closed in the
// meantime nothing is cached: the instances are disposed and the
// resolution fails.
func (l *Locator) publish(ctx context.Context, r *resolution) error {
	built := r.takeBuilt()
	if len(built) == 0 {
		return nil
	}

	stored, ok := l.cache.publish(built)
	if !ok {
		instances := make([]any, len(built))
		for i, b := range built {
			instances[i] = b.instance
		}
		errs := dispose(ctx, instances)
		l.options.logger.Debug("locator closed during resolution", "resolution", r.id, "disposed", len(instances), "errors", len(errs))
		return ErrLocatorClosed
	}

	l.options.logger.Debug("singletons published", "resolution", r.id, "published", stored, "already cached", len(built)-stored)
	return nil
}

// resolveSingle resolves the only implementation of an interface or abstract
// class. Candidates are counted before anything is built, so an ambiguous
// target reports AmbiguousImplementationError even when building one of the
// candidates would have failed, and unused implementations are never
// constructed.
func (l *Locator) resolveSingle(ctx context.Context, r *resolution, t reflect.Type) (any, error) {
	candidates, err := l.candidates(t)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return nil, NoImplementationError{Type: t}
	case 1:
		return l.resolve(ctx, r, candidates[0])
	default:
		return nil, AmbiguousImplementationError{Type: t, Candidates: candidates}
	}
}

// resolveAll resolves every candidate of parent in catalog order.
func (l *Locator) resolveAll(ctx context.Context, r *resolution, parent reflect.Type) ([]any, error) {
	candidates, err := l.candidates(parent)
	if err != nil {
		return nil, err
	}

	instances := make([]any, 0, len(candidates))
	for _, c := range candidates {
		instance, err := l.resolve(ctx, r, c)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}

	return instances, nil
}

// candidates returns the catalog types serving parent. A class without
// subclasses is its own candidate when it can be constructed.
func (l *Locator) candidates(parent reflect.Type) ([]reflect.Type, error) {
	shape := reflection.Classify(parent)
	if shape != reflection.ShapeInterface && shape != reflection.ShapeClass {
		return nil, InvalidTargetError{Type: parent}
	}

	implementations := l.catalog().implementations(parent)
	if len(implementations) > 0 || shape == reflection.ShapeInterface {
		return implementations, nil
	}

	if d := l.describe(parent); d.constructible() {
		return []reflect.Type{parent}, nil
	}

	return nil, nil
}

// describe returns the declared descriptor of a class, or describes it on
// the fly with the implicit default constructor.
func (l *Locator) describe(t reflect.Type) *TypeDescriptor {
	if d, ok := l.catalog().lookup(t); ok {
		return d
	}

	if cached, ok := l.undeclared.Load(t); ok {
		return cached.(*TypeDescriptor)
	}

	d, err := DescribeType(t)
	if err != nil {
		// Unreachable for class types described without constructors
		d = &TypeDescriptor{Type: t, Kind: KindInvalid}
	}

	actual, _ := l.undeclared.LoadOrStore(t, d)
	return actual.(*TypeDescriptor)
}

// resolveArguments resolves the parameters of ctor in declaration order.
func (l *Locator) resolveArguments(ctx context.Context, r *resolution, t reflect.Type, ctor *Constructor) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(ctor.Params))

	for i, param := range ctor.Params {
		switch {
		case reflection.IsContext(param):
			args[i] = reflect.ValueOf(&ctx).Elem()
			continue
		case param == locatorType:
			args[i] = reflect.ValueOf(l)
			continue
		}

		switch reflection.Classify(param) {
		case reflection.ShapeSlice:
			items, err := l.resolveAll(ctx, r, param.Elem())
			if err != nil {
				return nil, err
			}

			slice := reflect.MakeSlice(param, 0, len(items))
			for _, item := range items {
				v, err := assignable(item, param.Elem())
				if err != nil {
					return nil, err
				}
				slice = reflect.Append(slice, v)
			}
			args[i] = slice

		case reflection.ShapeCollection:
			return nil, UnsupportedParameterShapeError{Type: t, Parameter: param, Index: i}

		default:
			instance, err := l.resolve(ctx, r, param)
			if err != nil {
				return nil, err
			}
			v, err := assignable(instance, param)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
	}

	return args, nil
}

// invoke calls ctor, converting a returned error, a panic or a nil result
// into a typed error.
func (l *Locator) invoke(t reflect.Type, ctor *Constructor, args []reflect.Value) (instance any, err error) {
	if ctor.Implicit {
		return reflect.New(t.Elem()).Interface(), nil
	}

	if !ctor.Func.IsValid() {
		return nil, ConstructorError{Type: t, Cause: ErrConstructorNil}
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = ConstructorPanicError{
				Type:        t,
				Constructor: ctor.Func.Type(),
				Panic:       rec,
				Stack:       debug.Stack(),
			}
		}
	}()

	results := ctor.Func.Call(args)

	if ctor.ReturnsError && len(results) > 1 && !results[1].IsNil() {
		return nil, ConstructorError{Type: t, Cause: results[1].Interface().(error)}
	}

	if len(results) == 0 {
		return nil, ConstructorError{Type: t, Cause: ErrNilInstance}
	}

	result := results[0]
	if result.Type() != t {
		return nil, ConstructorError{
			Type:  t,
			Cause: TypeMismatchError{Expected: t, Actual: result.Type(), Context: "constructor result"},
		}
	}

	if result.IsNil() {
		return nil, ConstructorError{Type: t, Cause: ErrNilInstance}
	}

	return result.Interface(), nil
}

// flush assigns the pending injection points, draining injections queued
// while flushing as well.
func (l *Locator) flush(ctx context.Context, r *resolution) error {
	for {
		batch := r.take()
		if len(batch) == 0 {
			return nil
		}

		for _, p := range batch {
			value, err := l.resolve(ctx, r, p.property.Type)
			if err != nil {
				r.unwind(0)
				return err
			}

			field := p.owner.Elem().FieldByIndex(p.property.Index)
			if !field.CanSet() {
				r.unwind(0)
				return InvalidOperationError{
					Type:     p.owner.Type(),
					Property: p.property.Name,
					Reason:   "field cannot be set",
				}
			}

			v, err := assignable(value, field.Type())
			if err != nil {
				r.unwind(0)
				return err
			}
			field.Set(v)
		}
	}
}

// assignable returns instance as a reflect.Value assignable to t, the zero
// value for nil. A subclass requested as one of its base classes is passed
// as its embedded base.
func assignable(instance any, t reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(instance)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	if base, ok := reflection.Upcast(v, t); ok {
		return base, nil
	}

	return reflect.Value{}, TypeMismatchError{Expected: t, Actual: v.Type(), Context: "base class view"}
}

// String returns a short description of the Locator.
func (l *Locator) String() string {
	return fmt.Sprintf("Locator{id:%s, cached:%d}", l.id, l.cache.len())
}
