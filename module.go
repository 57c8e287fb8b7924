package locator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Module is a named unit of type declarations, the catalog's source of
// known types. Requires names the modules whose types must be discoverable
// alongside this one; they are loaded through the Locator's ModuleLoader.
//
// Types may return a partial list together with an error; the catalog keeps
// the descriptors it was given and logs the error.
type Module interface {
	Name() string
	Requires() []string
	Types() ([]*TypeDescriptor, error)
}

// ModuleLoader loads a module by name on behalf of the catalog.
type ModuleLoader interface {
	LoadModule(name string) (Module, error)
}

// ModuleLoaderFunc adapts a function to a ModuleLoader.
type ModuleLoaderFunc func(name string) (Module, error)

// LoadModule calls f(name).
func (f ModuleLoaderFunc) LoadModule(name string) (Module, error) {
	return f(name)
}

// ModuleOption represents a declaration within a module.
type ModuleOption func(*moduleBuilder) error

type moduleBuilder struct {
	requires []string
	entries  []*moduleEntry
	index    map[reflect.Type]*moduleEntry
}

type moduleEntry struct {
	t            reflect.Type
	constructors []any
	opts         []DescribeOption
}

func (b *moduleBuilder) entry(t reflect.Type) *moduleEntry {
	if e, ok := b.index[t]; ok {
		return e
	}

	e := &moduleEntry{t: t}
	b.index[t] = e
	b.entries = append(b.entries, e)
	return e
}

// NewModule creates a module with the given name and declarations.
// Declarations of one type are merged; constructors keep their declaration
// order. A failing declaration does not discard the others: Types returns the
// valid descriptors together with a ModuleError.
//
// Example:
//
//	var StorageModule = locator.NewModule("storage",
//	    locator.Requires("config"),
//	    locator.Provide(NewDiskStore),
//	    locator.Provide(NewDiskStoreWithRoot),
//	    locator.Declare[*Metrics](locator.Transient()),
//	)
func NewModule(name string, opts ...ModuleOption) Module {
	b := &moduleBuilder{index: make(map[reflect.Type]*moduleEntry)}
	m := &module{name: name}

	var errs []error
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(b); err != nil {
			errs = append(errs, err)
		}
	}

	m.requires = b.requires
	for _, e := range b.entries {
		describeOpts := append([]DescribeOption{UseConstructor(e.constructors...)}, e.opts...)
		d, err := DescribeType(e.t, describeOpts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.types = append(m.types, d)
	}

	if len(errs) > 0 {
		m.err = ModuleError{Module: name, Cause: errors.Join(errs...)}
	}

	return m
}

// Requires declares modules whose types must be loaded with this one.
func Requires(names ...string) ModuleOption {
	return func(b *moduleBuilder) error {
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return RegistrationError{Operation: "require module", Cause: ErrModuleNameEmpty}
			}
			b.requires = append(b.requires, name)
		}
		return nil
	}
}

// Provide declares the type returned by constructor, with constructor as one
// of its public constructors.
//
// Example:
//
//	locator.Provide(NewUserService)
//	locator.Provide(NewCache, locator.Transient())
func Provide(constructor any, opts ...DescribeOption) ModuleOption {
	return func(b *moduleBuilder) error {
		if constructor == nil {
			return RegistrationError{Operation: "provide", Cause: ErrConstructorNil}
		}

		info, err := analyzer.AnalyzeConstructor(constructor)
		if err != nil {
			return RegistrationError{Operation: "provide", Cause: err}
		}

		if kind := kindOf(info.Out); kind != KindConcrete && kind != KindAbstract {
			return RegistrationError{
				Type:      info.Out,
				Operation: "provide",
				Cause:     InvalidTargetError{Type: info.Out},
			}
		}

		e := b.entry(info.Out)
		e.constructors = append(e.constructors, constructor)
		e.opts = append(e.opts, opts...)
		return nil
	}
}

// Declare declares T without an explicit constructor. A concrete T gets the
// implicit default constructor unless NoDefaultConstructor is passed.
//
// Example:
//
//	locator.Declare[*Clock]()
//	locator.Declare[*Request](locator.Transient())
func Declare[T any](opts ...DescribeOption) ModuleOption {
	return func(b *moduleBuilder) error {
		e := b.entry(reflect.TypeFor[T]())
		e.opts = append(e.opts, opts...)
		return nil
	}
}

type module struct {
	name     string
	requires []string
	types    []*TypeDescriptor
	err      error
}

func (m *module) Name() string {
	return m.name
}

func (m *module) Requires() []string {
	return append([]string(nil), m.requires...)
}

func (m *module) Types() ([]*TypeDescriptor, error) {
	return append([]*TypeDescriptor(nil), m.types...), m.err
}

func (m *module) String() string {
	return fmt.Sprintf("Module(%q)", m.name)
}

// registry holds modules registered process-wide, typically from init functions.
var registry = struct {
	mu      sync.RWMutex
	modules map[string]Module
	order   []string
}{modules: make(map[string]Module)}

// RegisterModule adds m to the process-wide registry, making it loadable by
// name through the default ModuleLoader and visible to WithRegisteredModules.
//
// Example:
//
//	func init() {
//	    locator.RegisterModule(StorageModule)
//	}
func RegisterModule(m Module) error {
	if m == nil {
		return RegistrationError{Operation: "register module", Cause: ErrModuleNil}
	}

	name := m.Name()
	if strings.TrimSpace(name) == "" {
		return RegistrationError{Operation: "register module", Cause: ErrModuleNameEmpty}
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.modules[name]; exists {
		return ModuleError{Module: name, Cause: ErrModuleAlreadyAdded}
	}

	registry.modules[name] = m
	registry.order = append(registry.order, name)
	return nil
}

// RegisteredModules returns the registered modules in registration order.
func RegisteredModules() []Module {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	modules := make([]Module, 0, len(registry.order))
	for _, name := range registry.order {
		modules = append(modules, registry.modules[name])
	}
	return modules
}

// RegistryLoader returns the ModuleLoader backed by the process-wide registry.
func RegistryLoader() ModuleLoader {
	return ModuleLoaderFunc(func(name string) (Module, error) {
		registry.mu.RLock()
		m, ok := registry.modules[name]
		registry.mu.RUnlock()

		if !ok {
			return nil, ModuleError{Module: name, Cause: ErrModuleNotFound}
		}
		return m, nil
	})
}
