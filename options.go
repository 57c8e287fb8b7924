package locator

import (
	"log/slog"
	"reflect"
	"time"
)

// Option configures a Locator.
type Option func(*options)

type options struct {
	modules     []Module
	moduleNames []string
	registered  bool
	loader      ModuleLoader
	logger      *slog.Logger

	// OnResolved is called after a successful root or joined resolution
	onResolved func(t reflect.Type, instance any, duration time.Duration)

	// OnError is called when resolution fails
	onError func(t reflect.Type, err error)
}

// WithModules adds modules to the catalog. Modules they require are loaded
// through the ModuleLoader.
func WithModules(modules ...Module) Option {
	return func(o *options) {
		o.modules = append(o.modules, modules...)
	}
}

// WithModuleNames adds modules to the catalog by name, loaded through the
// ModuleLoader. Names that fail to load are skipped.
func WithModuleNames(names ...string) Option {
	return func(o *options) {
		o.moduleNames = append(o.moduleNames, names...)
	}
}

// WithRegisteredModules adds every module registered with RegisterModule at
// the time the catalog is built.
func WithRegisteredModules() Option {
	return func(o *options) {
		o.registered = true
	}
}

// WithLoader sets the ModuleLoader used for required modules and
// WithModuleNames. The default reads the RegisterModule registry.
func WithLoader(loader ModuleLoader) Option {
	return func(o *options) {
		if loader != nil {
			o.loader = loader
		}
	}
}

// WithLogger sets the logger for catalog and resolution records.
// If nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOnResolved sets a callback invoked after each successful Resolve or
// ResolveAll call with the requested type, its result and the elapsed time.
func WithOnResolved(fn func(t reflect.Type, instance any, duration time.Duration)) Option {
	return func(o *options) {
		o.onResolved = fn
	}
}

// WithOnError sets a callback invoked when a Resolve or ResolveAll call fails.
func WithOnError(fn func(t reflect.Type, err error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}
