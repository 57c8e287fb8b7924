package locator

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/junioryono/locator/internal/reflection"
)

// catalog is the set of types known to a Locator, built once from its
// modules and everything they transitively require.
type catalog struct {
	// concrete, constructible types in module load order, then declaration order
	types []*TypeDescriptor

	// every declared descriptor, constructible or not
	declared map[reflect.Type]*TypeDescriptor

	modules []string

	implementationsCache sync.Map // map[reflect.Type][]reflect.Type
}

// buildCatalog loads modules breadth-first: the initial modules, then the
// modules named by Requires, each loaded at most once. Load failures and
// partial type enumeration are logged and never fatal.
func buildCatalog(initial []Module, names []string, loader ModuleLoader, logger *slog.Logger) *catalog {
	c := &catalog{declared: make(map[reflect.Type]*TypeDescriptor)}

	seen := make(map[string]bool)
	queue := make([]Module, 0, len(initial))

	enqueueModule := func(m Module) {
		if m == nil || seen[m.Name()] {
			return
		}
		seen[m.Name()] = true
		queue = append(queue, m)
	}

	load := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true

		if loader == nil {
			logger.Debug("no module loader configured", "module", name)
			return
		}

		m, err := loader.LoadModule(name)
		if err != nil {
			logger.Debug("failed to load module", "module", name, "error", err)
			return
		}
		if m == nil {
			logger.Debug("module loader returned nil", "module", name)
			return
		}

		// A loader may return a module under a different name
		if m.Name() != name && seen[m.Name()] {
			return
		}
		seen[m.Name()] = true
		queue = append(queue, m)
	}

	for _, m := range initial {
		enqueueModule(m)
	}
	for _, name := range names {
		load(name)
	}

	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		c.add(m, logger)

		for _, name := range m.Requires() {
			load(name)
		}
	}

	logger.Debug("catalog built", "modules", len(c.modules), "types", len(c.types), "declared", len(c.declared))

	return c
}

func (c *catalog) add(m Module, logger *slog.Logger) {
	c.modules = append(c.modules, m.Name())

	descriptors, err := m.Types()
	if err != nil {
		logger.Warn("module types partially enumerated", "module", m.Name(), "kept", len(descriptors), "error", err)
	}

	for _, d := range descriptors {
		if d == nil || d.Type == nil {
			continue
		}

		if _, exists := c.declared[d.Type]; exists {
			logger.Debug("duplicate type declaration ignored", "module", m.Name(), "type", d.Type.String())
			continue
		}

		c.declared[d.Type] = d
		if d.constructible() {
			c.types = append(c.types, d)
		}
	}
}

// lookup returns the declared descriptor of t.
func (c *catalog) lookup(t reflect.Type) (*TypeDescriptor, bool) {
	d, ok := c.declared[t]
	return d, ok
}

// implementations returns the catalog types serving parent, in catalog order:
// types implementing an interface parent, or strict subclasses of a class parent.
func (c *catalog) implementations(parent reflect.Type) []reflect.Type {
	if cached, ok := c.implementationsCache.Load(parent); ok {
		return cached.([]reflect.Type)
	}

	var result []reflect.Type
	switch reflection.Classify(parent) {
	case reflection.ShapeInterface:
		for _, d := range c.types {
			if d.Type.Implements(parent) {
				result = append(result, d.Type)
			}
		}
	case reflection.ShapeClass:
		for _, d := range c.types {
			if reflection.Embeds(d.Type, parent) {
				result = append(result, d.Type)
			}
		}
	}

	actual, _ := c.implementationsCache.LoadOrStore(parent, result)
	return actual.([]reflect.Type)
}

// typeList returns the concrete catalog types in order.
func (c *catalog) typeList() []reflect.Type {
	types := make([]reflect.Type, len(c.types))
	for i, d := range c.types {
		types[i] = d.Type
	}
	return types
}
