package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/junioryono/locator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moduleSeq atomic.Int64

// LocatorBuilder provides a fluent interface for building test locators
type LocatorBuilder struct {
	t       *testing.T
	modules []locator.Module
	opts    []locator.Option
}

// NewLocatorBuilder creates a new LocatorBuilder
func NewLocatorBuilder(t *testing.T) *LocatorBuilder {
	return &LocatorBuilder{t: t}
}

// WithModule adds a module built from the declarations. The module must be
// free of declaration errors.
func (b *LocatorBuilder) WithModule(name string, opts ...locator.ModuleOption) *LocatorBuilder {
	m := locator.NewModule(name, opts...)
	_, err := m.Types()
	require.NoError(b.t, err, "module %q", name)

	b.modules = append(b.modules, m)
	return b
}

// WithModules adds existing modules
func (b *LocatorBuilder) WithModules(modules ...locator.Module) *LocatorBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// WithTypes adds an anonymous module with the declarations
func (b *LocatorBuilder) WithTypes(opts ...locator.ModuleOption) *LocatorBuilder {
	return b.WithModule(UniqueName(b.t, "types"), opts...)
}

// WithOptions adds locator options
func (b *LocatorBuilder) WithOptions(opts ...locator.Option) *LocatorBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// Build creates the locator and closes it when the test ends
func (b *LocatorBuilder) Build() *locator.Locator {
	opts := append([]locator.Option{locator.WithModules(b.modules...)}, b.opts...)
	l := locator.New(opts...)

	b.t.Cleanup(func() {
		assert.NoError(b.t, l.Close())
	})

	return l
}

// UniqueName returns a module name unique to the test process, for modules
// placed in the process-wide registry.
func UniqueName(t *testing.T, prefix string) string {
	return fmt.Sprintf("%s/%s#%d", t.Name(), prefix, moduleSeq.Add(1))
}
