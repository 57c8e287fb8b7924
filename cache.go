package locator

import (
	"reflect"
	"sync"
)

// instanceCache holds at most one instance per concrete type.
// Entries are never replaced; the first published instance wins.
type instanceCache struct {
	instances sync.Map // map[reflect.Type]any

	mu     sync.Mutex
	order  []any // creation order, for disposal
	sealed bool
}

// newInstanceCache creates a new instance cache
func newInstanceCache() *instanceCache {
	return &instanceCache{}
}

// get retrieves an instance from the cache
func (c *instanceCache) get(t reflect.Type) (any, bool) {
	return c.instances.Load(t)
}

// publish stores the instances of a completed resolution in order, skipping
// types that already have one. It returns how many were stored, and false
// without storing anything once the cache has been drained.
func (c *instanceCache) publish(built []builtInstance) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return 0, false
	}

	stored := 0
	for _, b := range built {
		if _, loaded := c.instances.LoadOrStore(b.typ, b.instance); loaded {
			continue
		}
		c.order = append(c.order, b.instance)
		stored++
	}

	return stored, true
}

// len returns the number of cached instances
func (c *instanceCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// drain empties and seals the cache, returning its instances in creation order
func (c *instanceCache) drain() []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	instances := c.order
	c.order = nil
	c.sealed = true
	c.instances.Clear()

	return instances
}
