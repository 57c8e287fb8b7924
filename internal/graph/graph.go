package graph

import (
	"fmt"
	"reflect"
	"sync"
)

// DependencyGraph manages the dependency relationships between types.
// It provides cycle detection, topological sorting, and dependency analysis.
// Nodes are kept in insertion order so every traversal is deterministic.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[NodeKey]*Node
	order []NodeKey
}

// NodeKey uniquely identifies a node in the graph
type NodeKey struct {
	Type reflect.Type
}

// Node represents a type in the dependency graph
type Node struct {
	Key NodeKey

	// Declared is false for nodes only known as somebody's dependency
	Declared bool

	Dependencies []NodeKey // types this node depends on
	Dependents   []NodeKey // types that depend on this node
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[NodeKey]*Node),
	}
}

// Key returns the NodeKey for t.
func Key(t reflect.Type) NodeKey {
	return NodeKey{Type: t}
}

// AddNode declares t with the given dependencies. Declaring the same type
// again replaces its dependencies. Dependencies that were never declared are
// added as placeholder nodes.
func (g *DependencyGraph) AddNode(t reflect.Type, deps []reflect.Type) error {
	if t == nil {
		return fmt.Errorf("node type cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.ensure(Key(t))
	node.Declared = true

	// Clear existing edges for this node (in case of replacement)
	for _, dep := range node.Dependencies {
		g.nodes[dep].Dependents = remove(g.nodes[dep].Dependents, node.Key)
	}
	node.Dependencies = make([]NodeKey, 0, len(deps))

	for _, dep := range deps {
		if dep == nil {
			continue
		}

		depKey := Key(dep)
		if contains(node.Dependencies, depKey) {
			continue
		}

		depNode := g.ensure(depKey)
		node.Dependencies = append(node.Dependencies, depKey)
		depNode.Dependents = append(depNode.Dependents, node.Key)
	}

	return nil
}

func (g *DependencyGraph) ensure(key NodeKey) *Node {
	node, exists := g.nodes[key]
	if !exists {
		node = &Node{
			Key:          key,
			Dependencies: make([]NodeKey, 0),
			Dependents:   make([]NodeKey, 0),
		}
		g.nodes[key] = node
		g.order = append(g.order, key)
	}
	return node
}

// TopologicalSort returns nodes in dependency order (dependencies first)
func (g *DependencyGraph) TopologicalSort() ([]*Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// Kahn's algorithm over the number of unprocessed dependencies
	remaining := make(map[NodeKey]int, len(g.nodes))
	queue := make([]NodeKey, 0)
	for _, key := range g.order {
		remaining[key] = len(g.nodes[key].Dependencies)
		if remaining[key] == 0 {
			queue = append(queue, key)
		}
	}

	result := make([]*Node, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node := g.nodes[current]
		result = append(result, node)

		for _, dependent := range node.Dependents {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		if err := g.detectCycles(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("circular dependency detected: graph contains %d nodes but only %d could be sorted",
			len(g.nodes), len(result))
	}

	return result, nil
}

// DetectCycles checks if the graph contains any cycles and reports the first
// one found, walking nodes in insertion order.
func (g *DependencyGraph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.detectCycles()
}

func (g *DependencyGraph) detectCycles() error {
	visited := make(map[NodeKey]bool, len(g.nodes))
	onPath := make(map[NodeKey]bool)
	path := make([]NodeKey, 0)

	var visit func(key NodeKey) error
	visit = func(key NodeKey) error {
		if onPath[key] {
			return CircularDependencyError{
				Node: key,
				Path: append([]NodeKey(nil), path[indexOf(path, key):]...),
			}
		}

		if visited[key] {
			return nil
		}

		onPath[key] = true
		path = append(path, key)

		for _, dep := range g.nodes[key].Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		onPath[key] = false
		visited[key] = true
		return nil
	}

	for _, key := range g.order {
		if err := visit(key); err != nil {
			return err
		}
	}

	return nil
}

// Nodes returns all nodes in insertion order
func (g *DependencyGraph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]*Node, 0, len(g.order))
	for _, key := range g.order {
		nodes = append(nodes, g.nodes[key])
	}
	return nodes
}

// String returns a string representation of the node key
func (k NodeKey) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	return k.Type.String()
}

// String returns a string representation of the node
func (n *Node) String() string {
	return fmt.Sprintf("Node{%s, deps:%d, dependents:%d}",
		n.Key.String(), len(n.Dependencies), len(n.Dependents))
}

func contains(keys []NodeKey, key NodeKey) bool {
	return indexOf(keys, key) >= 0
}

func indexOf(keys []NodeKey, key NodeKey) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

func remove(keys []NodeKey, key NodeKey) []NodeKey {
	filtered := keys[:0]
	for _, k := range keys {
		if k != key {
			filtered = append(filtered, k)
		}
	}
	return filtered
}
