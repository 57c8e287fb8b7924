package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError represents a circular dependency between types.
// Path lists the types in construction order, oldest first; Node is the
// type that was requested again.
type CircularDependencyError struct {
	Node NodeKey
	Path []NodeKey
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for _, node := range e.Path {
		b.WriteString(fmt.Sprintf("    %s\n", node.String()))
		b.WriteString("      ↓\n")
	}
	b.WriteString(fmt.Sprintf("    %s (cycle)\n", e.Node.String()))

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Move one of the dependencies to an `inject` field so it is assigned after construction\n")
	b.WriteString("  • Use an interface to break the dependency\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}

// Cycle returns the portion of Path that forms the cycle, starting at the
// first occurrence of Node.
func (e CircularDependencyError) Cycle() []NodeKey {
	for i, node := range e.Path {
		if node == e.Node {
			return append([]NodeKey(nil), e.Path[i:]...)
		}
	}
	return nil
}
