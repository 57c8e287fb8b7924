package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format
func (v *Visualizer) WriteDOT(w io.Writer) error {
	nodes := v.graph.Nodes()

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	// Write nodes with labels
	nodeIDs := make(map[NodeKey]string, len(nodes))
	for i, node := range nodes {
		nodeID := fmt.Sprintf("n%d", i)
		nodeIDs[node.Key] = nodeID

		fmt.Fprintf(&b, "  %s [label=\"%s\", fillcolor=\"%s\", style=filled];\n",
			nodeID, v.formatNodeLabel(node), v.getNodeColor(node))
	}

	// Write edges
	for _, node := range nodes {
		for _, dep := range node.Dependencies {
			fmt.Fprintf(&b, "  %s -> %s;\n", nodeIDs[node.Key], nodeIDs[dep])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes a text representation of the graph, dependencies first
func (v *Visualizer) WriteText(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	sorted, err := v.graph.TopologicalSort()
	if err != nil {
		fmt.Fprintf(&b, "Warning: Graph contains cycles - %v\n", firstLine(err.Error()))
		// Fall back to insertion order
		sorted = v.graph.Nodes()
	}

	for _, node := range sorted {
		v.writeNodeDetails(&b, node, "  ")
	}

	b.WriteString("\n")
	v.writeStatistics(&b, err == nil)

	_, werr := io.WriteString(w, b.String())
	return werr
}

// formatNodeLabel creates a label for a node
func (v *Visualizer) formatNodeLabel(node *Node) string {
	typeStr := strings.ReplaceAll(node.Key.String(), `"`, `\"`)

	return fmt.Sprintf("%s\\nDeps:%d Dependents:%d",
		typeStr, len(node.Dependencies), len(node.Dependents))
}

// getNodeColor determines the color for a node based on its properties
func (v *Visualizer) getNodeColor(node *Node) string {
	if !node.Declared {
		return "lightgray"
	}

	if len(node.Dependencies) == 0 {
		return "lightgreen"
	}

	return "lightblue"
}

// writeNodeDetails writes detailed information about a node
func (v *Visualizer) writeNodeDetails(b *strings.Builder, node *Node, indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, node.Key.String())

	if !node.Declared {
		fmt.Fprintf(b, "%s  (not declared)\n", indent)
	}

	if len(node.Dependencies) > 0 {
		fmt.Fprintf(b, "%s  Dependencies: [%s]\n", indent, joinKeys(node.Dependencies))
	}

	if len(node.Dependents) > 0 {
		fmt.Fprintf(b, "%s  Dependents: [%s]\n", indent, joinKeys(node.Dependents))
	}
}

// writeStatistics writes graph statistics
func (v *Visualizer) writeStatistics(b *strings.Builder, acyclic bool) {
	nodes := v.graph.Nodes()

	edges := 0
	for _, node := range nodes {
		edges += len(node.Dependencies)
	}

	b.WriteString("Statistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(b, "  Total nodes: %d\n", len(nodes))
	fmt.Fprintf(b, "  Total edges: %d\n", edges)

	if acyclic {
		b.WriteString("  Cycles: None (graph is acyclic)\n")
	} else {
		b.WriteString("  Cycles: DETECTED (graph contains circular dependencies)\n")
	}
}

func joinKeys(keys []NodeKey) string {
	strs := make([]string, len(keys))
	for i, key := range keys {
		strs[i] = key.String()
	}
	return strings.Join(strs, ", ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
