// Package graph resolves resource dependency graphs into ordered execution
// phases. Nodes in the same phase have no dependency relationship and may be
// applied in parallel; phases are strictly sequenced.
package graph

import (
	"fmt"
	"strings"
)

// node wraps one registered path with its remaining unresolved dependencies.
// The dependency list shrinks as phases are peeled off during Resolve.
type node struct {
	path string
	deps map[string]struct{}
}

// Resolver computes dependency-respecting execution phases from a set of
// (path, dependency-list) pairs. Add every node first, then call Resolve.
// A Resolver is single-use per resolution pass but Resolve does not mutate the
// registered node set, so it may be called repeatedly.
type Resolver struct {
	// order preserves insertion order so phases come out deterministic.
	order []string
	nodes map[string]*node
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		nodes: make(map[string]*node),
	}
}

// AddNode registers a path and the paths it depends on. Cross-references are
// not validated here: a dependency on an unregistered path simply never
// resolves and surfaces as a circular-dependency failure.
// Re-adding a path replaces its dependency list.
func (r *Resolver) AddNode(path string, deps []string) {
	if _, exists := r.nodes[path]; !exists {
		r.order = append(r.order, path)
	}

	depSet := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		depSet[dep] = struct{}{}
	}
	r.nodes[path] = &node{path: path, deps: depSet}
}

// Len returns the number of registered nodes.
func (r *Resolver) Len() int {
	return len(r.nodes)
}

// Resolve computes the execution phases. Each phase holds paths with no
// remaining dependencies; phase i must complete before phase i+1 begins.
// With reverse set, the phase list is reversed for teardown ordering:
// dependents are visited before their dependencies.
//
// The only failure mode is a cycle: when a pass frees no node while nodes
// remain, Resolve fails with a *CircularDependencyError naming the stuck set.
func (r *Resolver) Resolve(reverse bool) ([][]string, error) {
	// Work on copies; the registered node set survives the resolution.
	remaining := make(map[string]map[string]struct{}, len(r.nodes))
	for path, n := range r.nodes {
		deps := make(map[string]struct{}, len(n.deps))
		for dep := range n.deps {
			deps[dep] = struct{}{}
		}
		remaining[path] = deps
	}

	pending := make([]string, len(r.order))
	copy(pending, r.order)

	var phases [][]string

	for len(pending) > 0 {
		var current []string
		var next []string

		for _, path := range pending {
			if len(remaining[path]) == 0 {
				current = append(current, path)
			} else {
				next = append(next, path)
			}
		}

		if len(current) == 0 {
			return nil, &CircularDependencyError{Nodes: next}
		}

		// Strip the resolved nodes out of every remaining dependency list.
		for _, path := range current {
			delete(remaining, path)
		}
		for _, path := range next {
			for _, done := range current {
				delete(remaining[path], done)
			}
		}

		phases = append(phases, current)
		pending = next
	}

	if reverse {
		for i, j := 0, len(phases)-1; i < j; i, j = i+1, j-1 {
			phases[i], phases[j] = phases[j], phases[i]
		}
	}

	return phases, nil
}

// ToDOT renders the resolved phases in Graphviz DOT format for visualization.
// Resolution failures surface as the returned error from Resolve.
func (r *Resolver) ToDOT() (string, error) {
	phases, err := r.Resolve(false)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("digraph DependencyGraph {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for i, phase := range phases {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_phase_%d {\n", i))
		sb.WriteString(fmt.Sprintf("    label=\"Phase %d\";\n", i))
		sb.WriteString("    style=dashed;\n")
		for _, path := range phase {
			sb.WriteString(fmt.Sprintf("    %q;\n", path))
		}
		sb.WriteString("  }\n\n")
	}

	for _, path := range r.order {
		for dep := range r.nodes[path].deps {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, path))
		}
	}

	sb.WriteString("}\n")
	return sb.String(), nil
}
