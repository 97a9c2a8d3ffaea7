package graph

import (
	"errors"
	"strings"
	"testing"
)

func TestResolver_NoDependencies(t *testing.T) {
	r := NewResolver()
	r.AddNode("a", nil)
	r.AddNode("b", nil)
	r.AddNode("c", nil)

	phases, err := r.Resolve(false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(phases) != 1 {
		t.Fatalf("Expected 1 phase, got %d", len(phases))
	}
	if len(phases[0]) != 3 {
		t.Errorf("Expected 3 nodes in phase 0, got %d", len(phases[0]))
	}
}

func TestResolver_LinearChain(t *testing.T) {
	// a depends on b, b depends on c.
	r := NewResolver()
	r.AddNode("a", []string{"b"})
	r.AddNode("b", []string{"c"})
	r.AddNode("c", nil)

	phases, err := r.Resolve(false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(phases) != 3 {
		t.Fatalf("Expected 3 phases, got %d", len(phases))
	}
	expected := []string{"c", "b", "a"}
	for i, path := range expected {
		if len(phases[i]) != 1 || phases[i][0] != path {
			t.Errorf("Phase %d: expected [%s], got %v", i, path, phases[i])
		}
	}
}

func TestResolver_LinearChain_Reversed(t *testing.T) {
	r := NewResolver()
	r.AddNode("a", []string{"b"})
	r.AddNode("b", []string{"c"})
	r.AddNode("c", nil)

	phases, err := r.Resolve(true)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"a", "b", "c"}
	for i, path := range expected {
		if len(phases[i]) != 1 || phases[i][0] != path {
			t.Errorf("Phase %d: expected [%s], got %v", i, path, phases[i])
		}
	}
}

func TestResolver_Diamond(t *testing.T) {
	// d depends on b and c; b and c both depend on a.
	r := NewResolver()
	r.AddNode("a", nil)
	r.AddNode("b", []string{"a"})
	r.AddNode("c", []string{"a"})
	r.AddNode("d", []string{"b", "c"})

	phases, err := r.Resolve(false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(phases) != 3 {
		t.Fatalf("Expected 3 phases, got %d", len(phases))
	}
	if len(phases[1]) != 2 {
		t.Errorf("Expected b and c in the middle phase, got %v", phases[1])
	}
}

func TestResolver_Cycle(t *testing.T) {
	r := NewResolver()
	r.AddNode("a", []string{"b"})
	r.AddNode("b", []string{"a"})

	_, err := r.Resolve(false)
	if err == nil {
		t.Fatal("Expected circular dependency error, got nil")
	}

	var cycleErr *CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CircularDependencyError, got %T", err)
	}

	if len(cycleErr.Nodes) != 2 {
		t.Fatalf("Expected 2 stuck nodes, got %d", len(cycleErr.Nodes))
	}
	stuck := map[string]bool{cycleErr.Nodes[0]: true, cycleErr.Nodes[1]: true}
	if !stuck["a"] || !stuck["b"] {
		t.Errorf("Expected stuck set {a, b}, got %v", cycleErr.Nodes)
	}
}

func TestResolver_PartialCycle(t *testing.T) {
	// c resolves; a and b are stuck in a cycle.
	r := NewResolver()
	r.AddNode("a", []string{"b"})
	r.AddNode("b", []string{"a"})
	r.AddNode("c", nil)

	_, err := r.Resolve(false)
	var cycleErr *CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CircularDependencyError, got %v", err)
	}
	if len(cycleErr.Nodes) != 2 {
		t.Errorf("Expected 2 stuck nodes, got %v", cycleErr.Nodes)
	}
}

func TestResolver_UnknownDependency(t *testing.T) {
	// A dependency on an unregistered path can never resolve.
	r := NewResolver()
	r.AddNode("a", []string{"ghost"})

	_, err := r.Resolve(false)
	var cycleErr *CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CircularDependencyError, got %v", err)
	}
}

func TestResolver_Empty(t *testing.T) {
	r := NewResolver()
	phases, err := r.Resolve(false)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(phases) != 0 {
		t.Errorf("Expected 0 phases, got %d", len(phases))
	}
}

func TestResolver_ResolveTwice(t *testing.T) {
	// Resolve must not consume the registered node set.
	r := NewResolver()
	r.AddNode("a", []string{"b"})
	r.AddNode("b", nil)

	if _, err := r.Resolve(false); err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}
	phases, err := r.Resolve(false)
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if len(phases) != 2 {
		t.Errorf("Expected 2 phases on second resolve, got %d", len(phases))
	}
}

func TestResolver_ToDOT(t *testing.T) {
	r := NewResolver()
	r.AddNode("a", []string{"b"})
	r.AddNode("b", nil)

	dot, err := r.ToDOT()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, want := range []string{"digraph DependencyGraph", "cluster_phase_0", `"b" -> "a"`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}
