package blueprint

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/quarryhq/quarry/pkg/graph"
	"github.com/quarryhq/quarry/pkg/resource"
	"github.com/quarryhq/quarry/pkg/stores"
)

type noopProvider struct{}

func (noopProvider) Create(context.Context, *resource.Resource) error { return nil }
func (noopProvider) Delete(context.Context, *resource.Resource) error { return nil }

func newTestStore(t *testing.T) stores.Store {
	t.Helper()
	store, err := stores.NewSQLiteStore(stores.Config{Path: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func webDefinition(path string, deps ...string) *resource.Definition {
	return &resource.Definition{
		Path:    path,
		Version: resource.Version{Major: 1},
		Schema: resource.Schema{
			"size": {
				Name:     "size",
				Required: true,
				Choices:  []any{"small", "large"},
			},
		},
		Values:    map[string]any{"size": "small"},
		DependsOn: deps,
		Provider:  noopProvider{},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	def := webDefinition("myapp.web")

	if err := reg.Register(def); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(def); err == nil {
		t.Error("Expected duplicate registration to fail")
	}

	got, ok := reg.Get("myapp.web")
	if !ok || got != def {
		t.Errorf("Expected registered definition back, got %v (ok=%v)", got, ok)
	}
	if _, ok := reg.Get("ghost"); ok {
		t.Error("Expected lookup miss for unregistered path")
	}

	paths := reg.Paths()
	if len(paths) != 1 || paths[0] != "myapp.web" {
		t.Errorf("Unexpected paths: %v", paths)
	}
}

func TestBlueprint_New(t *testing.T) {
	store := newTestStore(t)

	bp, err := New(store, "myapp", []*resource.Definition{
		webDefinition("myapp.web"),
		webDefinition("myapp.db"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if bp.Len() != 2 {
		t.Errorf("Expected 2 resources, got %d", bp.Len())
	}

	if _, err := New(store, "myapp", []*resource.Definition{
		webDefinition("myapp.web"),
		webDefinition("myapp.web"),
	}); err == nil {
		t.Error("Expected duplicate path to fail")
	}
}

func TestBlueprint_NormalizePath(t *testing.T) {
	store := newTestStore(t)
	bp, err := New(store, "myapp", []*resource.Definition{webDefinition("myapp.web")})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := bp.NormalizePath("myapp.web"); got != "web" {
		t.Errorf("Expected web, got %s", got)
	}
	// Paths outside the namespace pass through.
	if got := bp.NormalizePath("other.web"); got != "other.web" {
		t.Errorf("Expected other.web, got %s", got)
	}
}

func TestBlueprint_VerifyAggregates(t *testing.T) {
	store := newTestStore(t)

	bad1 := webDefinition("myapp.web")
	bad1.Values = map[string]any{"size": "gigantic"}
	bad2 := webDefinition("myapp.db")
	bad2.Values = map[string]any{}

	bp, err := New(store, "myapp", []*resource.Definition{bad1, bad2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = bp.Verify(context.Background())
	var failure *VerifyFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected *VerifyFailure, got %v", err)
	}
	if len(failure.Failures) != 2 {
		t.Errorf("Expected 2 resource failures, got %d", len(failure.Failures))
	}
}

func TestBlueprint_VerifyCycle(t *testing.T) {
	store := newTestStore(t)

	bp, err := New(store, "myapp", []*resource.Definition{
		webDefinition("myapp.web", "myapp.db"),
		webDefinition("myapp.db", "myapp.web"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = bp.Verify(context.Background())
	var cycleErr *graph.CircularDependencyError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CircularDependencyError, got %v", err)
	}
}

func TestBlueprint_VerifyValueErrorsMaskCycle(t *testing.T) {
	store := newTestStore(t)

	bad := webDefinition("myapp.web", "myapp.db")
	bad.Values = map[string]any{}

	bp, err := New(store, "myapp", []*resource.Definition{
		bad,
		webDefinition("myapp.db", "myapp.web"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Attribute failures are reported before the graph is even resolved.
	err = bp.Verify(context.Background())
	var failure *VerifyFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected *VerifyFailure, got %v", err)
	}
}

func TestBlueprint_Graph(t *testing.T) {
	store := newTestStore(t)

	bp, err := New(store, "myapp", []*resource.Definition{
		webDefinition("myapp.web", "myapp.db"),
		webDefinition("myapp.db"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	phases, err := bp.Graph().Resolve(false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(phases) != 2 || phases[0][0] != "myapp.db" || phases[1][0] != "myapp.web" {
		t.Errorf("Unexpected phases: %v", phases)
	}
}

func TestLoadFromStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	def := webDefinition("myapp.web")
	if err := def.New(store).Create(ctx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reg := NewRegistry()
	if err := reg.Register(def); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	bp, err := LoadFromStore(ctx, store, "myapp", reg)
	if err != nil {
		t.Fatalf("LoadFromStore failed: %v", err)
	}
	if bp.Len() != 1 {
		t.Fatalf("Expected 1 resource, got %d", bp.Len())
	}
	if _, ok := bp.Resource("myapp.web"); !ok {
		t.Error("Expected myapp.web in the loaded blueprint")
	}
}

func TestLoadFromStore_UnknownResource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	def := webDefinition("myapp.web")
	if err := def.New(store).Create(ctx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Empty registry: the persisted path cannot be resolved.
	_, err := LoadFromStore(ctx, store, "myapp", NewRegistry())
	var unknownErr *UnknownResourceError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("Expected *UnknownResourceError, got %v", err)
	}
	if unknownErr.Path != "myapp.web" {
		t.Errorf("Expected path myapp.web, got %s", unknownErr.Path)
	}
}

func TestBlueprint_SaveSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bp, err := New(store, "myapp", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	bp.SetSource(map[string]string{
		"servers": "web = instance(...)",
	}, []string{"myapp"})

	if err := bp.SaveSource(ctx); err != nil {
		t.Fatalf("SaveSource failed: %v", err)
	}

	mods, err := store.ListBlueprintModules(ctx)
	if err != nil || len(mods) != 1 {
		t.Fatalf("Expected 1 persisted module, got %d (err %v)", len(mods), err)
	}

	// Saving again replaces, never accumulates.
	bp.SetSource(map[string]string{"network": "lb = loadbalancer(...)"}, nil)
	if err := bp.SaveSource(ctx); err != nil {
		t.Fatalf("SaveSource failed: %v", err)
	}
	mods, err = store.ListBlueprintModules(ctx)
	if err != nil || len(mods) != 1 || mods[0].Path != "network" {
		t.Fatalf("Expected only the new module, got %v (err %v)", mods, err)
	}
	pkgs, err := store.ListBlueprintPackages(ctx)
	if err != nil || len(pkgs) != 0 {
		t.Errorf("Expected packages replaced with none, got %v (err %v)", pkgs, err)
	}
}
