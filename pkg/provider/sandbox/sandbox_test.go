package sandbox

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/quarryhq/quarry/pkg/resource"
	"github.com/quarryhq/quarry/pkg/stores"
)

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

func TestSandbox_CreateAssignsDynamicIDs(t *testing.T) {
	sbx := New()
	store := newTestStore(t)
	ctx := context.Background()

	r := InstanceDefinition(sbx, "demo.web").New(store)
	if err := r.Create(ctx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !sbx.Exists("demo.web") {
		t.Fatal("Expected the instance to exist in the sandbox")
	}
	id, err := r.Get("instance_id")
	if err != nil || id == nil {
		t.Errorf("Expected a generated instance_id, got %v (err %v)", id, err)
	}
}

func TestSandbox_DeleteIsIdempotent(t *testing.T) {
	sbx := New()
	store := newTestStore(t)
	ctx := context.Background()

	def := InstanceDefinition(sbx, "demo.web")
	r := def.New(store)
	if err := r.Create(ctx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := r.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if sbx.Exists("demo.web") {
		t.Error("Expected the instance to be gone")
	}

	// Deleting an already-absent resource fails only at the store layer.
	err := def.New(store).Delete(ctx)
	if err == nil {
		t.Fatal("Expected the second delete to fail at the store")
	}
	if !errors.Is(err, stores.ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound underneath, got: %v", err)
	}
}

func TestSandbox_FailureInjection(t *testing.T) {
	sbx := New()
	store := newTestStore(t)
	ctx := context.Background()

	sbx.FailCreate("demo.web", errors.New("capacity exhausted"))
	if err := InstanceDefinition(sbx, "demo.web").New(store).Create(ctx); err == nil {
		t.Fatal("Expected injected create failure")
	}
	if sbx.Exists("demo.web") {
		t.Error("Expected no resource after failed create")
	}
}

func TestSandbox_ModifyHandlers(t *testing.T) {
	sbx := New()
	store := newTestStore(t)
	ctx := context.Background()

	def := InstanceDefinition(sbx, "demo.web")
	if err := def.New(store).Create(ctx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r := def.New(store)
	_ = r.Set("size", "large")
	mods, err := r.Update(ctx, []resource.Modification{
		{Name: "size", Previous: "small", New: "large"},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(mods) != 1 || !mods[0].Handled || mods[0].Err != nil {
		t.Fatalf("Expected the size handler to claim the modification, got %+v", mods)
	}

	got, ok := sbx.Value("demo.web", "size")
	if !ok || got != "large" {
		t.Errorf("Expected the sandbox to hold large, got %v (ok=%v)", got, ok)
	}
}

func TestSandbox_LoadBalancerAggregateHook(t *testing.T) {
	sbx := New()
	store := newTestStore(t)
	ctx := context.Background()

	def := LoadBalancerDefinition(sbx, "demo.lb")
	if err := def.New(store).Create(ctx); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// protocol has no per-attribute handler; the aggregate hook claims it.
	r := def.New(store)
	_ = r.Set("protocol", "tcp")
	mods, err := r.Update(ctx, []resource.Modification{
		{Name: "protocol", Previous: "https", New: "tcp"},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if len(mods) != 1 || !mods[0].Handled {
		t.Fatalf("Expected the hook to claim the modification, got %+v", mods)
	}

	got, ok := sbx.Value("demo.lb", "protocol")
	if !ok || got != "tcp" {
		t.Errorf("Expected the sandbox to hold tcp, got %v (ok=%v)", got, ok)
	}
}
