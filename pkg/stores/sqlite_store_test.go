package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Failed to init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestSQLiteStore_CreateRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := first.Create(ctx); err != nil {
		t.Fatalf("First create failed: %v", err)
	}
	defer first.Close()

	second, err := NewSQLiteStore(Config{Path: path})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := second.Create(ctx); !errors.Is(err, ErrStoreExists) {
		t.Errorf("Expected ErrStoreExists, got: %v", err)
	}
}

func TestSQLiteStore_OpenMissing(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "nope.db")})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Open(context.Background()); err == nil {
		t.Error("Expected error opening a missing store, got nil")
	}
}

func TestSQLiteStore_ResourceRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &ResourceRecord{
		Path:         "myapp.servers.web",
		VersionMajor: 1,
		VersionMinor: 2,
		VersionBuild: 3,
		VersionLabel: "beta",
	}
	if err := store.CreateResource(ctx, rec); err != nil {
		t.Fatalf("Failed to create resource: %v", err)
	}

	got, err := store.GetResource(ctx, "myapp.servers.web")
	if err != nil {
		t.Fatalf("Failed to get resource: %v", err)
	}
	if *got != *rec {
		t.Errorf("Expected %+v, got %+v", rec, got)
	}
}

func TestSQLiteStore_GetResourceNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetResource(context.Background(), "ghost")
	if !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got: %v", err)
	}
}

func TestSQLiteStore_DeleteResourceCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateResource(ctx, &ResourceRecord{Path: "a.b"}); err != nil {
		t.Fatalf("Failed to create resource: %v", err)
	}
	if err := store.CreateAttribute(ctx, "a.b", "size", 42); err != nil {
		t.Fatalf("Failed to create attribute: %v", err)
	}

	if err := store.DeleteResource(ctx, "a.b"); err != nil {
		t.Fatalf("Failed to delete resource: %v", err)
	}

	if _, err := store.GetAttribute(ctx, "a.b", "size"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound after cascade, got: %v", err)
	}

	if err := store.DeleteResource(ctx, "a.b"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound on double delete, got: %v", err)
	}
}

func TestSQLiteStore_ListResourcePaths(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, path := range []string{"z.last", "a.first", "m.middle"} {
		if err := store.CreateResource(ctx, &ResourceRecord{Path: path}); err != nil {
			t.Fatalf("Failed to create resource %s: %v", path, err)
		}
	}

	paths, err := store.ListResourcePaths(ctx)
	if err != nil {
		t.Fatalf("Failed to list resources: %v", err)
	}

	expected := []string{"a.first", "m.middle", "z.last"}
	if len(paths) != len(expected) {
		t.Fatalf("Expected %d paths, got %d", len(expected), len(paths))
	}
	for i, path := range expected {
		if paths[i] != path {
			t.Errorf("Index %d: expected %s, got %s", i, path, paths[i])
		}
	}
}

func TestSQLiteStore_AttributeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateResource(ctx, &ResourceRecord{Path: "a.b"}); err != nil {
		t.Fatalf("Failed to create resource: %v", err)
	}

	cases := []struct {
		name  string
		value any
	}{
		{"str", "hello"},
		{"flag", true},
		{"none", nil},
		{"list", []any{"x", "y"}},
	}
	for _, tc := range cases {
		if err := store.CreateAttribute(ctx, "a.b", tc.name, tc.value); err != nil {
			t.Fatalf("Failed to create attribute %s: %v", tc.name, err)
		}
	}

	got, err := store.GetAttribute(ctx, "a.b", "str")
	if err != nil {
		t.Fatalf("Failed to get attribute: %v", err)
	}
	if got != "hello" {
		t.Errorf("Expected hello, got %v", got)
	}

	got, err = store.GetAttribute(ctx, "a.b", "list")
	if err != nil {
		t.Fatalf("Failed to get attribute: %v", err)
	}
	list, ok := got.([]any)
	if !ok || len(list) != 2 || list[0] != "x" {
		t.Errorf("Expected [x y], got %v", got)
	}
}

func TestSQLiteStore_AttributeNumbersDecodeAsFloat(t *testing.T) {
	// JSON round-trips integers as float64; callers normalize on compare.
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateResource(ctx, &ResourceRecord{Path: "a.b"}); err != nil {
		t.Fatalf("Failed to create resource: %v", err)
	}
	if err := store.CreateAttribute(ctx, "a.b", "count", 7); err != nil {
		t.Fatalf("Failed to create attribute: %v", err)
	}

	got, err := store.GetAttribute(ctx, "a.b", "count")
	if err != nil {
		t.Fatalf("Failed to get attribute: %v", err)
	}
	if got != float64(7) {
		t.Errorf("Expected float64(7), got %T(%v)", got, got)
	}
}

func TestSQLiteStore_UpdateAttribute(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateResource(ctx, &ResourceRecord{Path: "a.b"}); err != nil {
		t.Fatalf("Failed to create resource: %v", err)
	}
	if err := store.CreateAttribute(ctx, "a.b", "size", "small"); err != nil {
		t.Fatalf("Failed to create attribute: %v", err)
	}
	if err := store.UpdateAttribute(ctx, "a.b", "size", "large"); err != nil {
		t.Fatalf("Failed to update attribute: %v", err)
	}

	got, err := store.GetAttribute(ctx, "a.b", "size")
	if err != nil {
		t.Fatalf("Failed to get attribute: %v", err)
	}
	if got != "large" {
		t.Errorf("Expected large, got %v", got)
	}

	// Upsert path: updating an attribute that was never created inserts it.
	if err := store.UpdateAttribute(ctx, "a.b", "region", "us-east"); err != nil {
		t.Fatalf("Failed to upsert attribute: %v", err)
	}
	if _, err := store.GetAttribute(ctx, "a.b", "region"); err != nil {
		t.Errorf("Expected upserted attribute to exist, got: %v", err)
	}
}

func TestSQLiteStore_AttributeNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateResource(ctx, &ResourceRecord{Path: "a.b"}); err != nil {
		t.Fatalf("Failed to create resource: %v", err)
	}

	if _, err := store.GetAttribute(ctx, "a.b", "ghost"); !errors.Is(err, ErrAttributeNotFound) {
		t.Errorf("Expected ErrAttributeNotFound, got: %v", err)
	}
	if err := store.DeleteAttribute(ctx, "a.b", "ghost"); !errors.Is(err, ErrAttributeNotFound) {
		t.Errorf("Expected ErrAttributeNotFound, got: %v", err)
	}
	if _, err := store.GetAttribute(ctx, "ghost", "x"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("Expected ErrResourceNotFound, got: %v", err)
	}
}

func TestSQLiteStore_BlueprintModules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateBlueprintModule(ctx, "servers", "web = instance(...)"); err != nil {
		t.Fatalf("Failed to create module: %v", err)
	}
	if err := store.CreateBlueprintModule(ctx, "network", "lb = loadbalancer(...)"); err != nil {
		t.Fatalf("Failed to create module: %v", err)
	}

	mod, err := store.GetBlueprintModule(ctx, "servers")
	if err != nil {
		t.Fatalf("Failed to get module: %v", err)
	}
	if mod.Data != "web = instance(...)" {
		t.Errorf("Unexpected module data: %q", mod.Data)
	}

	mods, err := store.ListBlueprintModules(ctx)
	if err != nil {
		t.Fatalf("Failed to list modules: %v", err)
	}
	if len(mods) != 2 {
		t.Fatalf("Expected 2 modules, got %d", len(mods))
	}

	if err := store.DeleteAllBlueprintModules(ctx); err != nil {
		t.Fatalf("Failed to delete modules: %v", err)
	}
	mods, err = store.ListBlueprintModules(ctx)
	if err != nil {
		t.Fatalf("Failed to list modules: %v", err)
	}
	if len(mods) != 0 {
		t.Errorf("Expected 0 modules after delete-all, got %d", len(mods))
	}

	if _, err := store.GetBlueprintModule(ctx, "servers"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("Expected ErrModuleNotFound, got: %v", err)
	}
}

func TestSQLiteStore_BlueprintPackages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, pkg := range []string{"myapp", "myapp.servers"} {
		if err := store.CreateBlueprintPackage(ctx, pkg); err != nil {
			t.Fatalf("Failed to create package %s: %v", pkg, err)
		}
	}

	pkgs, err := store.ListBlueprintPackages(ctx)
	if err != nil {
		t.Fatalf("Failed to list packages: %v", err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("Expected 2 packages, got %d", len(pkgs))
	}

	if err := store.DeleteAllBlueprintPackages(ctx); err != nil {
		t.Fatalf("Failed to delete packages: %v", err)
	}
	pkgs, err = store.ListBlueprintPackages(ctx)
	if err != nil {
		t.Fatalf("Failed to list packages: %v", err)
	}
	if len(pkgs) != 0 {
		t.Errorf("Expected 0 packages after delete-all, got %d", len(pkgs))
	}
}

func TestSQLiteStore_Metadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetMetadata(ctx, "owner", "platform-team"); err != nil {
		t.Fatalf("Failed to set metadata: %v", err)
	}
	if err := store.SetMetadata(ctx, "owner", "infra-team"); err != nil {
		t.Fatalf("Failed to overwrite metadata: %v", err)
	}

	value, err := store.GetMetadata(ctx, "owner")
	if err != nil {
		t.Fatalf("Failed to get metadata: %v", err)
	}
	if value != "infra-team" {
		t.Errorf("Expected infra-team, got %s", value)
	}

	if err := store.DeleteMetadata(ctx, "owner"); err != nil {
		t.Fatalf("Failed to delete metadata: %v", err)
	}
	if _, err := store.GetMetadata(ctx, "owner"); !errors.Is(err, ErrMetadataNotFound) {
		t.Errorf("Expected ErrMetadataNotFound, got: %v", err)
	}
	if err := store.DeleteMetadata(ctx, "owner"); !errors.Is(err, ErrMetadataNotFound) {
		t.Errorf("Expected ErrMetadataNotFound on double delete, got: %v", err)
	}
}

func TestSQLiteStore_UseBeforeOpen(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := store.GetResource(context.Background(), "a"); !errors.Is(err, ErrStoreNotOpen) {
		t.Errorf("Expected ErrStoreNotOpen, got: %v", err)
	}
}
