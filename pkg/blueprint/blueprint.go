// Package blueprint assembles resource definitions into a verifiable,
// orderable unit. A blueprint is either declared (built from a registry's
// definitions) or reconstructed from the persisted store to represent what
// was last applied.
package blueprint

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/quarryhq/quarry/pkg/graph"
	"github.com/quarryhq/quarry/pkg/resource"
	"github.com/quarryhq/quarry/pkg/stores"
)

// Blueprint is a set of resources sharing a namespace, plus the source text
// snapshot (modules and packages) that produced them.
type Blueprint struct {
	namespace string
	store     stores.Store
	resources map[string]*resource.Resource

	modules  map[string]string
	packages []string
}

// New builds the declared (source) side of a diff from resource definitions.
// Paths must be unique within the blueprint.
func New(store stores.Store, namespace string, defs []*resource.Definition) (*Blueprint, error) {
	b := &Blueprint{
		namespace: namespace,
		store:     store,
		resources: make(map[string]*resource.Resource, len(defs)),
		modules:   make(map[string]string),
	}

	for _, def := range defs {
		if _, exists := b.resources[def.Path]; exists {
			return nil, errors.New("duplicate resource path: " + def.Path)
		}
		b.resources[def.Path] = def.New(store)
	}

	return b, nil
}

// LoadFromStore builds the destination side of a diff: every persisted
// resource path is resolved to a registered definition. A persisted path with
// no registered definition fails with *UnknownResourceError.
//
// Resource values are not loaded here; callers load each resource from the
// store when they need its persisted state.
func LoadFromStore(ctx context.Context, store stores.Store, namespace string, registry *Registry) (*Blueprint, error) {
	paths, err := store.ListResourcePaths(ctx)
	if err != nil {
		return nil, err
	}

	b := &Blueprint{
		namespace: namespace,
		store:     store,
		resources: make(map[string]*resource.Resource, len(paths)),
		modules:   make(map[string]string),
	}

	for _, path := range paths {
		def, ok := registry.Get(path)
		if !ok {
			return nil, &UnknownResourceError{Path: path}
		}
		b.resources[path] = def.New(store)
	}

	return b, nil
}

// Namespace returns the blueprint's namespace prefix. May be empty.
func (b *Blueprint) Namespace() string {
	return b.namespace
}

// NormalizePath strips the blueprint's namespace prefix from a path, yielding
// the logical resource identity that is stable across namespaces.
func (b *Blueprint) NormalizePath(path string) string {
	if b.namespace == "" {
		return path
	}
	return strings.TrimPrefix(path, b.namespace+".")
}

// Store returns the store this blueprint is bound to.
func (b *Blueprint) Store() stores.Store {
	return b.store
}

// Resource looks up a resource by its full path.
func (b *Blueprint) Resource(path string) (*resource.Resource, bool) {
	r, ok := b.resources[path]
	return r, ok
}

// Resources returns the resource map keyed by full path. The map is the
// blueprint's own; callers must not mutate it.
func (b *Blueprint) Resources() map[string]*resource.Resource {
	return b.resources
}

// Paths returns every resource path in sorted order.
func (b *Blueprint) Paths() []string {
	paths := make([]string, 0, len(b.resources))
	for path := range b.resources {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of resources in the blueprint.
func (b *Blueprint) Len() int {
	return len(b.resources)
}

// Drop removes a resource from the blueprint. Used when a destination
// resource turns out to have no persisted state behind it.
func (b *Blueprint) Drop(path string) {
	delete(b.resources, path)
}

// SetSource attaches the blueprint's source text snapshot: module path→text
// and the package paths containing them.
func (b *Blueprint) SetSource(modules map[string]string, packages []string) {
	b.modules = make(map[string]string, len(modules))
	for path, data := range modules {
		b.modules[path] = data
	}
	b.packages = append([]string(nil), packages...)
}

// Modules returns the module path→source map.
func (b *Blueprint) Modules() map[string]string {
	return b.modules
}

// Packages returns the package paths.
func (b *Blueprint) Packages() []string {
	return b.packages
}

// SaveSource replaces the persisted blueprint source snapshot wholesale:
// delete everything, then recreate from this blueprint's modules and
// packages.
func (b *Blueprint) SaveSource(ctx context.Context) error {
	if err := b.store.DeleteAllBlueprintModules(ctx); err != nil {
		return err
	}
	if err := b.store.DeleteAllBlueprintPackages(ctx); err != nil {
		return err
	}

	modulePaths := make([]string, 0, len(b.modules))
	for path := range b.modules {
		modulePaths = append(modulePaths, path)
	}
	sort.Strings(modulePaths)
	for _, path := range modulePaths {
		if err := b.store.CreateBlueprintModule(ctx, path, b.modules[path]); err != nil {
			return err
		}
	}

	for _, path := range b.packages {
		if err := b.store.CreateBlueprintPackage(ctx, path); err != nil {
			return err
		}
	}

	return nil
}

// Graph builds the dependency resolver from every resource's DependsOn list.
func (b *Blueprint) Graph() *graph.Resolver {
	resolver := graph.NewResolver()
	for _, path := range b.Paths() {
		resolver.AddNode(path, b.resources[path].Definition().DependsOn)
	}
	return resolver
}

// Verify checks every resource's attribute values, aggregating all failures
// into one *VerifyFailure. Only when attribute verification passes is the
// dependency graph resolved, so a cycle error never masks value errors.
func (b *Blueprint) Verify(ctx context.Context) error {
	failure := &VerifyFailure{}

	for _, path := range b.Paths() {
		err := b.resources[path].Verify()
		if err == nil {
			continue
		}
		var verr *resource.VerifyError
		if errors.As(err, &verr) {
			failure.Failures = append(failure.Failures, verr)
			continue
		}
		return err
	}

	if len(failure.Failures) > 0 {
		return failure
	}

	if _, err := b.Graph().Resolve(false); err != nil {
		return err
	}
	return nil
}
