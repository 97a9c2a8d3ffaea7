package blueprint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/quarryhq/quarry/pkg/resource"
)

// Registry holds the resource definitions a blueprint may refer to, keyed by
// path. Providers register their definitions explicitly at startup; there is
// no dynamic discovery.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*resource.Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[string]*resource.Definition),
	}
}

// Register adds a definition. Registering the same path twice fails.
func (reg *Registry) Register(def *resource.Definition) error {
	if def.Path == "" {
		return fmt.Errorf("definition has no path")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.defs[def.Path]; exists {
		return fmt.Errorf("definition already registered: %s", def.Path)
	}
	reg.defs[def.Path] = def
	return nil
}

// Get looks up a definition by path.
func (reg *Registry) Get(path string) (*resource.Definition, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	def, ok := reg.defs[path]
	return def, ok
}

// Paths returns the registered paths in sorted order.
func (reg *Registry) Paths() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	paths := make([]string, 0, len(reg.defs))
	for path := range reg.defs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Definitions returns every registered definition in path order.
func (reg *Registry) Definitions() []*resource.Definition {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	paths := make([]string, 0, len(reg.defs))
	for path := range reg.defs {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	defs := make([]*resource.Definition, 0, len(paths))
	for _, path := range paths {
		defs = append(defs, reg.defs[path])
	}
	return defs
}
