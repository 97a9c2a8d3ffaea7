// Package sandbox provides an in-memory provider family: instances, volumes,
// and load balancers that exist only inside the process. It backs tests, the
// CLI demo blueprint, and anything else that needs real lifecycle semantics
// without real infrastructure.
package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/quarryhq/quarry/pkg/resource"
)

// Sandbox is the in-memory backend shared by every sandbox definition. It
// tracks which resources currently exist and can inject failures per path.
type Sandbox struct {
	mu      sync.Mutex
	objects map[string]map[string]any
	nextID  int

	failCreate map[string]error
	failDelete map[string]error
}

// New creates an empty sandbox.
func New() *Sandbox {
	return &Sandbox{
		objects:    make(map[string]map[string]any),
		failCreate: make(map[string]error),
		failDelete: make(map[string]error),
	}
}

// FailCreate makes every Create for the given path fail with err.
func (s *Sandbox) FailCreate(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[path] = err
}

// FailDelete makes every Delete for the given path fail with err.
func (s *Sandbox) FailDelete(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDelete[path] = err
}

// Create realizes a resource in memory. Every dynamic attribute in the
// resource's schema gets a generated identifier.
func (s *Sandbox) Create(_ context.Context, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failCreate[r.Path()]; err != nil {
		return err
	}

	values := make(map[string]any)
	for name, attr := range r.Definition().Schema {
		if attr.Dynamic {
			s.nextID++
			id := fmt.Sprintf("sbx-%06d", s.nextID)
			if err := r.Set(name, id); err != nil {
				return err
			}
			values[name] = id
			continue
		}
		value, err := r.Get(name)
		if err != nil {
			return err
		}
		values[name] = value
	}

	s.objects[r.Path()] = values
	return nil
}

// Delete removes a resource from memory. Deleting a resource the sandbox
// does not hold is not an error; the end state is the same.
func (s *Sandbox) Delete(_ context.Context, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failDelete[r.Path()]; err != nil {
		return err
	}

	delete(s.objects, r.Path())
	return nil
}

// Exists reports whether the sandbox currently holds a resource.
func (s *Sandbox) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

// Value returns one attribute value of a held resource.
func (s *Sandbox) Value(path, name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.objects[path]
	if !ok {
		return nil, false
	}
	value, ok := values[name]
	return value, ok
}

// Count returns the number of held resources.
func (s *Sandbox) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// update overwrites one attribute of a held resource. Used by the modify
// handlers.
func (s *Sandbox) update(path, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.objects[path]
	if !ok {
		return fmt.Errorf("sandbox holds no resource at %s", path)
	}
	values[name] = value
	return nil
}
