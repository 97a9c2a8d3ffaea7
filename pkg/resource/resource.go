// Package resource defines the declarative resource model: a Definition
// describes what a resource should look like, and a Resource is one concrete
// instance bound to a state store.
package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/quarryhq/quarry/pkg/attribute"
	"github.com/quarryhq/quarry/pkg/stores"
)

// Schema maps attribute names to their declarations.
type Schema map[string]*attribute.Attribute

// Modification describes one attribute value change detected between the
// applied state and the desired state.
type Modification struct {
	Name     string
	Previous any
	New      any
	Handled  bool
	Err      error
}

// ModifyHandler reconciles a single attribute change in place. The resource's
// working values already hold the new value when the handler runs.
type ModifyHandler func(ctx context.Context, r *Resource, mod Modification) error

// ModifiedHook is an aggregate handler invoked once with every modification
// that was not claimed by a per-attribute ModifyHandler. A hook that returns
// nil marks all of them handled.
type ModifiedHook func(ctx context.Context, r *Resource, mods []Modification) error

// Provider carries the lifecycle operations for a resource kind. Create may
// populate dynamic attributes on the resource before it returns.
type Provider interface {
	Create(ctx context.Context, r *Resource) error
	Delete(ctx context.Context, r *Resource) error
}

// Definition declares a resource: its stable path, schema, dependencies, the
// desired attribute values, and the provider that realizes it.
type Definition struct {
	// Path uniquely names the resource within a blueprint, e.g.
	// "myapp.servers.web".
	Path string

	// ProviderName labels the provider for logs and diagnostics.
	ProviderName string

	// Version is the provider version this definition is written against.
	Version Version

	// Schema declares the attributes this resource carries.
	Schema Schema

	// DependsOn lists the paths of resources that must exist first.
	DependsOn []string

	// Values holds the desired attribute values. Attributes absent here fall
	// back to their schema default.
	Values map[string]any

	// Provider realizes create and delete.
	Provider Provider

	// ModifyHandlers maps attribute names to their reconciliation handlers.
	ModifyHandlers map[string]ModifyHandler

	// OnModified, when set, receives every modification no per-attribute
	// handler claimed.
	OnModified ModifiedHook
}

// New binds the definition to a store, producing a working resource instance
// seeded with the definition's desired values.
func (d *Definition) New(store stores.Store) *Resource {
	values := make(map[string]any, len(d.Values))
	for name, value := range d.Values {
		values[name] = value
	}
	return &Resource{
		def:    d,
		store:  store,
		values: values,
	}
}

// Resource is one concrete instance of a Definition, with a working set of
// attribute values and, after LoadFromStore, the version it was saved at.
type Resource struct {
	def    *Definition
	store  stores.Store
	values map[string]any

	savedVersion *Version
}

// Path returns the resource's blueprint path.
func (r *Resource) Path() string {
	return r.def.Path
}

// Definition returns the definition this resource was built from.
func (r *Resource) Definition() *Definition {
	return r.def
}

// Version returns the definition's declared version.
func (r *Resource) Version() Version {
	return r.def.Version
}

// SavedVersion returns the version recorded in the store, if the resource has
// been loaded from it.
func (r *Resource) SavedVersion() (Version, bool) {
	if r.savedVersion == nil {
		return Version{}, false
	}
	return *r.savedVersion, true
}

// Get returns the working value for an attribute, falling back to the schema
// default when no value has been set. Unknown attribute names fail with
// *AttributeError.
func (r *Resource) Get(name string) (any, error) {
	attr, ok := r.def.Schema[name]
	if !ok {
		return nil, &AttributeError{ResourceName: r.def.Path, AttributeName: name}
	}
	if value, ok := r.values[name]; ok {
		return value, nil
	}
	return attr.Default, nil
}

// Set assigns a working value for an attribute. Unknown attribute names fail
// with *AttributeError.
func (r *Resource) Set(name string, value any) error {
	if _, ok := r.def.Schema[name]; !ok {
		return &AttributeError{ResourceName: r.def.Path, AttributeName: name}
	}
	r.values[name] = value
	return nil
}

// AttributeNames returns the schema's attribute names in sorted order.
func (r *Resource) AttributeNames() []string {
	names := make([]string, 0, len(r.def.Schema))
	for name := range r.def.Schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Verify checks every attribute value against its declaration, accumulating
// all failures rather than stopping at the first. Dynamic attributes are
// system-assigned: a user-supplied value on one is itself a failure, and no
// other checks apply to them. A non-nil return is always a *VerifyError.
func (r *Resource) Verify() error {
	verr := &VerifyError{ResourceName: r.def.Path}

	for _, name := range r.AttributeNames() {
		attr := r.def.Schema[name]
		if attr.Dynamic {
			if value, ok := r.values[name]; ok && value != nil {
				verr.add(name, "value is system-assigned and cannot be set")
			}
			continue
		}

		// An explicit nil counts as absent: required means non-null.
		value, hasValue := r.values[name]
		if !hasValue || value == nil {
			value = attr.Default
			hasValue = attr.Default != nil
		}

		if !hasValue {
			if attr.Required {
				verr.add(name, "a value is required")
			}
			continue
		}

		if !attr.AllowsKind(value) {
			verr.add(name, fmt.Sprintf("type %s is not allowed", attribute.KindOf(value)))
		}
		if !attr.AllowsChoice(value) {
			verr.add(name, fmt.Sprintf("value %v is not an allowed choice", value))
		}
		if attr.NumberRange != nil {
			if n, ok := attribute.AsNumber(value); !ok || !attr.NumberRange.Contains(n) {
				verr.add(name, fmt.Sprintf("value %v is outside the range [%v, %v]",
					value, attr.NumberRange.Min, attr.NumberRange.Max))
			}
		}
	}

	if verr.empty() {
		return nil
	}
	return verr
}

// LoadFromStore replaces the working values with the persisted state and
// captures the version the resource was saved at. Attributes with no
// persisted row keep their schema default.
func (r *Resource) LoadFromStore(ctx context.Context) error {
	rec, err := r.store.GetResource(ctx, r.def.Path)
	if err != nil {
		return err
	}
	r.savedVersion = &Version{
		Major: rec.VersionMajor,
		Minor: rec.VersionMinor,
		Build: rec.VersionBuild,
		Label: rec.VersionLabel,
	}

	r.values = make(map[string]any, len(r.def.Schema))
	for name := range r.def.Schema {
		value, err := r.store.GetAttribute(ctx, r.def.Path, name)
		if errors.Is(err, stores.ErrAttributeNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		r.values[name] = value
	}

	return nil
}

// Create provisions the resource through its provider, then persists the
// resource row and every attribute value. The provider runs first so that
// dynamic attributes it assigns are captured in the store.
func (r *Resource) Create(ctx context.Context) error {
	if err := r.def.Provider.Create(ctx, r); err != nil {
		return &CreateError{ResourceName: r.def.Path, Err: err}
	}

	if err := r.store.CreateResource(ctx, r.record()); err != nil {
		return &CreateError{ResourceName: r.def.Path, Err: err}
	}
	for _, name := range r.AttributeNames() {
		value, err := r.Get(name)
		if err != nil {
			return &CreateError{ResourceName: r.def.Path, Err: err}
		}
		if err := r.store.CreateAttribute(ctx, r.def.Path, name, value); err != nil {
			return &CreateError{ResourceName: r.def.Path, Err: err}
		}
	}

	return nil
}

// Update reconciles the given modifications. Each modification is offered to
// its per-attribute handler first; whatever no handler claims goes to the
// aggregate OnModified hook. A handler failure is recorded on the returned
// Modification rather than aborting: the remaining modifications still run,
// and the failed attribute's value is not persisted. Modifications no handler
// and no hook claimed come back with Handled=false.
//
// The version row is refreshed as part of the update. Only store failures
// surface as the returned error.
func (r *Resource) Update(ctx context.Context, mods []Modification) ([]Modification, error) {
	out := make([]Modification, len(mods))
	copy(out, mods)

	var unclaimed []int
	for i := range out {
		handler, ok := r.def.ModifyHandlers[out[i].Name]
		if !ok {
			unclaimed = append(unclaimed, i)
			continue
		}
		out[i].Handled = true
		if err := handler(ctx, r, out[i]); err != nil {
			out[i].Err = &ModifyError{ResourceName: r.def.Path, AttributeName: out[i].Name, Err: err}
			continue
		}
		if err := r.persistModification(ctx, out[i]); err != nil {
			return nil, err
		}
	}

	if len(unclaimed) > 0 && r.def.OnModified != nil {
		batch := make([]Modification, 0, len(unclaimed))
		for _, i := range unclaimed {
			batch = append(batch, out[i])
		}
		if err := r.def.OnModified(ctx, r, batch); err != nil {
			for _, i := range unclaimed {
				out[i].Handled = true
				out[i].Err = &ModifyError{ResourceName: r.def.Path, AttributeName: out[i].Name, Err: err}
			}
		} else {
			for _, i := range unclaimed {
				out[i].Handled = true
				if err := r.persistModification(ctx, out[i]); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := r.store.CreateResource(ctx, r.record()); err != nil {
		return nil, &ModifyError{ResourceName: r.def.Path, Err: err}
	}

	return out, nil
}

func (r *Resource) persistModification(ctx context.Context, mod Modification) error {
	value, err := r.Get(mod.Name)
	if err != nil {
		return &ModifyError{ResourceName: r.def.Path, AttributeName: mod.Name, Err: err}
	}
	if err := r.store.UpdateAttribute(ctx, r.def.Path, mod.Name, value); err != nil {
		return &ModifyError{ResourceName: r.def.Path, AttributeName: mod.Name, Err: err}
	}
	return nil
}

// Delete tears the resource down through its provider, then removes the
// persisted row. Attribute rows cascade with the resource.
func (r *Resource) Delete(ctx context.Context) error {
	if err := r.def.Provider.Delete(ctx, r); err != nil {
		return &DeleteError{ResourceName: r.def.Path, Err: err}
	}
	if err := r.store.DeleteResource(ctx, r.def.Path); err != nil {
		return &DeleteError{ResourceName: r.def.Path, Err: err}
	}
	return nil
}

func (r *Resource) record() *stores.ResourceRecord {
	return &stores.ResourceRecord{
		Path:         r.def.Path,
		VersionMajor: r.def.Version.Major,
		VersionMinor: r.def.Version.Minor,
		VersionBuild: r.def.Version.Build,
		VersionLabel: r.def.Version.Label,
	}
}
