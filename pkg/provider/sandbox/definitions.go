package sandbox

import (
	"context"

	"github.com/quarryhq/quarry/pkg/attribute"
	"github.com/quarryhq/quarry/pkg/resource"
)

// currentVersion is the sandbox provider family's version.
var currentVersion = resource.Version{Major: 1, Minor: 0, Build: 0}

// modifyInPlace builds a handler that pushes the attribute's new working
// value into the sandbox backend.
func modifyInPlace(s *Sandbox, name string) resource.ModifyHandler {
	return func(_ context.Context, r *resource.Resource, _ resource.Modification) error {
		value, err := r.Get(name)
		if err != nil {
			return err
		}
		return s.update(r.Path(), name, value)
	}
}

// InstanceDefinition declares a sandbox compute instance.
//
// The image attribute is rebuild-flagged: changing it destroys and recreates
// the instance. size and tags reconcile in place through modify handlers.
func InstanceDefinition(s *Sandbox, path string, deps ...string) *resource.Definition {
	return &resource.Definition{
		Path:         path,
		ProviderName: "sandbox.instance",
		Version:      currentVersion,
		DependsOn:    deps,
		Schema: resource.Schema{
			"size": {
				Name:     "size",
				Required: true,
				Default:  "small",
				Choices:  []any{"small", "medium", "large"},
				Kinds:    []attribute.Kind{attribute.KindString},
			},
			"image": {
				Name:          "image",
				Required:      true,
				Kinds:         []attribute.Kind{attribute.KindString},
				ModifyRebuild: true,
			},
			"tags": {
				Name:  "tags",
				Kinds: []attribute.Kind{attribute.KindList},
			},
			"instance_id": {
				Name:    "instance_id",
				Dynamic: true,
			},
			"api_key": {
				Name:   "api_key",
				Secret: true,
				Kinds:  []attribute.Kind{attribute.KindString},
			},
		},
		Values: map[string]any{
			"image": "base-2024",
		},
		Provider: s,
		ModifyHandlers: map[string]resource.ModifyHandler{
			"size": modifyInPlace(s, "size"),
			"tags": modifyInPlace(s, "tags"),
		},
	}
}

// VolumeDefinition declares a sandbox block volume. Growing or shrinking the
// volume forces a rebuild; iops reconciles in place.
func VolumeDefinition(s *Sandbox, path string, deps ...string) *resource.Definition {
	return &resource.Definition{
		Path:         path,
		ProviderName: "sandbox.volume",
		Version:      currentVersion,
		DependsOn:    deps,
		Schema: resource.Schema{
			"size_gb": {
				Name:          "size_gb",
				Required:      true,
				Default:       10,
				Kinds:         []attribute.Kind{attribute.KindInt},
				NumberRange:   &attribute.Range{Min: 1, Max: 1024},
				ModifyRebuild: true,
			},
			"iops": {
				Name:        "iops",
				Default:     300,
				Kinds:       []attribute.Kind{attribute.KindInt},
				NumberRange: &attribute.Range{Min: 100, Max: 16000},
			},
			"volume_id": {
				Name:    "volume_id",
				Dynamic: true,
			},
		},
		Provider: s,
		ModifyHandlers: map[string]resource.ModifyHandler{
			"iops": modifyInPlace(s, "iops"),
		},
	}
}

// LoadBalancerDefinition declares a sandbox load balancer. All mutable
// attributes reconcile in place; the aggregate hook claims whatever the
// per-attribute handlers do not.
func LoadBalancerDefinition(s *Sandbox, path string, deps ...string) *resource.Definition {
	return &resource.Definition{
		Path:         path,
		ProviderName: "sandbox.loadbalancer",
		Version:      currentVersion,
		DependsOn:    deps,
		Schema: resource.Schema{
			"port": {
				Name:        "port",
				Required:    true,
				Default:     443,
				Kinds:       []attribute.Kind{attribute.KindInt},
				NumberRange: &attribute.Range{Min: 1, Max: 65535},
			},
			"protocol": {
				Name:    "protocol",
				Default: "https",
				Choices: []any{"http", "https", "tcp"},
				Kinds:   []attribute.Kind{attribute.KindString},
			},
			"certificate": {
				Name:   "certificate",
				Secret: true,
				Kinds:  []attribute.Kind{attribute.KindString},
			},
			"lb_id": {
				Name:    "lb_id",
				Dynamic: true,
			},
		},
		Provider: s,
		ModifyHandlers: map[string]resource.ModifyHandler{
			"port": modifyInPlace(s, "port"),
		},
		OnModified: func(_ context.Context, r *resource.Resource, mods []resource.Modification) error {
			for _, mod := range mods {
				value, err := r.Get(mod.Name)
				if err != nil {
					return err
				}
				if err := s.update(r.Path(), mod.Name, value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
