package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/quarryhq/quarry/pkg/blueprint"
	"github.com/quarryhq/quarry/pkg/provider/sandbox"
	"github.com/quarryhq/quarry/pkg/resource"
	"github.com/quarryhq/quarry/pkg/stores"
)

// blueprintFile is the on-disk blueprint format: a namespace and a list of
// sandbox resources.
type blueprintFile struct {
	Namespace string              `yaml:"namespace"`
	Resources []blueprintResource `yaml:"resources"`
}

type blueprintResource struct {
	Path      string         `yaml:"path"`
	Type      string         `yaml:"type"`
	DependsOn []string       `yaml:"depends_on"`
	Values    map[string]any `yaml:"values"`
}

// parseBlueprintData turns blueprint YAML into resource definitions bound to
// the sandbox backend.
func parseBlueprintData(data []byte, sbx *sandbox.Sandbox) (*blueprintFile, []*resource.Definition, error) {
	var file blueprintFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse blueprint: %w", err)
	}

	defs := make([]*resource.Definition, 0, len(file.Resources))
	for _, res := range file.Resources {
		var def *resource.Definition
		switch res.Type {
		case "instance":
			def = sandbox.InstanceDefinition(sbx, res.Path, res.DependsOn...)
		case "volume":
			def = sandbox.VolumeDefinition(sbx, res.Path, res.DependsOn...)
		case "loadbalancer":
			def = sandbox.LoadBalancerDefinition(sbx, res.Path, res.DependsOn...)
		default:
			return nil, nil, fmt.Errorf("resource %s has unknown type %q", res.Path, res.Type)
		}
		for name, value := range res.Values {
			def.Values[name] = value
		}
		defs = append(defs, def)
	}

	return &file, defs, nil
}

// loadSourceBlueprint reads a blueprint file and builds the declared (source)
// blueprint, carrying the file's text as the source snapshot.
func loadSourceBlueprint(path string, store stores.Store, sbx *sandbox.Sandbox) (*blueprint.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint %s: %w", path, err)
	}

	file, defs, err := parseBlueprintData(data, sbx)
	if err != nil {
		return nil, err
	}

	bp, err := blueprint.New(store, file.Namespace, defs)
	if err != nil {
		return nil, err
	}

	module := filepath.Base(path)
	bp.SetSource(map[string]string{module: string(data)}, []string{file.Namespace})
	return bp, nil
}

// loadDestBlueprint reconstructs the last-applied blueprint: the persisted
// source snapshot is parsed back into definitions, which resolve the
// persisted resource paths.
func loadDestBlueprint(ctx context.Context, store stores.Store, sbx *sandbox.Sandbox) (*blueprint.Blueprint, error) {
	modules, err := store.ListBlueprintModules(ctx)
	if err != nil {
		return nil, err
	}

	registry := blueprint.NewRegistry()
	namespace := ""
	for _, module := range modules {
		file, defs, err := parseBlueprintData([]byte(module.Data), sbx)
		if err != nil {
			return nil, fmt.Errorf("persisted module %s: %w", module.Path, err)
		}
		namespace = file.Namespace
		for _, def := range defs {
			if err := registry.Register(def); err != nil {
				return nil, err
			}
		}
	}

	return blueprint.LoadFromStore(ctx, store, namespace, registry)
}

// openStore opens the configured state store.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
