// Package diff compares a declared blueprint against the persisted record of
// what was last applied, and reconciles the difference in dependency-ordered
// phases.
package diff

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/quarryhq/quarry/pkg/blueprint"
	"github.com/quarryhq/quarry/pkg/resource"
	"github.com/quarryhq/quarry/pkg/stores"
	"github.com/quarryhq/quarry/pkg/telemetry"
)

// Differ computes a blueprint diff and applies it. Diff must succeed before
// Apply or Render may be called; each Diff replaces the previous result.
type Differ struct {
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	// maxParallel bounds worker concurrency within an apply phase.
	maxParallel int

	source      *blueprint.Blueprint
	destination *blueprint.Blueprint
	result      *BlueprintDiff
}

// NewDiffer creates a differ. A nil logger or metrics falls back to inert
// defaults; maxParallel values below 1 fall back to 1.
func NewDiffer(logger *telemetry.Logger, metrics *telemetry.Metrics, maxParallel int) *Differ {
	if logger == nil {
		logger, _ = telemetry.NewLogger(telemetry.DefaultLoggingConfig())
	}
	if metrics == nil {
		metrics, _ = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Differ{
		logger:      logger.NewComponentLogger("diff"),
		metrics:     metrics,
		maxParallel: maxParallel,
	}
}

// Result returns the computed blueprint diff, or ErrNoDiff when Diff has not
// succeeded yet.
func (d *Differ) Result() (*BlueprintDiff, error) {
	if d.result == nil {
		return nil, ErrNoDiff
	}
	return d.result, nil
}

// Diff compares the source (declared) blueprint against the destination
// (persisted) blueprint. Resources are matched by normalized path so logical
// identity survives differing namespaces.
//
// A persisted resource saved at an incompatible major version aborts the
// whole diff with *VersionIncompatibilityError.
func (d *Differ) Diff(ctx context.Context, source, destination *blueprint.Blueprint) error {
	d.result = nil
	d.source = source
	d.destination = destination

	timer := telemetry.NewTimer()

	// Load every destination resource's persisted state up front. A
	// destination resource with no row behind it was never applied: it is not
	// a deletion target, so it drops out of the comparison.
	for _, path := range destination.Paths() {
		res, _ := destination.Resource(path)
		if err := res.LoadFromStore(ctx); err != nil {
			if errors.Is(err, stores.ErrResourceNotFound) {
				destination.Drop(path)
				continue
			}
			return err
		}
	}

	destByNorm := make(map[string]*resource.Resource, destination.Len())
	for _, path := range destination.Paths() {
		res, _ := destination.Resource(path)
		destByNorm[destination.NormalizePath(path)] = res
	}

	result := &BlueprintDiff{Resources: make(map[string]*ResourceDiff)}

	// Pass 1: source against destination.
	for _, path := range source.Paths() {
		srcRes, _ := source.Resource(path)
		norm := source.NormalizePath(path)

		destRes, exists := destByNorm[norm]
		if !exists {
			result.Resources[norm] = newResourceDiff(norm, srcRes)
			continue
		}

		if saved, ok := destRes.SavedVersion(); ok && !saved.CompatibleWith(srcRes.Version()) {
			return &VersionIncompatibilityError{
				Path:     norm,
				Saved:    saved,
				Declared: srcRes.Version(),
			}
		}

		rdiff, err := compareResources(norm, srcRes, destRes)
		if err != nil {
			return err
		}
		result.Resources[norm] = rdiff
	}

	// Pass 2: destination resources the source no longer declares.
	for norm, destRes := range destByNorm {
		if _, handled := result.Resources[norm]; handled {
			continue
		}
		rdiff, err := deletedResourceDiff(norm, destRes)
		if err != nil {
			return err
		}
		result.Resources[norm] = rdiff
	}

	d.result = result
	d.metrics.RecordDiffComputed(result.Result().String(), timer.Duration())
	d.logger.Debugf("diff computed: %d resource(s), overall %s", len(result.Resources), result.Result())

	return nil
}

// newResourceDiff classifies a resource with no applied counterpart: the
// resource and every one of its attributes are New.
func newResourceDiff(norm string, src *resource.Resource) *ResourceDiff {
	rdiff := &ResourceDiff{
		Src:        src,
		Result:     New,
		Attributes: make(map[string]*AttributeDiff),
		path:       norm,
	}
	for _, name := range src.AttributeNames() {
		value, _ := src.Get(name)
		rdiff.Attributes[name] = &AttributeDiff{
			SrcValue:     value,
			SrcAttribute: src.Definition().Schema[name],
			Result:       New,
		}
	}
	return rdiff
}

// deletedResourceDiff classifies a resource the source no longer declares:
// the resource and every one of its persisted attributes are Deleted.
func deletedResourceDiff(norm string, dest *resource.Resource) (*ResourceDiff, error) {
	rdiff := &ResourceDiff{
		Dest:       dest,
		Result:     Deleted,
		Attributes: make(map[string]*AttributeDiff),
		path:       norm,
	}
	for _, name := range dest.AttributeNames() {
		value, err := dest.Get(name)
		if err != nil {
			return nil, err
		}
		rdiff.Attributes[name] = &AttributeDiff{
			DestValue:     value,
			DestAttribute: dest.Definition().Schema[name],
			Result:        Deleted,
		}
	}
	return rdiff, nil
}

// compareResources walks the union of both schemas. Equal values produce no
// entry. The resource result only ever escalates: Same, then Conflict, and
// finally RebuildRequired once any rebuild-flagged attribute differs.
func compareResources(norm string, src, dest *resource.Resource) (*ResourceDiff, error) {
	rdiff := &ResourceDiff{
		Src:        src,
		Dest:       dest,
		Result:     Same,
		Attributes: make(map[string]*AttributeDiff),
		path:       norm,
	}

	srcSchema := src.Definition().Schema
	destSchema := dest.Definition().Schema

	for _, name := range src.AttributeNames() {
		srcAttr := srcSchema[name]
		srcVal, err := src.Get(name)
		if err != nil {
			return nil, err
		}

		destAttr, shared := destSchema[name]
		if !shared {
			// Declared now but absent from the applied schema.
			rdiff.Attributes[name] = &AttributeDiff{
				SrcValue:     srcVal,
				SrcAttribute: srcAttr,
				Result:       New,
			}
			rdiff.escalate(Conflict)
			continue
		}

		destVal, err := dest.Get(name)
		if err != nil {
			return nil, err
		}
		if valuesEqual(srcVal, destVal) {
			continue
		}

		// Dynamic values belong to the system; a difference is expected and
		// never escalates, not even on rebuild-flagged attributes.
		if srcAttr.Dynamic {
			continue
		}

		rdiff.Attributes[name] = &AttributeDiff{
			SrcValue:      srcVal,
			DestValue:     destVal,
			SrcAttribute:  srcAttr,
			DestAttribute: destAttr,
			Result:        Conflict,
		}
		if srcAttr.ModifyRebuild {
			rdiff.escalate(RebuildRequired)
		} else {
			rdiff.escalate(Conflict)
		}
	}

	// Applied attributes the source schema no longer declares.
	for _, name := range dest.AttributeNames() {
		if _, shared := srcSchema[name]; shared {
			continue
		}
		destVal, err := dest.Get(name)
		if err != nil {
			return nil, err
		}
		rdiff.Attributes[name] = &AttributeDiff{
			DestValue:     destVal,
			DestAttribute: destSchema[name],
			Result:        Deleted,
		}
		rdiff.escalate(Conflict)
	}

	return rdiff, nil
}

// valuesEqual compares two attribute values across a store round-trip. Values
// loaded from the store have been through JSON, so both sides are normalized
// through JSON before the deep comparison; an int written comes back equal to
// the float64 it decodes as.
func valuesEqual(a, b any) bool {
	na, errA := jsonNormalize(a)
	nb, errB := jsonNormalize(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(na, nb)
}

func jsonNormalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
