package diff

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/quarryhq/quarry/pkg/resource"
	"github.com/quarryhq/quarry/pkg/stores"
	"github.com/quarryhq/quarry/pkg/telemetry"
)

// metadataLastApplyRun is the store metadata key recording the most recent
// apply run identifier.
const metadataLastApplyRun = "last_apply_run"

// applyState accumulates outcomes across the workers of an apply run.
type applyState struct {
	mu        sync.Mutex
	errors    []string
	unhandled map[string][]string
}

func (s *applyState) addError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, msg)
}

func (s *applyState) addUnhandled(path string, attrs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unhandled == nil {
		s.unhandled = make(map[string][]string)
	}
	s.unhandled[path] = append(s.unhandled[path], attrs...)
}

func (s *applyState) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors) > 0 || len(s.unhandled) > 0
}

// err builds the final error. Unhandled modifications are a
// provider-completeness failure and take precedence over ordinary errors.
func (s *applyState) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.unhandled) > 0 {
		return &UnhandledModificationsError{Attributes: s.unhandled}
	}
	if len(s.errors) > 0 {
		return &ApplyError{Errors: s.errors}
	}
	return nil
}

// Apply reconciles the computed diff against real infrastructure:
// destination-only resources are deleted first, the blueprint source snapshot
// is persisted, and then the remaining resources are walked phase by phase
// with bounded parallelism inside each phase.
//
// Errors accumulate: a failing resource never stops its phase, but no further
// phase starts once errors exist. Partial application stands; there is no
// rollback.
func (d *Differ) Apply(ctx context.Context) error {
	if d.result == nil {
		return ErrNoDiff
	}

	runID := uuid.NewString()
	log := d.logger.NewComponentLogger("apply").WithRunID(runID)
	timer := telemetry.NewTimer()
	d.metrics.RecordApplyStarted()

	if err := d.source.Store().SetMetadata(ctx, metadataLastApplyRun, runID); err != nil {
		return err
	}

	err := d.apply(ctx, log)
	status := "success"
	if err != nil {
		status = "failure"
	}
	d.metrics.RecordApplyCompleted(status, timer.Duration())
	return err
}

func (d *Differ) apply(ctx context.Context, log *telemetry.Logger) error {
	// The source blueprint carries the desired end-state topology; its graph
	// orders everything that survives the apply.
	phases, err := d.source.Graph().Resolve(false)
	if err != nil {
		return err
	}

	state := &applyState{}

	// Resources the source no longer declares go first, before the snapshot
	// is persisted, so a later failure cannot strand records the stored
	// blueprint no longer explains.
	d.deleteRemoved(ctx, log, state)
	if state.failed() {
		return state.err()
	}

	// Persist the source snapshot before touching the declared resources: the
	// stored text reflects intent even when application fails partway.
	if err := d.source.SaveSource(ctx); err != nil {
		return err
	}

	for i, phase := range phases {
		d.applyPhase(ctx, log.WithPhase(i), phase, state)
		if state.failed() {
			break
		}
	}

	return state.err()
}

// deleteRemoved tears down every destination-only resource, walking the
// destination graph in reverse so dependents go before their dependencies.
func (d *Differ) deleteRemoved(ctx context.Context, log *telemetry.Logger, state *applyState) {
	phases, err := d.destination.Graph().Resolve(true)
	if err != nil {
		state.addError(err.Error())
		return
	}

	for _, phase := range phases {
		for _, path := range phase {
			norm := d.destination.NormalizePath(path)
			rdiff, ok := d.result.Resources[norm]
			if !ok || rdiff.Result != Deleted {
				continue
			}

			log.WithResource(norm).Info("deleting removed resource")
			timer := telemetry.NewTimer()
			if err := rdiff.Dest.Delete(ctx); err != nil {
				d.metrics.RecordResourceOperation("delete", "failure", timer.Duration())
				state.addError(err.Error())
				continue
			}
			d.metrics.RecordResourceOperation("delete", "success", timer.Duration())
		}
	}
}

// applyPhase runs one phase's resources through a bounded worker pool. The
// phase always drains fully; errors are accumulated, not short-circuited.
func (d *Differ) applyPhase(ctx context.Context, log *telemetry.Logger, phase []string, state *applyState) {
	workers := d.maxParallel
	if len(phase) < workers {
		workers = len(phase)
	}

	work := make(chan string, len(phase))
	for _, path := range phase {
		work <- path
	}
	close(work)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range work {
				d.applyResource(ctx, log, path, state)
			}
		}()
	}
	wg.Wait()
}

func (d *Differ) applyResource(ctx context.Context, log *telemetry.Logger, path string, state *applyState) {
	norm := d.source.NormalizePath(path)
	rdiff, ok := d.result.Resources[norm]
	if !ok {
		state.addError(fmt.Sprintf("no diff entry for resource %s", norm))
		return
	}
	log = log.WithResource(norm)

	// Refresh the destination's persisted state: an earlier phase (or another
	// writer) may have moved it since the diff was computed. A vanished row is
	// tolerated; the resource simply has no applied state anymore.
	if rdiff.Dest != nil {
		if err := rdiff.Dest.LoadFromStore(ctx); err != nil && !errors.Is(err, stores.ErrResourceNotFound) {
			state.addError(err.Error())
			return
		}
	}

	switch rdiff.Result {
	case Same:
		log.Debug("resource unchanged")

	case New:
		log.Info("creating resource")
		timer := telemetry.NewTimer()
		if err := rdiff.Src.Create(ctx); err != nil {
			d.metrics.RecordResourceOperation("create", "failure", timer.Duration())
			state.addError(err.Error())
			return
		}
		d.metrics.RecordResourceOperation("create", "success", timer.Duration())

	case RebuildRequired:
		log.Info("rebuilding resource")
		timer := telemetry.NewTimer()
		if err := rdiff.Dest.Delete(ctx); err != nil {
			d.metrics.RecordResourceOperation("rebuild", "failure", timer.Duration())
			state.addError(err.Error())
			return
		}
		if err := rdiff.Src.Create(ctx); err != nil {
			d.metrics.RecordResourceOperation("rebuild", "failure", timer.Duration())
			state.addError(err.Error())
			return
		}
		d.metrics.RecordResourceOperation("rebuild", "success", timer.Duration())

	case Conflict:
		log.Info("updating resource")
		timer := telemetry.NewTimer()
		if err := d.updateResource(ctx, norm, rdiff, state); err != nil {
			d.metrics.RecordResourceOperation("update", "failure", timer.Duration())
			state.addError(err.Error())
			return
		}
		d.metrics.RecordResourceOperation("update", "success", timer.Duration())

	default:
		// A Deleted entry reaching here means the source graph produced a
		// path the classifier marked destination-only. That is a structural
		// fault in the differ itself, not a reconciliation failure.
		panic(fmt.Sprintf("resource %s has invalid diff result %s", norm, rdiff.Result))
	}
}

// updateResource reconciles a Conflict resource in place: differing and newly
// declared attributes become modifications dispatched through the resource's
// handlers, and attributes the schema no longer declares are dropped from the
// store.
func (d *Differ) updateResource(ctx context.Context, norm string, rdiff *ResourceDiff, state *applyState) error {
	var mods []resource.Modification
	for _, name := range rdiff.AttributeNames() {
		adiff := rdiff.Attributes[name]
		switch adiff.Result {
		case Conflict, New:
			mods = append(mods, resource.Modification{
				Name:     name,
				Previous: adiff.DestValue,
				New:      adiff.SrcValue,
			})
		case Deleted:
			err := d.source.Store().DeleteAttribute(ctx, rdiff.Dest.Path(), name)
			if err != nil && !errors.Is(err, stores.ErrAttributeNotFound) {
				return err
			}
		}
	}

	processed, err := rdiff.Src.Update(ctx, mods)
	if err != nil {
		return err
	}

	var unhandled []string
	for _, mod := range processed {
		if mod.Err != nil {
			state.addError(mod.Err.Error())
		}
		if !mod.Handled {
			unhandled = append(unhandled, mod.Name)
		}
	}
	if len(unhandled) > 0 {
		state.addUnhandled(norm, unhandled)
	}

	return nil
}
