// Package engine orders, executes and resumes provisioning steps against the
// state store and the registered resource adapters.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/agentrig/agentrig/internal/logging"
	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
	"github.com/agentrig/agentrig/internal/state"
)

// Runner executes an ordered list of provisioning steps. Steps already
// CREATED are skipped; the outcome of each step is persisted before the next
// one starts, so a crash loses at most the in-flight step and a later
// invocation resumes exactly where this one stopped.
type Runner struct {
	store    *state.Store
	registry *provider.Registry
	graph    *Graph
	retry    *RetryPolicy

	// ForceKeys marks resources whose CREATED record should be discarded:
	// the remote resource is deleted first, then the step runs as if from
	// NOT_STARTED.
	ForceKeys map[string]bool
	ForceAll  bool

	// External holds read-only records imported from earlier modules'
	// state files. They satisfy cross-module prerequisites and ref://
	// targets but are never written to.
	External map[string]*resource.Record
}

func NewRunner(store *state.Store, registry *provider.Registry, graph *Graph) *Runner {
	return &Runner{
		store:     store,
		registry:  registry,
		graph:     graph,
		retry:     DefaultRetryPolicy(),
		ForceKeys: map[string]bool{},
	}
}

// SetRetryPolicy overrides the default backoff policy. Mainly for tests.
func (r *Runner) SetRetryPolicy(p *RetryPolicy) { r.retry = p }

func (r *Runner) forced(key string) bool {
	return r.ForceAll || r.ForceKeys[key]
}

// Run executes the descriptors in the order supplied, which must already
// respect the dependency graph (see Graph.Sort). It returns the per-step
// outcomes; a non-nil error means the run stopped early and the state store
// is positioned for a later resume.
func (r *Runner) Run(ctx context.Context, descriptors []*resource.Descriptor) (*resource.RunResult, error) {
	result := &resource.RunResult{}

	// A record stuck IN_PROGRESS means another invocation owns this state
	// file, or a previous run died mid-step. Refuse rather than race;
	// forcing the key is the explicit way past this.
	for key, rec := range r.store.Records() {
		if rec.Status == resource.StatusInProgress && !r.forced(key) {
			return result, &RunInProgressError{Key: key}
		}
	}

	// Seed NOT_STARTED placeholders for every descriptor the module
	// requires, so status output shows pending work before it runs.
	seeded := false
	for _, d := range descriptors {
		if r.store.Get(d.Key) == nil {
			if err := r.store.Upsert(d.Key, resource.NewRecord(d.Type)); err != nil {
				return result, fmt.Errorf("failed to seed state for %s: %w", d.Key, err)
			}
			seeded = true
		}
	}
	if seeded {
		logging.Debug("seeded placeholder records", "module", r.store.Module())
	}

	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("run cancelled: %w", err)
		}

		outcome, err := r.runStep(ctx, d)
		result.Steps = append(result.Steps, outcome)
		if err != nil {
			// Subsequent descriptors stay NOT_STARTED so a later
			// invocation resumes at exactly this step.
			return result, err
		}
	}

	return result, nil
}

func (r *Runner) runStep(ctx context.Context, d *resource.Descriptor) (resource.StepOutcome, error) {
	outcome := resource.StepOutcome{Key: d.Key, Type: d.Type}
	rec := r.store.Get(d.Key)

	recreated := false
	if rec.Status == resource.StatusCreated {
		if !r.forced(d.Key) {
			logging.Debug("skipping created resource", "key", d.Key)
			outcome.Action = resource.ActionSkipped
			outcome.ExternalID = rec.ExternalID
			return outcome, nil
		}
		if err := r.discard(ctx, d, rec); err != nil {
			outcome.Action = resource.ActionFailed
			outcome.Err = err
			rec.MarkFailed(err)
			if perr := r.store.Upsert(d.Key, rec); perr != nil {
				return outcome, perr
			}
			return outcome, err
		}
		rec = resource.NewRecord(d.Type)
		if err := r.store.Upsert(d.Key, rec); err != nil {
			return outcome, err
		}
		recreated = true
	}

	// Every prerequisite type must already be CREATED. A miss here is an
	// ordering bug in the descriptor list, not a remote failure.
	if err := r.checkDependencies(d); err != nil {
		outcome.Action = resource.ActionFailed
		outcome.Err = err
		rec.MarkFailed(err)
		if perr := r.store.Upsert(d.Key, rec); perr != nil {
			return outcome, perr
		}
		return outcome, err
	}

	client, err := r.registry.Get(d.Type)
	if err != nil {
		outcome.Action = resource.ActionFailed
		outcome.Err = err
		rec.MarkFailed(err)
		if perr := r.store.Upsert(d.Key, rec); perr != nil {
			return outcome, perr
		}
		return outcome, err
	}

	spec, err := ResolveRefs(d.Spec, r.records())
	if err != nil {
		err = fmt.Errorf("create %s: %w", d.Key, err)
		outcome.Action = resource.ActionFailed
		outcome.Err = err
		rec.MarkFailed(err)
		if perr := r.store.Upsert(d.Key, rec); perr != nil {
			return outcome, perr
		}
		return outcome, err
	}

	rec.MarkInProgress()
	if err := r.store.Upsert(d.Key, rec); err != nil {
		return outcome, err
	}

	logging.Info("creating resource", "key", d.Key, "type", d.Type)
	start := time.Now()

	var handle *resource.Handle
	err = RetryWithBackoff(ctx, r.retry, func() error {
		var createErr error
		handle, createErr = client.Create(ctx, d.Key, spec)
		return createErr
	}, provider.IsTransient)
	if err != nil {
		err = provider.Wrap(provider.KindPermanent, d.Key, "create", err)
		outcome.Action = resource.ActionFailed
		outcome.Err = err
		rec.MarkFailed(err)
		if perr := r.store.Upsert(d.Key, rec); perr != nil {
			return outcome, perr
		}
		return outcome, err
	}

	rec.MarkCreated(handle)
	if err := r.store.Upsert(d.Key, rec); err != nil {
		return outcome, err
	}

	switch {
	case recreated:
		outcome.Action = resource.ActionRecreated
	case handle.Metadata["adopted"] == "true":
		outcome.Action = resource.ActionAdopted
	default:
		outcome.Action = resource.ActionCreated
	}
	outcome.ExternalID = handle.ID
	logging.Info("resource ready", "key", d.Key, "id", handle.ID, "duration", time.Since(start).Round(time.Millisecond))
	return outcome, nil
}

// discard tears down the remote counterpart of a CREATED record ahead of a
// forced recreation.
func (r *Runner) discard(ctx context.Context, d *resource.Descriptor, rec *resource.Record) error {
	client, err := r.registry.Get(d.Type)
	if err != nil {
		return err
	}
	logging.Info("discarding resource for forced recreation", "key", d.Key, "id", rec.ExternalID)
	err = RetryWithBackoff(ctx, r.retry, func() error {
		return client.Delete(ctx, d.Key)
	}, provider.IsTransient)
	return provider.Wrap(provider.KindPermanent, d.Key, "delete", err)
}

// records merges the module's own records with the imported external ones
// for ref resolution and dependency checks.
func (r *Runner) records() map[string]*resource.Record {
	out := r.store.Records()
	for k, v := range r.External {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func (r *Runner) checkDependencies(d *resource.Descriptor) error {
	created := make(map[resource.Type]bool)
	for _, rec := range r.records() {
		if rec != nil && rec.Status == resource.StatusCreated {
			created[rec.Type] = true
		}
	}
	for _, dep := range r.graph.Dependencies(d.Type) {
		if !created[dep] {
			return &DependencyUnmetError{Key: d.Key, Missing: dep}
		}
	}
	return nil
}
