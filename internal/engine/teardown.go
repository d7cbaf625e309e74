package engine

import (
	"context"
	"fmt"

	"github.com/agentrig/agentrig/internal/logging"
	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
	"github.com/agentrig/agentrig/internal/state"
)

// Coordinator walks the dependency graph in reverse order and deletes every
// resource present in the state store. Failures are collected, not raised,
// so one stuck resource does not block deletion of independent ones. After
// each confirmed delete the record is removed and the store re-saved, which
// makes teardown itself crash-resumable.
type Coordinator struct {
	store    *state.Store
	registry *provider.Registry
	graph    *Graph
	retry    *RetryPolicy
}

func NewCoordinator(store *state.Store, registry *provider.Registry, graph *Graph) *Coordinator {
	return &Coordinator{
		store:    store,
		registry: registry,
		graph:    graph,
		retry:    DefaultRetryPolicy(),
	}
}

// SetRetryPolicy overrides the default backoff policy. Mainly for tests.
func (c *Coordinator) SetRetryPolicy(p *RetryPolicy) { c.retry = p }

// Teardown deletes every recorded resource in reverse dependency order,
// regardless of the order resources appear in the state file. Records whose
// remote counterpart is already gone (deleted out-of-band) are reported as
// already-absent and still cleared locally.
func (c *Coordinator) Teardown(ctx context.Context) (*resource.TeardownReport, error) {
	report := &resource.TeardownReport{}

	// Records of types absent from the graph (leftovers from an older
	// configuration) are handled last, after everything ordered.
	ordered := c.graph.TeardownOrder()
	known := make(map[resource.Type]bool, len(ordered))
	for _, t := range ordered {
		known[t] = true
	}

	var keys []string
	for _, t := range ordered {
		keys = append(keys, c.keysOfType(t)...)
	}
	for _, key := range c.store.Keys() {
		if rec := c.store.Get(key); rec != nil && !known[rec.Type] {
			keys = append(keys, key)
		}
	}

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("teardown cancelled: %w", err)
		}
		report.Steps = append(report.Steps, c.deleteOne(ctx, key))
	}

	return report, nil
}

func (c *Coordinator) keysOfType(t resource.Type) []string {
	var keys []string
	for _, key := range c.store.Keys() {
		if rec := c.store.Get(key); rec != nil && rec.Type == t {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *Coordinator) deleteOne(ctx context.Context, key string) resource.TeardownStep {
	rec := c.store.Get(key)
	step := resource.TeardownStep{Key: key, Type: rec.Type}

	// NOT_STARTED placeholders never touched a remote system; just drop
	// them. FAILED and IN_PROGRESS records may have a half-created remote
	// counterpart, so they go through the adapter like CREATED ones.
	if rec.Status == resource.StatusNotStarted {
		step.Outcome = resource.TeardownAlreadyAbsent
		if err := c.store.Remove(key); err != nil {
			step.Outcome = resource.TeardownFailed
			step.Err = err
		}
		return step
	}

	client, err := c.registry.Get(rec.Type)
	if err != nil {
		step.Outcome = resource.TeardownFailed
		step.Err = err
		return step
	}

	exists := true
	err = RetryWithBackoff(ctx, c.retry, func() error {
		var checkErr error
		exists, checkErr = client.Exists(ctx, key)
		return checkErr
	}, provider.IsTransient)
	if err != nil {
		step.Outcome = resource.TeardownFailed
		step.Err = provider.Wrap(provider.KindPermanent, key, "exists", err)
		return step
	}

	if !exists {
		logging.Info("resource already absent", "key", key)
		step.Outcome = resource.TeardownAlreadyAbsent
		if err := c.store.Remove(key); err != nil {
			step.Outcome = resource.TeardownFailed
			step.Err = err
		}
		return step
	}

	logging.Info("deleting resource", "key", key, "type", rec.Type, "id", rec.ExternalID)
	err = RetryWithBackoff(ctx, c.retry, func() error {
		return client.Delete(ctx, key)
	}, provider.IsTransient)
	if err != nil {
		step.Outcome = resource.TeardownFailed
		step.Err = provider.Wrap(provider.KindPermanent, key, "delete", err)
		return step
	}

	step.Outcome = resource.TeardownDeleted
	if err := c.store.Remove(key); err != nil {
		step.Outcome = resource.TeardownFailed
		step.Err = err
	}
	return step
}
