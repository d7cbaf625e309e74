package engine

import (
	"fmt"

	"github.com/agentrig/agentrig/internal/resource"
)

// DependencyUnmetError signals that a descriptor's prerequisite is not
// CREATED when its step runs. This is an ordering bug in the descriptor
// list, not a remote failure, and is never retried.
type DependencyUnmetError struct {
	Key     string
	Missing resource.Type
}

func (e *DependencyUnmetError) Error() string {
	return fmt.Sprintf("resource %q requires a CREATED %q resource, but none exists", e.Key, e.Missing)
}

// RunInProgressError is returned when the loaded state contains an
// IN_PROGRESS record: either another invocation owns the state file, or a
// previous run crashed mid-step and a human should inspect before retrying.
type RunInProgressError struct {
	Key string
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("resource %q is marked IN_PROGRESS: a run is already in progress or crashed mid-step; "+
		"inspect the state file and re-run, or use --force %s to recreate", e.Key, e.Key)
}
