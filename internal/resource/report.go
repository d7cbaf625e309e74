package resource

// StepAction describes what the step runner did for one descriptor.
type StepAction string

const (
	ActionCreated   StepAction = "created"
	ActionAdopted   StepAction = "adopted" // remote resource existed, record caught up
	ActionSkipped   StepAction = "skipped" // already CREATED locally
	ActionRecreated StepAction = "recreated"
	ActionFailed    StepAction = "failed"
)

// StepOutcome is the result of one provisioning step.
type StepOutcome struct {
	Key        string
	Type       Type
	Action     StepAction
	ExternalID string
	Err        error
}

// RunResult summarizes a step runner invocation.
type RunResult struct {
	Steps []StepOutcome
}

// Failed reports whether any step ended in failure.
func (r *RunResult) Failed() bool {
	for _, s := range r.Steps {
		if s.Action == ActionFailed {
			return true
		}
	}
	return false
}

// TeardownOutcome describes the fate of one resource during teardown.
type TeardownOutcome string

const (
	TeardownDeleted       TeardownOutcome = "deleted"
	TeardownAlreadyAbsent TeardownOutcome = "already-absent"
	TeardownFailed        TeardownOutcome = "failed"
)

// TeardownStep is the per-resource entry of a TeardownReport.
type TeardownStep struct {
	Key     string
	Type    Type
	Outcome TeardownOutcome
	Err     error
}

// TeardownReport lists the outcome of every delete attempted by the
// cleanup coordinator. Individual failures are collected here, never raised,
// so one stuck resource does not block the rest.
type TeardownReport struct {
	Steps []TeardownStep
}

// Failed reports whether any delete failed.
func (r *TeardownReport) Failed() bool {
	for _, s := range r.Steps {
		if s.Outcome == TeardownFailed {
			return true
		}
	}
	return false
}
