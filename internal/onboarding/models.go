package onboarding

import (
	"time"

	"carbon-scribe/onboarding-tracker/pkg/workflows"
)

// StepStatus is the completion status of a single onboarding step
type StepStatus string

const (
	StatusPending   StepStatus = workflows.StatusPending
	StatusCompleted StepStatus = workflows.StatusCompleted
	StatusSkipped   StepStatus = workflows.StatusSkipped
)

// StepDefinition describes a step at configuration time
type StepDefinition struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Step represents a step in the onboarding process
type Step struct {
	ID     string     `json:"id"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
}

// IsTerminal reports whether the step accepts no further completion or skip.
func (s Step) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusSkipped
}

// ProgressState represents the overall onboarding progress
type ProgressState struct {
	Steps           []Step `json:"steps"`
	CurrentIndex    int    `json:"current_index"`
	CurrentStep     *Step  `json:"current_step,omitempty"`
	TotalSteps      int    `json:"total_steps"`
	PercentComplete int    `json:"percent_complete"`
	Done            bool   `json:"done"`
}

// SchemaVersion is the only PersistedState version this build reads.
const SchemaVersion = 1

// PersistedState is the stored snapshot of a tracker
type PersistedState struct {
	Version int             `json:"version"`
	Steps   []PersistedStep `json:"steps"`
}

type PersistedStep struct {
	ID     string     `json:"id"`
	Status StepStatus `json:"status"`
}

// ChangeKind names the mutation that produced a ChangeEvent
type ChangeKind string

const (
	ChangeCompleted ChangeKind = "completed"
	ChangeSkipped   ChangeKind = "skipped"
	ChangeReset     ChangeKind = "reset"
)

// StepChange is one status change caused by a mutation
type StepChange struct {
	StepID string     `json:"step_id"`
	From   StepStatus `json:"from"`
	To     StepStatus `json:"to"`
}

// ChangeEvent is emitted to subscribers after every successful mutation
type ChangeEvent struct {
	Kind    ChangeKind    `json:"kind"`
	StepID  string        `json:"step_id,omitempty"`
	Changes []StepChange  `json:"changes"`
	State   ProgressState `json:"state"`
	At      time.Time     `json:"at"`
}

// Result is returned by every mutation. Warning is set when the new state
// could not be persisted; the in-memory change still stands.
type Result struct {
	State   ProgressState
	Warning error
}
