package domain

import "time"

// Status is the outcome of an Action, Pipeline or pass.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StepResult captures the execution of one ManualStep.
type StepResult struct {
	Name     string        `json:"name"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the step exited with code zero.
func (s StepResult) Succeeded() bool {
	return s.ExitCode == 0
}

// RunResult is the outcome of one Action.
type RunResult struct {
	ActionID   string        `json:"action_id"`
	PipelineID string        `json:"pipeline_id,omitempty"`
	Backend    BackendKind   `json:"backend"`
	Status     Status        `json:"status"`
	Steps      []StepResult  `json:"steps"`
	Duration   time.Duration `json:"duration"`
	// Error describes a backend failure or the failing step, if any.
	Error string `json:"error,omitempty"`
}

// QualifiedID mirrors Action.QualifiedID.
func (r RunResult) QualifiedID() string {
	if r.PipelineID == "" {
		return r.ActionID
	}
	return r.PipelineID + "/" + r.ActionID
}

// PipelineResult aggregates the RunResults of one Pipeline.
type PipelineResult struct {
	PipelineID string        `json:"pipeline_id"`
	Status     Status        `json:"status"`
	Actions    []RunResult   `json:"actions"`
	Duration   time.Duration `json:"duration"`
}

// Report is the aggregate outcome of one orchestration pass.
type Report struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Pipelines []PipelineResult `json:"pipelines"`
	Actions   []RunResult      `json:"actions"`
	// OutputDirectory is the resolved top-level output directory of the pass.
	OutputDirectory string `json:"output_directory"`
}

// Results returns every RunResult of the pass in execution order.
func (r *Report) Results() []RunResult {
	var all []RunResult
	for _, p := range r.Pipelines {
		all = append(all, p.Actions...)
	}
	return append(all, r.Actions...)
}

// Status is Failed if any Action of the pass failed.
func (r *Report) Status() Status {
	for _, res := range r.Results() {
		if res.Status != StatusSuccess {
			return StatusFailed
		}
	}
	return StatusSuccess
}

// Counts returns the number of succeeded and failed Actions.
func (r *Report) Counts() (succeeded, failed int) {
	for _, res := range r.Results() {
		if res.Status == StatusSuccess {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
