package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionRequest is a caller's intent to move a project from one stage to
// the next. Only sequential edges are admissible; there is no override path.
type TransitionRequest struct {
	ProjectID   uuid.UUID `json:"project_id"`
	FromStageID uuid.UUID `json:"from_stage_id"`
	ToStageID   uuid.UUID `json:"to_stage_id"`
}

// Equals reports whether two requests describe the same transition.
func (r TransitionRequest) Equals(other TransitionRequest) bool {
	return r.ProjectID == other.ProjectID &&
		r.FromStageID == other.FromStageID &&
		r.ToStageID == other.ToStageID
}

// GateDecision is the aggregated admissibility verdict for one transition
// request plus the per-condition diagnostics that produced it.
type GateDecision struct {
	ID         uuid.UUID         `json:"id"`
	Request    TransitionRequest `json:"request"`
	Admissible bool              `json:"admissible"`
	Results    []ConditionResult `json:"results"`
	IssuedAt   time.Time         `json:"issued_at"`
}

// NewGateDecision aggregates condition results into a decision. A decision
// is admissible iff every required condition passed. An indeterminate result
// counts as not passed, so a required check that could not run blocks the
// transition; advisory conditions, whether failed or indeterminate, are
// reported but never block. An empty condition set is trivially admissible.
func NewGateDecision(request TransitionRequest, results []ConditionResult) GateDecision {
	admissible := true
	for _, r := range results {
		if r.Required && !r.Passed() {
			admissible = false
			break
		}
	}
	return GateDecision{
		ID:         uuid.New(),
		Request:    request,
		Admissible: admissible,
		Results:    results,
		IssuedAt:   time.Now().UTC(),
	}
}

// IndeterminateResults returns the results whose checks could not run.
func (d GateDecision) IndeterminateResults() []ConditionResult {
	var out []ConditionResult
	for _, r := range d.Results {
		if r.Indeterminate {
			out = append(out, r)
		}
	}
	return out
}

// FailedRequired returns the required results that did not pass.
func (d GateDecision) FailedRequired() []ConditionResult {
	var out []ConditionResult
	for _, r := range d.Results {
		if r.Required && !r.Passed() {
			out = append(out, r)
		}
	}
	return out
}

// Age returns how long ago the decision was issued.
func (d GateDecision) Age() time.Duration {
	return time.Since(d.IssuedAt)
}
