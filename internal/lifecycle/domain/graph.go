package domain

import (
	"sort"

	"github.com/google/uuid"
)

// StageGraph is the ordered stage sequence of one project. It answers
// structural queries; status mutation stays on the Stage aggregate.
type StageGraph struct {
	projectID uuid.UUID
	stages    []*Stage // sorted by order ascending
}

// NewStageGraph builds a graph from a project's stages. Stages are sorted
// by order; duplicate orders are refused.
func NewStageGraph(projectID uuid.UUID, stages []*Stage) (*StageGraph, error) {
	sorted := make([]*Stage, len(stages))
	copy(sorted, stages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Order() < sorted[j].Order() })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Order() == sorted[i-1].Order() {
			return nil, ErrDuplicateOrder
		}
	}

	return &StageGraph{projectID: projectID, stages: sorted}, nil
}

// ProjectID returns the owning project.
func (g *StageGraph) ProjectID() uuid.UUID { return g.projectID }

// Stages returns the stages in order.
func (g *StageGraph) Stages() []*Stage { return g.stages }

// IsEmpty reports whether the project has no stages.
func (g *StageGraph) IsEmpty() bool { return len(g.stages) == 0 }

// FindStage returns the stage with the given ID.
func (g *StageGraph) FindStage(id uuid.UUID) (*Stage, error) {
	for _, s := range g.stages {
		if s.ID() == id {
			return s, nil
		}
	}
	return nil, ErrStageNotFound
}

// CurrentStage returns the unique in-progress (or blocked) stage, or the
// lowest-order not-started stage if none is active. ErrNoStagesDefined is
// returned for an empty graph and ErrNoCurrentStage once every stage is
// completed.
func (g *StageGraph) CurrentStage() (*Stage, error) {
	if g.IsEmpty() {
		return nil, ErrNoStagesDefined
	}

	for _, s := range g.stages {
		if s.Status() == StatusInProgress || s.Status() == StatusBlocked {
			return s, nil
		}
	}

	for _, s := range g.stages {
		if s.Status() == StatusNotStarted {
			return s, nil
		}
	}

	return nil, ErrNoCurrentStage
}

// NextStage returns the stage ordered immediately after the given stage.
// ErrTerminalStage signals the given stage is the last one.
func (g *StageGraph) NextStage(stage *Stage) (*Stage, error) {
	for _, s := range g.stages {
		if s.Order() == stage.Order()+1 {
			return s, nil
		}
	}
	return nil, ErrTerminalStage
}

// ValidateEdge enforces the sequential-only transition policy:
// to.order must equal from.order + 1. Skips and regressions are rejected.
func (g *StageGraph) ValidateEdge(from, to *Stage) error {
	if from.ProjectID() != g.projectID || to.ProjectID() != g.projectID {
		return ErrStageNotFound
	}
	if to.Order() != from.Order()+1 {
		return ErrInvalidEdge
	}
	return nil
}

// InProgressCount returns how many stages are currently active. The engine
// keeps this at most one; the count exists for invariant checks.
func (g *StageGraph) InProgressCount() int {
	n := 0
	for _, s := range g.stages {
		if s.Status() == StatusInProgress {
			n++
		}
	}
	return n
}

// IsFinished reports whether the terminal stage has been completed.
func (g *StageGraph) IsFinished() bool {
	if g.IsEmpty() {
		return false
	}
	return g.stages[len(g.stages)-1].Status() == StatusCompleted
}

// Reorder moves a stage to a new order position. The move is refused when it
// would leave two stages with the same order.
func (g *StageGraph) Reorder(stageID uuid.UUID, newOrder int) error {
	if newOrder <= 0 {
		return ErrInvalidOrder
	}

	target, err := g.FindStage(stageID)
	if err != nil {
		return err
	}

	for _, s := range g.stages {
		if s.ID() != stageID && s.Order() == newOrder {
			return ErrDuplicateOrder
		}
	}

	if err := target.SetOrder(newOrder); err != nil {
		return err
	}

	sort.Slice(g.stages, func(i, j int) bool { return g.stages[i].Order() < g.stages[j].Order() })
	return nil
}
