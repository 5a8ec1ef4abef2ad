// Package queries contains the lifecycle read operations.
package queries

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// StageDTO is a data transfer object for stages.
type StageDTO struct {
	ID                uuid.UUID  `json:"id"`
	ProjectID         uuid.UUID  `json:"project_id"`
	Order             int        `json:"order"`
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	EstimatedDuration string     `json:"estimated_duration,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Prerequisites     []string   `json:"prerequisites,omitempty"`
	Deliverables      []string   `json:"deliverables,omitempty"`
	Current           bool       `json:"current"`
}

// StageGraphDTO is the full stage graph of a project.
type StageGraphDTO struct {
	ProjectID uuid.UUID  `json:"project_id"`
	Stages    []StageDTO `json:"stages"`
	Finished  bool       `json:"finished"`
}

// GetStageGraphQuery contains the parameters for reading a stage graph.
type GetStageGraphQuery struct {
	ProjectID uuid.UUID
}

// QueryName identifies the query.
func (q GetStageGraphQuery) QueryName() string { return "lifecycle.get_stage_graph" }

// GetStageGraphHandler handles the GetStageGraphQuery.
type GetStageGraphHandler struct {
	stageRepo domain.StageRepository
}

// NewGetStageGraphHandler creates a new GetStageGraphHandler.
func NewGetStageGraphHandler(stageRepo domain.StageRepository) *GetStageGraphHandler {
	return &GetStageGraphHandler{stageRepo: stageRepo}
}

// Handle executes the GetStageGraphQuery.
func (h *GetStageGraphHandler) Handle(ctx context.Context, query GetStageGraphQuery) (*StageGraphDTO, error) {
	stages, err := h.stageRepo.FindByProject(ctx, query.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, domain.ErrNoStagesDefined
	}

	graph, err := domain.NewStageGraph(query.ProjectID, stages)
	if err != nil {
		return nil, err
	}

	var currentID uuid.UUID
	current, err := graph.CurrentStage()
	switch {
	case err == nil:
		currentID = current.ID()
	case errors.Is(err, domain.ErrNoCurrentStage):
		// Finished project, no current stage.
	default:
		return nil, err
	}

	dto := &StageGraphDTO{
		ProjectID: query.ProjectID,
		Stages:    make([]StageDTO, 0, len(stages)),
		Finished:  graph.IsFinished(),
	}
	for _, stage := range graph.Stages() {
		dto.Stages = append(dto.Stages, toStageDTO(stage, stage.ID() == currentID))
	}
	return dto, nil
}

func toStageDTO(stage *domain.Stage, current bool) StageDTO {
	dto := StageDTO{
		ID:            stage.ID(),
		ProjectID:     stage.ProjectID(),
		Order:         stage.Order(),
		Name:          stage.Name(),
		Status:        stage.Status().String(),
		StartDate:     stage.StartDate(),
		EndDate:       stage.EndDate(),
		Prerequisites: stage.Prerequisites(),
		Deliverables:  stage.Deliverables(),
		Current:       current,
	}
	if d := stage.EstimatedDuration(); d > 0 {
		dto.EstimatedDuration = d.String()
	}
	return dto
}
