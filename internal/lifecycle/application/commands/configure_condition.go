package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
)

// AddConditionCommand binds a transition condition to a stage edge.
type AddConditionCommand struct {
	ProjectID   uuid.UUID
	FromStageID uuid.UUID
	ToStageID   uuid.UUID
	Name        string
	Description string
	Type        domain.ConditionType
	Required    bool
	CheckName   string
}

// CommandName identifies the command.
func (c AddConditionCommand) CommandName() string { return "lifecycle.add_condition" }

// AddConditionResult contains the created condition ID.
type AddConditionResult struct {
	ConditionID uuid.UUID
}

// AddConditionHandler handles the AddConditionCommand.
type AddConditionHandler struct {
	stageRepo     domain.StageRepository
	conditionRepo domain.ConditionRepository
	uow           sharedApplication.UnitOfWork
}

// NewAddConditionHandler creates a new AddConditionHandler.
func NewAddConditionHandler(
	stageRepo domain.StageRepository,
	conditionRepo domain.ConditionRepository,
	uow sharedApplication.UnitOfWork,
) *AddConditionHandler {
	return &AddConditionHandler{
		stageRepo:     stageRepo,
		conditionRepo: conditionRepo,
		uow:           uow,
	}
}

// Handle executes the AddConditionCommand. The edge must be a valid
// sequential edge of the project's graph.
func (h *AddConditionHandler) Handle(ctx context.Context, cmd AddConditionCommand) (*AddConditionResult, error) {
	stages, err := h.stageRepo.FindByProject(ctx, cmd.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, domain.ErrNoStagesDefined
	}

	graph, err := domain.NewStageGraph(cmd.ProjectID, stages)
	if err != nil {
		return nil, err
	}
	from, err := graph.FindStage(cmd.FromStageID)
	if err != nil {
		return nil, err
	}
	to, err := graph.FindStage(cmd.ToStageID)
	if err != nil {
		return nil, err
	}
	if err := graph.ValidateEdge(from, to); err != nil {
		return nil, err
	}

	condition, err := domain.NewTransitionCondition(
		cmd.ProjectID, cmd.FromStageID, cmd.ToStageID, cmd.Name, cmd.Type, cmd.Required)
	if err != nil {
		return nil, err
	}
	if cmd.Description != "" {
		condition.SetDescription(cmd.Description)
	}
	if cmd.CheckName != "" {
		condition.SetCheckName(cmd.CheckName)
	}

	var result *AddConditionResult
	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.conditionRepo.Save(txCtx, condition); err != nil {
			return err
		}
		result = &AddConditionResult{ConditionID: condition.ID()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteConditionCommand removes a transition condition.
type DeleteConditionCommand struct {
	ConditionID uuid.UUID
}

// CommandName identifies the command.
func (c DeleteConditionCommand) CommandName() string { return "lifecycle.delete_condition" }

// DeleteConditionHandler handles the DeleteConditionCommand.
type DeleteConditionHandler struct {
	conditionRepo domain.ConditionRepository
	uow           sharedApplication.UnitOfWork
}

// NewDeleteConditionHandler creates a new DeleteConditionHandler.
func NewDeleteConditionHandler(conditionRepo domain.ConditionRepository, uow sharedApplication.UnitOfWork) *DeleteConditionHandler {
	return &DeleteConditionHandler{conditionRepo: conditionRepo, uow: uow}
}

// Handle executes the DeleteConditionCommand.
func (h *DeleteConditionHandler) Handle(ctx context.Context, cmd DeleteConditionCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if _, err := h.conditionRepo.FindByID(txCtx, cmd.ConditionID); err != nil {
			return err
		}
		return h.conditionRepo.Delete(txCtx, cmd.ConditionID)
	})
}
