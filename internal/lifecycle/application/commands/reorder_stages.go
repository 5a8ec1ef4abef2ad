package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
)

// ReorderStagesCommand reassigns stage orders for a project. Orders maps
// stage ID to its new order; stages not named keep their current order.
type ReorderStagesCommand struct {
	ProjectID uuid.UUID
	Orders    map[uuid.UUID]int
}

// CommandName identifies the command.
func (c ReorderStagesCommand) CommandName() string { return "lifecycle.reorder_stages" }

// ReorderStagesHandler handles the ReorderStagesCommand.
type ReorderStagesHandler struct {
	stageRepo domain.StageRepository
	uow       sharedApplication.UnitOfWork
}

// NewReorderStagesHandler creates a new ReorderStagesHandler.
func NewReorderStagesHandler(stageRepo domain.StageRepository, uow sharedApplication.UnitOfWork) *ReorderStagesHandler {
	return &ReorderStagesHandler{stageRepo: stageRepo, uow: uow}
}

// Handle executes the ReorderStagesCommand. The full graph is rebuilt with
// the new orders first so duplicate orders are refused before anything is
// written.
func (h *ReorderStagesHandler) Handle(ctx context.Context, cmd ReorderStagesCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		stages, err := h.stageRepo.FindByProject(txCtx, cmd.ProjectID)
		if err != nil {
			return err
		}
		if len(stages) == 0 {
			return domain.ErrNoStagesDefined
		}

		changed := make([]*domain.Stage, 0, len(cmd.Orders))
		for _, stage := range stages {
			order, ok := cmd.Orders[stage.ID()]
			if !ok || order == stage.Order() {
				continue
			}
			if err := stage.SetOrder(order); err != nil {
				return err
			}
			changed = append(changed, stage)
		}

		// NewStageGraph refuses duplicate orders.
		if _, err := domain.NewStageGraph(cmd.ProjectID, stages); err != nil {
			return err
		}

		for _, stage := range changed {
			if err := h.stageRepo.Save(txCtx, stage); err != nil {
				return err
			}
		}
		return nil
	})
}
