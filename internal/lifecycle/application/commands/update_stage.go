package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
)

// UpdateStageCommand edits stage metadata. Status is never touched here;
// status changes go through the gate or the block/unblock commands.
type UpdateStageCommand struct {
	StageID           uuid.UUID
	Name              *string
	EstimatedDuration *time.Duration
	AddDeliverables   []string
	AddPrerequisites  []string
}

// CommandName identifies the command.
func (c UpdateStageCommand) CommandName() string { return "lifecycle.update_stage" }

// UpdateStageHandler handles the UpdateStageCommand.
type UpdateStageHandler struct {
	stageRepo domain.StageRepository
	uow       sharedApplication.UnitOfWork
}

// NewUpdateStageHandler creates a new UpdateStageHandler.
func NewUpdateStageHandler(stageRepo domain.StageRepository, uow sharedApplication.UnitOfWork) *UpdateStageHandler {
	return &UpdateStageHandler{stageRepo: stageRepo, uow: uow}
}

// Handle executes the UpdateStageCommand.
func (h *UpdateStageHandler) Handle(ctx context.Context, cmd UpdateStageCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		stage, err := h.stageRepo.FindByID(txCtx, cmd.StageID)
		if err != nil {
			return err
		}

		if cmd.Name != nil {
			if err := stage.SetName(*cmd.Name); err != nil {
				return err
			}
		}
		if cmd.EstimatedDuration != nil {
			stage.SetEstimatedDuration(*cmd.EstimatedDuration)
		}
		for _, d := range cmd.AddDeliverables {
			stage.AddDeliverable(d)
		}
		for _, p := range cmd.AddPrerequisites {
			stage.AddPrerequisite(p)
		}

		return h.stageRepo.Save(txCtx, stage)
	})
}
