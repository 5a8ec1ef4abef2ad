package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
)

// DeleteStageCommand removes a stage that transition history does not
// reference.
type DeleteStageCommand struct {
	StageID uuid.UUID
}

// CommandName identifies the command.
func (c DeleteStageCommand) CommandName() string { return "lifecycle.delete_stage" }

// DeleteStageHandler handles the DeleteStageCommand.
type DeleteStageHandler struct {
	stageRepo   domain.StageRepository
	historyRepo domain.HistoryRepository
	uow         sharedApplication.UnitOfWork
	logger      *slog.Logger
}

// NewDeleteStageHandler creates a new DeleteStageHandler.
func NewDeleteStageHandler(
	stageRepo domain.StageRepository,
	historyRepo domain.HistoryRepository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *DeleteStageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteStageHandler{
		stageRepo:   stageRepo,
		historyRepo: historyRepo,
		uow:         uow,
		logger:      logger,
	}
}

// Handle executes the DeleteStageCommand.
func (h *DeleteStageHandler) Handle(ctx context.Context, cmd DeleteStageCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		stage, err := h.stageRepo.FindByID(txCtx, cmd.StageID)
		if err != nil {
			return err
		}

		count, err := h.historyRepo.CountByStage(txCtx, cmd.StageID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%d transition records: %w", count, domain.ErrStageReferenced)
		}

		if err := h.stageRepo.Delete(txCtx, cmd.StageID); err != nil {
			return err
		}

		h.logger.Info("stage deleted",
			"stage_id", stage.ID(),
			"project_id", stage.ProjectID(),
			"name", stage.Name(),
		)
		return nil
	})
}
