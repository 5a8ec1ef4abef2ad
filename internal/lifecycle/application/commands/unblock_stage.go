package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/outbox"
)

// UnblockStageCommand returns a blocked stage to the active state.
type UnblockStageCommand struct {
	StageID uuid.UUID
}

// CommandName identifies the command.
func (c UnblockStageCommand) CommandName() string { return "lifecycle.unblock_stage" }

// UnblockStageHandler handles the UnblockStageCommand.
type UnblockStageHandler struct {
	stageRepo  domain.StageRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	logger     *slog.Logger
}

// NewUnblockStageHandler creates a new UnblockStageHandler.
func NewUnblockStageHandler(
	stageRepo domain.StageRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *UnblockStageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnblockStageHandler{
		stageRepo:  stageRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		logger:     logger,
	}
}

// Handle executes the UnblockStageCommand.
func (h *UnblockStageHandler) Handle(ctx context.Context, cmd UnblockStageCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		stage, err := h.stageRepo.FindByID(txCtx, cmd.StageID)
		if err != nil {
			return err
		}

		if err := stage.Unblock(); err != nil {
			return err
		}

		if err := h.stageRepo.Save(txCtx, stage); err != nil {
			return err
		}

		return stageEventsToOutbox(txCtx, h.outboxRepo, stage)
	})
}
