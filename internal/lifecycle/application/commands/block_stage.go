package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/outbox"
)

// BlockStageCommand marks an in-progress stage as blocked.
type BlockStageCommand struct {
	StageID uuid.UUID
	Reason  string
}

// CommandName identifies the command.
func (c BlockStageCommand) CommandName() string { return "lifecycle.block_stage" }

// BlockStageHandler handles the BlockStageCommand.
type BlockStageHandler struct {
	stageRepo  domain.StageRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	logger     *slog.Logger
}

// NewBlockStageHandler creates a new BlockStageHandler.
func NewBlockStageHandler(
	stageRepo domain.StageRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
) *BlockStageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlockStageHandler{
		stageRepo:  stageRepo,
		outboxRepo: outboxRepo,
		uow:        uow,
		logger:     logger,
	}
}

// Handle executes the BlockStageCommand.
func (h *BlockStageHandler) Handle(ctx context.Context, cmd BlockStageCommand) error {
	return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		stage, err := h.stageRepo.FindByID(txCtx, cmd.StageID)
		if err != nil {
			return err
		}

		if err := stage.Block(cmd.Reason); err != nil {
			return err
		}

		if err := h.stageRepo.Save(txCtx, stage); err != nil {
			return err
		}

		return stageEventsToOutbox(txCtx, h.outboxRepo, stage)
	})
}

// stageEventsToOutbox drains an aggregate's uncommitted events onto the
// outbox inside the current transaction.
func stageEventsToOutbox(ctx context.Context, repo outbox.Repository, stage *domain.Stage) error {
	if repo == nil {
		return nil
	}
	for _, event := range stage.DomainEvents() {
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		if err := repo.Save(ctx, msg); err != nil {
			return err
		}
	}
	stage.ClearDomainEvents()
	return nil
}
