// Package commands contains the lifecycle write operations, including the
// transition executor that commits admissible stage transitions.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/application/services"
	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	sharedApplication "github.com/felixgeelhaar/stagegate/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/stagegate/internal/shared/domain"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/stagegate/pkg/observability"
)

// projectLocks serializes commits per project. Concurrent commits for
// different projects proceed independently.
type projectLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newProjectLocks() *projectLocks {
	return &projectLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (p *projectLocks) lock(projectID uuid.UUID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[projectID] = l
	}
	return l
}

// CommitTransitionCommand contains the data needed to commit a transition.
// The decision must have been issued by the gate and still be fresh.
type CommitTransitionCommand struct {
	Request    domain.TransitionRequest
	DecisionID uuid.UUID
	Notes      string
}

// CommandName identifies the command.
func (c CommitTransitionCommand) CommandName() string { return "lifecycle.commit_transition" }

// CommitTransitionResult contains the result of committing a transition.
type CommitTransitionResult struct {
	RecordID   uuid.UUID
	DecisionID uuid.UUID
}

// CommitTransitionHandler commits an admissible transition atomically:
// the outgoing stage completes, the incoming stage starts, a history record
// is appended, and the committed event is staged on the outbox. All of it
// happens in one transaction or not at all.
type CommitTransitionHandler struct {
	stageRepo   domain.StageRepository
	historyRepo domain.HistoryRepository
	outboxRepo  outbox.Repository
	decisions   services.DecisionStore
	uow         sharedApplication.UnitOfWork
	locks       *projectLocks
	logger      *slog.Logger
	metrics     observability.Metrics
}

// NewCommitTransitionHandler creates a new CommitTransitionHandler.
func NewCommitTransitionHandler(
	stageRepo domain.StageRepository,
	historyRepo domain.HistoryRepository,
	outboxRepo outbox.Repository,
	decisions services.DecisionStore,
	uow sharedApplication.UnitOfWork,
	logger *slog.Logger,
	metrics observability.Metrics,
) *CommitTransitionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CommitTransitionHandler{
		stageRepo:   stageRepo,
		historyRepo: historyRepo,
		outboxRepo:  outboxRepo,
		decisions:   decisions,
		uow:         uow,
		locks:       newProjectLocks(),
		logger:      logger,
		metrics:     metrics,
	}
}

// Handle executes the CommitTransitionCommand.
func (h *CommitTransitionHandler) Handle(ctx context.Context, cmd CommitTransitionCommand) (*CommitTransitionResult, error) {
	decision, ok, err := h.decisions.Get(ctx, cmd.DecisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load decision: %w", err)
	}
	if !ok {
		return nil, domain.ErrStaleDecision
	}
	if !decision.Request.Equals(cmd.Request) {
		return nil, domain.ErrDecisionMismatch
	}
	if !decision.Admissible {
		return nil, domain.ErrDecisionNotAdmissible
	}

	lock := h.locks.lock(cmd.Request.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	// The decision may have been consumed by a concurrent commit while we
	// waited for the lock.
	if _, ok, err = h.decisions.Get(ctx, cmd.DecisionID); err != nil {
		return nil, fmt.Errorf("failed to load decision: %w", err)
	} else if !ok {
		return nil, domain.ErrStaleDecision
	}

	var record *domain.TransitionRecord

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		fromStage, err := h.stageRepo.FindByID(txCtx, cmd.Request.FromStageID)
		if err != nil {
			return err
		}
		toStage, err := h.stageRepo.FindByID(txCtx, cmd.Request.ToStageID)
		if err != nil {
			return err
		}

		// Re-check stage state inside the transaction. Another commit may
		// have moved the project since the decision was issued.
		if fromStage.Status() != domain.StatusInProgress {
			return fmt.Errorf("stage %s is %s: %w",
				fromStage.ID(), fromStage.Status(), domain.ErrConcurrentTransitionConflict)
		}
		if toStage.Status() != domain.StatusNotStarted {
			return fmt.Errorf("stage %s is %s: %w",
				toStage.ID(), toStage.Status(), domain.ErrConcurrentTransitionConflict)
		}

		if err := fromStage.Complete(); err != nil {
			return err
		}
		if err := toStage.Start(); err != nil {
			return err
		}

		if err := h.stageRepo.Save(txCtx, fromStage); err != nil {
			return err
		}
		if err := h.stageRepo.Save(txCtx, toStage); err != nil {
			return err
		}

		record = domain.NewTransitionRecord(decision, cmd.Notes)
		if err := h.historyRepo.Append(txCtx, record); err != nil {
			return err
		}

		event := domain.NewTransitionCommittedEvent(record)
		if correlationID := observability.CorrelationIDFromContext(txCtx); correlationID != "" {
			if id, parseErr := uuid.Parse(correlationID); parseErr == nil {
				event.SetMetadata(sharedDomain.EventMetadata{CorrelationID: id})
			}
		}

		msg, err := outbox.NewMessage(&event)
		if err != nil {
			return fmt.Errorf("failed to stage event: %w", err)
		}
		return h.outboxRepo.Save(txCtx, msg)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConcurrentTransitionConflict) {
			h.metrics.Counter(observability.MetricTransitionConflicts, 1)
		}
		return nil, err
	}

	// The decision is single use. Expiring it here keeps a retry of the
	// same commit from running twice.
	if err := h.decisions.Delete(ctx, decision.ID); err != nil {
		h.logger.Warn("failed to expire committed decision",
			"decision_id", decision.ID,
			"error", err,
		)
	}

	h.metrics.Counter(observability.MetricTransitionCommits, 1)
	h.logger.Info("transition committed",
		"project_id", cmd.Request.ProjectID,
		"from_stage_id", cmd.Request.FromStageID,
		"to_stage_id", cmd.Request.ToStageID,
		"decision_id", decision.ID,
		"record_id", record.ID(),
	)

	return &CommitTransitionResult{RecordID: record.ID(), DecisionID: decision.ID}, nil
}
