package commands_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/outbox"
)

func cloneStage(s *domain.Stage) *domain.Stage {
	return domain.RehydrateStage(
		s.ID(), s.ProjectID(), s.Order(), s.Name(), s.Status(),
		s.EstimatedDuration(), s.StartDate(), s.EndDate(),
		s.Prerequisites(), s.Deliverables(),
		s.Version(), s.CreatedAt(), s.UpdatedAt(),
	)
}

// fakeStageRepo stores stage clones and enforces the same optimistic
// concurrency contract as the SQL repositories: saving a stale aggregate
// fails, a successful save bumps the version.
type fakeStageRepo struct {
	mu     sync.Mutex
	stages map[uuid.UUID]*domain.Stage
}

func newFakeStageRepo(stages ...*domain.Stage) *fakeStageRepo {
	repo := &fakeStageRepo{stages: make(map[uuid.UUID]*domain.Stage)}
	for _, s := range stages {
		repo.stages[s.ID()] = cloneStage(s)
	}
	return repo
}

func (r *fakeStageRepo) Save(_ context.Context, stage *domain.Stage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.stages[stage.ID()]; ok && stored.Version() != stage.Version() {
		return fmt.Errorf("stage %s version %d: %w",
			stage.ID(), stage.Version(), domain.ErrConcurrentTransitionConflict)
	}
	stage.SetVersion(stage.Version() + 1)
	r.stages[stage.ID()] = cloneStage(stage)
	return nil
}

func (r *fakeStageRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stage, ok := r.stages[id]
	if !ok {
		return nil, domain.ErrStageNotFound
	}
	return cloneStage(stage), nil
}

func (r *fakeStageRepo) FindByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Stage
	for _, s := range r.stages {
		if s.ProjectID() == projectID {
			out = append(out, cloneStage(s))
		}
	}
	return out, nil
}

func (r *fakeStageRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stages[id]; !ok {
		return domain.ErrStageNotFound
	}
	delete(r.stages, id)
	return nil
}

func (r *fakeStageRepo) snapshot() map[uuid.UUID]*domain.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[uuid.UUID]*domain.Stage, len(r.stages))
	for id, s := range r.stages {
		snap[id] = cloneStage(s)
	}
	return snap
}

func (r *fakeStageRepo) restore(snap map[uuid.UUID]*domain.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = snap
}

type fakeConditionRepo struct {
	mu         sync.Mutex
	conditions map[uuid.UUID]*domain.TransitionCondition
}

func newFakeConditionRepo() *fakeConditionRepo {
	return &fakeConditionRepo{conditions: make(map[uuid.UUID]*domain.TransitionCondition)}
}

func (r *fakeConditionRepo) Save(_ context.Context, condition *domain.TransitionCondition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conditions[condition.ID()] = condition
	return nil
}

func (r *fakeConditionRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.TransitionCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cond, ok := r.conditions[id]
	if !ok {
		return nil, domain.ErrConditionNotFound
	}
	return cond, nil
}

func (r *fakeConditionRepo) FindByEdge(_ context.Context, projectID, fromStageID, toStageID uuid.UUID) ([]*domain.TransitionCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TransitionCondition
	for _, c := range r.conditions {
		if c.ProjectID() == projectID && c.FromStageID() == fromStageID && c.ToStageID() == toStageID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConditionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conditions, id)
	return nil
}

type fakeHistoryRepo struct {
	mu         sync.Mutex
	records    []*domain.TransitionRecord
	failAppend error
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Append(_ context.Context, record *domain.TransitionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	r.records = append(r.records, record)
	return nil
}

func (r *fakeHistoryRepo) FindByProject(_ context.Context, projectID uuid.UUID, limit, offset int) ([]*domain.TransitionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.TransitionRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].ProjectID() == projectID {
			matched = append(matched, r.records[i])
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeHistoryRepo) CountByStage(_ context.Context, stageID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if rec.References(stageID) {
			count++
		}
	}
	return count, nil
}

func (r *fakeHistoryRepo) snapshot() []*domain.TransitionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.TransitionRecord(nil), r.records...)
}

func (r *fakeHistoryRepo) restore(snap []*domain.TransitionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = snap
}

type fakeOutboxRepo struct {
	mu       sync.Mutex
	messages []*outbox.Message
	nextID   int64
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (r *fakeOutboxRepo) Save(_ context.Context, msg *outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	msg.ID = r.nextID
	r.messages = append(r.messages, msg)
	return nil
}

func (r *fakeOutboxRepo) GetUnpublished(_ context.Context, limit int) ([]*outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*outbox.Message
	for _, m := range r.messages {
		if !m.IsPublished() {
			out = append(out, m)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeOutboxRepo) MarkPublished(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			now := time.Now().UTC()
			m.PublishedAt = &now
			return nil
		}
	}
	return errors.New("message not found")
}

func (r *fakeOutboxRepo) MarkDead(_ context.Context, id int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			now := time.Now().UTC()
			m.DeadLetteredAt = &now
			m.DeadLetterReason = &reason
			return nil
		}
	}
	return errors.New("message not found")
}

func (r *fakeOutboxRepo) MarkFailed(_ context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.RetryCount++
			m.LastError = &errMsg
			m.NextRetryAt = &nextRetryAt
			return nil
		}
	}
	return errors.New("message not found")
}

func (r *fakeOutboxRepo) DeleteOld(_ context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) snapshot() []*outbox.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*outbox.Message(nil), r.messages...)
}

func (r *fakeOutboxRepo) restore(snap []*outbox.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = snap
}

// fakeUnitOfWork snapshots the fake repositories on Begin and restores them
// on Rollback, so the atomicity of command handlers is observable.
type fakeUnitOfWork struct {
	stageRepo   *fakeStageRepo
	historyRepo *fakeHistoryRepo
	outboxRepo  *fakeOutboxRepo

	mu          sync.Mutex
	stageSnap   map[uuid.UUID]*domain.Stage
	historySnap []*domain.TransitionRecord
	outboxSnap  []*outbox.Message
}

func newFakeUnitOfWork(stageRepo *fakeStageRepo, historyRepo *fakeHistoryRepo, outboxRepo *fakeOutboxRepo) *fakeUnitOfWork {
	return &fakeUnitOfWork{stageRepo: stageRepo, historyRepo: historyRepo, outboxRepo: outboxRepo}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stageRepo != nil {
		u.stageSnap = u.stageRepo.snapshot()
	}
	if u.historyRepo != nil {
		u.historySnap = u.historyRepo.snapshot()
	}
	if u.outboxRepo != nil {
		u.outboxSnap = u.outboxRepo.snapshot()
	}
	return ctx, nil
}

func (u *fakeUnitOfWork) Commit(_ context.Context) error { return nil }

func (u *fakeUnitOfWork) Rollback(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stageRepo != nil {
		u.stageRepo.restore(u.stageSnap)
	}
	if u.historyRepo != nil {
		u.historyRepo.restore(u.historySnap)
	}
	if u.outboxRepo != nil {
		u.outboxRepo.restore(u.outboxSnap)
	}
	return nil
}
