// Package cache contains the decision store implementations. A decision
// store holds issued gate decisions for the commit freshness window and
// caches per-edge evaluations.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

type memoryEntry struct {
	decision  domain.GateDecision
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryDecisionStore is an in-memory decision store for single-binary
// deployments without Redis. Expired entries are dropped lazily on read
// and swept on write.
type MemoryDecisionStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]memoryEntry
	byEdge  map[string]memoryEntry
	nowFunc func() time.Time
}

// NewMemoryDecisionStore creates an in-memory decision store.
func NewMemoryDecisionStore() *MemoryDecisionStore {
	return &MemoryDecisionStore{
		byID:    make(map[uuid.UUID]memoryEntry),
		byEdge:  make(map[string]memoryEntry),
		nowFunc: time.Now,
	}
}

func edgeKey(request domain.TransitionRequest) string {
	return fmt.Sprintf("%s:%s:%s", request.ProjectID, request.FromStageID, request.ToStageID)
}

// Put stores a decision by ID with the given TTL.
func (s *MemoryDecisionStore) Put(_ context.Context, decision domain.GateDecision, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	s.sweep(now)
	s.byID[decision.ID] = memoryEntry{decision: decision, expiresAt: now.Add(ttl)}
	return nil
}

// Get returns the decision with the given ID, if still present.
func (s *MemoryDecisionStore) Get(_ context.Context, id uuid.UUID) (domain.GateDecision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok {
		return domain.GateDecision{}, false, nil
	}
	if entry.expired(s.nowFunc()) {
		delete(s.byID, id)
		return domain.GateDecision{}, false, nil
	}
	return entry.decision, true, nil
}

// PutCached stores a decision keyed by its transition edge.
func (s *MemoryDecisionStore) PutCached(_ context.Context, decision domain.GateDecision, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	s.sweep(now)
	s.byEdge[edgeKey(decision.Request)] = memoryEntry{decision: decision, expiresAt: now.Add(ttl)}
	return nil
}

// GetCached returns the cached decision for the edge, if still present.
func (s *MemoryDecisionStore) GetCached(_ context.Context, request domain.TransitionRequest) (domain.GateDecision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey(request)
	entry, ok := s.byEdge[key]
	if !ok {
		return domain.GateDecision{}, false, nil
	}
	if entry.expired(s.nowFunc()) {
		delete(s.byEdge, key)
		return domain.GateDecision{}, false, nil
	}
	return entry.decision, true, nil
}

// Delete removes a decision, ending its committable window early. The
// cached edge entry for the same decision is dropped too, so a later
// evaluation of the edge cannot serve the consumed decision.
func (s *MemoryDecisionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	delete(s.byID, id)
	if ok {
		key := edgeKey(entry.decision.Request)
		if cached, exists := s.byEdge[key]; exists && cached.decision.ID == id {
			delete(s.byEdge, key)
		}
	}
	return nil
}

// sweep drops expired entries. Caller holds the lock.
func (s *MemoryDecisionStore) sweep(now time.Time) {
	for id, entry := range s.byID {
		if entry.expired(now) {
			delete(s.byID, id)
		}
	}
	for key, entry := range s.byEdge {
		if entry.expired(now) {
			delete(s.byEdge, key)
		}
	}
}
