package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

// DecisionStore holds issued gate decisions for the commit freshness window,
// and optionally caches decisions per edge for callers that explicitly ask
// for cached evaluation. Entries expire; an expired decision is simply gone.
type DecisionStore interface {
	// Put stores a decision by ID with the given TTL.
	Put(ctx context.Context, decision domain.GateDecision, ttl time.Duration) error

	// Get returns the decision with the given ID, if still present.
	Get(ctx context.Context, id uuid.UUID) (domain.GateDecision, bool, error)

	// PutCached stores a decision keyed by its transition edge.
	PutCached(ctx context.Context, decision domain.GateDecision, ttl time.Duration) error

	// GetCached returns the cached decision for the edge, if still present.
	GetCached(ctx context.Context, request domain.TransitionRequest) (domain.GateDecision, bool, error)

	// Delete removes a decision, ending its committable window early.
	Delete(ctx context.Context, id uuid.UUID) error
}
