package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/stagegate/internal/lifecycle/domain"
)

func storeAt(now *time.Time) *MemoryDecisionStore {
	store := NewMemoryDecisionStore()
	store.nowFunc = func() time.Time { return *now }
	return store
}

func testDecision() domain.GateDecision {
	return domain.NewGateDecision(domain.TransitionRequest{
		ProjectID:   uuid.New(),
		FromStageID: uuid.New(),
		ToStageID:   uuid.New(),
	}, nil)
}

func TestMemoryDecisionStore_PutGet(t *testing.T) {
	now := time.Now()
	store := storeAt(&now)
	decision := testDecision()

	require.NoError(t, store.Put(context.Background(), decision, time.Minute))

	got, ok, err := store.Get(context.Background(), decision.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decision.ID, got.ID)

	_, ok, err = store.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDecisionStore_Expiry(t *testing.T) {
	now := time.Now()
	store := storeAt(&now)
	decision := testDecision()

	require.NoError(t, store.Put(context.Background(), decision, time.Minute))

	now = now.Add(2 * time.Minute)

	_, ok, err := store.Get(context.Background(), decision.ID)
	require.NoError(t, err)
	assert.False(t, ok, "expired decision must be gone")
}

func TestMemoryDecisionStore_Delete(t *testing.T) {
	now := time.Now()
	store := storeAt(&now)
	decision := testDecision()

	require.NoError(t, store.Put(context.Background(), decision, time.Minute))
	require.NoError(t, store.Delete(context.Background(), decision.ID))

	_, ok, err := store.Get(context.Background(), decision.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDecisionStore_DeleteDropsEdgeEntry(t *testing.T) {
	now := time.Now()
	store := storeAt(&now)
	decision := testDecision()

	require.NoError(t, store.Put(context.Background(), decision, time.Minute))
	require.NoError(t, store.PutCached(context.Background(), decision, time.Minute))
	require.NoError(t, store.Delete(context.Background(), decision.ID))

	_, ok, err := store.GetCached(context.Background(), decision.Request)
	require.NoError(t, err)
	assert.False(t, ok, "deleting a decision must evict its edge entry")
}

func TestMemoryDecisionStore_DeleteKeepsNewerEdgeEntry(t *testing.T) {
	now := time.Now()
	store := storeAt(&now)
	old := testDecision()

	require.NoError(t, store.Put(context.Background(), old, time.Minute))
	require.NoError(t, store.PutCached(context.Background(), old, time.Minute))

	// A newer decision for the same edge replaces the cached entry.
	newer := domain.NewGateDecision(old.Request, nil)
	require.NoError(t, store.PutCached(context.Background(), newer, time.Minute))

	require.NoError(t, store.Delete(context.Background(), old.ID))

	got, ok, err := store.GetCached(context.Background(), old.Request)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newer.ID, got.ID)
}

func TestMemoryDecisionStore_CachedByEdge(t *testing.T) {
	now := time.Now()
	store := storeAt(&now)
	decision := testDecision()

	require.NoError(t, store.PutCached(context.Background(), decision, time.Minute))

	got, ok, err := store.GetCached(context.Background(), decision.Request)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, decision.ID, got.ID)

	// A different edge shares nothing.
	other := decision.Request
	other.ToStageID = uuid.New()
	_, ok, err = store.GetCached(context.Background(), other)
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.GetCached(context.Background(), decision.Request)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDecisionStore_SweepOnWrite(t *testing.T) {
	now := time.Now()
	store := storeAt(&now)

	stale := testDecision()
	require.NoError(t, store.Put(context.Background(), stale, time.Minute))

	now = now.Add(2 * time.Minute)

	fresh := testDecision()
	require.NoError(t, store.Put(context.Background(), fresh, time.Minute))

	assert.Len(t, store.byID, 1, "the sweep dropped the stale entry")
}
