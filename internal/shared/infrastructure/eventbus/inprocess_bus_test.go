package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/stagegate/internal/shared/infrastructure/eventbus"
)

type recordingConsumer struct {
	eventTypes []string
	received   []*eventbus.ConsumedEvent
	failWith   error
}

func (c *recordingConsumer) EventTypes() []string { return c.eventTypes }

func (c *recordingConsumer) Handle(_ context.Context, event *eventbus.ConsumedEvent) error {
	c.received = append(c.received, event)
	return c.failWith
}

func envelope(t *testing.T, routingKey string) []byte {
	t.Helper()
	payload, err := json.Marshal(eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "stage",
		RoutingKey:    routingKey,
		OccurredAt:    time.Now().UTC(),
		Payload:       json.RawMessage(`{"project_id":"p1"}`),
	})
	require.NoError(t, err)
	return payload
}

func TestInProcessEventBus_DeliversToConsumer(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &recordingConsumer{eventTypes: []string{"lifecycle.transition.committed"}}
	bus.RegisterConsumer(consumer)

	err := bus.Publish(context.Background(), "lifecycle.transition.committed",
		envelope(t, "lifecycle.transition.committed"))

	require.NoError(t, err)
	require.Len(t, consumer.received, 1)
	assert.Equal(t, "lifecycle.transition.committed", consumer.received[0].RoutingKey)
}

func TestInProcessEventBus_RoutingKeyIsolation(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	blocked := &recordingConsumer{eventTypes: []string{"lifecycle.stage.blocked"}}
	committed := &recordingConsumer{eventTypes: []string{"lifecycle.transition.committed"}}
	bus.RegisterConsumer(blocked)
	bus.RegisterConsumer(committed)

	err := bus.Publish(context.Background(), "lifecycle.stage.blocked",
		envelope(t, "lifecycle.stage.blocked"))

	require.NoError(t, err)
	assert.Len(t, blocked.received, 1)
	assert.Empty(t, committed.received)
}

func TestInProcessEventBus_ConsumerFailureDoesNotPropagate(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	failing := &recordingConsumer{
		eventTypes: []string{"lifecycle.transition.committed"},
		failWith:   errors.New("consumer exploded"),
	}
	healthy := &recordingConsumer{eventTypes: []string{"lifecycle.transition.committed"}}
	bus.RegisterConsumer(failing)
	bus.RegisterConsumer(healthy)

	err := bus.Publish(context.Background(), "lifecycle.transition.committed",
		envelope(t, "lifecycle.transition.committed"))

	require.NoError(t, err)
	assert.Len(t, healthy.received, 1, "delivery continues past a failing consumer")
}

func TestInProcessEventBus_FillsMissingRoutingKey(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &recordingConsumer{eventTypes: []string{"lifecycle.stage.unblocked"}}
	bus.RegisterConsumer(consumer)

	err := bus.Publish(context.Background(), "lifecycle.stage.unblocked", envelope(t, ""))

	require.NoError(t, err)
	require.Len(t, consumer.received, 1)
	assert.Equal(t, "lifecycle.stage.unblocked", consumer.received[0].RoutingKey)
}

func TestConsumerRegistry_Dispatch(t *testing.T) {
	registry := eventbus.NewConsumerRegistry(nil)
	consumer := &recordingConsumer{
		eventTypes: []string{"lifecycle.stage.blocked"},
		failWith:   errors.New("broken"),
	}
	registry.Register(consumer)

	err := registry.Dispatch(context.Background(), &eventbus.ConsumedEvent{
		EventID:    uuid.New(),
		RoutingKey: "lifecycle.stage.blocked",
	})
	assert.EqualError(t, err, "broken")

	err = registry.Dispatch(context.Background(), &eventbus.ConsumedEvent{
		RoutingKey: "no.consumers.here",
	})
	assert.NoError(t, err)
}
