package event

import (
	"testing"

	"orpheus/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAssignsUniqueIDs(t *testing.T) {
	bus := NewBus()

	first := bus.Publish(model.EventProjectCreated, "p1", nil)
	second := bus.Publish(model.EventProjectCreated, "p1", nil)

	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Timestamp.IsZero())
}

func TestFanOutToAllSubscribers(t *testing.T) {
	bus := NewBus()

	ch1, cancel1 := bus.Subscribe()
	defer cancel1()
	ch2, cancel2 := bus.Subscribe()
	defer cancel2()

	published := bus.Publish(model.EventSplitRebalanced, "p1", map[string]int64{"alice": 10000})

	for _, ch := range []<-chan model.Event{ch1, ch2} {
		got := <-ch
		assert.Equal(t, published.ID, got.ID)
		assert.Equal(t, model.EventSplitRebalanced, got.Type)
		assert.Equal(t, "p1", got.ProjectID)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Cancel is safe to call twice.
	cancel()

	// Publishing after cancel reaches no one and does not panic.
	bus.Publish(model.EventProjectCreated, "p1", nil)
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer without draining it.
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(model.EventTrackStatusChanged, "p1", nil)
	}

	require.Len(t, ch, subscriberBuffer)
}
