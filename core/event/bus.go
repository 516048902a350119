// Package event is the in-process notification seam. Components publish
// ledger events after their critical sections; the presentation layer (or a
// broker binding) subscribes. Delivery is at-least-once from the consumer's
// point of view; consumers deduplicate by event ID.
package event

import (
	"sync"
	"time"

	"orpheus/logger"
	"orpheus/model"

	"github.com/google/uuid"
)

const subscriberBuffer = 64

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and must resync from the API.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int64]chan model.Event
	nextID      int64
	now         func() time.Time
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int64]chan model.Event),
		now:         time.Now,
	}
}

// Subscribe registers a consumer and returns its channel together with a
// cancel function. Cancel closes the channel.
func (b *Bus) Subscribe() (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan model.Event, subscriberBuffer)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish assigns an event ID and timestamp and fans the event out.
func (b *Bus) Publish(eventType model.EventType, projectID string, payload interface{}) model.Event {
	evt := model.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ProjectID: projectID,
		Payload:   payload,
		Timestamp: b.now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			logger.Warn("event subscriber buffer full, dropping event",
				logger.String("eventId", evt.ID),
				logger.String("type", string(evt.Type)))
		}
	}
	return evt
}
