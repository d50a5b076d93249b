package services

import (
	"log"
	"sync"

	"creator-progress-system/models"
)

// EventBus is the local pub/sub channel reward events travel on: fire and
// forget, at-least-once to currently-subscribed handlers, nothing persisted.
// Decoupled from any HTTP concern so both the SSE stream and the optimistic
// overlay can subscribe the same way.
type EventBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]chan models.RewardEvent // userID → subscriber set; "" = all users
	closed bool
}

const subscriberBuffer = 16

func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[string]map[int]chan models.RewardEvent),
	}
}

// Subscribe registers for events concerning userID (empty string = every
// user). The returned cancel func is idempotent.
func (b *EventBus) Subscribe(userID string) (<-chan models.RewardEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	ch := make(chan models.RewardEvent, subscriberBuffer)
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]chan models.RewardEvent)
	}
	b.subs[userID][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[userID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(b.subs, userID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers evt to user-scoped and wildcard subscribers. Sends never
// block: a subscriber that has fallen behind drops the event.
func (b *EventBus) Publish(evt models.RewardEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	deliver := func(set map[int]chan models.RewardEvent) {
		for _, ch := range set {
			select {
			case ch <- evt:
			default:
				log.Printf("⚠️ [BUS] slow subscriber, dropped %s event (user=%s)", evt.Type, evt.UserID)
			}
		}
	}
	if evt.UserID != "" {
		deliver(b.subs[evt.UserID])
	}
	deliver(b.subs[""])
}

// Close stops delivery. Existing subscriber channels stay open until their
// cancel funcs run; a closed bus simply drops publishes.
func (b *EventBus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
