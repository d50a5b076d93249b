package services

import (
	"log"
	"sync"
	"time"

	"creator-progress-system/models"

	"github.com/google/uuid"
)

// DefaultPendingTTL bounds how long an unconfirmed overlay entry is shown.
// UI smoothing only, not a correctness mechanism: the expiry fires whether or
// not the backend call actually succeeded.
const DefaultPendingTTL = 5 * time.Second

type pendingDelta struct {
	id        string
	delta     int64
	expiresAt time.Time
}

// PendingLedger overlays not-yet-confirmed point deltas on top of the last
// authoritative value. Display-only: it never writes authoritative state.
// Multiple pending deltas from rapid actions accumulate additively until a
// confirmation, rollback, or expiry clears them.
type PendingLedger struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string][]pendingDelta // userID → pending, oldest first
	now     func() time.Time          // test seam
}

func NewPendingLedger(ttl time.Duration) *PendingLedger {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingLedger{
		ttl:     ttl,
		entries: make(map[string][]pendingDelta),
		now:     time.Now,
	}
}

// Add records an expected delta the moment the local action completes,
// before the authoritative store confirms. Returns the entry id for rollback.
func (l *PendingLedger) Add(userID string, delta int64) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.NewString()
	l.entries[userID] = append(l.entries[userID], pendingDelta{
		id:        id,
		delta:     delta,
		expiresAt: l.now().Add(l.ttl),
	})
	return id
}

// PendingTotal is the transient overlay shown to the user on top of the last
// known authoritative total. Expired entries are pruned lazily.
func (l *PendingLedger) PendingTotal(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(userID)
	var total int64
	for _, p := range l.entries[userID] {
		total += p.delta
	}
	return total
}

// Confirm retires every pending delta for the user: the authoritative record
// arrived, so the overlay has nothing left to anticipate.
func (l *PendingLedger) Confirm(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, userID)
}

// Rollback drops a single pending entry so the UI stops showing points the
// user did not actually receive.
func (l *PendingLedger) Rollback(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID, list := range l.entries {
		for i, p := range list {
			if p.id == id {
				l.entries[userID] = append(list[:i], list[i+1:]...)
				if len(l.entries[userID]) == 0 {
					delete(l.entries, userID)
				}
				return
			}
		}
	}
}

// SweepExpired prunes stale entries across all users. The scheduler calls
// this periodically; PendingTotal also prunes lazily per user.
func (l *PendingLedger) SweepExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for userID := range l.entries {
		l.pruneLocked(userID)
	}
}

func (l *PendingLedger) pruneLocked(userID string) {
	now := l.now()
	list := l.entries[userID]
	kept := list[:0]
	for _, p := range list {
		if p.expiresAt.After(now) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, userID)
	} else {
		l.entries[userID] = kept
	}
}

// Watch wires the ledger to the event bus: reward events confirm, failure
// events roll the overlay back. Runs until the subscription is canceled.
func (l *PendingLedger) Watch(bus *EventBus) func() {
	ch, cancel := bus.Subscribe("")
	go func() {
		for evt := range ch {
			switch evt.Type {
			case models.RewardEventType:
				l.Confirm(evt.UserID)
			case models.RewardFailedEventType:
				l.Confirm(evt.UserID) // failed persist: drop the optimistic points entirely
				log.Printf("↩️ [OVERLAY] rolled back pending points (user=%s, source=%s)", evt.UserID, evt.SourceID)
			}
		}
	}()
	return cancel
}
