package services

import (
	"testing"
	"time"

	"creator-progress-system/models"
)

func TestPendingLedgerAccumulates(t *testing.T) {
	l := NewPendingLedger(time.Minute)

	l.Add("user-1", 10)
	l.Add("user-1", 15)
	l.Add("user-2", 5)

	if got := l.PendingTotal("user-1"); got != 25 {
		t.Fatalf("expected 25 pending for user-1, got %d", got)
	}
	if got := l.PendingTotal("user-2"); got != 5 {
		t.Fatalf("expected 5 pending for user-2, got %d", got)
	}
}

func TestPendingLedgerConfirmClears(t *testing.T) {
	l := NewPendingLedger(time.Minute)

	l.Add("user-1", 10)
	l.Add("user-1", 15)
	l.Confirm("user-1")

	if got := l.PendingTotal("user-1"); got != 0 {
		t.Fatalf("expected cleared overlay after confirm, got %d", got)
	}
}

func TestPendingLedgerRollbackDropsOneEntry(t *testing.T) {
	l := NewPendingLedger(time.Minute)

	id := l.Add("user-1", 10)
	l.Add("user-1", 15)
	l.Rollback(id)

	if got := l.PendingTotal("user-1"); got != 15 {
		t.Fatalf("expected 15 pending after rollback, got %d", got)
	}
}

func TestPendingLedgerExpiry(t *testing.T) {
	l := NewPendingLedger(5 * time.Second)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	l.Add("user-1", 10)
	base = base.Add(2 * time.Second)
	l.Add("user-1", 20)

	// First entry expires, second survives
	base = base.Add(4 * time.Second)
	if got := l.PendingTotal("user-1"); got != 20 {
		t.Fatalf("expected only unexpired delta (20), got %d", got)
	}

	base = base.Add(10 * time.Second)
	l.SweepExpired()
	if got := l.PendingTotal("user-1"); got != 0 {
		t.Fatalf("expected empty overlay after sweep, got %d", got)
	}
}

func TestPendingLedgerWatchConfirmsOnRewardEvent(t *testing.T) {
	l := NewPendingLedger(time.Minute)
	bus := NewEventBus()
	cancel := l.Watch(bus)
	defer cancel()

	l.Add("user-1", 10)
	bus.Publish(models.RewardEvent{Type: models.RewardEventType, UserID: "user-1"})

	deadline := time.After(time.Second)
	for l.PendingTotal("user-1") != 0 {
		select {
		case <-deadline:
			t.Fatalf("overlay not confirmed after reward event, pending=%d", l.PendingTotal("user-1"))
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
