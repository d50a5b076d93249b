package services

import (
	"context"
	"testing"
	"time"

	"creator-progress-system/models"
)

func newTestAwardService(t *testing.T) (*AwardService, *MemoryProgressStore, *EventBus) {
	t.Helper()
	store := NewMemoryProgressStore()
	guard := NewAwardGuard(GuardConfig{MinInterval: 2 * time.Second})
	immediateRelease(guard)
	bus := NewEventBus()
	svc := NewAwardService(store, guard, bus)
	return svc, store, bus
}

func firstTaskReward() int64 {
	def := models.FindAchievement("FIRST_TASK")
	if def == nil {
		return 0
	}
	return def.PointsReward
}

func TestAwardPointsFirstTaskScenario(t *testing.T) {
	svc, _, _ := newTestAwardService(t)
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return day1 }

	result, err := svc.AwardPoints(context.Background(), "user-1", "task-123", 15)
	if err != nil {
		t.Fatalf("award failed: %v", err)
	}
	if result.Throttled {
		t.Fatalf("first award must not be throttled")
	}
	if result.UnlockedAchievement == nil || result.UnlockedAchievement.Code != "FIRST_TASK" {
		t.Fatalf("expected FIRST_TASK unlock, got %+v", result.UnlockedAchievement)
	}

	prog := result.Progress
	wantPoints := 15 + firstTaskReward() // task points plus achievement bonus
	if prog.Points != wantPoints {
		t.Fatalf("expected %d points, got %d", wantPoints, prog.Points)
	}
	if prog.Level != 1 {
		t.Fatalf("expected level 1, got %d", prog.Level)
	}
	if prog.CurrentStreak != 1 {
		t.Fatalf("expected streak 1, got %d", prog.CurrentStreak)
	}
}

func TestAwardPointsDuplicateSignalCollapses(t *testing.T) {
	svc, store, _ := newTestAwardService(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return now }

	if _, err := svc.AwardPoints(context.Background(), "user-1", "task-a", 15); err != nil {
		t.Fatalf("first award failed: %v", err)
	}
	after, _ := store.Get(context.Background(), "user-1")
	pointsAfterFirst := after.Points

	// Second task later the same day, then its duplicate signal 1s after
	now = now.Add(time.Hour)
	if _, err := svc.AwardPoints(context.Background(), "user-1", "task-b", 10); err != nil {
		t.Fatalf("second award failed: %v", err)
	}
	now = now.Add(time.Second)
	dup, err := svc.AwardPoints(context.Background(), "user-1", "task-b", 10)
	if err != nil {
		t.Fatalf("duplicate must not surface an error: %v", err)
	}
	if !dup.Throttled {
		t.Fatalf("duplicate within cooldown must be throttled")
	}

	final, _ := store.Get(context.Background(), "user-1")
	if final.Points != pointsAfterFirst+10 {
		t.Fatalf("expected exactly one 10-point increase, got %d → %d", pointsAfterFirst, final.Points)
	}
}

func TestAwardPointsStreakAcrossDays(t *testing.T) {
	svc, store, _ := newTestAwardService(t)
	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return day }

	for i := 0; i < 3; i++ {
		if _, err := svc.AwardPoints(context.Background(), "user-1", "daily-task", 5); err != nil {
			t.Fatalf("award on day %d failed: %v", i+1, err)
		}
		day = day.AddDate(0, 0, 1)
	}

	rec, _ := store.Get(context.Background(), "user-1")
	if rec.CurrentStreak != 3 {
		t.Fatalf("expected 3-day streak, got %d", rec.CurrentStreak)
	}
	if rec.TotalActiveDays != 3 {
		t.Fatalf("expected 3 active days, got %d", rec.TotalActiveDays)
	}

	codes, _ := store.UnlockedCodes(context.Background(), "user-1")
	if !codes["FIRST_TASK"] || !codes["STREAK_3"] {
		t.Fatalf("expected FIRST_TASK and STREAK_3 unlocked, got %v", codes)
	}
}

func TestAwardPointsInvalidRequest(t *testing.T) {
	svc, _, _ := newTestAwardService(t)

	if _, err := svc.AwardPoints(context.Background(), "user-1", "", 10); err != ErrInvalidAward {
		t.Fatalf("expected invalid award error for missing source, got %v", err)
	}
	if _, err := svc.AwardPoints(context.Background(), "", "task-a", 10); err != ErrInvalidAward {
		t.Fatalf("expected invalid award error for missing user, got %v", err)
	}
}

func TestAwardPointsStoreFailurePublishesRollback(t *testing.T) {
	svc, store, bus := newTestAwardService(t)
	events, cancel := bus.Subscribe("user-1")
	defer cancel()

	store.FailPuts = true
	_, err := svc.AwardPoints(context.Background(), "user-1", "task-a", 10)
	if err == nil {
		t.Fatalf("expected store failure to surface")
	}
	if !IsRetryable(err) {
		t.Fatalf("store failure must be retryable, got %v", err)
	}

	select {
	case evt := <-events:
		if evt.Type != models.RewardFailedEventType {
			t.Fatalf("expected reward_failed event, got %s", evt.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no rollback event published")
	}
}

func TestAwardPointsPublishesRewardEvent(t *testing.T) {
	svc, _, bus := newTestAwardService(t)
	events, cancel := bus.Subscribe("user-1")
	defer cancel()

	if _, err := svc.AwardPoints(context.Background(), "user-1", "task-a", 25); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	select {
	case evt := <-events:
		if evt.Type != models.RewardEventType {
			t.Fatalf("expected reward event, got %s", evt.Type)
		}
		if evt.PointsDelta != 25 || evt.UserID != "user-1" || evt.SourceID != "task-a" {
			t.Fatalf("unexpected event payload: %+v", evt)
		}
		if evt.NewTotals.Points < 25 {
			t.Fatalf("event totals missing award: %+v", evt.NewTotals)
		}
		if evt.UnlockedAchievement != "FIRST_TASK" {
			t.Fatalf("expected FIRST_TASK in event, got %q", evt.UnlockedAchievement)
		}
	case <-time.After(time.Second):
		t.Fatalf("no reward event published")
	}
}

func TestAwardPointsBonusDoesNotCascade(t *testing.T) {
	svc, store, _ := newTestAwardService(t)
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	svc.now = func() time.Time { return day1 }

	// First award unlocks FIRST_TASK whose bonus re-enters the pipeline.
	// The bonus itself must not unlock anything further in the same pass.
	if _, err := svc.AwardPoints(context.Background(), "user-1", "task-a", 15); err != nil {
		t.Fatalf("award failed: %v", err)
	}

	codes, _ := store.UnlockedCodes(context.Background(), "user-1")
	if len(codes) != 1 || !codes["FIRST_TASK"] {
		t.Fatalf("expected exactly FIRST_TASK unlocked, got %v", codes)
	}

	rec, _ := store.Get(context.Background(), "user-1")
	if rec.TotalActiveDays != 1 || rec.CurrentStreak != 1 {
		t.Fatalf("bonus award must not double-count the day: %+v", rec)
	}
}
