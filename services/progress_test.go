package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestMemoryStoreEnsureIsIdempotent(t *testing.T) {
	store := NewMemoryProgressStore()
	ctx := context.Background()

	first, err := store.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if first.Level != 1 || first.Points != 0 || first.MaxLevelPoints == 0 {
		t.Fatalf("unexpected fresh record: %+v", first)
	}

	second, err := store.Ensure(ctx, "user-1")
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("ensure created a second record: %s vs %s", second.ID, first.ID)
	}
}

func TestMemoryStoreGetUnknownUser(t *testing.T) {
	store := NewMemoryProgressStore()

	if _, err := store.Get(context.Background(), "nobody"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record-not-found, got %v", err)
	}
}

func TestMemoryStoreVersionConflict(t *testing.T) {
	store := NewMemoryProgressStore()
	ctx := context.Background()

	if _, err := store.Ensure(ctx, "user-1"); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	a, _ := store.Get(ctx, "user-1")
	b, _ := store.Get(ctx, "user-1")

	a.Points = 10
	if err := store.Put(ctx, a); err != nil {
		t.Fatalf("first put failed: %v", err)
	}

	b.Points = 99
	if err := store.Put(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict on stale write, got %v", err)
	}

	rec, _ := store.Get(ctx, "user-1")
	if rec.Points != 10 {
		t.Fatalf("stale write clobbered the record: points=%d", rec.Points)
	}
}

func TestStoreSelfHealsInconsistentRow(t *testing.T) {
	store := NewMemoryProgressStore()
	ctx := context.Background()

	rec, _ := store.Ensure(ctx, "user-1")
	// Simulate a corrupt row written by an older version: level points past
	// the per-level cost, negative streak
	rec.LevelPoints = 250
	rec.MaxLevelPoints = 100
	rec.Level = 2
	rec.Points = 450
	rec.CurrentStreak = -3
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	healed, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if healed.LevelPoints >= healed.MaxLevelPoints {
		t.Fatalf("read did not re-normalize level points: %d/%d", healed.LevelPoints, healed.MaxLevelPoints)
	}
	if healed.Level != 4 {
		t.Fatalf("expected healed level 4 (2 + 250/100), got %d", healed.Level)
	}
	if healed.Points != 450 {
		t.Fatalf("healing must not change lifetime points, got %d", healed.Points)
	}
	if healed.CurrentStreak != 0 {
		t.Fatalf("expected negative streak clamped to 0, got %d", healed.CurrentStreak)
	}
}

func TestMemoryStoreUnlocks(t *testing.T) {
	store := NewMemoryProgressStore()
	ctx := context.Background()

	if err := store.RecordUnlock(ctx, "user-1", "FIRST_TASK"); err != nil {
		t.Fatalf("record unlock failed: %v", err)
	}

	codes, err := store.UnlockedCodes(ctx, "user-1")
	if err != nil {
		t.Fatalf("unlocked codes failed: %v", err)
	}
	if !codes["FIRST_TASK"] {
		t.Fatalf("expected FIRST_TASK unlocked, got %v", codes)
	}

	other, _ := store.UnlockedCodes(ctx, "user-2")
	if len(other) != 0 {
		t.Fatalf("unlocks leaked across users: %v", other)
	}
}
