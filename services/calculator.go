package services

import (
	"creator-progress-system/models"
)

// ProgressSnapshot is the numeric slice of a progress record the calculator
// operates on. Keeping it separate from the gorm model keeps ApplyPoints free
// of I/O concerns and trivially testable.
type ProgressSnapshot struct {
	Points         int64
	Level          int
	LevelPoints    int64
	MaxLevelPoints int64
}

// ClampSnapshot coerces every field into its valid domain. Negative values
// floor to zero (or 1 for level), a missing per-level cost falls back to the
// default. Stored state must never carry negatives, so this runs both on the
// award path and when self-healing a suspect row read back from the store.
func ClampSnapshot(s ProgressSnapshot) ProgressSnapshot {
	if s.Points < 0 {
		s.Points = 0
	}
	if s.Level < 1 {
		s.Level = 1
	}
	if s.Level > models.MaxLevel {
		s.Level = models.MaxLevel
	}
	if s.LevelPoints < 0 {
		s.LevelPoints = 0
	}
	if s.MaxLevelPoints <= 0 {
		s.MaxLevelPoints = models.DefaultMaxLevelPoints
	}
	return s
}

// ApplyPoints maps (current progress, points delta) to the next progress and
// the number of levels gained. Deterministic, no I/O, no shared state.
//
// Level is hard-capped at models.MaxLevel: once capped, Points and
// LevelPoints keep accumulating but Level no longer increments.
func ApplyPoints(cur ProgressSnapshot, delta int64) (ProgressSnapshot, int) {
	cur = ClampSnapshot(cur)
	if delta < 0 {
		delta = 0
	}

	total := cur.LevelPoints + delta
	levelsGained := int(total / cur.MaxLevelPoints)

	next := cur
	next.Level = cur.Level + levelsGained
	if next.Level > models.MaxLevel {
		next.Level = models.MaxLevel
	}
	next.LevelPoints = total % cur.MaxLevelPoints
	next.Points = cur.Points + delta

	return next, next.Level - cur.Level
}
