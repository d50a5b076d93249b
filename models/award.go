package models

import (
	"time"
)

// AwardRequest is the ephemeral input to the award pipeline. Never persisted.
type AwardRequest struct {
	UserID      string    `json:"user_id"`
	SourceID    string    `json:"source_id"` // task/action identifier, dedup basis
	PointsDelta int64     `json:"points_delta"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// RewardTotals is the authoritative snapshot shipped with a reward event.
type RewardTotals struct {
	Points        int64 `json:"points"`
	Level         int   `json:"level"`
	LevelPoints   int64 `json:"level_points"`
	CurrentStreak int   `json:"current_streak"`
}

// RewardEvent is published on the local event bus after a successful award
// (type "reward") or a failed persist (type "reward_failed", for overlay rollback).
type RewardEvent struct {
	ID                  string       `json:"id"`
	Type                string       `json:"type"` // "reward" | "reward_failed"
	UserID              string       `json:"user_id"`
	SourceID            string       `json:"source_id"`
	PointsDelta         int64        `json:"points_delta"`
	NewTotals           RewardTotals `json:"new_totals"`
	UnlockedAchievement string       `json:"unlocked_achievement,omitempty"`
	EmittedAt           time.Time    `json:"emitted_at"`
}

const (
	RewardEventType       = "reward"
	RewardFailedEventType = "reward_failed"
)
