package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultMaxLevelPoints is the per-level cost used when a record carries none.
const DefaultMaxLevelPoints = 100

// MaxLevel is the hard level ceiling. Points keep accumulating past it.
const MaxLevel = 100

// CreatorProgress tracks gamified progression for each creator (denormalized for performance)
type CreatorProgress struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression
	Points         int64 `json:"points" gorm:"default:0"`
	Level          int   `json:"level" gorm:"default:1"`
	LevelPoints    int64 `json:"level_points" gorm:"default:0"`
	MaxLevelPoints int64 `json:"max_level_points" gorm:"default:100"` // points needed to advance one level

	// Streaks
	CurrentStreak    int     `json:"current_streak" gorm:"default:0"`
	LongestStreak    int     `json:"longest_streak" gorm:"default:0"`
	TotalActiveDays  int64   `json:"total_active_days" gorm:"default:0"`
	LastActivityDate *string `json:"last_activity_date,omitempty"` // local calendar date "2006-01-02"

	// Optimistic lock — every write is conditional on this value
	Version int64 `json:"-" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
