package models

import (
	"time"
)

// AchievementKind selects which progress counter an achievement watches.
type AchievementKind string

const (
	AchievementFirst       AchievementKind = "first"       // first-ever qualifying action
	AchievementConsecutive AchievementKind = "consecutive" // current streak hits threshold
	AchievementTotal       AchievementKind = "total"       // lifetime active days hit threshold
)

// AchievementType: static catalog entry (declared order is the tie-break order)
type AchievementType struct {
	Code         string          `json:"code"` // e.g., "FIRST_TASK", "STREAK_7"
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Kind         AchievementKind `json:"kind"`
	Threshold    int             `json:"threshold"`
	PointsReward int64           `json:"points_reward"`
	IconURL      string          `json:"icon_url"`
	Rarity       string          `json:"rarity"` // common, rare, epic, legendary
}

// UserAchievement: awarded instance — append-only, a (user, code) pair is never removed
type UserAchievement struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"index:idx_user_achievement,unique;not null" json:"external_user_id"`
	Code           string    `gorm:"index:idx_user_achievement,unique;not null" json:"code"`
	AwardedAt      time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// AchievementCatalog is loaded once and immutable for the process lifetime.
// Order matters: the engine unlocks the first match and stops.
var AchievementCatalog = []AchievementType{
	{
		Code:         "FIRST_TASK",
		Name:         "First Steps",
		Description:  "Completed your first task",
		Kind:         AchievementFirst,
		Threshold:    1,
		PointsReward: 10,
		Rarity:       "common",
	},
	{
		Code:         "STREAK_3",
		Name:         "Warming Up",
		Description:  "3-day completion streak",
		Kind:         AchievementConsecutive,
		Threshold:    3,
		PointsReward: 15,
		Rarity:       "common",
	},
	{
		Code:         "STREAK_7",
		Name:         "On Fire",
		Description:  "7-day completion streak",
		Kind:         AchievementConsecutive,
		Threshold:    7,
		PointsReward: 30,
		Rarity:       "rare",
	},
	{
		Code:         "STREAK_30",
		Name:         "Unstoppable",
		Description:  "30-day completion streak",
		Kind:         AchievementConsecutive,
		Threshold:    30,
		PointsReward: 150,
		Rarity:       "epic",
	},
	{
		Code:         "DAYS_10",
		Name:         "Regular",
		Description:  "Active on 10 different days",
		Kind:         AchievementTotal,
		Threshold:    10,
		PointsReward: 25,
		Rarity:       "common",
	},
	{
		Code:         "DAYS_100",
		Name:         "Centurion",
		Description:  "Active on 100 different days",
		Kind:         AchievementTotal,
		Threshold:    100,
		PointsReward: 250,
		Rarity:       "legendary",
	},
}

// FindAchievement returns the catalog entry for a code, or nil.
func FindAchievement(code string) *AchievementType {
	for i := range AchievementCatalog {
		if AchievementCatalog[i].Code == code {
			return &AchievementCatalog[i]
		}
	}
	return nil
}
