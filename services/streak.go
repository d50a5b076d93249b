package services

import (
	"time"

	"creator-progress-system/models"
)

// DayKey formats a local calendar day the way streak state stores it.
func DayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}

// AdvanceStreak updates streak counters on rec for a qualifying action on
// `today` (local calendar date). Idempotent within a single day: a second
// action on the same date changes nothing.
//
//	same day as last activity      → no change
//	exactly one day after         → streak continues (+1)
//	first ever, or gap of >1 day  → streak restarts at 1
//
// Returns true if the action advanced to a new day (and therefore counted
// toward TotalActiveDays).
func AdvanceStreak(rec *models.CreatorProgress, today string) bool {
	last := ""
	if rec.LastActivityDate != nil {
		last = *rec.LastActivityDate
	}
	if last == today {
		return false
	}

	yesterday := ""
	if t, err := time.ParseInLocation("2006-01-02", today, time.Local); err == nil {
		yesterday = t.AddDate(0, 0, -1).Format("2006-01-02")
	}

	if last == yesterday && rec.CurrentStreak > 0 {
		rec.CurrentStreak++
	} else {
		rec.CurrentStreak = 1
	}
	if rec.CurrentStreak > rec.LongestStreak {
		rec.LongestStreak = rec.CurrentStreak
	}
	rec.TotalActiveDays++
	rec.LastActivityDate = &today
	return true
}

// MatchAchievement scans the catalog for the single achievement this award
// unlocks, or nil. Run once per award, after the streak update.
//
// Priority: the first-ever qualifying action unlocks the `first` achievement
// and stops, even when it would also satisfy a consecutive threshold of 1.
// Otherwise the catalog is scanned in declared order — consecutive kinds
// first, then totals — and the first not-yet-unlocked match wins. At most one
// achievement unlocks per pass.
func MatchAchievement(rec *models.CreatorProgress, unlocked map[string]bool) *models.AchievementType {
	firstEver := rec.TotalActiveDays <= 1 && !hasAnyUnlock(unlocked)
	if firstEver {
		for i := range models.AchievementCatalog {
			a := &models.AchievementCatalog[i]
			if a.Kind == models.AchievementFirst && !unlocked[a.Code] {
				return a
			}
		}
		// no first-kind entry in the catalog; fall through to normal scan
	}

	for i := range models.AchievementCatalog {
		a := &models.AchievementCatalog[i]
		if a.Kind == models.AchievementConsecutive && a.Threshold == rec.CurrentStreak && !unlocked[a.Code] {
			return a
		}
	}
	for i := range models.AchievementCatalog {
		a := &models.AchievementCatalog[i]
		if a.Kind == models.AchievementTotal && int64(a.Threshold) == rec.TotalActiveDays && !unlocked[a.Code] {
			return a
		}
	}
	return nil
}

func hasAnyUnlock(unlocked map[string]bool) bool {
	for _, v := range unlocked {
		if v {
			return true
		}
	}
	return false
}
