package services

import (
	"context"
	"errors"
	"log"
	"time"

	"creator-progress-system/models"

	"github.com/google/uuid"
)

// AwardResult is what a task-completion flow gets back from AwardPoints.
// Throttled results carry no progress: the real action was already rewarded
// once and the caller should treat this as success.
type AwardResult struct {
	Progress            *models.CreatorProgress `json:"progress,omitempty"`
	UnlockedAchievement *models.AchievementType `json:"unlocked_achievement,omitempty"`
	Throttled           bool                    `json:"throttled"`
}

// AwardService is the only path through which progress records change.
// Pipeline: guard → validator → store read → calculator → streak engine →
// achievement match → conditional write → event bus.
type AwardService struct {
	Store ProgressStore
	Guard *AwardGuard
	Bus   *EventBus

	now func() time.Time // test seam
}

func NewAwardService(store ProgressStore, guard *AwardGuard, bus *EventBus) *AwardService {
	return &AwardService{
		Store: store,
		Guard: guard,
		Bus:   bus,
		now:   time.Now,
	}
}

// AwardPoints applies a validated points delta to a user's progress exactly
// once per real-world action. Duplicate or rapid-fire signals for the same
// action collapse into a throttled no-op result.
func (s *AwardService) AwardPoints(ctx context.Context, userID, sourceID string, delta int64) (*AwardResult, error) {
	now := s.now()

	release, err := s.Guard.Admit(userID, sourceID, now)
	if err != nil {
		// Already handled once — not an error to surface.
		return &AwardResult{Throttled: true}, nil
	}
	defer release()

	req := models.AwardRequest{UserID: userID, SourceID: sourceID, PointsDelta: delta, OccurredAt: now}
	if err := ValidateAward(req); err != nil {
		return nil, err
	}

	rec, unlockedAch, err := s.applyAward(ctx, req, now, true)
	if err != nil {
		s.publishFailure(req, now)
		return nil, err
	}

	evt := models.RewardEvent{
		ID:          uuid.NewString(),
		Type:        models.RewardEventType,
		UserID:      userID,
		SourceID:    sourceID,
		PointsDelta: delta,
		NewTotals: models.RewardTotals{
			Points:        rec.Points,
			Level:         rec.Level,
			LevelPoints:   rec.LevelPoints,
			CurrentStreak: rec.CurrentStreak,
		},
		EmittedAt: now,
	}
	if unlockedAch != nil {
		evt.UnlockedAchievement = unlockedAch.Code
	}
	s.Bus.Publish(evt)

	log.Printf("🎮 Points awarded: %s → points=%d, lvl=%d, streak=%d (source: %s)",
		userID, rec.Points, rec.Level, rec.CurrentStreak, sourceID)

	return &AwardResult{Progress: rec, UnlockedAchievement: unlockedAch}, nil
}

// applyAward runs read → calculate → streak → achievement → conditional write.
// checkAchievements is false on the bonus re-entry so an achievement's reward
// can never trigger another achievement check (recursion bounded to depth 1).
func (s *AwardService) applyAward(ctx context.Context, req models.AwardRequest, now time.Time, checkAchievements bool) (*models.CreatorProgress, *models.AchievementType, error) {
	rec, err := s.Store.Ensure(ctx, req.UserID)
	if err != nil {
		return nil, nil, err
	}

	next, levelsGained := ApplyPoints(ProgressSnapshot{
		Points:         rec.Points,
		Level:          rec.Level,
		LevelPoints:    rec.LevelPoints,
		MaxLevelPoints: rec.MaxLevelPoints,
	}, req.PointsDelta)
	rec.Points = next.Points
	rec.Level = next.Level
	rec.LevelPoints = next.LevelPoints
	rec.MaxLevelPoints = next.MaxLevelPoints
	if levelsGained > 0 {
		t := now
		rec.LastLevelUpAt = &t
		log.Printf("⬆️ Level up: %s → L%d (+%d)", req.UserID, rec.Level, levelsGained)
	}

	var unlockedAch *models.AchievementType
	if checkAchievements {
		AdvanceStreak(rec, DayKey(now))

		unlocked, err := s.Store.UnlockedCodes(ctx, req.UserID)
		if err != nil {
			return nil, nil, err
		}
		unlockedAch = MatchAchievement(rec, unlocked)
	}

	if err := s.Store.Put(ctx, rec); err != nil {
		return nil, nil, err
	}

	if unlockedAch != nil {
		if err := s.Store.RecordUnlock(ctx, req.UserID, unlockedAch.Code); err != nil {
			// The points award stands; the unlock row is retried on the next
			// matching award since the catalog match is idempotent.
			log.Printf("⚠️ [AWARD] unlock row failed (user=%s, code=%s): %v", req.UserID, unlockedAch.Code, err)
			return rec, nil, nil
		}
		log.Printf("🎖️ Achievement unlocked: %s → %s", unlockedAch.Name, req.UserID)

		// Achievement bonus re-enters the same pipeline at depth 1.
		if unlockedAch.PointsReward > 0 {
			bonusReq := models.AwardRequest{
				UserID:      req.UserID,
				SourceID:    "achievement:" + unlockedAch.Code,
				PointsDelta: unlockedAch.PointsReward,
				OccurredAt:  now,
			}
			if err := ValidateAward(bonusReq); err == nil {
				if bonusRec, _, err := s.applyAward(ctx, bonusReq, now, false); err != nil {
					log.Printf("⚠️ [AWARD] achievement bonus failed (user=%s, code=%s): %v",
						req.UserID, unlockedAch.Code, err)
				} else {
					rec = bonusRec
				}
			}
		}
	}

	return rec, unlockedAch, nil
}

func (s *AwardService) publishFailure(req models.AwardRequest, now time.Time) {
	s.Bus.Publish(models.RewardEvent{
		ID:          uuid.NewString(),
		Type:        models.RewardFailedEventType,
		UserID:      req.UserID,
		SourceID:    req.SourceID,
		PointsDelta: req.PointsDelta,
		EmittedAt:   now,
	})
}

// IsRetryable reports whether an award error is worth re-entering the
// pipeline for (through the guard — never around it).
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, ErrInvalidAward)
}
