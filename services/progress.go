package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"creator-progress-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict means the record changed between read and write. The
// source behavior was a blind read-modify-write (last write wins); the
// conditional update here is a deliberate strengthening against lost updates
// from writers that bypass the guard.
var ErrVersionConflict = errors.New("progress record modified concurrently")

// ProgressStore is the narrow durable contract for a creator's progress
// record: read it, conditionally write it back, create it on first touch.
// Only the store adapter writes CreatorProgress; everything else reads
// derived copies.
type ProgressStore interface {
	Get(ctx context.Context, userID string) (*models.CreatorProgress, error)
	Put(ctx context.Context, rec *models.CreatorProgress) error
	Ensure(ctx context.Context, userID string) (*models.CreatorProgress, error)
	UnlockedCodes(ctx context.Context, userID string) (map[string]bool, error)
	RecordUnlock(ctx context.Context, userID, code string) error
}

// selfHeal re-normalizes a suspect row instead of failing hard: a stored
// LevelPoints >= MaxLevelPoints (or any negative field) is recomputed and
// clamped on read.
func selfHeal(rec *models.CreatorProgress) {
	snap := ClampSnapshot(ProgressSnapshot{
		Points:         rec.Points,
		Level:          rec.Level,
		LevelPoints:    rec.LevelPoints,
		MaxLevelPoints: rec.MaxLevelPoints,
	})
	if snap.LevelPoints >= snap.MaxLevelPoints {
		healed, _ := ApplyPoints(ProgressSnapshot{
			Points:         snap.Points,
			Level:          snap.Level,
			LevelPoints:    0,
			MaxLevelPoints: snap.MaxLevelPoints,
		}, snap.LevelPoints)
		healed.Points = snap.Points // healing redistributes level fields, never lifetime points
		snap = healed
		log.Printf("🩹 [PROGRESS] self-healed inconsistent row (user=%s)", rec.ExternalUserID)
	}
	rec.Points = snap.Points
	rec.Level = snap.Level
	rec.LevelPoints = snap.LevelPoints
	rec.MaxLevelPoints = snap.MaxLevelPoints
	if rec.CurrentStreak < 0 {
		rec.CurrentStreak = 0
	}
	if rec.LongestStreak < rec.CurrentStreak {
		rec.LongestStreak = rec.CurrentStreak
	}
	if rec.TotalActiveDays < 0 {
		rec.TotalActiveDays = 0
	}
}

// GormProgressStore persists progress records in Postgres.
type GormProgressStore struct {
	DB *gorm.DB
}

func NewGormProgressStore(db *gorm.DB) *GormProgressStore {
	return &GormProgressStore{DB: db}
}

func (s *GormProgressStore) Get(ctx context.Context, userID string) (*models.CreatorProgress, error) {
	var rec models.CreatorProgress
	if err := s.DB.WithContext(ctx).Where("external_user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, err
	}
	selfHeal(&rec)
	return &rec, nil
}

// Ensure creates an all-default progress row on first touch (idempotent).
func (s *GormProgressStore) Ensure(ctx context.Context, userID string) (*models.CreatorProgress, error) {
	rec, err := s.Get(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := models.CreatorProgress{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Points:         0,
		Level:          1,
		LevelPoints:    0,
		MaxLevelPoints: models.DefaultMaxLevelPoints,
	}
	if err := s.DB.WithContext(ctx).Create(&fresh).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// Put writes the full next state, conditional on the version read. A zero
// RowsAffected means another writer got there first.
func (s *GormProgressStore) Put(ctx context.Context, rec *models.CreatorProgress) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prev := rec.Version
		rec.Version = prev + 1
		res := tx.Model(&models.CreatorProgress{}).
			Where("external_user_id = ? AND version = ?", rec.ExternalUserID, prev).
			Updates(map[string]interface{}{
				"points":             rec.Points,
				"level":              rec.Level,
				"level_points":       rec.LevelPoints,
				"max_level_points":   rec.MaxLevelPoints,
				"current_streak":     rec.CurrentStreak,
				"longest_streak":     rec.LongestStreak,
				"total_active_days":  rec.TotalActiveDays,
				"last_activity_date": rec.LastActivityDate,
				"last_level_up_at":   rec.LastLevelUpAt,
				"version":            rec.Version,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			rec.Version = prev
			return ErrVersionConflict
		}
		return nil
	})
}

func (s *GormProgressStore) UnlockedCodes(ctx context.Context, userID string) (map[string]bool, error) {
	var rows []models.UserAchievement
	if err := s.DB.WithContext(ctx).Where("external_user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	codes := make(map[string]bool, len(rows))
	for _, r := range rows {
		codes[r.Code] = true
	}
	return codes, nil
}

func (s *GormProgressStore) RecordUnlock(ctx context.Context, userID, code string) error {
	row := models.UserAchievement{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Code:           code,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record unlock %s for %s: %w", code, userID, err)
	}
	return nil
}

// MemoryProgressStore mirrors the gorm store's semantics (including version
// conflicts) in a mutex-guarded map. Used by tests and local development.
type MemoryProgressStore struct {
	mu       sync.Mutex
	records  map[string]models.CreatorProgress
	unlocked map[string]map[string]bool

	// FailPuts, when set, makes every Put fail. Lets tests exercise the
	// store-unreachable path.
	FailPuts bool
}

var ErrStoreUnavailable = errors.New("progress store unavailable")

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{
		records:  make(map[string]models.CreatorProgress),
		unlocked: make(map[string]map[string]bool),
	}
}

func (s *MemoryProgressStore) Get(ctx context.Context, userID string) (*models.CreatorProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := rec
	selfHeal(&cp)
	return &cp, nil
}

func (s *MemoryProgressStore) Ensure(ctx context.Context, userID string) (*models.CreatorProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[userID]; ok {
		cp := rec
		selfHeal(&cp)
		return &cp, nil
	}
	fresh := models.CreatorProgress{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		Level:          1,
		MaxLevelPoints: models.DefaultMaxLevelPoints,
	}
	s.records[userID] = fresh
	cp := fresh
	return &cp, nil
}

func (s *MemoryProgressStore) Put(ctx context.Context, rec *models.CreatorProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPuts {
		return ErrStoreUnavailable
	}
	cur, ok := s.records[rec.ExternalUserID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if cur.Version != rec.Version {
		return ErrVersionConflict
	}
	rec.Version++
	s.records[rec.ExternalUserID] = *rec
	return nil
}

func (s *MemoryProgressStore) UnlockedCodes(ctx context.Context, userID string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.unlocked[userID]))
	for code := range s.unlocked[userID] {
		out[code] = true
	}
	return out, nil
}

func (s *MemoryProgressStore) RecordUnlock(ctx context.Context, userID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unlocked[userID] == nil {
		s.unlocked[userID] = make(map[string]bool)
	}
	s.unlocked[userID][code] = true
	return nil
}

// Interface compliance.
var (
	_ ProgressStore = (*GormProgressStore)(nil)
	_ ProgressStore = (*MemoryProgressStore)(nil)
)
