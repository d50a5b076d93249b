package services

import (
	"errors"
	"log"
	"sync"
	"time"
)

// Guard rejection reasons. All three mean "the real action was already
// handled once" — callers treat them as no-op successes, never as errors to
// surface to the end user.
var (
	ErrAwardInFlight  = errors.New("award already in flight for user")
	ErrTooFrequent    = errors.New("award too soon after previous award")
	ErrWindowExceeded = errors.New("award window ceiling exceeded")
)

// GuardConfig tunes the per-user throttle. Zero values fall back to defaults.
type GuardConfig struct {
	MinInterval time.Duration // cooldown between effective awards
	GraceDelay  time.Duration // processing flag lingers this long after completion
	WindowCap   int           // sanity ceiling on awards per local day
	EntryTTL    time.Duration // idle entries older than this are swept
}

const (
	defaultMinInterval = 2 * time.Second
	defaultGraceDelay  = 1 * time.Second
	defaultWindowCap   = 200
	defaultEntryTTL    = 48 * time.Hour
)

type guardEntry struct {
	mu          sync.Mutex
	lastAwardAt time.Time
	processing  bool
	windowCount int
	windowDay   string // local calendar day the counter belongs to
}

// AwardGuard guarantees at-most-one effective award per real-world action,
// collapsing duplicate signals (UI double-fire, retries, multiple listeners)
// into a single admitted request. State is per user; two different users
// never contend on the same lock.
type AwardGuard struct {
	cfg GuardConfig

	mu      sync.RWMutex // guards the map only, never held during admit logic
	entries map[string]*guardEntry

	// test seam for the grace-delay timer
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewAwardGuard(cfg GuardConfig) *AwardGuard {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = defaultGraceDelay
	}
	if cfg.WindowCap <= 0 {
		cfg.WindowCap = defaultWindowCap
	}
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = defaultEntryTTL
	}
	return &AwardGuard{
		cfg:       cfg,
		entries:   make(map[string]*guardEntry),
		afterFunc: time.AfterFunc,
	}
}

func (g *AwardGuard) entry(userID string) *guardEntry {
	g.mu.RLock()
	e, ok := g.entries[userID]
	g.mu.RUnlock()
	if ok {
		return e
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok = g.entries[userID]; ok {
		return e
	}
	e = &guardEntry{}
	g.entries[userID] = e
	return e
}

// Admit decides atomically (per user) whether an award request may proceed.
// On admission it returns a release func the caller MUST invoke once the
// downstream pipeline finishes, success or failure. The processing flag is
// cleared only after the grace delay so that a tail of near-simultaneous
// duplicate signals arriving just after the primary completes is absorbed.
func (g *AwardGuard) Admit(userID, sourceID string, now time.Time) (func(), error) {
	e := g.entry(userID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.processing {
		log.Printf("⏳ [GUARD] in-flight, dropping duplicate (user=%s, source=%s)", userID, sourceID)
		return nil, ErrAwardInFlight
	}

	if !e.lastAwardAt.IsZero() && now.Sub(e.lastAwardAt) < g.cfg.MinInterval {
		log.Printf("⏳ [GUARD] cooldown, dropping rapid repeat (user=%s, source=%s, since=%v)",
			userID, sourceID, now.Sub(e.lastAwardAt))
		return nil, ErrTooFrequent
	}

	// Rolling window: counter belongs to a local calendar day.
	today := now.Local().Format("2006-01-02")
	if e.windowDay != today {
		e.windowDay = today
		e.windowCount = 0
	}
	if e.windowCount >= g.cfg.WindowCap {
		log.Printf("🛑 [GUARD] daily ceiling hit (user=%s, count=%d) — runaway caller?", userID, e.windowCount)
		return nil, ErrWindowExceeded
	}

	e.processing = true
	e.lastAwardAt = now
	e.windowCount++

	release := func() {
		g.afterFunc(g.cfg.GraceDelay, func() {
			e.mu.Lock()
			e.processing = false
			e.mu.Unlock()
		})
	}
	return release, nil
}

// ResetWindows zeroes every per-user daily counter. Called at local-day
// rollover by the scheduler; the lazy check in Admit keeps the window correct
// even if the job fires late.
func (g *AwardGuard) ResetWindows() {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, e := range g.entries {
		e.mu.Lock()
		e.windowCount = 0
		e.windowDay = ""
		e.mu.Unlock()
	}
}

// Sweep drops entries idle longer than the TTL so the map does not grow
// unbounded with one-time visitors.
func (g *AwardGuard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for userID, e := range g.entries {
		e.mu.Lock()
		idle := !e.processing && !e.lastAwardAt.IsZero() && now.Sub(e.lastAwardAt) > g.cfg.EntryTTL
		e.mu.Unlock()
		if idle {
			delete(g.entries, userID)
			removed++
		}
	}
	return removed
}

// TrackedUsers reports how many per-user entries the guard currently holds.
func (g *AwardGuard) TrackedUsers() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}
