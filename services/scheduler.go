// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartMaintenanceScheduler runs the periodic housekeeping jobs:
// guard window reset at local-day rollover, plus stale-entry sweeps.
// Returns the scheduler so main can shut it down.
func StartMaintenanceScheduler(guard *AwardGuard, ledger *PendingLedger) gocron.Scheduler {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Local midnight: reset every per-user daily award counter
	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			guard.ResetWindows()
			log.Println("🕛 [Scheduler] Guard windows reset for new day")
		}),
	)

	// Every minute: drop idle guard entries and expired overlay deltas
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if removed := guard.Sweep(time.Now()); removed > 0 {
				log.Printf("[Scheduler] Swept %d idle guard entries", removed)
			}
			ledger.SweepExpired()
		}),
	)

	return sched
}
