/*
scheduler.go - End-of-day reminder scheduler

PURPOSE:
  Periodically resolves the outstanding tasks of every active user and
  logs a reminder for workspaces that still have open obligations. Sites
  that go unreminded lose the day: readings cannot be backfilled.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Resolves tasks for today per user over one shared snapshot
  - Skips users whose facility is suspended by an exception
  - Delivery (email/Telegram) belongs to an external collaborator; this
    scheduler logs what would be sent

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReminderScheduler(store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - compliance/engine.go: OutstandingTasks
  - handlers.go: GetWorkspace (the same resolution, on demand)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kitchensafe/haccp-engine/compliance"
	"github.com/kitchensafe/haccp-engine/store/sqlite"
)

// ReminderScheduler nudges users with open obligations before the day
// closes.
type ReminderScheduler struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool

	// Notify receives each user with open tasks. Left nil, reminders are
	// only logged; delivery transports hook in here.
	Notify func(user compliance.User, tasks []compliance.Task)

	engine compliance.Engine

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReminderScheduler creates a new scheduler.
func NewReminderScheduler(store *sqlite.Store) *ReminderScheduler {
	return &ReminderScheduler{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (rs *ReminderScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Reminders] Disabled, not starting")
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.Printf("[Reminders] Started with check interval: %v", rs.CheckInterval)
}

// Stop stops the scheduler.
func (rs *ReminderScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		log.Println("[Reminders] Stopped")
	}
}

func (rs *ReminderScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.checkAndRemind()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndRemind()
		case <-rs.stop:
			return
		}
	}
}

func (rs *ReminderScheduler) checkAndRemind() {
	ctx := context.Background()
	today := compliance.Today()

	snap, err := rs.Store.Snapshot(ctx)
	if err != nil {
		log.Printf("[Reminders] Error loading snapshot: %v", err)
		return
	}

	remindedCount := 0
	suspendedCount := 0

	for _, user := range snap.Users {
		actor := snap.ActorFor(user.ID)
		if actor.FacilityID == "" {
			// Supervisors and other unplaced users have no workspace.
			continue
		}
		if compliance.IsExcluded(actor.FacilityID, today, snap.Exceptions) {
			suspendedCount++
			continue
		}

		tasks := rs.engine.OutstandingTasks(actor, today, snap)
		if len(tasks) == 0 {
			continue
		}

		remindedCount++
		log.Printf("[Reminders] %s (%s): %d open task(s) for %s",
			user.Name, compliance.FacilityName(snap, actor.FacilityID), len(tasks), today)
		for _, t := range tasks {
			if t.CheckpointName != "" {
				log.Printf("[Reminders]   - %s: %s / %s", t.Kind, t.ResourceName, t.CheckpointName)
			} else {
				log.Printf("[Reminders]   - %s: %s", t.Kind, t.ResourceName)
			}
		}
		if rs.Notify != nil {
			rs.Notify(user, tasks)
		}
	}

	if remindedCount > 0 || suspendedCount > 0 {
		log.Printf("[Reminders] Completed: %d reminded, %d suspended by exceptions",
			remindedCount, suspendedCount)
	}
}

// RunNow triggers an immediate check (for testing/admin).
func (rs *ReminderScheduler) RunNow() {
	rs.checkAndRemind()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (rs *ReminderScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(rs.CheckInterval)
}
