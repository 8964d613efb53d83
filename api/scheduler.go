/*
scheduler.go - Automated overdue-marking scheduler

PURPOSE:
  Periodically invokes the server-side mark-overdue procedure so that
  billed periods with a passed due date and money outstanding get their
  stored status promoted to overdue. The promotion logic lives in the
  procedure; this scheduler only calls it on an interval and records the
  outcome for audit and UI display.

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewOverdueScheduler(store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerMarkOverdue endpoint (manual invocation)
  - store/sqlite/sqlite.go: MarkOverduePeriods procedure
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/fee-engine/billing"
	"github.com/warp/fee-engine/store/sqlite"
)

// OverdueScheduler runs the mark-overdue procedure on a schedule.
type OverdueScheduler struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewOverdueScheduler creates a new scheduler.
func NewOverdueScheduler(store *sqlite.Store) *OverdueScheduler {
	return &OverdueScheduler{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (os *OverdueScheduler) Start() {
	os.mu.Lock()
	defer os.mu.Unlock()

	if !os.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	os.ticker = time.NewTicker(os.CheckInterval)
	os.wg.Add(1)

	go os.run()

	log.Printf("[Scheduler] Started with check interval: %v", os.CheckInterval)
}

// Stop stops the scheduler.
func (os *OverdueScheduler) Stop() {
	os.mu.Lock()
	defer os.mu.Unlock()

	if os.ticker != nil {
		os.ticker.Stop()
		close(os.stop)
		os.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (os *OverdueScheduler) run() {
	defer os.wg.Done()

	// Run immediately on start
	os.runOnce()

	for {
		select {
		case <-os.ticker.C:
			os.runOnce()
		case <-os.stop:
			return
		}
	}
}

func (os *OverdueScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	runID := fmt.Sprintf("run-%d", time.Now().UnixNano())

	marked, err := billing.MarkOverduePeriods(ctx, os.Store)
	if err != nil {
		log.Printf("[Scheduler] mark-overdue failed: %v", err)
	} else if marked > 0 {
		log.Printf("[Scheduler] marked %d periods overdue", marked)
	}

	if recErr := os.Store.RecordOverdueRun(ctx, runID, marked, err); recErr != nil {
		log.Printf("[Scheduler] failed to record run: %v", recErr)
	}
}
