/*
scheduler.go - Stale claim escalation scheduler

PURPOSE:
  Periodically scans the approval queues for sessions that have sat in
  a non-terminal stage longer than the escalation age and notifies the
  configured sink so a supervisor/HR chaser can be sent.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Scans pending_verification, supervisor_verified and
    pending_hr_recertification queues
  - Emits one event per stale session; delivery is the notifier's
    problem, failures are logged and retried on the next sweep

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - MaxPendingAge: Age before a session counts as stale (default: 48h)
  - Enabled:       Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewEscalationScheduler(service, notifier)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - engine/store.go: Notifier interface
  - payroll/service.go: Queue view the sweeps are built on
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/overtime-engine/engine"
	"github.com/warp/overtime-engine/payroll"
)

// EscalationScheduler chases claims stuck in the approval pipeline.
type EscalationScheduler struct {
	Service       *payroll.ClaimService
	Notifier      engine.Notifier
	Logger        *slog.Logger
	CheckInterval time.Duration
	MaxPendingAge time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewEscalationScheduler creates a scheduler with default intervals.
func NewEscalationScheduler(service *payroll.ClaimService, notifier engine.Notifier) *EscalationScheduler {
	if notifier == nil {
		notifier = engine.NopNotifier{}
	}
	return &EscalationScheduler{
		Service:       service,
		Notifier:      notifier,
		Logger:        slog.Default(),
		CheckInterval: time.Hour,
		MaxPendingAge: 48 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (es *EscalationScheduler) Start() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if !es.Enabled || es.ticker != nil {
		return
	}

	es.ticker = time.NewTicker(es.CheckInterval)
	es.wg.Add(1)
	go func() {
		defer es.wg.Done()
		for {
			select {
			case <-es.ticker.C:
				es.sweep(context.Background())
			case <-es.stop:
				return
			}
		}
	}()

	es.Logger.Info("escalation scheduler started",
		slog.Duration("check_interval", es.CheckInterval),
		slog.Duration("max_pending_age", es.MaxPendingAge))
}

// Stop halts the scheduler and waits for an in-flight sweep.
func (es *EscalationScheduler) Stop() {
	es.mu.Lock()
	defer es.mu.Unlock()

	if es.ticker == nil {
		return
	}
	es.ticker.Stop()
	close(es.stop)
	es.wg.Wait()
	es.ticker = nil
}

// stalledStages are the stages a claim can silently sit in. Certified
// and terminal sessions have someone accountable already.
var stalledStages = []engine.SessionStatus{
	engine.StatusPendingVerification,
	engine.StatusSupervisorVerified,
	engine.StatusPendingHRRecertification,
}

// sweep finds stale sessions and emits one escalation event each.
func (es *EscalationScheduler) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-es.MaxPendingAge)

	for _, stage := range stalledStages {
		sessions, err := es.Service.Queue(ctx, stage)
		if err != nil {
			es.Logger.Error("escalation sweep failed",
				slog.String("stage", string(stage)), slog.Any("error", err))
			continue
		}
		for _, s := range sessions {
			if s.UpdatedAt.After(cutoff) {
				continue
			}
			event := engine.TransitionEvent{
				EmployeeID: s.EmployeeID,
				Date:       s.Date,
				SessionID:  s.ID,
				From:       s.Status,
				To:         s.Status,
				Actor:      engine.RoleAdmin,
				ActorID:    "escalation-scheduler",
				Remarks:    "claim pending since " + s.UpdatedAt.Format(time.RFC3339),
				At:         time.Now(),
			}
			if err := es.Notifier.Notify(ctx, event); err != nil {
				es.Logger.Error("escalation notify failed",
					slog.String("session_id", string(s.ID)), slog.Any("error", err))
				continue
			}
			es.Logger.Warn("stale claim escalated",
				slog.String("session_id", string(s.ID)),
				slog.String("stage", string(stage)),
				slog.Time("last_update", s.UpdatedAt))
		}
	}
}
