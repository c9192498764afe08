/*
store.go - Persistence and notification interfaces

PURPOSE:
  Defines the seams between the pure engine and its external
  collaborators: the formula store, threshold rule store, session
  store, audit log, and notification sink. The engine itself never
  touches these - only the payroll service layer does - so the core
  stays agnostic to how records are kept.

CONCURRENCY CONTRACT:
  SaveGroup must persist a claim group atomically: the aggregator and
  the approval machine read-then-write the full sibling set, and a lost
  update would corrupt the apportionment invariant. The embedding
  application must serialize mutation per (employee, date) key.

IMPLEMENTATIONS:
  - engine/store/memory.go: in-memory, for tests and development
  - store/sqlite:           SQLite-backed reference implementation
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// STORES
// =============================================================================

// FormulaStore supplies and persists rate formula records.
type FormulaStore interface {
	ListFormulas(ctx context.Context) ([]RateFormula, error)
	SaveFormula(ctx context.Context, f RateFormula) error
}

// RuleStore supplies and persists threshold rules.
type RuleStore interface {
	ListRules(ctx context.Context) ([]ThresholdRule, error)
	SaveRule(ctx context.Context, r ThresholdRule) error
}

// SessionStore supplies claim-group snapshots and persists the updated
// rows the aggregator and approval machine return.
type SessionStore interface {
	// GetSession returns one session or ErrSessionNotFound.
	GetSession(ctx context.Context, id SessionID) (OTSession, error)

	// GroupSessions returns all sibling sessions for one (employee, date).
	GroupSessions(ctx context.Context, employee EmployeeID, date Date) ([]OTSession, error)

	// SessionsInRange returns an employee's sessions with ot_date in
	// [from, to]. Used for threshold history windows.
	SessionsInRange(ctx context.Context, employee EmployeeID, from, to Date) ([]OTSession, error)

	// SessionsByStatus returns all sessions in a status, for role queues.
	SessionsByStatus(ctx context.Context, status SessionStatus) ([]OTSession, error)

	// SaveGroup upserts a claim group atomically: all rows or none.
	SaveGroup(ctx context.Context, sessions []OTSession) error
}

// =============================================================================
// AUDIT LOG - Append-only record of who did what when
// =============================================================================

type AuditEntry struct {
	ID         string
	At         time.Time
	ActorID    string
	ActorRole  Role
	EmployeeID EmployeeID
	SessionID  SessionID
	FromStatus SessionStatus
	ToStatus   SessionStatus
	Remarks    string
}

// AuditLog stores audit entries. Append-only; corrections are new entries.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	AuditForSession(ctx context.Context, id SessionID) ([]AuditEntry, error)
}

// =============================================================================
// NOTIFIER - Transition event sink (delivery is external)
// =============================================================================

// Notifier receives structured transition events. The engine performs
// no delivery itself; a dispatcher may turn events into emails or push
// notifications.
type Notifier interface {
	Notify(ctx context.Context, event TransitionEvent) error
}

// NopNotifier discards events.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, TransitionEvent) error { return nil }
