/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (FormulaStore, RuleStore,
  SessionStore, AuditLog) plus a database-backed HolidayCalendar using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  rate_formulas:   Effective-dated rate formula definitions
  threshold_rules: Limit configurations
  ot_sessions:     OT sessions with status and per-stage audit fields
  audit_log:       Append-only trail of every status change
  holidays:        Gazetted public holiday dates

GROUP ATOMICITY:
  SaveGroup upserts every session of a claim group inside one database
  transaction. The aggregator re-prices whole day groups; a partially
  written group would leave sibling amounts inconsistent, so the batch
  commits all rows or none.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/overtime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := payroll.NewClaimService(payroll.Stores{
      Sessions: store, Formulas: store, Rules: store, Audit: store,
  }, store, engine.ExactRounding{}, nil)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Rate formulas (effective-dated)
	CREATE TABLE IF NOT EXISTS rate_formulas (
		id TEXT PRIMARY KEY,
		day_type TEXT NOT NULL,
		employee_category TEXT NOT NULL,
		multiplier TEXT NOT NULL,
		orp_definition TEXT NOT NULL,
		hrp_definition TEXT NOT NULL,
		base_formula TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_to TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_formulas_lookup
		ON rate_formulas(day_type, employee_category, effective_from);

	-- Threshold rules
	CREATE TABLE IF NOT EXISTS threshold_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		daily_limit_hours TEXT,
		weekly_limit_hours TEXT,
		monthly_limit_hours TEXT,
		max_claimable_amount TEXT,
		departments_json TEXT,
		roles_json TEXT,
		auto_block BOOLEAN NOT NULL DEFAULT FALSE,
		alert_recipients_json TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TEXT NOT NULL
	);

	-- OT sessions
	CREATE TABLE IF NOT EXISTS ot_sessions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		ot_date TEXT NOT NULL,
		start_minutes INTEGER NOT NULL,
		end_minutes INTEGER NOT NULL,
		total_hours TEXT NOT NULL,
		day_type TEXT NOT NULL,
		reason TEXT,
		attachments_json TEXT,
		status TEXT NOT NULL,
		orp TEXT NOT NULL,
		hrp TEXT NOT NULL,
		amount TEXT NOT NULL,
		verified_json TEXT,
		certified_json TEXT,
		approved_json TEXT,
		rejected_json TEXT,
		supersedes_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Claim group lookup (hot path: every submit/edit/act loads a group)
	CREATE INDEX IF NOT EXISTS idx_sessions_employee_date
		ON ot_sessions(employee_id, ot_date);

	-- Threshold history windows
	CREATE INDEX IF NOT EXISTS idx_sessions_employee_range
		ON ot_sessions(employee_id, ot_date, status);

	-- Role queues
	CREATE INDEX IF NOT EXISTS idx_sessions_status
		ON ot_sessions(status);

	-- Audit log (append-only; corrections are new entries)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		from_status TEXT,
		to_status TEXT NOT NULL,
		remarks TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_session
		ON audit_log(session_id, at);

	-- Public holidays
	CREATE TABLE IF NOT EXISTS holidays (
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (date, name)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// FORMULA STORE (engine.FormulaStore interface)
// =============================================================================

// SaveFormula upserts a rate formula.
func (s *Store) SaveFormula(ctx context.Context, f engine.RateFormula) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO rate_formulas
		(id, day_type, employee_category, multiplier, orp_definition, hrp_definition,
		 base_formula, effective_from, effective_to, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day_type = excluded.day_type,
			employee_category = excluded.employee_category,
			multiplier = excluded.multiplier,
			orp_definition = excluded.orp_definition,
			hrp_definition = excluded.hrp_definition,
			base_formula = excluded.base_formula,
			effective_from = excluded.effective_from,
			effective_to = excluded.effective_to,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	var effectiveTo *string
	if f.EffectiveTo != nil {
		t := f.EffectiveTo.String()
		effectiveTo = &t
	}

	_, err := s.db.ExecContext(ctx, query,
		f.ID,
		string(f.DayType),
		f.EmployeeCategory,
		f.Multiplier.String(),
		f.ORPDefinition,
		f.HRPDefinition,
		f.BaseFormula,
		f.EffectiveFrom.String(),
		effectiveTo,
		f.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save formula: %w", err)
	}
	return nil
}

// ListFormulas returns all rate formulas.
func (s *Store) ListFormulas(ctx context.Context) ([]engine.RateFormula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, day_type, employee_category, multiplier, orp_definition,
		       hrp_definition, base_formula, effective_from, effective_to, active
		FROM rate_formulas
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query formulas: %w", err)
	}
	defer rows.Close()

	var formulas []engine.RateFormula
	for rows.Next() {
		var (
			f           engine.RateFormula
			dayType     string
			multiplier  string
			from        string
			to          sql.NullString
		)
		if err := rows.Scan(&f.ID, &dayType, &f.EmployeeCategory, &multiplier,
			&f.ORPDefinition, &f.HRPDefinition, &f.BaseFormula, &from, &to, &f.Active); err != nil {
			return nil, fmt.Errorf("failed to scan formula: %w", err)
		}
		f.DayType = engine.DayType(dayType)
		if f.Multiplier, err = decimal.NewFromString(multiplier); err != nil {
			return nil, fmt.Errorf("formula %s: bad multiplier %q: %w", f.ID, multiplier, err)
		}
		if f.EffectiveFrom, err = engine.ParseDate(from); err != nil {
			return nil, fmt.Errorf("formula %s: %w", f.ID, err)
		}
		if to.Valid {
			d, err := engine.ParseDate(to.String)
			if err != nil {
				return nil, fmt.Errorf("formula %s: %w", f.ID, err)
			}
			f.EffectiveTo = &d
		}
		formulas = append(formulas, f)
	}
	return formulas, rows.Err()
}

// =============================================================================
// RULE STORE (engine.RuleStore interface)
// =============================================================================

// SaveRule upserts a threshold rule.
func (s *Store) SaveRule(ctx context.Context, r engine.ThresholdRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO threshold_rules
		(id, name, daily_limit_hours, weekly_limit_hours, monthly_limit_hours,
		 max_claimable_amount, departments_json, roles_json, auto_block,
		 alert_recipients_json, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			daily_limit_hours = excluded.daily_limit_hours,
			weekly_limit_hours = excluded.weekly_limit_hours,
			monthly_limit_hours = excluded.monthly_limit_hours,
			max_claimable_amount = excluded.max_claimable_amount,
			departments_json = excluded.departments_json,
			roles_json = excluded.roles_json,
			auto_block = excluded.auto_block,
			alert_recipients_json = excluded.alert_recipients_json,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Name,
		decimalPtr(r.DailyLimitHours),
		decimalPtr(r.WeeklyLimitHours),
		decimalPtr(r.MonthlyLimitHours),
		decimalPtr(r.MaxClaimableAmount),
		marshalStrings(r.Departments),
		marshalStrings(r.Roles),
		r.AutoBlock,
		marshalStrings(r.AlertRecipients),
		r.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// ListRules returns all threshold rules.
func (s *Store) ListRules(ctx context.Context) ([]engine.ThresholdRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, daily_limit_hours, weekly_limit_hours, monthly_limit_hours,
		       max_claimable_amount, departments_json, roles_json, auto_block,
		       alert_recipients_json, active
		FROM threshold_rules
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []engine.ThresholdRule
	for rows.Next() {
		var (
			r                          engine.ThresholdRule
			daily, weekly, monthly     sql.NullString
			amount                     sql.NullString
			departments, roles, alerts sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Name, &daily, &weekly, &monthly, &amount,
			&departments, &roles, &r.AutoBlock, &alerts, &r.Active); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if r.DailyLimitHours, err = scanDecimalPtr(daily); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if r.WeeklyLimitHours, err = scanDecimalPtr(weekly); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if r.MonthlyLimitHours, err = scanDecimalPtr(monthly); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		if r.MaxClaimableAmount, err = scanDecimalPtr(amount); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		r.Departments = unmarshalStrings(departments)
		r.Roles = unmarshalStrings(roles)
		r.AlertRecipients = unmarshalStrings(alerts)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// =============================================================================
// SESSION STORE (engine.SessionStore interface)
// =============================================================================

const sessionColumns = `id, employee_id, ot_date, start_minutes, end_minutes, total_hours,
	day_type, reason, attachments_json, status, orp, hrp, amount,
	verified_json, certified_json, approved_json, rejected_json,
	supersedes_id, created_at, updated_at`

// GetSession returns one session or engine.ErrSessionNotFound.
func (s *Store) GetSession(ctx context.Context, id engine.SessionID) (engine.OTSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions, err := s.querySessions(ctx,
		"SELECT "+sessionColumns+" FROM ot_sessions WHERE id = ?", string(id))
	if err != nil {
		return engine.OTSession{}, err
	}
	if len(sessions) == 0 {
		return engine.OTSession{}, engine.ErrSessionNotFound
	}
	return sessions[0], nil
}

// GroupSessions returns all sibling sessions for one (employee, date).
func (s *Store) GroupSessions(ctx context.Context, employee engine.EmployeeID, date engine.Date) ([]engine.OTSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM ot_sessions
		WHERE employee_id = ? AND ot_date = ?
		ORDER BY created_at ASC, id ASC
	`, string(employee), date.String())
}

// SessionsInRange returns an employee's sessions with ot_date in [from, to].
func (s *Store) SessionsInRange(ctx context.Context, employee engine.EmployeeID, from, to engine.Date) ([]engine.OTSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM ot_sessions
		WHERE employee_id = ? AND ot_date >= ? AND ot_date <= ?
		ORDER BY ot_date ASC, created_at ASC, id ASC
	`, string(employee), from.String(), to.String())
}

// SessionsByStatus returns all sessions in a status, for role queues.
func (s *Store) SessionsByStatus(ctx context.Context, status engine.SessionStatus) ([]engine.OTSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM ot_sessions
		WHERE status = ?
		ORDER BY ot_date ASC, created_at ASC, id ASC
	`, string(status))
}

// SaveGroup upserts a claim group atomically: all rows or none.
func (s *Store) SaveGroup(ctx context.Context, sessions []engine.OTSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, session := range sessions {
		if err := upsertSession(ctx, tx, session); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func upsertSession(ctx context.Context, tx *sql.Tx, session engine.OTSession) error {
	query := `
		INSERT INTO ot_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_minutes = excluded.start_minutes,
			end_minutes = excluded.end_minutes,
			total_hours = excluded.total_hours,
			day_type = excluded.day_type,
			reason = excluded.reason,
			attachments_json = excluded.attachments_json,
			status = excluded.status,
			orp = excluded.orp,
			hrp = excluded.hrp,
			amount = excluded.amount,
			verified_json = excluded.verified_json,
			certified_json = excluded.certified_json,
			approved_json = excluded.approved_json,
			rejected_json = excluded.rejected_json,
			updated_at = excluded.updated_at
	`

	_, err := tx.ExecContext(ctx, query,
		string(session.ID),
		string(session.EmployeeID),
		session.Date.String(),
		session.Start.Minutes,
		session.End.Minutes,
		session.TotalHours.String(),
		string(session.DayType),
		session.Reason,
		marshalStrings(session.Attachments),
		string(session.Status),
		session.ORP.String(),
		session.HRP.String(),
		session.Amount.String(),
		marshalAudit(session.Verified),
		marshalAudit(session.Certified),
		marshalAudit(session.Approved),
		marshalAudit(session.Rejected),
		string(session.SupersedesID),
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]engine.OTSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []engine.OTSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(rows *sql.Rows) (engine.OTSession, error) {
	var (
		session                engine.OTSession
		id, employeeID         string
		date                   string
		startMin, endMin       int
		hours, orp, hrp, money string
		dayType, status        string
		reason                 sql.NullString
		attachments            sql.NullString
		verified, certified    sql.NullString
		approved, rejected     sql.NullString
		supersedes             sql.NullString
		createdAt, updatedAt   string
	)

	err := rows.Scan(&id, &employeeID, &date, &startMin, &endMin, &hours,
		&dayType, &reason, &attachments, &status, &orp, &hrp, &money,
		&verified, &certified, &approved, &rejected,
		&supersedes, &createdAt, &updatedAt)
	if err != nil {
		return session, fmt.Errorf("failed to scan session: %w", err)
	}

	session.ID = engine.SessionID(id)
	session.EmployeeID = engine.EmployeeID(employeeID)
	if session.Date, err = engine.ParseDate(date); err != nil {
		return session, fmt.Errorf("session %s: %w", id, err)
	}
	session.Start = engine.TimeOfDay{Minutes: startMin}
	session.End = engine.TimeOfDay{Minutes: endMin}
	if session.TotalHours, err = decimal.NewFromString(hours); err != nil {
		return session, fmt.Errorf("session %s: bad total_hours %q: %w", id, hours, err)
	}
	session.DayType = engine.DayType(dayType)
	session.Reason = reason.String
	session.Attachments = unmarshalStrings(attachments)
	session.Status = engine.SessionStatus(status)
	if session.ORP, err = decimal.NewFromString(orp); err != nil {
		return session, fmt.Errorf("session %s: bad orp %q: %w", id, orp, err)
	}
	if session.HRP, err = decimal.NewFromString(hrp); err != nil {
		return session, fmt.Errorf("session %s: bad hrp %q: %w", id, hrp, err)
	}
	if session.Amount, err = decimal.NewFromString(money); err != nil {
		return session, fmt.Errorf("session %s: bad amount %q: %w", id, money, err)
	}
	session.Verified = unmarshalAudit(verified)
	session.Certified = unmarshalAudit(certified)
	session.Approved = unmarshalAudit(approved)
	session.Rejected = unmarshalAudit(rejected)
	session.SupersedesID = engine.SessionID(supersedes.String)
	session.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	session.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return session, nil
}

// =============================================================================
// AUDIT LOG (engine.AuditLog interface)
// =============================================================================

// AppendAudit adds an entry to the audit trail.
func (s *Store) AppendAudit(ctx context.Context, entry engine.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(id, at, actor_id, actor_role, employee_id, session_id, from_status, to_status, remarks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.At.UTC().Format(time.RFC3339Nano),
		entry.ActorID,
		string(entry.ActorRole),
		string(entry.EmployeeID),
		string(entry.SessionID),
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.Remarks,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// AuditForSession returns the audit trail for one session, oldest first.
func (s *Store) AuditForSession(ctx context.Context, id engine.SessionID) ([]engine.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at, actor_id, actor_role, employee_id, session_id, from_status, to_status, remarks
		FROM audit_log
		WHERE session_id = ?
		ORDER BY at ASC
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []engine.AuditEntry
	for rows.Next() {
		var (
			e                     engine.AuditEntry
			at                    string
			role, empID, sessID   string
			fromStatus, toStatus  string
		)
		if err := rows.Scan(&e.ID, &at, &e.ActorID, &role, &empID, &sessID,
			&fromStatus, &toStatus, &e.Remarks); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.ActorRole = engine.Role(role)
		e.EmployeeID = engine.EmployeeID(empID)
		e.SessionID = engine.SessionID(sessID)
		e.FromStatus = engine.SessionStatus(fromStatus)
		e.ToStatus = engine.SessionStatus(toStatus)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HOLIDAY CALENDAR (engine.HolidayCalendar interface)
// =============================================================================

// SaveHoliday records a gazetted public holiday.
func (s *Store) SaveHoliday(ctx context.Context, date engine.Date, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (date, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(date, name) DO NOTHING
	`, date.String(), name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// DeleteHoliday removes a holiday by date and name.
func (s *Store) DeleteHoliday(ctx context.Context, date engine.Date, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM holidays WHERE date = ? AND name = ?", date.String(), name)
	return err
}

// IsPublicHoliday reports whether the date has any holiday record.
func (s *Store) IsPublicHoliday(date engine.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM holidays WHERE date = ?", date.String()).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// ListHolidays returns all holidays in a year, ordered by date.
func (s *Store) ListHolidays(ctx context.Context, year int) ([]engine.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, name FROM holidays
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []engine.Holiday
	for rows.Next() {
		var dateStr, name string
		if err := rows.Scan(&dateStr, &name); err != nil {
			return nil, err
		}
		date, err := engine.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, engine.Holiday{Date: date, Name: name})
	}
	return holidays, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"ot_sessions", "audit_log", "rate_formulas", "threshold_rules", "holidays"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func decimalPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func scanDecimalPtr(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("bad decimal %q: %w", ns.String, err)
	}
	return &d, nil
}

func marshalStrings(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	b, _ := json.Marshal(values)
	s := string(b)
	return &s
}

func unmarshalStrings(ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(ns.String), &values); err != nil {
		return nil
	}
	return values
}

func marshalAudit(a *engine.StageAudit) *string {
	if a == nil {
		return nil
	}
	b, _ := json.Marshal(a)
	s := string(b)
	return &s
}

func unmarshalAudit(ns sql.NullString) *engine.StageAudit {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var a engine.StageAudit
	if err := json.Unmarshal([]byte(ns.String), &a); err != nil {
		return nil
	}
	return &a
}
