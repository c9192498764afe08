// Package store provides in-memory implementations of the engine's
// persistence interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/overtime-engine/engine"
)

// =============================================================================
// MEMORY STORE - Implements FormulaStore, RuleStore, SessionStore, AuditLog
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	formulas map[string]engine.RateFormula
	rules    map[string]engine.ThresholdRule
	sessions map[engine.SessionID]engine.OTSession
	audit    []engine.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{
		formulas: make(map[string]engine.RateFormula),
		rules:    make(map[string]engine.ThresholdRule),
		sessions: make(map[engine.SessionID]engine.OTSession),
	}
}

// ---- FormulaStore ----

func (m *Memory) ListFormulas(context.Context) ([]engine.RateFormula, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.RateFormula, 0, len(m.formulas))
	for _, f := range m.formulas {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveFormula(_ context.Context, f engine.RateFormula) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formulas[f.ID] = f
	return nil
}

// ---- RuleStore ----

func (m *Memory) ListRules(context.Context) ([]engine.ThresholdRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.ThresholdRule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveRule(_ context.Context, r engine.ThresholdRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = r
	return nil
}

// ---- SessionStore ----

func (m *Memory) GetSession(_ context.Context, id engine.SessionID) (engine.OTSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return engine.OTSession{}, engine.ErrSessionNotFound
	}
	return s, nil
}

func (m *Memory) GroupSessions(_ context.Context, employee engine.EmployeeID, date engine.Date) ([]engine.OTSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.OTSession
	for _, s := range m.sessions {
		if s.EmployeeID == employee && s.Date.Equal(date) {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *Memory) SessionsInRange(_ context.Context, employee engine.EmployeeID, from, to engine.Date) ([]engine.OTSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.OTSession
	for _, s := range m.sessions {
		if s.EmployeeID == employee && s.Date.AfterOrEqual(from) && s.Date.BeforeOrEqual(to) {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *Memory) SessionsByStatus(_ context.Context, status engine.SessionStatus) ([]engine.OTSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.OTSession
	for _, s := range m.sessions {
		if s.Status == status {
			out = append(out, s)
		}
	}
	sortSessions(out)
	return out, nil
}

func (m *Memory) SaveGroup(_ context.Context, sessions []engine.OTSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Map writes cannot fail mid-way, so the batch is atomic.
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return nil
}

// ---- AuditLog ----

func (m *Memory) AppendAudit(_ context.Context, entry engine.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) AuditForSession(_ context.Context, id engine.SessionID) ([]engine.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.AuditEntry
	for _, e := range m.audit {
		if e.SessionID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func sortSessions(sessions []engine.OTSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
