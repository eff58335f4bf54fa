// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jeranaias/treeshell/internal/namespace"
)

// Registry errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for the session manager.
type Config struct {
	// Timeout is how long a session may stay idle (default: 30 minutes)
	Timeout time.Duration

	// ReapInterval is how often idle sessions are removed (default: 1 minute)
	ReapInterval time.Duration

	// MaxSessions caps the number of live sessions, 0 for no limit
	MaxSessions int
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Minute,
		ReapInterval: time.Minute,
		MaxSessions:  1000,
	}
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager keeps the live sessions of a multi-user host such as the HTTP
// server. Every session gets the tree current at creation time and keeps it
// for its whole life.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	trees func() *namespace.Tree
	cfg   Config
	now   func() time.Time

	onExpire func(id string)
}

// entry serialises access to one session.
type entry struct {
	mu           sync.Mutex
	sess         *Session
	lastActivity time.Time
}

// NewManager creates a manager that builds sessions on trees().
func NewManager(cfg Config, trees func() *namespace.Tree) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultConfig().ReapInterval
	}
	return &Manager{
		sessions: make(map[string]*entry),
		trees:    trees,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SetExpireCallback sets the function called for every reaped session.
func (m *Manager) SetExpireCallback(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = fn
}

// Create starts a new session.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	sess := New(m.trees())
	m.sessions[sess.ID()] = &entry{sess: sess, lastActivity: m.now()}
	return sess, nil
}

// With runs fn with exclusive access to the session and records activity.
func (m *Manager) With(id string, fn func(*Session) error) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastActivity = m.now()
	return fn(e.sess)
}

// Delete removes a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IDs returns the live session IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// =============================================================================
// TIMEOUT CHECKING
// =============================================================================

// Reap removes every session idle for longer than the timeout and returns
// how many were removed.
func (m *Manager) Reap() int {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for id, e := range m.sessions {
		e.mu.Lock()
		idle := now.Sub(e.lastActivity)
		e.mu.Unlock()
		if idle >= m.cfg.Timeout {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	onExpire := m.onExpire
	m.mu.Unlock()

	// Execute callbacks outside lock
	if onExpire != nil {
		for _, id := range expired {
			onExpire(id)
		}
	}
	return len(expired)
}

// Run reaps idle sessions every ReapInterval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Reap()
		}
	}
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a snapshot of one session.
type Status struct {
	SessionID     string
	Cwd           string
	Prompt        string
	StartTime     time.Time
	LastActivity  time.Time
	IdleTime      time.Duration
	RemainingTime time.Duration
}

// GetStatus returns a snapshot of the session without counting as activity.
func (m *Manager) GetStatus(id string) (Status, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return Status{}, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	idle := m.now().Sub(e.lastActivity)
	remaining := m.cfg.Timeout - idle
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		SessionID:     e.sess.ID(),
		Cwd:           e.sess.Tree().FullPath(e.sess.Cwd(), false),
		Prompt:        e.sess.Prompt(),
		StartTime:     e.sess.StartTime(),
		LastActivity:  e.lastActivity,
		IdleTime:      idle,
		RemainingTime: remaining,
	}, nil
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		secs := int(d.Seconds())
		return strconv.Itoa(secs) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
