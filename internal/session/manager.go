package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ManagerConfig bounds the sessions a Manager keeps.
type ManagerConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

type entry struct {
	mu       sync.Mutex
	store    *Store
	lastUsed atomic.Int64
}

// Manager owns one Store per session id. Commands on the same session are
// serialized; different sessions run in parallel.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	cfg      ManagerConfig
	now      func() time.Time
	onExpire func(ids []string)
	logger   *slog.Logger
}

// NewManager creates a manager. Zero config fields fall back to a two hour
// idle timeout, a one minute sweep and no session cap.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_manager")),
	}
}

// Create starts a new empty session and returns its id.
func (m *Manager) Create() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return "", fmt.Errorf("%w: limit %d", ErrTooManySessions, m.cfg.MaxSessions)
	}

	id := uuid.NewString()
	e := &entry{store: NewStore(m.logger.With(slog.String("session_id", id)))}
	e.lastUsed.Store(m.now().UnixNano())
	m.sessions[id] = e

	m.logger.Info("session created", slog.String("session_id", id), slog.Int("sessions", len(m.sessions)))
	return id, nil
}

// With runs fn with exclusive access to the session's store.
func (m *Manager) With(id string, fn func(*Store) error) error {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed.Store(m.now().UnixNano())
	return fn(e.store)
}

// Exists reports whether the session is live.
func (m *Manager) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// Delete drops a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	m.logger.Info("session deleted", slog.String("session_id", id))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// OnExpire registers fn to be called with the ids dropped by each sweep.
// It must be set before Run starts.
func (m *Manager) OnExpire(fn func(ids []string)) {
	m.onExpire = fn
}

// Sweep drops sessions idle for longer than the idle timeout and returns
// how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout).UnixNano()

	m.mu.Lock()
	var expired []string
	for id, e := range m.sessions {
		if e.lastUsed.Load() < cutoff {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	m.logger.Info("expired idle sessions",
		slog.Int("removed", len(expired)),
		slog.Int("remaining", remaining))
	if m.onExpire != nil {
		m.onExpire(expired)
	}
	return len(expired)
}

// Run sweeps on a ticker until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	m.logger.Info("session sweeper started",
		slog.Duration("idle_timeout", m.cfg.IdleTimeout),
		slog.Duration("interval", m.cfg.SweepInterval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}
