package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/SGGuide/internal/store"
	"github.com/google/uuid"
)

// SessionManager loads sessions from a Store, runs one interaction at a time
// per session and writes the result back.
type SessionManager struct {
	store   store.Store
	variant *Variant

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionManager creates a manager whose new sessions use variant v.
func NewSessionManager(st store.Store, v *Variant) *SessionManager {
	slog.Debug("Creating SessionManager", "variant", v.Name)
	return &SessionManager{
		store:   st,
		variant: v,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Variant returns the variant given to new sessions.
func (m *SessionManager) Variant() *Variant {
	return m.variant
}

// Create starts a session with a random ID.
func (m *SessionManager) Create(ctx context.Context) (*Session, error) {
	return m.CreateWithID(ctx, uuid.NewString())
}

// CreateWithID starts a session under a caller-chosen ID, such as a phone
// number. An existing session with that ID is replaced.
func (m *SessionManager) CreateWithID(ctx context.Context, id string) (*Session, error) {
	s := NewSession(id, m.variant)
	if err := m.store.SaveSession(s.Snapshot()); err != nil {
		slog.Error("SessionManager.Create: save failed", "error", err, "session", id)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	slog.Info("SessionManager.Create: session started", "session", id, "variant", m.variant.Name)
	return s, nil
}

// Load returns the stored session, or ErrSessionNotFound.
func (m *SessionManager) Load(ctx context.Context, id string) (*Session, error) {
	snap, err := m.store.GetSession(id)
	if err != nil {
		slog.Error("SessionManager.Load: get failed", "error", err, "session", id)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return RestoreSession(*snap)
}

// LoadOrCreate returns the session with id, creating it when absent. The
// boolean reports whether a new session was created.
func (m *SessionManager) LoadOrCreate(ctx context.Context, id string) (*Session, bool, error) {
	if id != "" {
		s, err := m.Load(ctx, id)
		if err == nil {
			return s, false, nil
		}
		if !isNotFound(err) {
			return nil, false, err
		}
	} else {
		id = uuid.NewString()
	}
	s, err := m.CreateWithID(ctx, id)
	return s, err == nil, err
}

// Do runs fn on the session under its lock and saves the session when fn
// succeeds. A session already in use yields ErrBusy without waiting.
func (m *SessionManager) Do(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	lock := m.lockFor(id)
	if !lock.TryLock() {
		slog.Debug("SessionManager.Do: session busy", "session", id)
		return nil, ErrBusy
	}
	defer lock.Unlock()

	s, err := m.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return s, err
	}
	if err := m.store.SaveSession(s.Snapshot()); err != nil {
		slog.Error("SessionManager.Do: save failed", "error", err, "session", id)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return s, nil
}

// End removes the session from the store. A session in the middle of an
// interaction yields ErrBusy, so the interaction cannot write it back.
func (m *SessionManager) End(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	if !lock.TryLock() {
		slog.Debug("SessionManager.End: session busy", "session", id)
		return ErrBusy
	}
	defer lock.Unlock()

	if err := m.deleteSnapshot(id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()
	slog.Info("SessionManager.End: session ended", "session", id)
	return nil
}

// Restart replaces the session with a fresh one under the same ID while
// holding its lock. Like End it yields ErrBusy during an interaction.
func (m *SessionManager) Restart(ctx context.Context, id string) (*Session, error) {
	lock := m.lockFor(id)
	if !lock.TryLock() {
		slog.Debug("SessionManager.Restart: session busy", "session", id)
		return nil, ErrBusy
	}
	defer lock.Unlock()

	if err := m.deleteSnapshot(id); err != nil {
		return nil, err
	}
	return m.CreateWithID(ctx, id)
}

func (m *SessionManager) deleteSnapshot(id string) error {
	if err := m.store.DeleteSession(id); err != nil {
		slog.Error("SessionManager.deleteSnapshot: delete failed", "error", err, "session", id)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeIdle deletes sessions not updated within ttl and returns how many went.
func (m *SessionManager) PurgeIdle(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	n, err := m.store.DeleteSessionsIdleSince(cutoff)
	if err != nil {
		slog.Error("SessionManager.PurgeIdle: delete failed", "error", err, "cutoff", cutoff)
		return 0, fmt.Errorf("failed to purge idle sessions: %w", err)
	}

	m.mu.Lock()
	for id, lock := range m.locks {
		if !lock.TryLock() {
			continue
		}
		if snap, err := m.store.GetSession(id); err == nil && snap == nil {
			delete(m.locks, id)
		}
		lock.Unlock()
	}
	m.mu.Unlock()

	if n > 0 {
		slog.Info("SessionManager.PurgeIdle: idle sessions removed", "count", n, "ttl", ttl)
	}
	return n, nil
}

func (m *SessionManager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}
