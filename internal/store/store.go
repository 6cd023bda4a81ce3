// Package store provides storage backends for SGGuide sessions.
//
// A stored session lives only as long as the conversation it belongs to:
// it is deleted when the user ends the session or when it goes idle.
package store

import (
	"sync"
	"time"

	"github.com/BTreeMap/SGGuide/internal/models"
)

// Store holds session snapshots between interactions. Implementations are
// safe for concurrent use.
type Store interface {
	SaveSession(snap models.SessionSnapshot) error
	// GetSession returns nil and no error when the session does not exist.
	GetSession(id string) (*models.SessionSnapshot, error)
	DeleteSession(id string) error
	// DeleteSessionsIdleSince removes sessions last updated before cutoff.
	DeleteSessionsIdleSince(cutoff time.Time) (int, error)
	Close() error
}

// InMemoryStore keeps sessions in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionSnapshot
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.SessionSnapshot)}
}

func (s *InMemoryStore) SaveSession(snap models.SessionSnapshot) error {
	if snap.ID == "" {
		return ErrMissingSessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[snap.ID] = cloneSnapshot(snap)
	return nil
}

func (s *InMemoryStore) GetSession(id string) (*models.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := cloneSnapshot(snap)
	return &cp, nil
}

func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *InMemoryStore) DeleteSessionsIdleSince(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, snap := range s.sessions {
		if snap.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

func cloneSnapshot(snap models.SessionSnapshot) models.SessionSnapshot {
	cp := snap
	if snap.Profile != nil {
		cp.Profile = make(map[models.Field]string, len(snap.Profile))
		for k, v := range snap.Profile {
			cp.Profile[k] = v
		}
	}
	if snap.Log != nil {
		cp.Log = append([]models.Turn(nil), snap.Log...)
	}
	return cp
}
