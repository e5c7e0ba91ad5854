package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type managed struct {
	session  *Session
	lastUsed time.Time
}

// Manager keeps the open sessions of the HTTP API, keyed by a random id.
// Sessions unused for longer than the TTL are closed by Expire.
type Manager struct {
	deps Dependencies
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]*managed

	now func() time.Time
}

func NewManager(deps Dependencies, ttl time.Duration) *Manager {
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		sessions: map[string]*managed{},
		now:      time.Now,
	}
}

func (m *Manager) Create() (string, *Session, error) {
	s, err := New(m.deps)
	if err != nil {
		return "", nil, err
	}

	id := uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = &managed{session: s, lastUsed: m.now()}
	m.mu.Unlock()

	log.Debug().Str("session", id).Msg("Opened session")

	return id, s, nil
}

// Get returns the session and marks it as used
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastUsed = m.now()

	return entry.session, true
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		entry.session.Close()
		log.Debug().Str("session", id).Msg("Closed session")
	}

	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Expire closes every session idle for longer than the TTL and returns how many
func (m *Manager) Expire() int {
	cutoff := m.now().Add(-m.ttl)

	var expired []*Session

	m.mu.Lock()
	for id, entry := range m.sessions {
		if entry.lastUsed.Before(cutoff) {
			expired = append(expired, entry.session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}

	return len(expired)
}

// RunJanitor calls Expire every interval until ctx is done
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if expired := m.Expire(); expired > 0 {
				log.Info().Int("expired", expired).Int("open", m.Len()).Msg("Expired idle sessions")
			}
		}
	}
}

// Close closes every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*managed{}
	m.mu.Unlock()

	for _, entry := range sessions {
		entry.session.Close()
	}
}
