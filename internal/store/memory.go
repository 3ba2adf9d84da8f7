// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Game sessions are ephemeral by design: nothing survives a restart.
//
// Characteristics:
//   - Stores *Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Get refreshes a session's last-seen time; Sweep evicts idle sessions
//     and closes their engine and hub.

package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/emoji-memory/internal/game"
	"github.com/robalobadob/emoji-memory/internal/hub"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("not found")

// Session is one live game: its engine plus the hub presenting it.
type Session struct {
	ID        string
	Engine    *game.Engine
	Hub       *hub.Hub
	Daily     string // date key for daily boards, empty otherwise
	CreatedAt time.Time

	lastSeen atomic.Int64 // unix nanos
}

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

// LastSeen returns the most recent activity time.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Close stops the engine and disconnects every client.
func (s *Session) Close() {
	s.Engine.Close()
	s.Hub.Close()
}

// Store defines the persistence interface for game sessions.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID and marks it as seen.
	// Returns ErrNotFound if the session is unknown.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete closes and removes a session. Missing IDs are not an error.
	Delete(ctx context.Context, id string) error

	// Sweep closes and removes every session idle since before cutoff,
	// returning how many were evicted.
	Sweep(ctx context.Context, cutoff time.Time) int

	// Len reports the number of live sessions.
	Len() int
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex        // guards sessions map
	sessions map[string]*Session // keyed by Session.ID
	now      func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session), now: time.Now}
}

func (m *memory) Save(ctx context.Context, s *Session) error {
	s.Touch(m.now())
	m.mu.Lock()
	old := m.sessions[s.ID]
	m.sessions[s.ID] = s
	m.mu.Unlock()
	if old != nil && old != s {
		old.Close()
	}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.Touch(m.now())
	return s, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return nil
}

func (m *memory) Sweep(ctx context.Context, cutoff time.Time) int {
	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	// closing outside the map lock: engines take their own locks
	for _, s := range idle {
		s.Close()
	}
	return len(idle)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunJanitor evicts sessions idle for longer than ttl every interval until ctx is done.
func RunJanitor(ctx context.Context, st Store, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session janitor stopped")
			return
		case now := <-ticker.C:
			if n := st.Sweep(ctx, now.Add(-ttl)); n > 0 {
				log.Info().Int("evicted", n).Int("live", st.Len()).Msg("evicted idle sessions")
			}
		}
	}
}
