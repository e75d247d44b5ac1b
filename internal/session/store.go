package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or expired session ID.
var ErrSessionNotFound = errors.New("session not found")

// DefaultIdleTimeout is how long an untouched session survives.
const DefaultIdleTimeout = 30 * time.Minute

// Gauge receives the live session count. prometheus.Gauge satisfies it.
type Gauge interface {
	Set(float64)
}

// Options configures a Store.
type Options struct {
	IdleTimeout time.Duration
	// MaxFiles caps the files per session; 0 means no cap.
	MaxFiles int
	// Active, when set, tracks the number of live sessions.
	Active Gauge
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Store maps session IDs to sessions. Sessions live only in memory and
// expire after IdleTimeout without use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTimeout time.Duration
	maxFiles    int
	active      Gauge
	now         func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: opts.IdleTimeout,
		maxFiles:    opts.MaxFiles,
		active:      opts.Active,
		now:         opts.Now,
	}
}

// Create starts a new session with a random ID.
func (s *Store) Create() *Session {
	sess := newSession(uuid.New().String(), s.maxFiles, s.now)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	s.report(n)
	return sess
}

// Get returns a live session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || s.expired(sess) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// GetOrCreate returns the session for id, or a fresh one when id is empty,
// unknown or expired. created reports which happened.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	if id != "" {
		if sess, err := s.Get(id); err == nil {
			return sess, false
		}
	}
	return s.Create(), true
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	s.report(n)
}

// Len returns the number of sessions held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	s.report(n)
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.idleTimeout / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func (s *Store) expired(sess *Session) bool {
	return s.now().Sub(sess.LastSeen()) > s.idleTimeout
}

func (s *Store) report(n int) {
	if s.active != nil {
		s.active.Set(float64(n))
	}
}
