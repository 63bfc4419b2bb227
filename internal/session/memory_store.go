package session

import (
	"context"
	"sync"
	"time"

	"github.com/mudler/xlog"
	"github.com/robfig/cron/v3"
)

// MemoryStore keeps sessions in process memory. Sessions idle longer than
// maxIdle are removed by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	maxIdle  time.Duration
	now      func() time.Time
}

func NewMemoryStore(maxIdle time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		maxIdle:  maxIdle,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := sess
	cp.Permissions = append([]string(nil), sess.Permissions...)
	return &cp, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Permissions = append([]string(nil), sess.Permissions...)
	s.sessions[sess.Token] = cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle beyond maxIdle and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for token, sess := range s.sessions {
		if sess.IdleFor(now) > s.maxIdle {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// StartSweeper schedules Sweep every minute. Stop the returned cron on shutdown.
func (s *MemoryStore) StartSweeper() (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		if n := s.Sweep(); n > 0 {
			xlog.Debug("Swept idle sessions", "removed", n)
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
