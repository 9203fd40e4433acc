package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// SessionsConfig configures a Sessions registry.
type SessionsConfig struct {
	// IdleTimeout evicts engines that were not used for this long. The
	// persisted record survives eviction and is rehydrated on next use.
	IdleTimeout    time.Duration
	SaveTimeout    time.Duration
	Logger         *zap.Logger
	OnPersistError func(error)
}

type session struct {
	mu       sync.Mutex // guards engine while it is opened
	engine   *Engine
	lastUsed time.Time
}

// Sessions keeps one Engine per cart session. Each engine is rehydrated from
// the Store when the session is first used; a failed rehydration is retried
// on the next use.
type Sessions struct {
	store Store
	gate  Gate
	cfg   SessionsConfig
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessions creates a registry backed by store and gated by gate.
func NewSessions(store Store, gate Gate, cfg SessionsConfig) *Sessions {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Sessions{
		store:    store,
		gate:     gate,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the engine for sessionID, opening it on first use. An error
// means the stored cart could not be read; nothing is cached and the next
// call tries again.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Engine, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &session{}
		s.sessions[sessionID] = sess
	}
	sess.lastUsed = s.now()
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.engine != nil {
		return sess.engine, nil
	}
	e, err := Open(ctx, NewSessionStorage(s.store, sessionID), s.gate,
		WithLogger(s.cfg.Logger.With(zap.String("cart_session", sessionID))),
		WithSaveTimeout(s.cfg.SaveTimeout),
		WithPersistErrorHook(s.cfg.OnPersistError),
	)
	if err != nil {
		return nil, errors.Wrap(err, "open cart")
	}
	sess.engine = e
	return e, nil
}

// Close tears down the in-memory engine of sessionID.
func (s *Sessions) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len returns the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// evict removes sessions idle since before now - IdleTimeout.
func (s *Sessions) evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastUsed) >= s.cfg.IdleTimeout {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run evicts idle sessions periodically until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := s.evict(now); n > 0 {
				s.cfg.Logger.Debug("Evicted idle cart sessions", zap.Int("count", n))
			}
		}
	}
}
