package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

const (
	// PendingTTL bounds how long a prepared transaction is kept; its blockhash
	// is long expired by then.
	PendingTTL = 2 * time.Minute
	// SessionIdleTTL drops sessions nobody has used for this long.
	SessionIdleTTL = 30 * time.Minute
	MaxSessions    = 10000
)

// Session is the handle for one connected wallet. It is created on connect
// and dropped on disconnect. Busy is a signal only: parallel submissions on
// the same session are not serialised.
type Session struct {
	ID        string
	Wallet    solana.PublicKey
	Signer    Signer
	CreatedAt time.Time

	inflight atomic.Int32
	lastSeen atomic.Int64 // unix nanos

	mu      sync.Mutex
	pending map[string]*Prepared
}

// NewSession opens a session for wallet. signer may be nil when each
// submission brings its own (browser relay).
func NewSession(wallet solana.PublicKey, signer Signer) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Wallet:    wallet,
		Signer:    signer,
		CreatedAt: time.Now(),
		pending:   make(map[string]*Prepared),
	}
	s.touch(s.CreatedAt)
	return s
}

// NewSignerSession opens a session whose wallet is the signer's key.
func NewSignerSession(signer Signer) *Session {
	return NewSession(signer.PublicKey(), signer)
}

func (s *Session) Busy() bool { return s.inflight.Load() > 0 }

func (s *Session) begin() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

func (s *Session) touch(now time.Time) { s.lastSeen.Store(now.UnixNano()) }

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

func (s *Session) putPending(p *Prepared) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prunePendingLocked(time.Now())
	s.pending[p.ID] = p
}

func (s *Session) prunePendingLocked(now time.Time) {
	for id, old := range s.pending {
		if now.Sub(old.CreatedAt) > PendingTTL {
			delete(s.pending, id)
		}
	}
}

// takePending removes and returns a prepared operation; each one executes once.
func (s *Session) takePending(id string) *Prepared {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return nil
	}
	delete(s.pending, id)
	if time.Since(p.CreatedAt) > PendingTTL {
		return nil
	}
	return p
}

// PeekPending returns a prepared operation without consuming it.
func (s *Session) PeekPending(id string) *Prepared {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[id]
}

// SessionRegistry tracks sessions of the HTTP relay. Idle sessions expire
// and the number of open sessions is capped.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
	max      int
	now      func() time.Time
}

type RegistryOption func(*SessionRegistry)

func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

func WithMaxSessions(n int) RegistryOption {
	return func(r *SessionRegistry) {
		if n > 0 {
			r.max = n
		}
	}
}

func NewSessionRegistry(opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions: make(map[string]*Session),
		idleTTL:  SessionIdleTTL,
		max:      MaxSessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect validates the wallet address and opens a session for it. Idle
// sessions are swept first; ErrTooManySessions when still at the cap.
func (r *SessionRegistry) Connect(wallet string) (*Session, error) {
	pk, err := ParseAddress(wallet)
	if err != nil {
		return nil, err
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
	if len(r.sessions) >= r.max {
		return nil, ErrTooManySessions
	}
	s := NewSession(pk, nil)
	s.touch(now)
	r.sessions[s.ID] = s
	return s, nil
}

// Get returns a live session and marks it used.
func (r *SessionRegistry) Get(id string) (*Session, error) {
	now := r.now()
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || r.expired(s, now) {
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Sweep drops idle sessions and expired pending operations.
func (r *SessionRegistry) Sweep() {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(now)
}

// RunSweeper calls Sweep every interval until ctx ends.
func (r *SessionRegistry) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

func (r *SessionRegistry) sweepLocked(now time.Time) {
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			continue
		}
		s.mu.Lock()
		s.prunePendingLocked(now)
		s.mu.Unlock()
	}
}

// expired sessions are idle past the TTL; one with an operation in flight never is.
func (r *SessionRegistry) expired(s *Session, now time.Time) bool {
	return !s.Busy() && s.idleSince(now) > r.idleTTL
}

// Disconnect tears the session down; pending operations are dropped.
func (r *SessionRegistry) Disconnect(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
