// Package sessions keeps per-client protocol state: the key exchange result,
// the negotiated suite and the user bound to the session. Nothing here is
// shared between sessions.
package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/channel"
	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/dmitrijs2005/gophstream/internal/dh"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"github.com/google/uuid"
)

// Session is a point-in-time copy of a stored session. Mutating it has no
// effect on the store.
type Session struct {
	ID        uuid.UUID
	ServerKey *dh.PrivateKey
	PeerKey   *dh.PublicKey
	Secret    []byte
	Suite     *suite.Suite
	Username  string
	CreatedAt time.Time
	LastSeen  time.Time
}

// Channel returns the secure channel for this session.
func (s Session) Channel() *channel.Channel {
	return channel.New(s.Secret, s.Suite)
}

// Store maps session ids to sessions. All methods are safe for concurrent use.
type Store struct {
	mu               sync.RWMutex
	sessions         map[uuid.UUID]*Session
	idleTimeout      time.Duration
	handshakeTimeout time.Duration
	now              func() time.Time
	logger           logging.Logger
}

// NewStore creates an empty store. Sessions idle for longer than
// idleTimeout are evicted; sessions that have not negotiated a suite
// handshakeTimeout after creation are evicted regardless of activity. A zero timeout disables that rule.
func NewStore(idleTimeout, handshakeTimeout time.Duration, logger logging.Logger) *Store {
	return &Store{
		sessions:         make(map[uuid.UUID]*Session),
		idleTimeout:      idleTimeout,
		handshakeTimeout: handshakeTimeout,
		now:              time.Now,
		logger:           logger.With("module", "sessions"),
	}
}

// Create registers a session holding the key exchange result and returns
// its fresh id. The shared secret is set here and never changes.
func (st *Store) Create(serverKey *dh.PrivateKey, peerKey *dh.PublicKey, secret []byte) (uuid.UUID, error) {
	if len(secret) == 0 {
		return uuid.Nil, fmt.Errorf("%w: empty shared secret", common.ErrKeyExchange)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, err
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.sessions[id] = &Session{
		ID:        id,
		ServerKey: serverKey,
		PeerKey:   peerKey,
		Secret:    append([]byte(nil), secret...),
		CreatedAt: now,
		LastSeen:  now,
	}
	return id, nil
}

// AttachCipherSuite validates s and stores it on the session.
func (st *Store) AttachCipherSuite(id uuid.UUID, s suite.Suite) error {
	if err := s.Validate(); err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return common.ErrSessionNotFound
	}
	sess.Suite = &s
	sess.LastSeen = st.now()
	return nil
}

// BindUser records the authenticated user of the session.
func (st *Store) BindUser(id uuid.UUID, username string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return common.ErrSessionNotFound
	}
	sess.Username = username
	sess.LastSeen = st.now()
	return nil
}

// Get returns a snapshot of the session and refreshes its idle timer.
func (st *Store) Get(id uuid.UUID) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return Session{}, common.ErrSessionNotFound
	}
	sess.LastSeen = st.now()
	return sess.snapshot(), nil
}

// Delete removes the session and wipes its secret. It reports whether the
// session existed.
func (st *Store) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		return false
	}
	st.drop(sess)
	return true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// EvictIdle drops every session past its timeout at now and returns how
// many were removed.
func (st *Store) EvictIdle(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	for _, sess := range st.sessions {
		switch {
		case sess.Suite == nil && st.handshakeTimeout > 0 && now.Sub(sess.CreatedAt) > st.handshakeTimeout:
		case st.idleTimeout > 0 && now.Sub(sess.LastSeen) > st.idleTimeout:
		default:
			continue
		}
		st.drop(sess)
		evicted++
	}
	return evicted
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (st *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.EvictIdle(st.now()); n > 0 {
				st.logger.Info(ctx, "Evicted idle sessions", "count", n)
			}
		}
	}
}

// drop must be called with mu held.
func (st *Store) drop(sess *Session) {
	common.WipeByteArray(sess.Secret)
	delete(st.sessions, sess.ID)
}

func (s *Session) snapshot() Session {
	out := *s
	out.Secret = append([]byte(nil), s.Secret...)
	if s.Suite != nil {
		cp := *s.Suite
		out.Suite = &cp
	}
	return out
}
