package session

import (
	"context"
	"sync"
	"time"
)

type SessionManagerContract interface {
	Add(c *Client) bool
	Delete(id string)
	Authenticate(c *Client, identity *Identity) bool
	IsAuthenticated(c *Client) bool
	StartCleanup(ctx context.Context, interval time.Duration)
}

type state struct {
	client   *Client
	identity *Identity
	expiry   time.Time
}

func (s *state) authenticated(now time.Time) bool {
	if s.identity == nil {
		return false
	}
	return s.expiry.IsZero() || now.Before(s.expiry)
}

// SessionManager tracks connected clients and their authentication state.
// A ttl of zero keeps an authentication valid until the credential expires
// or the connection closes.
type SessionManager struct {
	sessions sync.Map
	ttl      time.Duration
	now      func() time.Time
}

func New(ttl time.Duration) *SessionManager {
	return &SessionManager{
		ttl: ttl,
		now: time.Now,
	}
}

// Add registers a freshly connected, unauthenticated client.
func (sm *SessionManager) Add(c *Client) bool {
	_, loaded := sm.sessions.LoadOrStore(c.ID, &state{client: c})
	return !loaded
}

func (sm *SessionManager) Delete(id string) {
	sm.sessions.Delete(id)
}

// Authenticate attaches identity to a registered client, replacing any
// previous identity. It returns false if the client is not registered.
func (sm *SessionManager) Authenticate(c *Client, identity *Identity) bool {
	for {
		v, ok := sm.sessions.Load(c.ID)
		if !ok {
			return false
		}
		old := v.(*state)
		next := &state{client: old.client, identity: identity}
		if sm.ttl > 0 {
			next.expiry = sm.now().Add(sm.ttl)
		}
		if !identity.ExpiresAt.IsZero() && (next.expiry.IsZero() || identity.ExpiresAt.Before(next.expiry)) {
			next.expiry = identity.ExpiresAt
		}
		if sm.sessions.CompareAndSwap(c.ID, old, next) {
			return true
		}
	}
}

func (sm *SessionManager) IsAuthenticated(c *Client) bool {
	if c == nil {
		return false
	}
	v, ok := sm.sessions.Load(c.ID)
	if !ok {
		return false
	}
	return v.(*state).authenticated(sm.now())
}

// Identity returns the current identity of an authenticated client.
func (sm *SessionManager) Identity(c *Client) (*Identity, bool) {
	v, ok := sm.sessions.Load(c.ID)
	if !ok {
		return nil, false
	}
	st := v.(*state)
	if !st.authenticated(sm.now()) {
		return nil, false
	}
	return st.identity, true
}

func (sm *SessionManager) Len() int {
	n := 0
	sm.sessions.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// StartCleanup periodically drops expired authentications until ctx is done.
// The connections themselves stay registered and must authenticate again.
func (sm *SessionManager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sm.sweep()
			}
		}
	}()
}

func (sm *SessionManager) sweep() int {
	now := sm.now()
	expired := 0
	sm.sessions.Range(func(key, value any) bool {
		st := value.(*state)
		if st.identity != nil && !st.authenticated(now) {
			if sm.sessions.CompareAndSwap(key, st, &state{client: st.client}) {
				expired++
			}
		}
		return true
	})
	return expired
}
