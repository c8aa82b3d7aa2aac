package session

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(ttl time.Duration) (*SessionManager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	sm := New(ttl)
	sm.now = clock.Now
	return sm, clock
}

func TestFunc_SessionLifecycle(t *testing.T) {
	sm, _ := newTestManager(0)
	c := &Client{ID: "c1"}

	if sm.IsAuthenticated(c) {
		t.Fatal("unknown client must not be authenticated")
	}
	if sm.Authenticate(c, &Identity{Subject: "alice"}) {
		t.Fatal("authenticate must fail for an unregistered client")
	}
	if !sm.Add(c) {
		t.Fatal("first Add should succeed")
	}
	if sm.Add(c) {
		t.Fatal("second Add with the same id should fail")
	}
	if sm.IsAuthenticated(c) {
		t.Fatal("fresh client must not be authenticated")
	}
	if !sm.Authenticate(c, &Identity{Subject: "alice"}) {
		t.Fatal("authenticate failed")
	}
	if !sm.IsAuthenticated(c) {
		t.Fatal("client should be authenticated")
	}
	if id, ok := sm.Identity(c); !ok || id.Subject != "alice" {
		t.Fatalf("identity = %+v, %v", id, ok)
	}

	sm.Authenticate(c, &Identity{Subject: "bob"})
	if id, _ := sm.Identity(c); id.Subject != "bob" {
		t.Errorf("re-authentication should replace identity, got %s", id.Subject)
	}

	sm.Delete(c.ID)
	if sm.IsAuthenticated(c) || sm.Len() != 0 {
		t.Error("deleted client is still tracked")
	}
}

func TestFunc_SessionExpiry(t *testing.T) {
	tests := []struct {
		name      string
		ttl       time.Duration
		tokenTTL  time.Duration
		advance   time.Duration
		wantAlive bool
	}{
		{"no ttl no token expiry", 0, 0, 24 * time.Hour, true},
		{"within ttl", time.Hour, 0, 30 * time.Minute, true},
		{"past ttl", time.Hour, 0, 2 * time.Hour, false},
		{"token expires before ttl", time.Hour, 10 * time.Minute, 20 * time.Minute, false},
		{"token expiry without ttl", 0, 10 * time.Minute, 5 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, clock := newTestManager(tt.ttl)
			c := &Client{ID: "c"}
			sm.Add(c)
			identity := &Identity{Subject: "s"}
			if tt.tokenTTL > 0 {
				identity.ExpiresAt = clock.t.Add(tt.tokenTTL)
			}
			sm.Authenticate(c, identity)
			clock.t = clock.t.Add(tt.advance)
			if got := sm.IsAuthenticated(c); got != tt.wantAlive {
				t.Errorf("IsAuthenticated = %v, want %v", got, tt.wantAlive)
			}
		})
	}
}

func TestFunc_SessionSweep(t *testing.T) {
	sm, clock := newTestManager(time.Minute)
	a, b := &Client{ID: "a"}, &Client{ID: "b"}
	sm.Add(a)
	sm.Add(b)
	sm.Authenticate(a, &Identity{Subject: "a"})

	clock.t = clock.t.Add(2 * time.Minute)
	if n := sm.sweep(); n != 1 {
		t.Errorf("sweep expired %d sessions, want 1", n)
	}
	if sm.Len() != 2 {
		t.Errorf("sweep must keep connections registered, have %d", sm.Len())
	}
	if !sm.Authenticate(a, &Identity{Subject: "a"}) || !sm.IsAuthenticated(a) {
		t.Error("client should be able to authenticate again after expiry")
	}
}
