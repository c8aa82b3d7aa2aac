package session

import "time"

// Client is the per-connection context handed to every handler.
type Client struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time
}

// Identity is what a successful authentication handshake yields.
type Identity struct {
	Subject  string
	Verifier string
	// ExpiresAt is the credential expiry, zero if the credential does not expire.
	ExpiresAt time.Time
}
