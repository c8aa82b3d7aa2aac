package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/akyaiy/rdata-node/internal/server/auth"
	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/rpc"
	"github.com/akyaiy/rdata-node/internal/server/session"
)

// GatewayContract is what the transport needs from the gateway.
type GatewayContract interface {
	// Handle processes one decoded inbound message. A nil response means
	// nothing is sent back.
	Handle(ctx context.Context, client *session.Client, msg any) *rpc.RPCResponse
}

// Authenticator is the part of the session manager the gateway relies on.
type Authenticator interface {
	IsAuthenticated(c *session.Client) bool
	Authenticate(c *session.Client, identity *session.Identity) bool
}

// GatewayServer classifies messages and routes them to handlers.
type GatewayServer struct {
	log            *slog.Logger
	reg            *registry.Registry
	sm             Authenticator
	verifier       auth.Verifier
	authMethod     string
	handlerTimeout time.Duration
}

type outcome struct {
	result any
	err    error
}

type failure struct {
	index int
	code  int
}
