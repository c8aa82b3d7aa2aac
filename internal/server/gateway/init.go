package gateway

import (
	"log/slog"
	"time"

	"github.com/akyaiy/rdata-node/internal/server/auth"
	"github.com/akyaiy/rdata-node/internal/server/registry"
)

const DefaultAuthMethod = "authenticate"

// GatewayServerInit structure only for initialization of the gateway.
type GatewayServerInit struct {
	Log      *slog.Logger
	Registry *registry.Registry
	Sessions Authenticator
	Verifier auth.Verifier

	// AuthMethod names the handshake method, DefaultAuthMethod if empty.
	AuthMethod string
	// HandlerTimeout of zero disables the per-handler deadline.
	HandlerTimeout time.Duration
}

func InitGateway(o *GatewayServerInit) *GatewayServer {
	authMethod := o.AuthMethod
	if authMethod == "" {
		authMethod = DefaultAuthMethod
	}
	log := o.Log
	if log == nil {
		log = slog.Default()
	}
	reg := o.Registry
	if reg == nil {
		reg = registry.NewBuilder().Build()
	}
	return &GatewayServer{
		log:            log,
		reg:            reg,
		sm:             o.Sessions,
		verifier:       o.Verifier,
		authMethod:     authMethod,
		handlerTimeout: o.HandlerTimeout,
	}
}

// ReservedMethods are names no handler may be registered under.
func ReservedMethods(authMethod string) []string {
	if authMethod == "" {
		authMethod = DefaultAuthMethod
	}
	return []string{authMethod, "bulkRequest"}
}
