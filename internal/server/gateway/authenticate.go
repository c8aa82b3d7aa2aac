package gateway

import (
	"context"
	"log/slog"

	"github.com/akyaiy/rdata-node/internal/server/auth"
	"github.com/akyaiy/rdata-node/internal/server/rpc"
	"github.com/akyaiy/rdata-node/internal/server/session"
)

// authenticate handles the handshake. It is the only call accepted before
// the session is authenticated.
func (gs *GatewayServer) authenticate(ctx context.Context, client *session.Client, req *rpc.RPCRequest) *rpc.RPCResponse {
	token, err := auth.TokenFromParams(req.Params)
	if err != nil {
		return correlate(req, nil, rpc.InvalidParams(err.Error()))
	}
	if gs.verifier == nil {
		gs.log.Warn("authentication attempted but no verifiers are configured")
		return correlate(req, nil, rpc.StdError(rpc.ErrAuthenticationFailed))
	}

	identity, err := gs.verifier.Verify(ctx, token)
	if err != nil {
		gs.log.Info("authentication failed", slog.String("client", client.ID), slog.String("err", err.Error()))
		return correlate(req, nil, rpc.StdError(rpc.ErrAuthenticationFailed))
	}
	if !gs.sm.Authenticate(client, identity) {
		gs.log.Warn("authentication for an unknown session", slog.String("client", client.ID))
		return correlate(req, nil, rpc.StdError(rpc.ErrAuthenticationFailed))
	}

	gs.log.Info("client authenticated",
		slog.String("client", client.ID),
		slog.String("subject", identity.Subject),
		slog.String("verifier", identity.Verifier),
	)
	return correlate(req, true, nil)
}
