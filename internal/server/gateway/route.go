package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/akyaiy/rdata-node/internal/core/utils"
	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/rpc"
	"github.com/akyaiy/rdata-node/internal/server/session"
)

func (gs *GatewayServer) Handle(ctx context.Context, client *session.Client, msg any) *rpc.RPCResponse {
	if _, isBatch := msg.([]any); isBatch {
		gs.log.Info("invalid request received", slog.String("issue", "array batch"))
		return rpc.NewError(rpc.ErrInvalidRequest, rpc.ErrInvalidRequestS, "array batches are not supported, use bulkRequest", nil)
	}

	req, rpcErr := rpc.Validate(msg)
	if rpcErr != nil {
		gs.log.Info("invalid request received", slog.String("issue", fmt.Sprint(rpcErr.Data)))
		return rpc.NewErrorResponse(rpcErr, rpc.ExtractID(msg))
	}

	var resp *rpc.RPCResponse
	switch req.Method {
	case gs.authMethod:
		resp = gs.authenticate(ctx, client, req)
	case rpc.MethodBulkRequest:
		resp = gs.RouteBulk(ctx, client, req)
	default:
		resp = gs.Route(ctx, client, req)
	}

	if req.IsNotification() {
		return nil
	}
	return resp
}

// Route dispatches a single validated request.
func (gs *GatewayServer) Route(ctx context.Context, client *session.Client, req *rpc.RPCRequest) *rpc.RPCResponse {
	if !gs.sm.IsAuthenticated(client) {
		gs.log.Debug("request rejected", slog.String("rpc.method", req.Method), slog.String("issue", rpc.ErrUnauthorizedS))
		return correlate(req, nil, rpc.StdError(rpc.ErrUnauthorized))
	}
	result, rpcErr := gs.dispatch(ctx, client, req)
	return correlate(req, result, rpcErr)
}

func (gs *GatewayServer) dispatch(ctx context.Context, client *session.Client, req *rpc.RPCRequest) (any, *rpc.Error) {
	h, ok := gs.reg.Lookup(req.Method)
	if !ok {
		gs.log.Debug("method not found", slog.String("rpc.method", req.Method))
		return nil, rpc.StdError(rpc.ErrMethodNotFound)
	}

	start := time.Now()
	result, rpcErr := gs.invoke(ctx, client, req, h)
	gs.log.Debug("request dispatched",
		slog.String("rpc.method", req.Method),
		slog.Any("rpc.id", req.ID),
		slog.Duration("took", time.Since(start)),
		slog.Bool("ok", rpcErr == nil),
	)
	return result, rpcErr
}

// invoke runs h once and waits for its first reply. Panics and plain Go
// errors become InternalError.
func (gs *GatewayServer) invoke(ctx context.Context, client *session.Client, req *rpc.RPCRequest, h registry.Handler) (any, *rpc.Error) {
	if gs.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gs.handlerTimeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	var once sync.Once
	reply := func(result any, err error) {
		once.Do(func() {
			done <- outcome{result: result, err: err}
		})
	}

	go func() {
		defer utils.CatchPanicWithFallback(func(rec any) {
			gs.log.Error("panic caught in handler", slog.String("rpc.method", req.Method), slog.Any("panic", rec))
			reply(nil, fmt.Errorf("handler panic: %v", rec))
		})
		h.ServeRPC(ctx, client, req.Params, reply)
	}()

	select {
	case o := <-done:
		if o.err == nil {
			return o.result, nil
		}
		rpcErr := rpc.AsError(o.err)
		var domain *rpc.Error
		if !errors.As(o.err, &domain) {
			gs.log.Error("handler failed", slog.String("rpc.method", req.Method), slog.String("err", o.err.Error()))
		}
		return nil, rpcErr
	case <-ctx.Done():
		gs.log.Warn("handler did not reply", slog.String("rpc.method", req.Method), slog.String("err", ctx.Err().Error()))
		return nil, rpc.StdError(rpc.ErrInternalError)
	}
}
