package gateway

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/akyaiy/rdata-node/internal/server/rpc"
	"github.com/akyaiy/rdata-node/internal/server/session"
)

// RouteBulk runs every sub-request of a bulkRequest and answers once: true
// if all of them validated and succeeded, a single InvalidRequest otherwise.
// Sub-requests that already ran are not rolled back.
func (gs *GatewayServer) RouteBulk(ctx context.Context, client *session.Client, req *rpc.RPCRequest) *rpc.RPCResponse {
	if !gs.sm.IsAuthenticated(client) {
		gs.log.Debug("request rejected", slog.String("rpc.method", req.Method), slog.String("issue", rpc.ErrUnauthorizedS))
		return correlate(req, nil, rpc.StdError(rpc.ErrUnauthorized))
	}

	items, ok := bulkItems(req.Params)
	if !ok {
		gs.log.Info("invalid request received", slog.String("issue", "bulkRequest without requests array"))
		return correlate(req, nil, rpc.NewRPCError(rpc.ErrInvalidRequest, rpc.ErrInvalidRequestS, "params.requests must be an array"))
	}

	failures := make(chan failure, len(items))
	seen := make(map[string]struct{}, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		sub, rpcErr := rpc.Validate(item)
		if rpcErr == nil {
			rpcErr = gs.checkSubRequest(sub, seen)
		}
		if rpcErr != nil {
			failures <- failure{index: i, code: rpcErr.Code}
			continue
		}

		wg.Add(1)
		go func(i int, sub *rpc.RPCRequest) {
			defer wg.Done()
			if _, rpcErr := gs.dispatch(ctx, client, sub); rpcErr != nil {
				failures <- failure{index: i, code: rpcErr.Code}
			}
		}(i, sub)
	}
	wg.Wait()
	close(failures)

	failed := make([]failure, 0, len(failures))
	for f := range failures {
		failed = append(failed, f)
	}
	if len(failed) == 0 {
		return correlate(req, true, nil)
	}

	sort.Slice(failed, func(a, b int) bool { return failed[a].index < failed[b].index })
	gs.log.Debug("bulk request failed",
		slog.Any("rpc.id", req.ID),
		slog.Int("total", len(items)),
		slog.Int("failed", len(failed)),
	)
	for _, f := range failed {
		gs.log.Debug("bulk sub-request failed", slog.Any("rpc.id", req.ID), slog.Int("index", f.index), slog.Int("code", f.code))
	}
	return correlate(req, nil, rpc.StdError(rpc.ErrInvalidRequest))
}

func bulkItems(params any) ([]any, bool) {
	obj, ok := params.(map[string]any)
	if !ok {
		return nil, false
	}
	items, ok := obj["requests"].([]any)
	return items, ok
}

// checkSubRequest applies the rules that only hold inside a bulk call.
func (gs *GatewayServer) checkSubRequest(sub *rpc.RPCRequest, seen map[string]struct{}) *rpc.Error {
	switch sub.Method {
	case rpc.MethodBulkRequest, gs.authMethod:
		return rpc.NewRPCError(rpc.ErrInvalidRequest, rpc.ErrInvalidRequestS, sub.Method+" is not allowed inside bulkRequest")
	}
	if sub.IsNotification() {
		return nil
	}
	key := rpc.IDKey(sub.ID)
	if _, dup := seen[key]; dup {
		return rpc.NewRPCError(rpc.ErrInvalidRequest, rpc.ErrInvalidRequestS, "duplicate id")
	}
	seen[key] = struct{}{}
	return nil
}
