package gateway

import "github.com/akyaiy/rdata-node/internal/server/rpc"

// correlate builds the outward response for req. The id is always the one
// the caller sent.
func correlate(req *rpc.RPCRequest, result any, rpcErr *rpc.Error) *rpc.RPCResponse {
	if rpcErr != nil {
		return rpc.NewErrorResponse(rpcErr, req.ID)
	}
	return rpc.NewResponse(result, req.ID)
}
