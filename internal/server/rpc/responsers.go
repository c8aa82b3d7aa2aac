package rpc

func NewError(code int, message string, data any, id any) *RPCResponse {
	return &RPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   NewRPCError(code, message, data),
	}
}

func NewErrorResponse(e *Error, id any) *RPCResponse {
	return &RPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   e,
	}
}

func NewResponse(result any, id any) *RPCResponse {
	return &RPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}
