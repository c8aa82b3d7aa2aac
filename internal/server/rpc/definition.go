package rpc

import "encoding/json"

const (
	JSONRPCVersion = "2.0"

	// MethodBulkRequest is the reserved name of the bulk call.
	MethodBulkRequest = "bulkRequest"
)

// RPCRequest is a request envelope that passed Validate.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`

	hasID bool
}

// IsNotification reports whether the request carried no id.
func (r *RPCRequest) IsNotification() bool {
	return !r.hasID
}

// RPCResponse holds exactly one of Result or Error.
type RPCResponse struct {
	JSONRPC string
	ID      any
	Result  any
	Error   *Error
}

type resultEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result"`
}

type errorEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Error   *Error `json:"error"`
}

// Envelope returns the wire shape of the response. A nil result is kept
// as an explicit null so that exactly one of result/error is always present.
func (r *RPCResponse) Envelope() any {
	if r.Error != nil {
		return errorEnvelope{JSONRPC: r.JSONRPC, ID: r.ID, Error: r.Error}
	}
	return resultEnvelope{JSONRPC: r.JSONRPC, ID: r.ID, Result: r.Result}
}

func (r *RPCResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Envelope())
}

// IsError reports whether the response carries an error object.
func (r *RPCResponse) IsError() bool {
	return r.Error != nil
}
