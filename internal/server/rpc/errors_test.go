package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestFunc_AsError(t *testing.T) {
	domain := InvalidParams("key is required")
	wrapped := fmt.Errorf("kv.get: %w", domain)

	tests := []struct {
		name string
		in   error
		code int
		same bool
	}{
		{"rpc error kept", domain, ErrInvalidParams, true},
		{"wrapped rpc error kept", wrapped, ErrInvalidParams, true},
		{"plain error hidden", errors.New("database is locked"), ErrInternalError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsError(tt.in)
			if got.Code != tt.code {
				t.Errorf("code = %d, want %d", got.Code, tt.code)
			}
			if tt.same && got != domain {
				t.Errorf("expected the original error object")
			}
			if !tt.same && (got.Message != ErrInternalErrorS || got.Data != nil) {
				t.Errorf("internal detail leaked: %+v", got)
			}
		})
	}

	if AsError(nil) != nil {
		t.Error("AsError(nil) should be nil")
	}
}

func TestFunc_ResponseEnvelope(t *testing.T) {
	tests := []struct {
		name string
		resp *RPCResponse
		want string
	}{
		{"result", NewResponse(true, "B1"), `{"jsonrpc":"2.0","id":"B1","result":true}`},
		{"null result", NewResponse(nil, 1), `{"jsonrpc":"2.0","id":1,"result":null}`},
		{"error", NewErrorResponse(StdError(ErrInvalidRequest), "B1"),
			`{"jsonrpc":"2.0","id":"B1","error":{"code":-32600,"message":"Invalid Request"}}`},
		{"error with data and null id", NewError(ErrParseError, ErrParseErrorS, "eof", nil),
			`{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error","data":"eof"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("got %s, want %s", out, tt.want)
			}
		})
	}
}
