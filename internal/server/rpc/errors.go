package rpc

import (
	"errors"
	"fmt"
)

const (
	ErrParseError  = -32700
	ErrParseErrorS = "Parse error"

	ErrInvalidRequest  = -32600
	ErrInvalidRequestS = "Invalid Request"

	ErrMethodNotFound  = -32601
	ErrMethodNotFoundS = "Method not found"

	ErrInvalidParams  = -32602
	ErrInvalidParamsS = "Invalid params"

	ErrInternalError  = -32603
	ErrInternalErrorS = "Internal error"

	ErrUnauthorized  = -32001
	ErrUnauthorizedS = "Unauthorized"

	ErrAuthenticationFailed  = -32002
	ErrAuthenticationFailedS = "Authentication failed"
)

var stdMessages = map[int]string{
	ErrParseError:           ErrParseErrorS,
	ErrInvalidRequest:       ErrInvalidRequestS,
	ErrMethodNotFound:       ErrMethodNotFoundS,
	ErrInvalidParams:        ErrInvalidParamsS,
	ErrInternalError:        ErrInternalErrorS,
	ErrUnauthorized:         ErrUnauthorizedS,
	ErrAuthenticationFailed: ErrAuthenticationFailedS,
}

// Error is the JSON-RPC error object. Kinds are told apart by Code only.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func NewRPCError(code int, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// StdError returns an error object with the standard message for code.
func StdError(code int) *Error {
	msg, ok := stdMessages[code]
	if !ok {
		msg = "Server error"
	}
	return &Error{Code: code, Message: msg}
}

// InvalidParams is a shorthand for handlers rejecting their params.
func InvalidParams(reason string) *Error {
	return &Error{Code: ErrInvalidParams, Message: ErrInvalidParamsS, Data: reason}
}

// AsError converts a handler error into an error object. Anything that is not
// an *Error becomes InternalError with no detail attached.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return StdError(ErrInternalError)
}
