package rpc

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
)

// Validate checks a decoded value against the request envelope contract.
// It has no side effects and may be called any number of times on the same value.
func Validate(v any) (*RPCRequest, *Error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, invalid("request must be an object")
	}

	version, ok := obj["jsonrpc"].(string)
	if !ok || version != JSONRPCVersion {
		return nil, invalid(`jsonrpc must be exactly "2.0"`)
	}

	method, ok := obj["method"].(string)
	if !ok || method == "" {
		return nil, invalid("method must be a non-empty string")
	}

	req := &RPCRequest{
		JSONRPC: version,
		Method:  method,
		Params:  obj["params"],
	}
	if id, present := obj["id"]; present {
		if !IsScalarID(id) {
			return nil, invalid("id must be a string or a number")
		}
		req.ID = id
		req.hasID = true
	}
	return req, nil
}

func invalid(reason string) *Error {
	return NewRPCError(ErrInvalidRequest, ErrInvalidRequestS, reason)
}

// IsScalarID reports whether id is a string or a number. Null, booleans,
// objects and arrays are not accepted as ids.
func IsScalarID(id any) bool {
	switch id.(type) {
	case string, json.Number,
		float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// ExtractID returns the id of v when it can be echoed back, otherwise nil.
func ExtractID(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	id, ok := obj["id"]
	if !ok || !IsScalarID(id) {
		return nil
	}
	return id
}

// IDKey returns a comparable key for a scalar id. Numbers that compare
// equal produce the same key whatever codec decoded them.
func IDKey(id any) string {
	switch v := id.(type) {
	case string:
		return "s:" + v
	case json.Number:
		return numberKey(v.String())
	case float32:
		return floatKey(float64(v))
	case float64:
		return floatKey(v)
	case int:
		return "n:" + strconv.FormatInt(int64(v), 10)
	case int8:
		return "n:" + strconv.FormatInt(int64(v), 10)
	case int16:
		return "n:" + strconv.FormatInt(int64(v), 10)
	case int32:
		return "n:" + strconv.FormatInt(int64(v), 10)
	case int64:
		return "n:" + strconv.FormatInt(v, 10)
	case uint:
		return "n:" + strconv.FormatUint(uint64(v), 10)
	case uint8:
		return "n:" + strconv.FormatUint(uint64(v), 10)
	case uint16:
		return "n:" + strconv.FormatUint(uint64(v), 10)
	case uint32:
		return "n:" + strconv.FormatUint(uint64(v), 10)
	case uint64:
		return "n:" + strconv.FormatUint(v, 10)
	}
	return ""
}

// numberKey keys a decimal literal on its exact value. Integral values,
// however written or however large, become plain integers.
func numberKey(s string) string {
	if i, ok := new(big.Int).SetString(s, 10); ok {
		return "n:" + i.String()
	}
	f, ok := new(big.Float).SetPrec(256).SetString(s)
	if !ok {
		return "n:" + s
	}
	return bigFloatKey(f)
}

func floatKey(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) {
		return bigFloatKey(new(big.Float).SetFloat64(f))
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

func bigFloatKey(f *big.Float) string {
	if f.IsInt() {
		i, _ := f.Int(nil)
		return "n:" + i.String()
	}
	return "n:" + f.Text('g', -1)
}
