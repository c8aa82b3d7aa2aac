package rpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func TestFunc_Validate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		valid  bool
		notify bool
	}{
		{"string id", `{"jsonrpc":"2.0","method":"test","id":"G1","params":{}}`, true, false},
		{"number id", `{"jsonrpc":"2.0","method":"test","id":7}`, true, false},
		{"float id", `{"jsonrpc":"2.0","method":"test","id":1.5}`, true, false},
		{"notification", `{"jsonrpc":"2.0","method":"test"}`, true, true},
		{"array params", `{"jsonrpc":"2.0","method":"test","id":1,"params":[1,2]}`, true, false},
		{"object id", `{"jsonrpc":"2.0","method":"test","id":{}}`, false, false},
		{"array id", `{"jsonrpc":"2.0","method":"test","id":[1]}`, false, false},
		{"bool id", `{"jsonrpc":"2.0","method":"test","id":true}`, false, false},
		{"null id", `{"jsonrpc":"2.0","method":"test","id":null}`, false, false},
		{"wrong version", `{"jsonrpc":"1.0","method":"test","id":1}`, false, false},
		{"numeric version", `{"jsonrpc":2.0,"method":"test","id":1}`, false, false},
		{"missing version", `{"method":"test","id":1}`, false, false},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, false, false},
		{"empty method", `{"jsonrpc":"2.0","method":"","id":1}`, false, false},
		{"numeric method", `{"jsonrpc":"2.0","method":5,"id":1}`, false, false},
		{"not an object", `"hello"`, false, false},
		{"array", `[{"jsonrpc":"2.0","method":"test","id":1}]`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rpcErr := Validate(decode(t, tt.in))
			if !tt.valid {
				if rpcErr == nil {
					t.Fatalf("expected InvalidRequest, got request %+v", req)
				}
				if rpcErr.Code != ErrInvalidRequest {
					t.Errorf("code = %d, want %d", rpcErr.Code, ErrInvalidRequest)
				}
				return
			}
			if rpcErr != nil {
				t.Fatalf("unexpected error: %v", rpcErr)
			}
			if req.IsNotification() != tt.notify {
				t.Errorf("IsNotification = %v, want %v", req.IsNotification(), tt.notify)
			}
		})
	}
}

func TestFunc_ValidateIsPure(t *testing.T) {
	v := decode(t, `{"jsonrpc":"2.0","method":"test","id":"A","params":{"x":1}}`)
	before, _ := json.Marshal(v)

	first, err1 := Validate(v)
	second, err2 := Validate(v)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if first.Method != second.Method || first.ID != second.ID {
		t.Errorf("verdicts differ: %+v vs %+v", first, second)
	}

	after, _ := json.Marshal(v)
	if string(before) != string(after) {
		t.Errorf("input mutated: %s -> %s", before, after)
	}

	bad := decode(t, `{"jsonrpc":"2.0","method":"test","id":{}}`)
	_, e1 := Validate(bad)
	_, e2 := Validate(bad)
	if e1 == nil || e2 == nil || e1.Code != e2.Code {
		t.Errorf("invalid verdicts differ: %v %v", e1, e2)
	}
}

func TestFunc_ExtractID(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{`{"id":"B1"}`, "B1"},
		{`{"id":3}`, json.Number("3")},
		{`{"id":{}}`, nil},
		{`{"id":[1]}`, nil},
		{`{"method":"x"}`, nil},
		{`[1,2]`, nil},
	}
	for _, tt := range tests {
		if got := ExtractID(decode(t, tt.in)); got != tt.want {
			t.Errorf("ExtractID(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFunc_IDKey(t *testing.T) {
	same := [][2]any{
		{json.Number("1"), int64(1)},
		{json.Number("1"), uint8(1)},
		{json.Number("2.0"), float64(2)},
		{float32(0.5), json.Number("0.5")},
		{json.Number("9223372036854775808"), uint64(9223372036854775808)},
		{json.Number("18446744073709551615"), uint64(18446744073709551615)},
		{json.Number("1e19"), json.Number("10000000000000000000")},
		{float64(1 << 63), json.Number("9223372036854775808")},
		{json.Number("0.1"), float64(0.1)},
	}
	for _, pair := range same {
		if IDKey(pair[0]) != IDKey(pair[1]) {
			t.Errorf("IDKey(%#v) != IDKey(%#v)", pair[0], pair[1])
		}
	}
	distinct := [][2]any{
		{json.Number("9223372036854775808"), json.Number("9223372036854775809")},
		{json.Number("18446744073709551616"), json.Number("18446744073709551617")},
		{json.Number("123456789012345678901234567890"), json.Number("123456789012345678901234567891")},
		{uint64(18446744073709551615), uint64(18446744073709551614)},
		{json.Number("0.1"), json.Number("0.10000000000000001")},
	}
	for _, pair := range distinct {
		if IDKey(pair[0]) == IDKey(pair[1]) {
			t.Errorf("IDKey(%#v) == IDKey(%#v)", pair[0], pair[1])
		}
	}
	if IDKey("1") == IDKey(json.Number("1")) {
		t.Error("string and number ids must not collide")
	}
}
