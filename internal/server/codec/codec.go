// Package codec converts WebSocket frames to decoded values and back.
// Decoded objects are always map[string]any and arrays []any, whatever the
// wire format.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	SubprotocolJSON    = "jsonrpc-2.0"
	SubprotocolCBOR    = "jsonrpc-2.0+cbor"
	SubprotocolMsgpack = "jsonrpc-2.0+msgpack"
)

type Codec interface {
	Name() string
	Subprotocol() string
	// MessageType is the gorilla/websocket frame type used for writes.
	MessageType() int
	Decode(data []byte) (any, error)
	Encode(v any) ([]byte, error)
}

var (
	JSON    Codec = jsonCodec{}
	CBOR    Codec = newCBORCodec()
	Msgpack Codec = msgpackCodec{}

	// Default is used when the client asks for no known subprotocol.
	Default = JSON

	all = []Codec{JSON, CBOR, Msgpack}
)

// Subprotocols lists the subprotocols offered during the upgrade, preferred first.
func Subprotocols() []string {
	out := make([]string, 0, len(all))
	for _, c := range all {
		out = append(out, c.Subprotocol())
	}
	return out
}

// Negotiate returns the codec for the selected subprotocol.
func Negotiate(subprotocol string) Codec {
	for _, c := range all {
		if c.Subprotocol() == subprotocol {
			return c
		}
	}
	return Default
}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) Subprotocol() string { return SubprotocolJSON }
func (jsonCodec) MessageType() int    { return websocket.TextMessage }

func (jsonCodec) Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func (jsonCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type cborCodec struct {
	dec cbor.DecMode
	enc cbor.EncMode
}

func newCBORCodec() cborCodec {
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor decode options: %v", err))
	}
	enc, err := cbor.EncOptions{Sort: cbor.SortCanonical}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor encode options: %v", err))
	}
	return cborCodec{dec: dec, enc: enc}
}

func (cborCodec) Name() string        { return "cbor" }
func (cborCodec) Subprotocol() string { return SubprotocolCBOR }
func (cborCodec) MessageType() int    { return websocket.BinaryMessage }

func (c cborCodec) Decode(data []byte) (any, error) {
	var v any
	if err := c.dec.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c cborCodec) Encode(v any) ([]byte, error) {
	plain, err := Plain(v)
	if err != nil {
		return nil, err
	}
	return c.enc.Marshal(plain)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string        { return "msgpack" }
func (msgpackCodec) Subprotocol() string { return SubprotocolMsgpack }
func (msgpackCodec) MessageType() int    { return websocket.BinaryMessage }

func (msgpackCodec) Decode(data []byte) (any, error) {
	var v any
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (msgpackCodec) Encode(v any) ([]byte, error) {
	plain, err := Plain(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(plain); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Plain reduces v to maps, slices, strings, bools, nil and numbers
// (int64, uint64 or float64) using its JSON form. Binary codecs encode the
// result so struct tags and json.Number values behave as they do in JSON.
func Plain(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return plainNumbers(out), nil
}

func plainNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = plainNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = plainNumbers(e)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}
