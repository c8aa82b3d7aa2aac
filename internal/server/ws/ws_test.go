package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akyaiy/rdata-node/internal/engine/logs"
	"github.com/akyaiy/rdata-node/internal/server/auth"
	"github.com/akyaiy/rdata-node/internal/server/codec"
	"github.com/akyaiy/rdata-node/internal/server/gateway"
	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/session"
	"github.com/gorilla/websocket"
)

var secret = []byte("ws-secret")

type testServer struct {
	srv *Server
	sm  *session.SessionManager
	hs  *httptest.Server
	url string
}

func newTestServer(t *testing.T, anonymous bool, origins []string) *testServer {
	t.Helper()

	b := registry.NewBuilder(gateway.ReservedMethods("")...)
	b.RegisterFunc("test", func(context.Context, *session.Client, any) (any, error) {
		return "ok", nil
	})
	b.RegisterFunc("echo", func(_ context.Context, _ *session.Client, params any) (any, error) {
		return params, nil
	})

	log := slog.New(logs.NewMockHandler())
	sm := session.New(0)
	gs := gateway.InitGateway(&gateway.GatewayServerInit{
		Log:      log,
		Registry: b.Build(),
		Sessions: sm,
		Verifier: auth.Chain{auth.NewJWTVerifier(secret, "")},
	})
	srv := New(Options{
		Log:            log,
		Gateway:        gs,
		Sessions:       sm,
		AllowedOrigins: origins,
		MaxMessageSize: 1 << 16,
		PingInterval:   time.Second,
		WriteTimeout:   time.Second,
		AllowAnonymous: anonymous,
	})
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		hs.Close()
	})
	return &testServer{
		srv: srv,
		sm:  sm,
		hs:  hs,
		url: "ws" + strings.TrimPrefix(hs.URL, "http"),
	}
}

func (ts *testServer) dial(t *testing.T, subprotocol string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	if subprotocol != "" {
		dialer.Subprotocols = []string{subprotocol}
	}
	conn, _, err := dialer.Dial(ts.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) string {
	t.Helper()
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestServer_AuthenticateThenBulk(t *testing.T) {
	ts := newTestServer(t, false, nil)
	conn := ts.dial(t, "")

	got := roundTrip(t, conn, `{"jsonrpc":"2.0","id":1,"method":"test"}`)
	want := `{"jsonrpc":"2.0","id":1,"error":{"code":-32001,"message":"Unauthorized"}}`
	if got != want {
		t.Fatalf("before auth: got %s, want %s", got, want)
	}

	token, err := auth.IssueToken(secret, "", "alice", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	got = roundTrip(t, conn, `{"jsonrpc":"2.0","id":"auth","method":"authenticate","params":{"accessToken":"`+token+`"}}`)
	if want := `{"jsonrpc":"2.0","id":"auth","result":true}`; got != want {
		t.Fatalf("authenticate: got %s, want %s", got, want)
	}

	got = roundTrip(t, conn, `{"jsonrpc":"2.0","id":2,"method":"bulkRequest","params":{"requests":[{"jsonrpc":"2.0","id":"a","method":"test"},{"jsonrpc":"2.0","id":"b","method":"echo","params":[1]}]}}`)
	if want := `{"jsonrpc":"2.0","id":2,"result":true}`; got != want {
		t.Fatalf("bulk: got %s, want %s", got, want)
	}

	got = roundTrip(t, conn, `{"jsonrpc":"2.0","id":3,"method":"bulkRequest","params":{"requests":[{"jsonrpc":"2.0","id":"a","method":"test"},{"jsonrpc":"2.0","id":"b","method":"missing"}]}}`)
	if want := `{"jsonrpc":"2.0","id":3,"error":{"code":-32600,"message":"Invalid Request"}}`; got != want {
		t.Fatalf("failed bulk: got %s, want %s", got, want)
	}
}

func TestServer_ParseError(t *testing.T) {
	ts := newTestServer(t, true, nil)
	conn := ts.dial(t, "")

	got := roundTrip(t, conn, `{"jsonrpc":`)
	want := `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestServer_Anonymous(t *testing.T) {
	ts := newTestServer(t, true, nil)
	conn := ts.dial(t, "")

	got := roundTrip(t, conn, `{"jsonrpc":"2.0","id":7,"method":"test"}`)
	if want := `{"jsonrpc":"2.0","id":7,"result":"ok"}`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestServer_CBOR(t *testing.T) {
	ts := newTestServer(t, true, nil)
	conn := ts.dial(t, codec.SubprotocolCBOR)

	if conn.Subprotocol() != codec.SubprotocolCBOR {
		t.Fatalf("negotiated %q", conn.Subprotocol())
	}

	frame, err := codec.CBOR.Encode(map[string]any{"jsonrpc": "2.0", "id": 5, "method": "echo", "params": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if mt != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", mt)
	}
	v, err := codec.CBOR.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("response is %T", v)
	}
	if m["result"] != "hi" {
		t.Errorf("result = %v, want hi", m["result"])
	}
}

func TestServer_RejectsOrigin(t *testing.T) {
	ts := newTestServer(t, true, []string{"https://app.example.com"})

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(ts.url, header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected response: %v", resp)
	}

	header.Set("Origin", "https://app.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(ts.url, header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}

func TestServer_SessionLifecycle(t *testing.T) {
	ts := newTestServer(t, true, nil)
	conn := ts.dial(t, "")
	roundTrip(t, conn, `{"jsonrpc":"2.0","id":1,"method":"test"}`)

	if n := ts.sm.Len(); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for ts.sm.Len() != 0 || ts.srv.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("session not released: sessions=%d conns=%d", ts.sm.Len(), ts.srv.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_Shutdown(t *testing.T) {
	ts := newTestServer(t, true, nil)
	conn := ts.dial(t, "")
	roundTrip(t, conn, `{"jsonrpc":"2.0","id":1,"method":"test"}`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("expected going away close, got %v", err)
	}

	if _, _, err := websocket.DefaultDialer.Dial(ts.url, nil); err == nil {
		t.Fatal("dial after shutdown should fail")
	}
}
