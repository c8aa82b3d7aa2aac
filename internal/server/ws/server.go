// Package ws serves the RPC gateway over WebSocket connections.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/akyaiy/rdata-node/internal/server/codec"
	"github.com/akyaiy/rdata-node/internal/server/gateway"
	"github.com/akyaiy/rdata-node/internal/server/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Sessions is the part of the session manager the transport drives.
type Sessions interface {
	Add(c *session.Client) bool
	Delete(id string)
	Authenticate(c *session.Client, identity *session.Identity) bool
}

type Options struct {
	Log      *slog.Logger
	Gateway  gateway.GatewayContract
	Sessions Sessions

	// AllowedOrigins holds exact origins or "*". Requests without an
	// Origin header are always accepted.
	AllowedOrigins []string
	MaxMessageSize int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	// AllowAnonymous authenticates every connection on upgrade.
	AllowAnonymous bool
}

type Server struct {
	o        Options
	log      *slog.Logger
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func New(o Options) *Server {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		o:      o,
		log:    o.Log,
		ctx:    ctx,
		cancel: cancel,
		conns:  make(map[*conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Subprotocols:    codec.Subprotocols(),
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.o.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied with an HTTP error
		s.log.Debug("websocket upgrade failed", slog.String("remote", r.RemoteAddr), slog.String("err", err.Error()))
		return
	}

	client := &session.Client{
		ID:          uuid.NewString(),
		RemoteAddr:  r.RemoteAddr,
		ConnectedAt: time.Now(),
	}
	c := &conn{
		srv:    s,
		ws:     wsConn,
		codec:  codec.Negotiate(wsConn.Subprotocol()),
		client: client,
		log: s.log.With(
			slog.String("connection.id", client.ID),
			slog.String("connection.remote", client.RemoteAddr),
		),
	}

	if !s.track(c) {
		wsConn.Close()
		return
	}
	defer s.untrack(c)

	s.o.Sessions.Add(client)
	if s.o.AllowAnonymous {
		s.o.Sessions.Authenticate(client, &session.Identity{Subject: "anonymous", Verifier: "anonymous"})
	}
	c.log.Debug("connection opened", slog.String("codec", c.codec.Name()))

	c.serve(s.ctx)
}

func (s *Server) track(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

// Len returns the number of open connections.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown closes every connection with a going-away frame and waits for
// their in-flight requests, or for ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	defer s.cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
