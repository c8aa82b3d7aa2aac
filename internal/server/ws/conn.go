package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/akyaiy/rdata-node/internal/core/utils"
	"github.com/akyaiy/rdata-node/internal/server/codec"
	"github.com/akyaiy/rdata-node/internal/server/rpc"
	"github.com/akyaiy/rdata-node/internal/server/session"
	"github.com/gorilla/websocket"
)

type conn struct {
	srv    *Server
	ws     *websocket.Conn
	codec  codec.Codec
	client *session.Client
	log    *slog.Logger

	// writeMu serializes data frames from concurrent request goroutines.
	writeMu   sync.Mutex
	inflight  sync.WaitGroup
	closeOnce sync.Once
}

func (c *conn) serve(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer func() {
		cancel()
		c.inflight.Wait()
		c.srv.o.Sessions.Delete(c.client.ID)
		c.ws.Close()
		c.log.Debug("connection closed")
	}()

	pongWait := 2 * c.srv.o.PingInterval
	if c.srv.o.MaxMessageSize > 0 {
		c.ws.SetReadLimit(c.srv.o.MaxMessageSize)
	}
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.pinger(ctx)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("read failed", slog.String("err", err.Error()))
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		c.inflight.Add(1)
		go c.handle(ctx, data)
	}
}

func (c *conn) handle(ctx context.Context, data []byte) {
	defer c.inflight.Done()
	defer utils.CatchPanicWithFallback(func(rec any) {
		c.log.Error("panic caught while handling message", slog.Any("panic", rec))
	})

	msg, err := c.codec.Decode(data)
	if err != nil {
		c.log.Info("invalid request received", slog.String("issue", rpc.ErrParseErrorS), slog.String("err", err.Error()))
		c.write(rpc.NewError(rpc.ErrParseError, rpc.ErrParseErrorS, nil, nil))
		return
	}

	if resp := c.srv.o.Gateway.Handle(ctx, c.client, msg); resp != nil {
		c.write(resp)
	}
}

func (c *conn) write(resp *rpc.RPCResponse) {
	frame, err := c.codec.Encode(resp)
	if err != nil {
		c.log.Error("failed to encode response", slog.String("err", err.Error()))
		frame, err = c.codec.Encode(rpc.NewErrorResponse(rpc.StdError(rpc.ErrInternalError), resp.ID))
		if err != nil {
			return
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.srv.o.WriteTimeout))
	if err := c.ws.WriteMessage(c.codec.MessageType(), frame); err != nil {
		c.log.Debug("write failed", slog.String("err", err.Error()))
	}
}

func (c *conn) pinger(ctx context.Context) {
	ticker := time.NewTicker(c.srv.o.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.srv.o.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Debug("ping failed", slog.String("err", err.Error()))
				c.ws.Close()
				return
			}
		}
	}
}

// close sends a close frame and drops the connection; the read loop then exits.
func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(c.srv.o.WriteTimeout)
		c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		c.ws.Close()
	})
}
