package scripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	enginelua "github.com/akyaiy/rdata-node/internal/engine/lua"
	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/rpc"
	"github.com/akyaiy/rdata-node/internal/server/session"
	lua "github.com/yuin/gopher-lua"
)

// Handler runs one script per call. The script reads In.Params and
// In.Client and answers through Out.Result or Out.Error.
type Handler struct {
	method  string
	path    string
	prepare string
	pool    *enginelua.LuaPool
	log     *slog.Logger
	subject func(*session.Client) string
}

var _ registry.Handler = (*Handler)(nil)

func (h *Handler) ServeRPC(ctx context.Context, client *session.Client, params any, reply registry.Reply) {
	reply(h.run(ctx, client, params))
}

func (h *Handler) run(ctx context.Context, client *session.Client, params any) (any, error) {
	st := h.pool.Get()
	// a script that failed midway may leave the state unusable
	failed := true
	defer func() {
		if failed {
			h.pool.Discard(st)
			return
		}
		h.pool.Put(st)
	}()
	L := st.LState
	L.SetContext(ctx)

	in := L.NewTable()
	L.SetField(in, "Params", GoToLua(L, params))
	L.SetField(in, "Method", lua.LString(h.method))
	clientTbl := L.NewTable()
	if client != nil {
		L.SetField(clientTbl, "id", lua.LString(client.ID))
		L.SetField(clientTbl, "remote", lua.LString(client.RemoteAddr))
		if h.subject != nil {
			L.SetField(clientTbl, "subject", lua.LString(h.subject(client)))
		}
	}
	L.SetField(in, "Client", clientTbl)
	L.SetGlobal("In", in)
	L.SetGlobal("Out", L.NewTable())
	L.SetGlobal("Log", h.logTable(L))

	if h.prepare != "" {
		if _, err := os.Stat(h.prepare); err == nil {
			if err := L.DoFile(h.prepare); err != nil {
				return nil, fmt.Errorf("prepare script: %w", err)
			}
		}
	}
	if err := L.DoFile(h.path); err != nil {
		return nil, fmt.Errorf("script %s: %w", h.method, err)
	}
	failed = false

	out, ok := L.GetGlobal("Out").(*lua.LTable)
	if !ok {
		return nil, errors.New("Out is not a table")
	}

	if errVal := out.RawGetString("Error"); errVal != lua.LNil {
		errTbl, ok := errVal.(*lua.LTable)
		if !ok {
			return nil, errors.New("Out.Error is not a table")
		}
		code := rpc.ErrInternalError
		message := rpc.ErrInternalErrorS
		if c, ok := errTbl.RawGetString("code").(lua.LNumber); ok {
			code = int(c)
		}
		if m, ok := errTbl.RawGetString("message").(lua.LString); ok {
			message = string(m)
		}
		h.log.Debug("the script returned an error", slog.String("rpc.method", h.method), slog.Int("code", code), slog.String("message", message))
		return nil, rpc.NewRPCError(code, message, LuaToGo(errTbl.RawGetString("data")))
	}

	return LuaToGo(out.RawGetString("Result")), nil
}

func (h *Handler) logTable(L *lua.LState) *lua.LTable {
	logFuncs := map[string]func(string, ...any){
		"Info":  h.log.Info,
		"Debug": h.log.Debug,
		"Error": h.log.Error,
		"Warn":  h.log.Warn,
	}
	tbl := L.NewTable()
	for name, logFunc := range logFuncs {
		L.SetField(tbl, name, L.NewFunction(func(L *lua.LState) int {
			logFunc("the script says: "+L.ToString(1), slog.String("rpc.method", h.method))
			return 0
		}))
	}
	return tbl
}
