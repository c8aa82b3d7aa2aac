package scripts

import (
	"context"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// DB is what the Lua db module can reach.
type DB interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) ([]map[string]any, error)
}

// dbLoader returns the loader for require("db"). Both functions return
// (value, nil) on success and (nil, message) on failure.
func dbLoader(db DB, log *slog.Logger) lua.LGFunction {
	return func(L *lua.LState) int {
		mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"exec": func(L *lua.LState) int {
				query, args := queryArgs(L)
				n, err := db.Exec(stateContext(L), query, args...)
				if err != nil {
					log.Debug("db.exec failed", slog.String("query", query), slog.String("err", err.Error()))
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
				L.Push(lua.LNumber(n))
				return 1
			},
			"query": func(L *lua.LState) int {
				query, args := queryArgs(L)
				rows, err := db.Query(stateContext(L), query, args...)
				if err != nil {
					log.Debug("db.query failed", slog.String("query", query), slog.String("err", err.Error()))
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
				out := L.CreateTable(len(rows), 0)
				for i, row := range rows {
					out.RawSetInt(i+1, GoToLua(L, map[string]any(row)))
				}
				L.Push(out)
				return 1
			},
		})
		L.Push(mod)
		return 1
	}
}

func queryArgs(L *lua.LState) (string, []any) {
	query := L.CheckString(1)
	var args []any
	if L.GetTop() >= 2 {
		params := L.CheckTable(2)
		for i := 1; i <= params.MaxN(); i++ {
			args = append(args, LuaToGo(params.RawGetInt(i)))
		}
	}
	return query, args
}

func stateContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
