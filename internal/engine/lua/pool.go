// Package lua pools gopher-lua states. A state returned with Put is reset
// to what setup left behind: globals and loaded modules added by a script
// are dropped and reassigned globals are restored.
package lua

import (
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// State is a pooled interpreter together with the globals it had after setup.
type State struct {
	*lua.LState
	globals map[string]lua.LValue
	loaded  map[string]lua.LValue
}

type LuaPool struct {
	pool  sync.Pool
	setup func(L *lua.LState)
}

// NewLuaPool returns a pool whose states are passed through setup, if non-nil,
// once when they are created.
func NewLuaPool(setup func(L *lua.LState)) *LuaPool {
	lp := &LuaPool{setup: setup}
	lp.pool.New = func() any {
		return lp.newState()
	}
	return lp
}

func (lp *LuaPool) newState() *State {
	L := lua.NewState(lua.Options{IncludeGoStackTrace: true})
	if lp.setup != nil {
		lp.setup(L)
	}
	return &State{
		LState:  L,
		globals: snapshot(L.G.Global),
		loaded:  snapshot(loadedTable(L)),
	}
}

func loadedTable(L *lua.LState) *lua.LTable {
	if tbl, ok := L.GetField(L.Get(lua.RegistryIndex), "_LOADED").(*lua.LTable); ok {
		return tbl
	}
	return L.NewTable()
}

func snapshot(tbl *lua.LTable) map[string]lua.LValue {
	out := make(map[string]lua.LValue)
	tbl.ForEach(func(k, v lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			out[string(s)] = v
		}
	})
	return out
}

// restore makes tbl hold exactly the string keys in base.
func restore(tbl *lua.LTable, base map[string]lua.LValue) {
	var extra []lua.LValue
	tbl.ForEach(func(k, _ lua.LValue) {
		s, ok := k.(lua.LString)
		if !ok {
			extra = append(extra, k)
			return
		}
		if _, keep := base[string(s)]; !keep {
			extra = append(extra, k)
		}
	})
	for _, k := range extra {
		tbl.RawSet(k, lua.LNil)
	}
	for k, v := range base {
		tbl.RawSetString(k, v)
	}
}

func (lp *LuaPool) Get() *State {
	return lp.pool.Get().(*State)
}

// Put resets st and returns it to the pool.
func (lp *LuaPool) Put(st *State) {
	lp.reset(st)
	lp.pool.Put(st)
}

// Discard closes st instead of pooling it. Use it for states whose script
// failed or was cancelled midway.
func (lp *LuaPool) Discard(st *State) {
	st.Close()
}

func (lp *LuaPool) reset(st *State) {
	st.SetTop(0)
	st.RemoveContext()
	restore(st.G.Global, st.globals)
	restore(loadedTable(st.LState), st.loaded)
}
