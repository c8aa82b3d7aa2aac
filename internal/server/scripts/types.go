package scripts

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// LuaToGo converts a Lua value. Tables with keys 1..n and nothing else
// become []any, other tables map[string]any. Integral numbers become int64.
func LuaToGo(value lua.LValue) any {
	switch v := value.(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f)
		}
		return f
	case lua.LBool:
		return bool(v)
	case *lua.LTable:
		return tableToGo(v)
	case *lua.LNilType:
		return nil
	default:
		return value.String()
	}
}

func tableToGo(tbl *lua.LTable) any {
	n := tbl.MaxN()
	count := 0
	tbl.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && count == n {
		arr := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			arr = append(arr, LuaToGo(tbl.RawGetInt(i)))
		}
		return arr
	}

	result := make(map[string]any, count)
	tbl.ForEach(func(key, val lua.LValue) {
		result[key.String()] = LuaToGo(val)
	})
	return result
}

// GoToLua converts decoded RPC values (and plain Go values) to Lua.
func GoToLua(L *lua.LState, val any) lua.LValue {
	switch v := val.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(v)
	case bool:
		return lua.LBool(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return lua.LString(v.String())
		}
		return lua.LNumber(f)
	case []any:
		tbl := L.CreateTable(len(v), 0)
		for i, e := range v {
			tbl.RawSetInt(i+1, GoToLua(L, e))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(v))
		for k, e := range v {
			tbl.RawSetString(k, GoToLua(L, e))
		}
		return tbl
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.String:
		return lua.LString(rv.String())
	case reflect.Bool:
		return lua.LBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return lua.LNumber(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return lua.LNumber(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return lua.LNumber(rv.Float())
	case reflect.Slice, reflect.Array:
		if b, ok := val.([]byte); ok {
			return lua.LString(b)
		}
		tbl := L.CreateTable(rv.Len(), 0)
		for i := 0; i < rv.Len(); i++ {
			tbl.RawSetInt(i+1, GoToLua(L, rv.Index(i).Interface()))
		}
		return tbl
	case reflect.Map:
		tbl := L.NewTable()
		for _, key := range rv.MapKeys() {
			tbl.RawSetString(fmt.Sprint(key.Interface()), GoToLua(L, rv.MapIndex(key).Interface()))
		}
		return tbl
	}
	return lua.LString(fmt.Sprintf("%v", val))
}
