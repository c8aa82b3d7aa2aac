package scripts

import (
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lua "github.com/yuin/gopher-lua"
)

// jwtLoader returns the loader for require("jwt"):
//
//	local token, err = jwt.encode({payload = {...}, secret = "...", expires_in = 3600})
//	local claims, err = jwt.decode(token, {secret = "..."})
//
// Only HS256 is produced and accepted.
func jwtLoader(log *slog.Logger) lua.LGFunction {
	return func(L *lua.LState) int {
		mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
			"encode": func(L *lua.LState) int {
				token, err := jwtEncode(L.CheckTable(1))
				if err != nil {
					log.Debug("jwt.encode failed", slog.String("err", err.Error()))
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
				L.Push(lua.LString(token))
				return 1
			},
			"decode": func(L *lua.LState) int {
				token := L.CheckString(1)
				opts := L.OptTable(2, L.NewTable())
				claims, err := jwtDecode(token, lua.LVAsString(L.GetField(opts, "secret")))
				if err != nil {
					L.Push(lua.LNil)
					L.Push(lua.LString(err.Error()))
					return 2
				}
				L.Push(GoToLua(L, map[string]any(claims)))
				return 1
			},
		})
		L.Push(mod)
		return 1
	}
}

func jwtEncode(opts *lua.LTable) (string, error) {
	secret := lua.LVAsString(opts.RawGetString("secret"))
	if secret == "" {
		return "", errors.New("secret is required")
	}
	ttl := time.Hour
	if n, ok := opts.RawGetString("expires_in").(lua.LNumber); ok {
		ttl = time.Duration(float64(n) * float64(time.Second))
	}

	claims := jwt.MapClaims{}
	if payload, ok := opts.RawGetString("payload").(*lua.LTable); ok {
		payload.ForEach(func(k, v lua.LValue) {
			claims[k.String()] = LuaToGo(v)
		})
	}
	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func jwtDecode(token, secret string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, errors.New("secret is required")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
