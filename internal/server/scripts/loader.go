// Package scripts exposes Lua files from the command directory as RPC methods.
package scripts

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/akyaiy/rdata-node/internal/core/utils"
	enginelua "github.com/akyaiy/rdata-node/internal/engine/lua"
	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/session"
	lua "github.com/yuin/gopher-lua"
)

const PrepareScript = "_prepare.lua"

var allowedMethod = regexp.MustCompile(`^[A-Za-z0-9_-]+(\.[A-Za-z0-9_-]+)*$`)

type Options struct {
	Dir string
	Log *slog.Logger
	DB  DB
	// Subject resolves the authenticated subject of a client for In.Client.subject.
	Subject func(*session.Client) string
}

// Discover maps method names to script paths. "kv/sum.lua" becomes "kv.sum".
// Files and directories starting with "_" are not methods.
func Discover(dir string) (map[string]string, []string, error) {
	indexed, err := utils.IndexPaths(dir)
	if err != nil {
		return nil, nil, err
	}

	found := make(map[string]string)
	var skipped []string
	for rel, full := range indexed {
		if path.Ext(rel) != ".lua" || hiddenPath(rel) {
			continue
		}
		method := strings.ReplaceAll(strings.TrimSuffix(rel, ".lua"), "/", ".")
		if !allowedMethod.MatchString(method) {
			skipped = append(skipped, rel)
			continue
		}
		found[method] = full
	}
	sort.Strings(skipped)
	return found, skipped, nil
}

func hiddenPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}

// Register binds every discovered script into b and returns the method names.
func Register(b *registry.Builder, o Options) ([]string, error) {
	log := o.Log
	if log == nil {
		log = slog.Default()
	}

	found, skipped, err := Discover(o.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", o.Dir, err)
	}
	for _, rel := range skipped {
		log.Warn("script skipped: invalid method name", slog.String("file", rel))
	}

	pool := enginelua.NewLuaPool(func(L *lua.LState) {
		L.PreloadModule("jwt", jwtLoader(log))
		if o.DB != nil {
			L.PreloadModule("db", dbLoader(o.DB, log))
		}
	})
	prepare := filepath.Join(o.Dir, PrepareScript)

	names := make([]string, 0, len(found))
	for method, full := range found {
		h := &Handler{
			method:  method,
			path:    full,
			prepare: prepare,
			pool:    pool,
			log:     log,
			subject: o.Subject,
		}
		if err := b.Register(method, h); err != nil {
			return nil, err
		}
		names = append(names, method)
	}
	sort.Strings(names)
	return names, nil
}
