// Package registry maps method names to handlers. A Registry is built once
// before serving and is read-only afterwards, so lookups need no locking.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/akyaiy/rdata-node/internal/server/session"
)

// Reply completes a handler invocation. Only the first call is observed.
type Reply func(result any, err error)

// Handler is a callback-style capability bound to a method name. It must
// eventually call reply exactly once, from any goroutine.
type Handler interface {
	ServeRPC(ctx context.Context, client *session.Client, params any, reply Reply)
}

// HandlerFunc adapts a synchronous function to Handler.
type HandlerFunc func(ctx context.Context, client *session.Client, params any) (any, error)

func (f HandlerFunc) ServeRPC(ctx context.Context, client *session.Client, params any, reply Reply) {
	reply(f(ctx, client, params))
}

// CallbackFunc adapts a callback-style function to Handler.
type CallbackFunc func(ctx context.Context, client *session.Client, params any, reply Reply)

func (f CallbackFunc) ServeRPC(ctx context.Context, client *session.Client, params any, reply Reply) {
	f(ctx, client, params, reply)
}

var (
	ErrEmptyName     = errors.New("method name is empty")
	ErrReservedName  = errors.New("method name is reserved")
	ErrDuplicateName = errors.New("method is already registered")
	ErrNilHandler    = errors.New("handler is nil")
)

// Builder collects bindings before the Registry is frozen.
type Builder struct {
	handlers map[string]Handler
	reserved map[string]struct{}
}

// NewBuilder returns a Builder that refuses to bind any of the reserved names.
func NewBuilder(reserved ...string) *Builder {
	b := &Builder{
		handlers: make(map[string]Handler),
		reserved: make(map[string]struct{}, len(reserved)),
	}
	for _, name := range reserved {
		b.reserved[name] = struct{}{}
	}
	return b
}

func (b *Builder) Register(name string, h Handler) error {
	switch {
	case name == "":
		return ErrEmptyName
	case h == nil:
		return fmt.Errorf("%s: %w", name, ErrNilHandler)
	}
	if _, ok := b.reserved[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrReservedName)
	}
	if _, ok := b.handlers[name]; ok {
		return fmt.Errorf("%s: %w", name, ErrDuplicateName)
	}
	b.handlers[name] = h
	return nil
}

func (b *Builder) RegisterFunc(name string, f HandlerFunc) error {
	if f == nil {
		return b.Register(name, nil)
	}
	return b.Register(name, f)
}

// Names returns the names bound so far, sorted.
func (b *Builder) Names() []string {
	return sortedKeys(b.handlers)
}

// Build freezes the current bindings. Later Register calls on b do not
// affect the returned Registry.
func (b *Builder) Build() *Registry {
	handlers := make(map[string]Handler, len(b.handlers))
	for name, h := range b.handlers {
		handlers[name] = h
	}
	return &Registry{handlers: handlers, names: sortedKeys(handlers)}
}

type Registry struct {
	handlers map[string]Handler
	names    []string
}

// Lookup is an exact, case-sensitive match.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) Len() int {
	return len(r.handlers)
}

func sortedKeys(m map[string]Handler) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
