// Package methods holds the handlers built into every node.
package methods

import (
	"context"

	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/session"
)

// RegisterSystem binds system.ping, system.echo and system.methods. list
// reports the names available to clients.
func RegisterSystem(b *registry.Builder, list func() []string) error {
	handlers := map[string]registry.HandlerFunc{
		"system.ping": func(context.Context, *session.Client, any) (any, error) {
			return "pong", nil
		},
		"system.echo": func(_ context.Context, _ *session.Client, params any) (any, error) {
			return params, nil
		},
		"system.methods": func(context.Context, *session.Client, any) (any, error) {
			return list(), nil
		},
	}
	for name, h := range handlers {
		if err := b.RegisterFunc(name, h); err != nil {
			return err
		}
	}
	return nil
}
