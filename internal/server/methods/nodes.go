package methods

import (
	"context"

	"github.com/akyaiy/rdata-node/internal/discovery"
	"github.com/akyaiy/rdata-node/internal/server/registry"
	"github.com/akyaiy/rdata-node/internal/server/session"
)

// NodeLister is the part of the discovery registrar system.nodes reads.
type NodeLister interface {
	Nodes(ctx context.Context) ([]discovery.Instance, error)
}

// RegisterNodes binds system.nodes, which lists the nodes published in
// discovery, this one included.
func RegisterNodes(b *registry.Builder, nodes NodeLister) error {
	return b.RegisterFunc("system.nodes", func(ctx context.Context, _ *session.Client, _ any) (any, error) {
		return nodes.Nodes(ctx)
	})
}
