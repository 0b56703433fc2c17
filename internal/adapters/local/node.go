package local

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lumenv/internal/adapters/shell"
	"go.trai.ch/lumenv/internal/core/ports"
)

// NodeID is the unique identifier for the local backend Graft node.
const NodeID graft.ID = "adapter.backend.local"

func init() {
	graft.Register(graft.Node[*Backend]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (*Backend, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewBackend(executor), nil
		},
	})
}
