package docker

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lumenv/internal/adapters/logger"
	"go.trai.ch/lumenv/internal/core/ports"
)

// NodeID is the unique identifier for the docker backend Graft node.
const NodeID graft.ID = "adapter.backend.docker"

func init() {
	graft.Register(graft.Node[*Backend]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Backend, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewBackend(log), nil
		},
	})
}
