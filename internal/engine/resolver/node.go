package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lumenv/internal/adapters/index"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lumenv/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lumenv/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/lumenv/internal/core/ports"
)

// NodeID is the unique identifier for the resolver Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[ports.ChannelResolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			index.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (ports.ChannelResolver, error) {
			indexes, err := graft.Dep[ports.IndexSet](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewResolver(indexes, tracer, log), nil
		},
	})
}
