package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/lumenv/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/lumenv/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/lumenv/internal/adapters/docker"    //nolint:depguard // Wired in app layer
	"go.trai.ch/lumenv/internal/adapters/local"     //nolint:depguard // Wired in app layer
	"go.trai.ch/lumenv/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/lumenv/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/lumenv/internal/engine/resolver"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components holds the objects the command line needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			resolver.NodeID,
			cas.SnapshotStoreNodeID,
			cas.ChannelIndexNodeID,
			cas.DeploymentStoreNodeID,
			local.NodeID,
			docker.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			a, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return &Components{App: a, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	res, err := graft.Dep[ports.ChannelResolver](ctx)
	if err != nil {
		return nil, err
	}

	snapshots, err := graft.Dep[ports.SnapshotStore](ctx)
	if err != nil {
		return nil, err
	}

	channels, err := graft.Dep[ports.ChannelIndex](ctx)
	if err != nil {
		return nil, err
	}

	deployments, err := graft.Dep[ports.DeploymentStore](ctx)
	if err != nil {
		return nil, err
	}

	localBackend, err := graft.Dep[*local.Backend](ctx)
	if err != nil {
		return nil, err
	}

	dockerBackend, err := graft.Dep[*docker.Backend](ctx)
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

	return New(
		loader,
		res,
		snapshots,
		channels,
		deployments,
		[]ports.Backend{localBackend, dockerBackend},
		tracer,
		log,
	), nil
}
