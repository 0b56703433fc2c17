package cas

import (
	"context"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/lumenv/internal/adapters/config"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
)

const (
	// SnapshotStoreNodeID is the unique identifier for the snapshot store Graft node.
	SnapshotStoreNodeID graft.ID = "adapter.snapshot_store"
	// ChannelIndexNodeID is the unique identifier for the channel index Graft node.
	ChannelIndexNodeID graft.ID = "adapter.channel_index"
	// DeploymentStoreNodeID is the unique identifier for the deployment store Graft node.
	DeploymentStoreNodeID graft.ID = "adapter.deployment_store"
)

func init() {
	graft.Register(graft.Node[ports.SnapshotStore]{
		ID:        SnapshotStoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.SnapshotStore, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			root, err := config.WorkspaceRoot(loader)
			if err != nil {
				return nil, err
			}
			return NewSnapshotStore(filepath.Join(root, domain.DefaultStorePath())), nil
		},
	})

	graft.Register(graft.Node[ports.ChannelIndex]{
		ID:        ChannelIndexNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.ChannelIndex, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			root, err := config.WorkspaceRoot(loader)
			if err != nil {
				return nil, err
			}
			return NewChannelIndex(filepath.Join(root, domain.DefaultChannelsPath())), nil
		},
	})

	graft.Register(graft.Node[ports.DeploymentStore]{
		ID:        DeploymentStoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.DeploymentStore, error) {
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			root, err := config.WorkspaceRoot(loader)
			if err != nil {
				return nil, err
			}
			return NewDeploymentStore(filepath.Join(root, domain.DefaultDeploymentsPath())), nil
		},
	})
}
