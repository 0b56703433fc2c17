// Package index implements ports.PackageIndex for PyPI and anaconda.org with
// an on-disk response cache.
package index

import (
	"context"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/lumenv/internal/adapters/config"
	"go.trai.ch/lumenv/internal/adapters/logger"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
)

// NodeID is the unique identifier for the package index Graft node.
const NodeID graft.ID = "adapter.index"

func init() {
	graft.Register(graft.Node[ports.IndexSet]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, config.NodeID},
		Run: func(ctx context.Context) (ports.IndexSet, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			loader, err := graft.Dep[ports.ConfigLoader](ctx)
			if err != nil {
				return nil, err
			}
			root, err := config.WorkspaceRoot(loader)
			if err != nil {
				return nil, err
			}
			cache := NewCache(filepath.Join(root, domain.DefaultIndexCachePath()), domain.IndexCacheTTL)
			client := NewHTTPClient()
			return ports.NewIndexSet(
				NewConda("", client, cache, log),
				NewPyPI("", client, cache, log),
			), nil
		},
	})
}
