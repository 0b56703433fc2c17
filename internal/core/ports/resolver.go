package ports

import (
	"context"

	"go.trai.ch/lumenv/internal/core/domain"
)

// ResolveRequest describes a channel to resolve.
type ResolveRequest struct {
	Channel       string
	Platform      string
	Specs         []domain.PackageSpec
	CondaChannels []string
	Refresh       bool
}

// ChannelResolver turns a package list into a snapshot.
//
//go:generate mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type ChannelResolver interface {
	// Resolve pins every requested package and returns the resulting snapshot.
	Resolve(ctx context.Context, req ResolveRequest) (*domain.Snapshot, error)
}
