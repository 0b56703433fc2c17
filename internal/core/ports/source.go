package ports

import (
	"context"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
)

// SnapshotSource is a read-only view of published snapshots.
// It is served over the network and read back from mounted exports.
//
//go:generate mockgen -source=source.go -destination=mocks/mock_source.go -package=mocks
type SnapshotSource interface {
	// Snapshot returns the snapshot with the given digest.
	Snapshot(ctx context.Context, d digest.Digest) (*domain.Snapshot, error)

	// Channel resolves a channel reference to a channel version.
	Channel(ctx context.Context, ref domain.SnapshotRef) (domain.Channel, error)

	// Channels lists the newest version of every channel.
	Channels(ctx context.Context) ([]domain.Channel, error)
}

// Fetch resolves ref against src and returns the channel (zero for digest refs) and snapshot.
func Fetch(ctx context.Context, src SnapshotSource, ref domain.SnapshotRef) (domain.Channel, *domain.Snapshot, error) {
	var ch domain.Channel
	d := ref.Digest
	if !ref.IsDigest() {
		var err error
		ch, err = src.Channel(ctx, ref)
		if err != nil {
			return domain.Channel{}, nil, err
		}
		d = ch.Digest
	}

	snapshot, err := src.Snapshot(ctx, d)
	if err != nil {
		return domain.Channel{}, nil, err
	}
	return ch, snapshot, nil
}
