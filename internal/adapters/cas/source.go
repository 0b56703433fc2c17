package cas

import (
	"context"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// Source exposes a local snapshot store and channel index as a ports.SnapshotSource.
type Source struct {
	store ports.SnapshotStore
	index ports.ChannelIndex
}

var _ ports.SnapshotSource = (*Source)(nil)

// NewSource creates a source over the store and index.
func NewSource(snapshots ports.SnapshotStore, channels ports.ChannelIndex) *Source {
	return &Source{store: snapshots, index: channels}
}

// Snapshot returns the stored snapshot.
func (s *Source) Snapshot(_ context.Context, d digest.Digest) (*domain.Snapshot, error) {
	return s.store.Get(d)
}

// Channel resolves a channel reference against the index.
func (s *Source) Channel(_ context.Context, ref domain.SnapshotRef) (domain.Channel, error) {
	if ref.IsDigest() {
		return domain.Channel{}, zerr.With(domain.ErrInvalidSnapshotRef, "ref", ref.String())
	}
	return s.index.Get(ref.Name, ref.Version)
}

// Channels lists the newest version of every channel.
func (s *Source) Channels(_ context.Context) ([]domain.Channel, error) {
	return s.index.List()
}
