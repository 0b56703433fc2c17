package ports

import (
	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// SnapshotStore stores snapshots by content address.
type SnapshotStore interface {
	// Put stores the snapshot and returns its digest. Storing an existing snapshot is a no-op.
	Put(snapshot *domain.Snapshot) (digest.Digest, error)

	// Get returns the snapshot with the given digest after verifying its content.
	// It returns domain.ErrSnapshotNotFound if no such snapshot exists.
	Get(d digest.Digest) (*domain.Snapshot, error)

	// List returns the digests of all stored snapshots.
	List() ([]digest.Digest, error)
}

// ChannelIndex records the versions of each named channel.
type ChannelIndex interface {
	// Publish points the channel at the digest. It adds a new version unless the
	// latest version already points at the same digest.
	Publish(name string, d digest.Digest) (domain.Channel, bool, error)

	// Get returns one version of a channel.
	// It returns domain.ErrChannelNotFound if the channel or version is unknown.
	Get(name string, version int) (domain.Channel, error)

	// Latest returns the newest version of a channel.
	Latest(name string) (domain.Channel, error)

	// History returns every version of a channel, oldest first.
	History(name string) ([]domain.Channel, error)

	// List returns the newest version of every channel, sorted by name.
	List() ([]domain.Channel, error)
}

// DeploymentStore records which dependencies each deployment was built with.
type DeploymentStore interface {
	// Put stores the record, replacing any previous record for the deployment.
	Put(record domain.DeploymentRecord) error

	// Get returns the record for a deployment.
	// It returns domain.ErrDeploymentNotFound if none was stored.
	Get(deploymentID string) (domain.DeploymentRecord, error)
}
