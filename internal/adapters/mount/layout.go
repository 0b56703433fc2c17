// Package mount exports snapshots to a directory tree that jobs mount, and
// reads such trees back as a ports.SnapshotSource.
package mount

import (
	"path/filepath"
	"strconv"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
)

const (
	snapshotsDir    = "snapshots"
	channelsDir     = "channels"
	requirementsDir = "requirements"
	environmentsDir = "environments"
	latestTag       = "latest"
)

// Layout resolves paths inside a mount root.
type Layout struct {
	Root string
}

// SnapshotPath is where the canonical bytes of a snapshot live.
func (l Layout) SnapshotPath(d digest.Digest) string {
	return filepath.Join(l.Root, snapshotsDir, string(d.Algorithm()), d.Encoded()+".json")
}

// ChannelsDir is the directory holding channel pointers.
func (l Layout) ChannelsDir() string {
	return filepath.Join(l.Root, channelsDir)
}

// ChannelPath is the pointer file of one channel version. LatestVersion selects the latest pointer.
func (l Layout) ChannelPath(name string, version int) string {
	return filepath.Join(l.ChannelsDir(), name+"@"+tag(version)+".json")
}

// RequirementsPath is the pip requirements file of a channel version.
func (l Layout) RequirementsPath(name string, version int) string {
	return filepath.Join(l.Root, requirementsDir, name+"@"+tag(version)+".txt")
}

// CondaExplicitPath is the conda explicit spec file of a channel version.
func (l Layout) CondaExplicitPath(name string, version int) string {
	return filepath.Join(l.Root, requirementsDir, name+"@"+tag(version)+".conda.txt")
}

// EnvironmentPath is the conda environment file of a channel version.
func (l Layout) EnvironmentPath(name string, version int) string {
	return filepath.Join(l.Root, environmentsDir, name+"@"+tag(version)+".yml")
}

func tag(version int) string {
	if version == domain.LatestVersion {
		return latestTag
	}
	return strconv.Itoa(version)
}
