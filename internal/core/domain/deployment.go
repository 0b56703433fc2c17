package domain

import (
	"regexp"
	"time"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/zerr"
)

var deploymentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9._-]*$`)

// ValidateDeploymentID checks that a deployment id is safe to use as a file name.
func ValidateDeploymentID(id string) error {
	if !deploymentIDPattern.MatchString(id) {
		return zerr.With(ErrInvalidDeploymentID, "deployment_id", id)
	}
	return nil
}

// DeploymentDependency is one installed dependency recorded for a deployment.
type DeploymentDependency struct {
	Name        string  `json:"name"`
	Type        Manager `json:"type"`
	Source      string  `json:"source"`
	LocalSource string  `json:"local_source,omitempty"`
	Version     string  `json:"version"`
}

// DeploymentRecord ties a deployment to the snapshot it was built from.
type DeploymentRecord struct {
	DeploymentID   string                 `json:"deployment_id"`
	SnapshotDigest digest.Digest          `json:"snapshot_digest"`
	Channel        string                 `json:"channel,omitempty"`
	Dependencies   []DeploymentDependency `json:"dependencies"`
	RecordedAt     time.Time              `json:"recorded_at"`
}

// DependenciesFromSnapshot lists the dependencies a snapshot installs.
// The source is the download URL, or the channel for conda packages without one.
func DependenciesFromSnapshot(s *Snapshot) []DeploymentDependency {
	deps := make([]DeploymentDependency, 0, len(s.Packages))
	for _, p := range s.Packages {
		source := p.URL
		if source == "" {
			source = p.Channel
		}
		deps = append(deps, DeploymentDependency{
			Name:    p.Name,
			Type:    p.Manager,
			Source:  source,
			Version: p.Version,
		})
	}
	return deps
}
