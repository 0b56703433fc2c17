package docker

import (
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.trai.ch/lumenv/internal/core/ports"
)

// ContainerAPI exposes containerAPI so tests can provide a fake daemon.
type ContainerAPI = containerAPI

// NewBackendWithAPI creates a Backend that talks to api instead of a daemon.
func NewBackendWithAPI(logger ports.Logger, api ContainerAPI) *Backend {
	return &Backend{
		logger: logger,
		dial:   func() (containerAPI, error) { return api, nil },
	}
}

// OCIPlatform exposes ociPlatform for tests.
func OCIPlatform(subdir string) *ocispec.Platform {
	return ociPlatform(subdir)
}
