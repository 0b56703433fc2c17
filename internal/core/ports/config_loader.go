package ports

import "go.trai.ch/lumenv/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the configuration by walking up from cwd and returns the manifest.
	Load(cwd string) (*domain.Manifest, error)
}
