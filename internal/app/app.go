// Package app implements the application layer for lumenv.
package app

import (
	"errors"
	"os"
	"runtime"

	"go.trai.ch/lumenv/internal/adapters/config" //nolint:depguard // Defaults shared with the loader
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	loader      ports.ConfigLoader
	resolver    ports.ChannelResolver
	snapshots   ports.SnapshotStore
	channels    ports.ChannelIndex
	deployments ports.DeploymentStore
	backends    map[string]ports.Backend
	tracer      ports.Tracer
	logger      ports.Logger

	lookupEnv func(string) (string, bool)
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	resolver ports.ChannelResolver,
	snapshots ports.SnapshotStore,
	channels ports.ChannelIndex,
	deployments ports.DeploymentStore,
	backends []ports.Backend,
	tracer ports.Tracer,
	log ports.Logger,
) *App {
	byName := make(map[string]ports.Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}
	return &App{
		loader:      loader,
		resolver:    resolver,
		snapshots:   snapshots,
		channels:    channels,
		deployments: deployments,
		backends:    byName,
		tracer:      tracer,
		logger:      log,
		lookupEnv:   os.LookupEnv,
	}
}

// WithLookupEnv replaces the environment the EXTRA_* variables are read from.
// This is primarily used for testing.
func (a *App) WithLookupEnv(lookup func(string) (string, bool)) *App {
	a.lookupEnv = lookup
	return a
}

// loadManifest loads the configuration found from the working directory.
func (a *App) loadManifest() (*domain.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get working directory")
	}
	m, err := a.loader.Load(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return m, nil
}

// manifestOrDefaults loads the configuration, falling back to an empty
// manifest with default settings when no configuration file exists.
func (a *App) manifestOrDefaults() (*domain.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to get working directory")
	}
	m, err := a.loader.Load(cwd)
	if errors.Is(err, domain.ErrConfigNotFound) {
		return defaultManifest(cwd), nil
	}
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return m, nil
}

func defaultManifest(root string) *domain.Manifest {
	return &domain.Manifest{
		Root:          root,
		Platform:      domain.PlatformFor(runtime.GOOS, runtime.GOARCH),
		CondaChannels: []string{domain.DefaultCondaChannel},
		Runner:        config.DefaultRunner,
		Channels:      map[string]domain.ChannelDef{},
	}
}
