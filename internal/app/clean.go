package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/zerr"
)

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Cache removes the package index cache.
	Cache bool
	// All removes the whole state directory, including published channels.
	All bool
}

// Clean removes cached and stored state based on the provided options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	manifest, err := a.manifestOrDefaults()
	if err != nil {
		return err
	}
	root := manifest.Root

	var errs error
	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	switch {
	case options.All:
		remove(filepath.Join(root, domain.LumenvDirName), "lumenv state")
	case options.Cache:
		remove(filepath.Join(root, domain.DefaultIndexCachePath()), "package index cache")
	}

	return errs
}
