// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/lumenv/internal/core/domain"
)

//go:generate mockgen -source=index.go -destination=mocks/mock_index.go -package=mocks

// LookupOptions narrows a package index lookup.
type LookupOptions struct {
	// Platform is the conda subdir, e.g. "linux-64".
	Platform string
	// Channels are the conda channels to search in order.
	Channels []string
	// Refresh bypasses any cached index response.
	Refresh bool
}

// PackageIndex lists the releases a package manager could install.
type PackageIndex interface {
	// Manager returns the package manager this index serves.
	Manager() domain.Manager

	// Releases returns every known release of the package named by spec.
	// It returns domain.ErrPackageNotFound if the index does not know the package.
	Releases(ctx context.Context, spec domain.PackageSpec, opts LookupOptions) ([]domain.Release, error)
}

// IndexSet maps each manager to its index.
type IndexSet map[domain.Manager]PackageIndex

// NewIndexSet builds an IndexSet from indexes.
func NewIndexSet(indexes ...PackageIndex) IndexSet {
	set := make(IndexSet, len(indexes))
	for _, idx := range indexes {
		set[idx.Manager()] = idx
	}
	return set
}
