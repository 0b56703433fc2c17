// Package resolver pins requested packages to concrete releases.
package resolver

import (
	"context"
	"errors"
	"runtime"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Resolver implements ports.ChannelResolver over a set of package indexes.
type Resolver struct {
	indexes ports.IndexSet
	tracer  ports.Tracer
	logger  ports.Logger

	requestGroup singleflight.Group
}

// NewResolver creates a Resolver that looks packages up in indexes.
func NewResolver(indexes ports.IndexSet, tracer ports.Tracer, logger ports.Logger) *Resolver {
	return &Resolver{
		indexes: indexes,
		tracer:  tracer,
		logger:  logger,
	}
}

// Resolve pins every requested package and returns the resulting snapshot.
// Identical concurrent requests share one resolution; the returned snapshot
// must not be modified.
func (r *Resolver) Resolve(ctx context.Context, req ports.ResolveRequest) (*domain.Snapshot, error) {
	specs, err := domain.MergeSpecs(req.Specs)
	if err != nil {
		return nil, err
	}

	key := domain.GenerateRequestID(req.Channel, req.Platform, specs, req.CondaChannels)
	if req.Refresh {
		key += ":refresh"
	}

	result, err, _ := r.requestGroup.Do(key, func() (any, error) {
		return r.resolve(ctx, req, specs)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Snapshot), nil
}

func (r *Resolver) resolve(
	ctx context.Context,
	req ports.ResolveRequest,
	specs []domain.PackageSpec,
) (*domain.Snapshot, error) {
	ctx, span := r.tracer.Start(ctx, "resolve "+req.Channel,
		ports.WithAttribute("lumenv.channel", req.Channel),
		ports.WithAttribute("lumenv.platform", req.Platform),
		ports.WithAttribute("lumenv.packages", len(specs)),
	)
	defer span.End()

	opts := ports.LookupOptions{
		Platform: req.Platform,
		Channels: req.CondaChannels,
		Refresh:  req.Refresh,
	}

	packages := make([]domain.ResolvedPackage, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, spec := range specs {
		g.Go(func() error {
			p, err := r.resolveOne(gctx, spec, opts)
			if err != nil {
				return err
			}
			packages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	snapshot := domain.NewSnapshot(req.Channel, req.Platform, specs, packages)
	d, err := snapshot.Digest()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("lumenv.digest", d.String())
	return snapshot, nil
}

func (r *Resolver) resolveOne(
	ctx context.Context,
	spec domain.PackageSpec,
	opts ports.LookupOptions,
) (domain.ResolvedPackage, error) {
	idx, ok := r.indexes[spec.Manager]
	if !ok {
		return domain.ResolvedPackage{}, zerr.With(domain.ErrUnknownManager, "manager", string(spec.Manager))
	}

	releases, err := idx.Releases(ctx, spec, opts)
	if err != nil {
		if errors.Is(err, domain.ErrPackageNotFound) {
			return domain.ResolvedPackage{}, zerr.With(
				zerr.With(zerr.Wrap(err, domain.ErrNoMatchingRelease.Error()), "package", spec.Name),
				"manager", string(spec.Manager),
			)
		}
		return domain.ResolvedPackage{}, zerr.With(zerr.Wrap(err, "failed to look up package"), "package", spec.Name)
	}

	release, ok := SelectRelease(releases, spec.Constraint)
	if !ok {
		return domain.ResolvedPackage{}, zerr.With(
			zerr.With(domain.ErrNoMatchingRelease, "package", spec.Name),
			"constraint", spec.Constraint.String(),
		)
	}
	if r.logger != nil {
		r.logger.Debug("pinned " + spec.Key() + " to " + release.Version)
	}

	return domain.ResolvedPackage{
		Manager: spec.Manager,
		Name:    spec.Name,
		Version: release.Version,
		Extras:  spec.Extras,
		Build:   release.Build,
		Channel: release.Channel,
		URL:     release.URL,
		SHA256:  release.SHA256,
	}, nil
}
