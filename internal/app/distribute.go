package app

import (
	"context"
	"slices"
	"time"

	"go.trai.ch/lumenv/internal/adapters/cas"    //nolint:depguard // Local source over the stores
	"go.trai.ch/lumenv/internal/adapters/mount"  //nolint:depguard // Mounted snapshot distribution
	"go.trai.ch/lumenv/internal/adapters/remote" //nolint:depguard // Network snapshot distribution
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// SourceOptions selects where snapshots are read from. With neither field
// set the local store is used.
type SourceOptions struct {
	// Addr is a distribution server address, host:port or unix:///path.
	Addr string
	// MountDir is a mounted snapshot export.
	MountDir string
}

// source opens the snapshot source selected by opts. The returned function
// releases it.
func (a *App) source(opts SourceOptions) (ports.SnapshotSource, func(), error) {
	switch {
	case opts.Addr != "":
		client, err := remote.Dial(opts.Addr)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	case opts.MountDir != "":
		return mount.NewSource(opts.MountDir), func() {}, nil
	default:
		return cas.NewSource(a.snapshots, a.channels), func() {}, nil
	}
}

// Fetch returns the channel and snapshot ref points to. The channel is the
// zero value when ref is a digest.
func (a *App) Fetch(ctx context.Context, ref string, opts SourceOptions) (domain.Channel, *domain.Snapshot, error) {
	r, err := domain.ParseSnapshotRef(ref)
	if err != nil {
		return domain.Channel{}, nil, err
	}

	src, release, err := a.source(opts)
	if err != nil {
		return domain.Channel{}, nil, err
	}
	defer release()

	ctx, span := a.tracer.Start(ctx, "fetch "+r.String())
	defer span.End()

	ch, snapshot, err := ports.Fetch(ctx, src, r)
	if err != nil {
		span.RecordError(err)
		return domain.Channel{}, nil, zerr.With(err, "ref", r.String())
	}
	return ch, snapshot, nil
}

// Channels lists the latest version of every channel in the source.
func (a *App) Channels(ctx context.Context, opts SourceOptions) ([]domain.Channel, error) {
	src, release, err := a.source(opts)
	if err != nil {
		return nil, err
	}
	defer release()
	return src.Channels(ctx)
}

// History lists every version of a channel in the local store, oldest first.
func (a *App) History(_ context.Context, name string) ([]domain.Channel, error) {
	if err := domain.ValidateChannelName(name); err != nil {
		return nil, zerr.With(err, "channel", name)
	}
	return a.channels.History(name)
}

// Export writes the named channel versions from the local store into a
// snapshot mount. With no refs the latest version of every channel is exported.
func (a *App) Export(ctx context.Context, refs []string, mountDir string) ([]string, error) {
	ctx, span := a.tracer.Start(ctx, "export", ports.WithAttribute("lumenv.mount", mountDir))
	defer span.End()

	var targets []domain.Channel
	if len(refs) == 0 {
		all, err := a.channels.List()
		if err != nil {
			return nil, err
		}
		targets = all
	}

	local := cas.NewSource(a.snapshots, a.channels)
	for _, ref := range refs {
		r, err := domain.ParseSnapshotRef(ref)
		if err != nil {
			return nil, err
		}
		if r.IsDigest() {
			return nil, zerr.With(domain.ErrInvalidSnapshotRef, "ref", ref)
		}
		ch, err := local.Channel(ctx, r)
		if err != nil {
			return nil, zerr.With(err, "ref", ref)
		}
		targets = append(targets, ch)
	}

	manifest, err := a.manifestOrDefaults()
	if err != nil {
		return nil, err
	}

	pub := mount.NewPublisher(mountDir)
	var written []string
	for _, ch := range targets {
		snapshot, err := a.snapshots.Get(ch.Digest)
		if err != nil {
			span.RecordError(err)
			return nil, zerr.With(err, "channel", ch.Ref().String())
		}
		paths, err := pub.Export(ch, snapshot, manifest.CondaChannelsFor(manifest.Channels[ch.Name]))
		if err != nil {
			span.RecordError(err)
			return nil, zerr.With(err, "channel", ch.Ref().String())
		}
		a.logger.Info("exported " + ch.Ref().String() + " to " + mountDir)
		written = append(written, paths...)
	}
	slices.Sort(written)
	return written, nil
}

// ServeOptions configures Serve.
type ServeOptions struct {
	Addr string
	// MountDir serves a snapshot mount instead of the local store.
	MountDir string
	// Idle stops the server after this long without requests; 0 disables it.
	Idle time.Duration
}

// Serve runs the distribution server until ctx is done or the idle timeout fires.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultAddr
	}

	var src ports.SnapshotSource = cas.NewSource(a.snapshots, a.channels)
	if opts.MountDir != "" {
		ms := mount.NewSource(opts.MountDir)
		if err := ms.Watch(ctx, a.logger); err != nil {
			return err
		}
		src = ms
	}

	lis, err := remote.Listen(addr)
	if err != nil {
		return err
	}

	server := remote.NewServer(src, remote.NewLifecycle(opts.Idle), a.logger, a.tracer)
	a.logger.Info("serving snapshots on " + lis.Addr().String())
	return server.Serve(ctx, lis)
}
