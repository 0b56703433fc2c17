package app

import (
	"context"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// ResolveOptions configures Resolve and Extras.
type ResolveOptions struct {
	// FromEnv appends the EXTRA_* packages to every resolved channel.
	FromEnv bool
	// Refresh bypasses the package index cache.
	Refresh bool
}

// Published is the outcome of resolving one channel.
type Published struct {
	Channel  domain.Channel
	Snapshot *domain.Snapshot
	// Created is false when the channel already pointed at the snapshot.
	Created bool
}

// Resolve resolves the named channels of the configuration, or all of them
// when names is empty, and publishes each snapshot as a new channel version.
func (a *App) Resolve(ctx context.Context, names []string, opts ResolveOptions) ([]Published, error) {
	manifest, err := a.loadManifest()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = manifest.ChannelNames()
	}

	var extras []domain.PackageSpec
	if opts.FromEnv || anyExtras(manifest, names) {
		extras, err = domain.ExtrasFromEnv(a.lookupEnv)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Published, 0, len(names))
	for _, name := range names {
		def, ok := manifest.Channels[name]
		if !ok {
			return nil, zerr.With(domain.ErrChannelNotDeclared, "channel", name)
		}

		specs := def.Packages
		if opts.FromEnv || def.Extras {
			specs = append(append([]domain.PackageSpec{}, specs...), extras...)
		}

		p, err := a.publish(ctx, ports.ResolveRequest{
			Channel:       name,
			Platform:      manifest.Platform,
			Specs:         specs,
			CondaChannels: manifest.CondaChannelsFor(def),
			Refresh:       opts.Refresh,
		})
		if err != nil {
			return nil, zerr.With(err, "channel", name)
		}
		out = append(out, p)
	}
	return out, nil
}

// Extras resolves the EXTRA_CONDA_PACKAGES and EXTRA_PIP_PACKAGES of the
// current process into channel, which defaults to domain.DefaultExtrasChannel.
// A configuration file is optional.
func (a *App) Extras(ctx context.Context, channel string, opts ResolveOptions) (Published, error) {
	if channel == "" {
		channel = domain.DefaultExtrasChannel
	}
	if err := domain.ValidateChannelName(channel); err != nil {
		return Published{}, zerr.With(err, "channel", channel)
	}

	manifest, err := a.manifestOrDefaults()
	if err != nil {
		return Published{}, err
	}

	specs, err := domain.ExtrasFromEnv(a.lookupEnv)
	if err != nil {
		return Published{}, err
	}
	if len(specs) == 0 {
		a.logger.Warn("no packages in " + domain.EnvExtraConda + " or " + domain.EnvExtraPip)
	}

	return a.publish(ctx, ports.ResolveRequest{
		Channel:       channel,
		Platform:      manifest.Platform,
		Specs:         specs,
		CondaChannels: manifest.CondaChannelsFor(manifest.Channels[channel]),
		Refresh:       opts.Refresh,
	})
}

func (a *App) publish(ctx context.Context, req ports.ResolveRequest) (Published, error) {
	snapshot, err := a.resolver.Resolve(ctx, req)
	if err != nil {
		return Published{}, err
	}

	d, err := a.snapshots.Put(snapshot)
	if err != nil {
		return Published{}, err
	}

	ch, created, err := a.channels.Publish(req.Channel, d)
	if err != nil {
		return Published{}, err
	}

	if created {
		a.logger.Info("published " + ch.Ref().String() + " " + d.String())
	} else {
		a.logger.Info(ch.Ref().String() + " is up to date")
	}
	return Published{Channel: ch, Snapshot: snapshot, Created: created}, nil
}

func anyExtras(m *domain.Manifest, names []string) bool {
	for _, name := range names {
		if m.Channels[name].Extras {
			return true
		}
	}
	return false
}
