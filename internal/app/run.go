package app

import (
	"context"
	"io"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// RunOptions configures Run.
type RunOptions struct {
	// Module is the flow's module path, e.g. "pkg.flows.train".
	Module string
	// Channel is the snapshot reference the job runs against.
	Channel string
	// Backend is "local" or "docker"; empty selects local.
	Backend    string
	WorkingDir string
	// Env holds KEY=VALUE assignments passed to the job.
	Env []string
	// Image overrides the configured container image.
	Image string
	// Source selects where the snapshot is fetched from. A MountDir is also
	// made visible to the job.
	Source SourceOptions

	Stdout io.Writer
	Stderr io.Writer
}

// Run fetches the snapshot and runs the flow module on the selected backend.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	if err := domain.ValidateModulePath(opts.Module); err != nil {
		return err
	}
	ref, err := domain.ParseSnapshotRef(opts.Channel)
	if err != nil {
		return err
	}
	env, err := domain.ParseEnvAssignments(opts.Env)
	if err != nil {
		return err
	}

	name := opts.Backend
	if name == "" {
		name = domain.BackendLocal
	}
	backend, ok := a.backends[name]
	if !ok {
		return zerr.With(domain.ErrUnknownBackend, "backend", name)
	}

	manifest, err := a.manifestOrDefaults()
	if err != nil {
		return err
	}

	ch, snapshot, err := a.Fetch(ctx, ref.String(), opts.Source)
	if err != nil {
		return err
	}

	image := opts.Image
	if image == "" {
		image = manifest.Image
	}

	ctx, span := a.tracer.Start(ctx, "run "+opts.Module,
		ports.WithAttribute("lumenv.backend", name),
		ports.WithAttribute("lumenv.channel", ref.String()),
	)
	defer span.End()

	cfg, err := backend.Prepare(ctx, domain.JobSpec{
		FlowModule: opts.Module,
		Channel:    ref,
		Env:        env,
		WorkingDir: opts.WorkingDir,
		Image:      image,
		Backend:    name,
		Runner:     manifest.Runner,
		MountDir:   opts.Source.MountDir,
	}, ch, snapshot)
	if err != nil {
		span.RecordError(err)
		return err
	}

	a.logger.Debug("launching " + opts.Module + " on " + name)
	if err := backend.Launch(ctx, cfg, opts.Stdout, opts.Stderr); err != nil {
		span.RecordError(err)
		return zerr.With(err, "module", opts.Module)
	}
	return nil
}
