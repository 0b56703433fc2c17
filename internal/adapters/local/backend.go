// Package local runs jobs as processes on the host.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// Backend implements ports.Backend by running the flow module through an Executor.
type Backend struct {
	executor ports.Executor
}

// NewBackend creates a Backend that launches jobs with executor.
func NewBackend(executor ports.Executor) *Backend {
	return &Backend{executor: executor}
}

// Name returns the backend name used in job specs.
func (b *Backend) Name() string {
	return domain.BackendLocal
}

// Prepare builds the run configuration. The working directory must exist.
func (b *Backend) Prepare(
	_ context.Context,
	job domain.JobSpec,
	channel domain.Channel,
	snapshot *domain.Snapshot,
) (domain.RunConfig, error) {
	if err := domain.ValidateModulePath(job.FlowModule); err != nil {
		return domain.RunConfig{}, err
	}

	dir := job.WorkingDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return domain.RunConfig{}, zerr.Wrap(err, "failed to get working directory")
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return domain.RunConfig{}, zerr.With(zerr.Wrap(err, "failed to resolve working directory"), "dir", dir)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return domain.RunConfig{}, zerr.With(domain.ErrWorkingDirNotFound, "dir", abs)
	}

	d, err := snapshot.Digest()
	if err != nil {
		return domain.RunConfig{}, err
	}

	ref := job.Channel.String()
	if channel.Name != "" {
		ref = channel.Ref().String()
	}
	env := domain.JobEnvironment(job, ref, d, snapshot)
	if job.MountDir != "" {
		env[domain.EnvMount] = job.MountDir
	}

	return domain.RunConfig{
		Env:        env,
		WorkingDir: abs,
		Command:    domain.JobCommand(job.Runner, job.FlowModule),
		Platform:   snapshot.Platform,
	}, nil
}

// Launch runs the prepared command and waits for it to exit.
func (b *Backend) Launch(ctx context.Context, cfg domain.RunConfig, stdout, stderr io.Writer) error {
	return b.executor.Execute(ctx, cfg.WorkingDir, cfg.Command, cfg.Environ(), stdout, stderr)
}
