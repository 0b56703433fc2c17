package ports

import (
	"context"
	"io"

	"go.trai.ch/lumenv/internal/core/domain"
)

//go:generate mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks

// Backend prepares and launches jobs against a snapshot.
type Backend interface {
	// Name returns the backend name used on the command line.
	Name() string

	// Prepare builds the run configuration for a job.
	Prepare(ctx context.Context, job domain.JobSpec, channel domain.Channel, snapshot *domain.Snapshot) (domain.RunConfig, error)

	// Launch runs the job and blocks until it exits.
	Launch(ctx context.Context, cfg domain.RunConfig, stdout, stderr io.Writer) error
}

// Executor runs a command on the host.
type Executor interface {
	// Execute runs the command in dir with exactly the given environment.
	//
	// The env parameter contains environment variables in "KEY=VALUE" format.
	// It returns an error if the command fails.
	Execute(ctx context.Context, dir string, command []string, env []string, stdout, stderr io.Writer) error
}
