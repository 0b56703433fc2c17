// Package docker runs jobs in containers through the Docker Engine API.
package docker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// containerAPI is the part of the Docker client the backend uses.
type containerAPI interface {
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(
		ctx context.Context,
		config *container.Config,
		hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig,
		platform *ocispec.Platform,
		containerName string,
	) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(
		ctx context.Context,
		containerID string,
		condition container.WaitCondition,
	) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// Backend implements ports.Backend with one container per job.
type Backend struct {
	logger ports.Logger
	dial   func() (containerAPI, error)

	once   sync.Once
	api    containerAPI
	apiErr error
}

// NewBackend creates a Backend that connects to the daemon named by the
// standard DOCKER_* variables on first launch.
func NewBackend(logger ports.Logger) *Backend {
	return &Backend{
		logger: logger,
		dial: func() (containerAPI, error) {
			return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		},
	}
}

// Name returns the backend name used in job specs.
func (b *Backend) Name() string {
	return domain.BackendDocker
}

// Prepare builds the run configuration. A snapshot mount on the host is
// bind-mounted read-only at domain.ContainerMountPath.
func (b *Backend) Prepare(
	_ context.Context,
	job domain.JobSpec,
	channel domain.Channel,
	snapshot *domain.Snapshot,
) (domain.RunConfig, error) {
	if err := domain.ValidateModulePath(job.FlowModule); err != nil {
		return domain.RunConfig{}, err
	}
	if job.Image == "" {
		return domain.RunConfig{}, zerr.With(domain.ErrMissingImage, "module", job.FlowModule)
	}

	d, err := snapshot.Digest()
	if err != nil {
		return domain.RunConfig{}, err
	}

	ref := job.Channel.String()
	if channel.Name != "" {
		ref = channel.Ref().String()
	}

	cfg := domain.RunConfig{
		Env:        domain.JobEnvironment(job, ref, d, snapshot),
		WorkingDir: job.WorkingDir,
		Command:    domain.JobCommand(job.Runner, job.FlowModule),
		Image:      job.Image,
		Platform:   snapshot.Platform,
	}

	if job.MountDir != "" {
		src, err := filepath.Abs(job.MountDir)
		if err != nil {
			return domain.RunConfig{}, zerr.With(zerr.Wrap(err, "failed to resolve mount"), "dir", job.MountDir)
		}
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			return domain.RunConfig{}, zerr.With(domain.ErrWorkingDirNotFound, "dir", src)
		}
		cfg.Mounts = append(cfg.Mounts, domain.Mount{Source: src, Target: domain.ContainerMountPath, ReadOnly: true})
		cfg.Env[domain.EnvMount] = domain.ContainerMountPath
	}
	return cfg, nil
}

// Launch creates the container, streams its output and waits for it to exit.
// The container is removed afterwards.
func (b *Backend) Launch(ctx context.Context, cfg domain.RunConfig, stdout, stderr io.Writer) error {
	if cfg.Image == "" {
		return domain.ErrMissingImage
	}

	api, err := b.client()
	if err != nil {
		return zerr.Wrap(err, "failed to create docker client")
	}

	if err := b.ensureImage(ctx, api, cfg.Image); err != nil {
		return err
	}

	mounts := make([]mount.Mount, 0, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	created, err := api.ContainerCreate(ctx,
		&container.Config{
			Image:      cfg.Image,
			Cmd:        cfg.Command,
			Env:        cfg.Environ(),
			WorkingDir: cfg.WorkingDir,
		},
		&container.HostConfig{Mounts: mounts},
		nil,
		ociPlatform(cfg.Platform),
		"",
	)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create container"), "image", cfg.Image)
	}
	id := created.ID
	defer func() {
		rmErr := api.ContainerRemove(context.WithoutCancel(ctx), id, container.RemoveOptions{Force: true})
		if rmErr != nil && b.logger != nil {
			b.logger.Warn("failed to remove container " + id + ": " + rmErr.Error())
		}
	}()

	if err := api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start container"), "container", id)
	}

	logs, err := api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true, Follow: true})
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to attach to container logs"), "container", id)
	}
	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		defer func() { _ = logs.Close() }()
		_, _ = stdcopy.StdCopy(orDiscard(stdout), orDiscard(stderr), logs)
	}()

	statusCh, errCh := api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return zerr.With(zerr.Wrap(err, "failed to wait for container"), "container", id)
	case status := <-statusCh:
		<-ioDone
		if status.Error != nil {
			return zerr.With(zerr.Wrap(domain.ErrJobFailed, status.Error.Message), "container", id)
		}
		if status.StatusCode != 0 {
			err := zerr.With(zerr.Wrap(domain.ErrJobFailed, "container exited"), "exit_code", int(status.StatusCode))
			return zerr.With(err, "container", id)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) client() (containerAPI, error) {
	b.once.Do(func() {
		b.api, b.apiErr = b.dial()
	})
	return b.api, b.apiErr
}

func (b *Backend) ensureImage(ctx context.Context, api containerAPI, ref string) error {
	if _, err := api.ImageInspect(ctx, ref); err == nil {
		return nil
	}

	if b.logger != nil {
		b.logger.Info("pulling image " + ref)
	}
	progress, err := api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to pull image"), "image", ref)
	}
	defer func() { _ = progress.Close() }()
	if _, err := io.Copy(io.Discard, progress); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to pull image"), "image", ref)
	}
	return nil
}

// ociPlatform maps a linux conda subdir to an image platform.
// Other subdirs leave the choice to the daemon.
func ociPlatform(subdir string) *ocispec.Platform {
	osName, arch, ok := strings.Cut(subdir, "-")
	if !ok || osName != "linux" {
		return nil
	}
	switch arch {
	case "64":
		return &ocispec.Platform{OS: "linux", Architecture: "amd64"}
	case "aarch64":
		return &ocispec.Platform{OS: "linux", Architecture: "arm64"}
	case "ppc64le":
		return &ocispec.Platform{OS: "linux", Architecture: "ppc64le"}
	default:
		return nil
	}
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
