package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lumenv/internal/adapters/cas"
	"go.trai.ch/lumenv/internal/adapters/mount"
	"go.trai.ch/lumenv/internal/adapters/telemetry"
	"go.trai.ch/lumenv/internal/app"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/lumenv/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	root     string
	loader   *mocks.MockConfigLoader
	resolver *mocks.MockChannelResolver
	backend  *mocks.MockBackend
	app      *app.App
	env      map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	t.Chdir(root)

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	f := &fixture{
		root:     root,
		loader:   mocks.NewMockConfigLoader(ctrl),
		resolver: mocks.NewMockChannelResolver(ctrl),
		backend:  mocks.NewMockBackend(ctrl),
		env:      map[string]string{},
	}
	f.backend.EXPECT().Name().Return(domain.BackendLocal).AnyTimes()

	state := filepath.Join(root, domain.LumenvDirName)
	f.app = app.New(
		f.loader,
		f.resolver,
		cas.NewSnapshotStore(filepath.Join(state, domain.StoreDirName)),
		cas.NewChannelIndex(filepath.Join(state, domain.ChannelsDirName)),
		cas.NewDeploymentStore(filepath.Join(state, domain.DeploymentsDirName)),
		[]ports.Backend{f.backend},
		telemetry.NewNoOpTracer(),
		log,
	).WithLookupEnv(func(k string) (string, bool) {
		v, ok := f.env[k]
		return v, ok
	})
	return f
}

func (f *fixture) manifest(t *testing.T) *domain.Manifest {
	t.Helper()
	spec, err := domain.ParsePackageSpec(domain.ManagerPip, "requests>=2")
	require.NoError(t, err)
	return &domain.Manifest{
		Root:          f.root,
		Platform:      "linux-64",
		CondaChannels: []string{"conda-forge"},
		Runner:        []string{"python", "-m"},
		Image:         "python:3.11",
		Channels: map[string]domain.ChannelDef{
			"ml":  {Name: "ml", Packages: []domain.PackageSpec{spec}, Extras: true},
			"web": {Name: "web", Packages: []domain.PackageSpec{spec}},
		},
	}
}

// resolveTo makes the resolver pin every request to the given packages.
func (f *fixture) resolveTo(packages ...domain.ResolvedPackage) {
	f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.ResolveRequest) (*domain.Snapshot, error) {
			return domain.NewSnapshot(req.Channel, req.Platform, req.Specs, packages), nil
		}).AnyTimes()
}

var requests = domain.ResolvedPackage{Manager: domain.ManagerPip, Name: "requests", Version: "2.31.0"}

func TestApp_Resolve(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()
	f.env[domain.EnvExtraPip] = "numpy==1.26.4"

	f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.ResolveRequest) (*domain.Snapshot, error) {
			assert.Equal(t, "ml", req.Channel)
			assert.Equal(t, "linux-64", req.Platform)
			assert.Equal(t, []string{"conda-forge"}, req.CondaChannels)
			require.Len(t, req.Specs, 2)
			assert.Equal(t, "numpy", req.Specs[1].Name)
			return domain.NewSnapshot(req.Channel, req.Platform, req.Specs, []domain.ResolvedPackage{requests}), nil
		}).Times(2)

	published, err := f.app.Resolve(context.Background(), []string{"ml"}, app.ResolveOptions{})
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.True(t, published[0].Created)
	assert.Equal(t, 1, published[0].Channel.Version)

	again, err := f.app.Resolve(context.Background(), []string{"ml"}, app.ResolveOptions{})
	require.NoError(t, err)
	assert.False(t, again[0].Created)
	assert.Equal(t, 1, again[0].Channel.Version)
}

func TestApp_Resolve_AllChannels(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil)
	f.resolveTo(requests)

	published, err := f.app.Resolve(context.Background(), nil, app.ResolveOptions{})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "ml", published[0].Channel.Name)
	assert.Equal(t, "web", published[1].Channel.Name)
}

func TestApp_Resolve_Errors(t *testing.T) {
	t.Run("undeclared channel", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil)

		_, err := f.app.Resolve(context.Background(), []string{"missing"}, app.ResolveOptions{})
		require.ErrorContains(t, err, domain.ErrChannelNotDeclared.Error())
	})

	t.Run("no configuration", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(f.root).Return(nil, domain.ErrConfigNotFound)

		_, err := f.app.Resolve(context.Background(), nil, app.ResolveOptions{})
		require.ErrorContains(t, err, domain.ErrConfigNotFound.Error())
	})

	t.Run("bad extras", func(t *testing.T) {
		f := newFixture(t)
		f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil)
		f.env[domain.EnvExtraPip] = ">=1,numpy"

		_, err := f.app.Resolve(context.Background(), []string{"web"}, app.ResolveOptions{FromEnv: true})
		require.ErrorContains(t, err, domain.ErrDanglingConstraint.Error())
	})
}

func TestApp_Extras_WithoutConfiguration(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(nil, domain.ErrConfigNotFound)
	f.env[domain.EnvExtraConda] = "numpy>=1.20,<2"
	f.env[domain.EnvExtraPip] = "requests"

	f.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.ResolveRequest) (*domain.Snapshot, error) {
			assert.Equal(t, domain.DefaultExtrasChannel, req.Channel)
			assert.Equal(t, []string{domain.DefaultCondaChannel}, req.CondaChannels)
			require.Len(t, req.Specs, 2)
			assert.Equal(t, domain.ManagerConda, req.Specs[0].Manager)
			assert.Len(t, req.Specs[0].Constraint, 2)
			return domain.NewSnapshot(req.Channel, req.Platform, req.Specs, []domain.ResolvedPackage{requests}), nil
		})

	published, err := f.app.Extras(context.Background(), "", app.ResolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultExtrasChannel, published.Channel.Name)

	_, err = f.app.Extras(context.Background(), "bad name", app.ResolveOptions{})
	require.ErrorContains(t, err, domain.ErrInvalidChannelName.Error())
}

func TestApp_FetchAndHistory(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()
	f.resolveTo(requests)

	published, err := f.app.Resolve(context.Background(), []string{"web"}, app.ResolveOptions{})
	require.NoError(t, err)
	want := published[0]

	ch, snapshot, err := f.app.Fetch(context.Background(), "web", app.SourceOptions{})
	require.NoError(t, err)
	assert.Equal(t, want.Channel, ch)
	assert.Equal(t, want.Snapshot.Packages, snapshot.Packages)

	ch, _, err = f.app.Fetch(context.Background(), want.Channel.Digest.String(), app.SourceOptions{})
	require.NoError(t, err)
	assert.Empty(t, ch.Name)

	_, _, err = f.app.Fetch(context.Background(), "web@7", app.SourceOptions{})
	require.ErrorContains(t, err, domain.ErrChannelNotFound.Error())

	history, err := f.app.History(context.Background(), "web")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	channels, err := f.app.Channels(context.Background(), app.SourceOptions{})
	require.NoError(t, err)
	assert.Equal(t, []domain.Channel{want.Channel}, channels)
}

func TestApp_ExportAndFetchFromMount(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()
	f.resolveTo(requests)

	published, err := f.app.Resolve(context.Background(), nil, app.ResolveOptions{})
	require.NoError(t, err)

	mountDir := filepath.Join(t.TempDir(), "mnt")
	written, err := f.app.Export(context.Background(), nil, mountDir)
	require.NoError(t, err)
	assert.Contains(t, written, mount.Layout{Root: mountDir}.RequirementsPath("ml", 1))

	ch, snapshot, err := f.app.Fetch(context.Background(), "ml@latest", app.SourceOptions{MountDir: mountDir})
	require.NoError(t, err)
	assert.Equal(t, "ml", ch.Name)
	assert.Equal(t, []domain.ResolvedPackage{requests}, snapshot.Packages)

	_, err = f.app.Export(context.Background(), []string{published[0].Channel.Digest.String()}, mountDir)
	require.ErrorContains(t, err, domain.ErrInvalidSnapshotRef.Error())
}

func TestApp_ServeAndFetch(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()
	f.resolveTo(requests)

	published, err := f.app.Resolve(context.Background(), []string{"web"}, app.ResolveOptions{})
	require.NoError(t, err)

	socket := filepath.Join(t.TempDir(), "lumenv.sock")
	addr := "unix://" + socket
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.app.Serve(ctx, app.ServeOptions{Addr: addr})
	}()
	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	ch, snapshot, err := f.app.Fetch(context.Background(), "web", app.SourceOptions{Addr: addr})
	require.NoError(t, err)
	assert.Equal(t, published[0].Channel.Digest, ch.Digest)
	assert.Equal(t, published[0].Snapshot.Packages, snapshot.Packages)

	cancel()
	require.NoError(t, <-done)
}

func TestApp_Run(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()
	f.resolveTo(requests)

	published, err := f.app.Resolve(context.Background(), []string{"web"}, app.ResolveOptions{})
	require.NoError(t, err)

	cfg := domain.RunConfig{Command: []string{"python", "-m", "pkg.flows.train"}}
	f.backend.EXPECT().
		Prepare(gomock.Any(), gomock.Any(), published[0].Channel, gomock.Any()).
		DoAndReturn(func(_ context.Context, job domain.JobSpec, _ domain.Channel, _ *domain.Snapshot) (domain.RunConfig, error) {
			assert.Equal(t, "pkg.flows.train", job.FlowModule)
			assert.Equal(t, map[string]string{"TOKEN": "x"}, job.Env)
			assert.Equal(t, []string{"python", "-m"}, job.Runner)
			assert.Equal(t, "python:3.11", job.Image)
			return cfg, nil
		})
	f.backend.EXPECT().Launch(gomock.Any(), cfg, gomock.Any(), gomock.Any()).Return(nil)

	err = f.app.Run(context.Background(), app.RunOptions{
		Module:  "pkg.flows.train",
		Channel: "web",
		Env:     []string{"TOKEN=x"},
	})
	require.NoError(t, err)
}

func TestApp_Run_Errors(t *testing.T) {
	f := newFixture(t)

	err := f.app.Run(context.Background(), app.RunOptions{Module: "flows/train.py", Channel: "web"})
	require.ErrorContains(t, err, domain.ErrInvalidModulePath.Error())

	err = f.app.Run(context.Background(), app.RunOptions{Module: "flow", Channel: "web", Backend: "k8s"})
	require.ErrorContains(t, err, domain.ErrUnknownBackend.Error())

	err = f.app.Run(context.Background(), app.RunOptions{Module: "flow", Channel: "web", Env: []string{"NOPE"}})
	require.ErrorContains(t, err, domain.ErrInvalidEnvAssignment.Error())
}

func TestApp_Deployments(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()
	f.resolveTo(requests)

	published, err := f.app.Resolve(context.Background(), []string{"web"}, app.ResolveOptions{})
	require.NoError(t, err)

	record, err := f.app.RecordDeployment(context.Background(), "dep-1", "web@1")
	require.NoError(t, err)
	assert.Equal(t, published[0].Channel.Digest, record.SnapshotDigest)
	assert.Equal(t, "web@1", record.Channel)

	got, err := f.app.Dependencies(context.Background(), "dep-1")
	require.NoError(t, err)
	require.Len(t, got.Dependencies, 1)
	assert.Equal(t, "requests", got.Dependencies[0].Name)
	assert.Equal(t, domain.ManagerPip, got.Dependencies[0].Type)
	assert.Equal(t, "2.31.0", got.Dependencies[0].Version)

	_, err = f.app.Dependencies(context.Background(), "dep-2")
	require.ErrorContains(t, err, domain.ErrDeploymentNotFound.Error())

	_, err = f.app.RecordDeployment(context.Background(), "../x", "web")
	require.ErrorContains(t, err, domain.ErrInvalidDeploymentID.Error())
}

func TestApp_Clean(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()

	cacheFile := filepath.Join(f.root, domain.DefaultIndexCachePath(), "pip", "x.json")
	storeDir := filepath.Join(f.root, domain.DefaultStorePath())
	require.NoError(t, os.MkdirAll(filepath.Dir(cacheFile), 0o750))
	require.NoError(t, os.WriteFile(cacheFile, []byte("{}"), 0o600))
	require.NoError(t, os.MkdirAll(storeDir, 0o750))

	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{Cache: true}))
	assert.NoFileExists(t, cacheFile)
	assert.DirExists(t, storeDir)

	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{All: true}))
	assert.NoDirExists(t, filepath.Join(f.root, domain.LumenvDirName))
}

func TestApp_Show(t *testing.T) {
	f := newFixture(t)
	f.loader.EXPECT().Load(f.root).Return(f.manifest(t), nil).AnyTimes()
	f.resolveTo(requests)

	published, err := f.app.Resolve(context.Background(), []string{"web"}, app.ResolveOptions{})
	require.NoError(t, err)
	d := published[0].Channel.Digest.String()

	data, err := f.app.Show(context.Background(), "web", app.FormatJSON, app.SourceOptions{})
	require.NoError(t, err)
	decoded, err := domain.DecodeSnapshot(data[:len(data)-1], published[0].Channel.Digest)
	require.NoError(t, err)
	assert.Equal(t, "web", decoded.Channel)

	data, err = f.app.Show(context.Background(), "web@1", app.FormatRequirements, app.SourceOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(data), d)
	assert.Contains(t, string(data), "requests==2.31.0")

	data, err = f.app.Show(context.Background(), d, app.FormatEnvironment, app.SourceOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(data), "conda-forge")

	_, err = f.app.Show(context.Background(), "web", "toml", app.SourceOptions{})
	require.ErrorContains(t, err, domain.ErrUnknownFormat.Error())
}
