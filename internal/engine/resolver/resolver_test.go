package resolver_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lumenv/internal/adapters/telemetry"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/lumenv/internal/core/ports/mocks"
	"go.trai.ch/lumenv/internal/engine/resolver"
	"go.uber.org/mock/gomock"
)

func mustSpec(t *testing.T, m domain.Manager, raw string) domain.PackageSpec {
	t.Helper()
	spec, err := domain.ParsePackageSpec(m, raw)
	require.NoError(t, err)
	return spec
}

func newIndex(ctrl *gomock.Controller, m domain.Manager) *mocks.MockPackageIndex {
	idx := mocks.NewMockPackageIndex(ctrl)
	idx.EXPECT().Manager().Return(m).AnyTimes()
	return idx
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any()).AnyTimes()
	return log
}

func TestResolver_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	pip := newIndex(ctrl, domain.ManagerPip)
	conda := newIndex(ctrl, domain.ManagerConda)

	pip.EXPECT().Releases(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, spec domain.PackageSpec, opts ports.LookupOptions) ([]domain.Release, error) {
			assert.Equal(t, "requests", spec.Name)
			assert.Equal(t, "linux-64", opts.Platform)
			return []domain.Release{
				{Version: "2.30.0"},
				{Version: "2.31.0", URL: "https://files/requests-2.31.0.whl", SHA256: "abc"},
				{Version: "3.0.0"},
			}, nil
		})
	conda.EXPECT().Releases(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.PackageSpec, opts ports.LookupOptions) ([]domain.Release, error) {
			assert.Equal(t, []string{"conda-forge"}, opts.Channels)
			return []domain.Release{
				{Version: "1.26.4", Build: "py311h", Channel: "conda-forge"},
				{Version: "1.25.0", Build: "py311h", Channel: "conda-forge"},
			}, nil
		})

	r := resolver.NewResolver(ports.NewIndexSet(pip, conda), telemetry.NewNoOpTracer(), quietLogger(ctrl))
	snapshot, err := r.Resolve(context.Background(), ports.ResolveRequest{
		Channel:  "ml",
		Platform: "linux-64",
		Specs: []domain.PackageSpec{
			mustSpec(t, domain.ManagerPip, "requests>=2,<3"),
			mustSpec(t, domain.ManagerConda, "numpy=1.26"),
		},
		CondaChannels: []string{"conda-forge"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ml", snapshot.Channel)
	assert.Equal(t, []domain.ResolvedPackage{
		{Manager: domain.ManagerConda, Name: "numpy", Version: "1.26.4", Build: "py311h", Channel: "conda-forge"},
		{Manager: domain.ManagerPip, Name: "requests", Version: "2.31.0", URL: "https://files/requests-2.31.0.whl", SHA256: "abc"},
	}, snapshot.Packages)
}

func TestResolver_Resolve_Errors(t *testing.T) {
	t.Run("no matching release", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		pip := newIndex(ctrl, domain.ManagerPip)
		pip.EXPECT().Releases(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]domain.Release{{Version: "1.0.0"}}, nil)

		r := resolver.NewResolver(ports.NewIndexSet(pip), telemetry.NewNoOpTracer(), quietLogger(ctrl))
		_, err := r.Resolve(context.Background(), ports.ResolveRequest{
			Channel: "ml",
			Specs:   []domain.PackageSpec{mustSpec(t, domain.ManagerPip, "numpy>=2")},
		})
		require.ErrorContains(t, err, domain.ErrNoMatchingRelease.Error())
	})

	t.Run("package not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		pip := newIndex(ctrl, domain.ManagerPip)
		pip.EXPECT().Releases(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, domain.ErrPackageNotFound)

		r := resolver.NewResolver(ports.NewIndexSet(pip), telemetry.NewNoOpTracer(), quietLogger(ctrl))
		_, err := r.Resolve(context.Background(), ports.ResolveRequest{
			Channel: "ml",
			Specs:   []domain.PackageSpec{mustSpec(t, domain.ManagerPip, "nosuchpkg")},
		})
		require.ErrorContains(t, err, domain.ErrNoMatchingRelease.Error())
		require.ErrorIs(t, err, domain.ErrPackageNotFound)
	})

	t.Run("unknown manager", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := resolver.NewResolver(ports.IndexSet{}, telemetry.NewNoOpTracer(), quietLogger(ctrl))
		_, err := r.Resolve(context.Background(), ports.ResolveRequest{
			Channel: "ml",
			Specs:   []domain.PackageSpec{mustSpec(t, domain.ManagerConda, "numpy")},
		})
		require.ErrorContains(t, err, domain.ErrUnknownManager.Error())
	})

	t.Run("unsatisfiable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		r := resolver.NewResolver(ports.IndexSet{}, telemetry.NewNoOpTracer(), quietLogger(ctrl))
		_, err := r.Resolve(context.Background(), ports.ResolveRequest{
			Channel: "ml",
			Specs: []domain.PackageSpec{
				mustSpec(t, domain.ManagerPip, "numpy>=2"),
				mustSpec(t, domain.ManagerPip, "numpy<1.5"),
			},
		})
		require.ErrorContains(t, err, domain.ErrUnsatisfiable.Error())
	})
}

func TestResolver_Resolve_RecordsSpan(t *testing.T) {
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)
	pip := newIndex(ctrl, domain.ManagerPip)

	tracer.EXPECT().Start(gomock.Any(), "resolve ml", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		})
	pip.EXPECT().Releases(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	span.EXPECT().RecordError(gomock.Any())
	span.EXPECT().End()

	r := resolver.NewResolver(ports.NewIndexSet(pip), tracer, quietLogger(ctrl))
	_, err := r.Resolve(context.Background(), ports.ResolveRequest{
		Channel: "ml",
		Specs:   []domain.PackageSpec{mustSpec(t, domain.ManagerPip, "numpy")},
	})
	require.Error(t, err)
}

func TestResolver_Resolve_OrderIndependent(t *testing.T) {
	ctrl := gomock.NewController(t)
	pip := newIndex(ctrl, domain.ManagerPip)
	pip.EXPECT().Releases(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.PackageSpec, ports.LookupOptions) ([]domain.Release, error) {
			return []domain.Release{{Version: "1.0.0"}}, nil
		}).AnyTimes()

	r := resolver.NewResolver(ports.NewIndexSet(pip), telemetry.NewNoOpTracer(), quietLogger(ctrl))
	a, err := r.Resolve(context.Background(), ports.ResolveRequest{
		Channel: "ml",
		Specs:   []domain.PackageSpec{mustSpec(t, domain.ManagerPip, "alpha"), mustSpec(t, domain.ManagerPip, "beta")},
	})
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), ports.ResolveRequest{
		Channel: "ml",
		Specs:   []domain.PackageSpec{mustSpec(t, domain.ManagerPip, "beta"), mustSpec(t, domain.ManagerPip, "alpha")},
	})
	require.NoError(t, err)

	da, err := a.Digest()
	require.NoError(t, err)
	db, err := b.Digest()
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

type blockingIndex struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingIndex) Manager() domain.Manager { return domain.ManagerPip }

func (b *blockingIndex) Releases(context.Context, domain.PackageSpec, ports.LookupOptions) ([]domain.Release, error) {
	b.calls.Add(1)
	b.once.Do(func() { close(b.started) })
	<-b.release
	return []domain.Release{{Version: "1.0.0"}}, nil
}

func TestResolver_Resolve_CoalescesIdenticalRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	idx := &blockingIndex{started: make(chan struct{}), release: make(chan struct{})}
	r := resolver.NewResolver(ports.NewIndexSet(idx), telemetry.NewNoOpTracer(), quietLogger(ctrl))

	req := ports.ResolveRequest{
		Channel: "ml",
		Specs:   []domain.PackageSpec{mustSpec(t, domain.ManagerPip, "numpy")},
	}

	var wg sync.WaitGroup
	results := make([]*domain.Snapshot, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Resolve(context.Background(), req)
			assert.NoError(t, err)
			results[i] = s
		}()
		if i == 0 {
			<-idx.started
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(idx.release)
	wg.Wait()

	assert.Equal(t, int32(1), idx.calls.Load())
	assert.Same(t, results[0], results[1])
}

func TestSelectRelease(t *testing.T) {
	parse := func(s string) domain.Constraint {
		c, err := domain.ParseConstraint(s)
		require.NoError(t, err)
		return c
	}
	releases := []domain.Release{
		{Version: "1.2.0"},
		{Version: "1.2.9"},
		{Version: "1.3.0"},
		{Version: "2.0.0rc1"},
		{Version: "1.4.0", Yanked: true},
	}

	tests := []struct {
		constraint string
		want       string
		ok         bool
	}{
		{"", "1.3.0", true},
		{"==1.2.*", "1.2.9", true},
		{">=2.0.0rc1", "2.0.0rc1", true},
		{">1.3", "2.0.0rc1", true},
		{"==1.4.0", "1.4.0", true},
		{"==1.4", "1.4.0", true},
		{">=1.4,<1.9", "", false},
		{">=3", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			got, ok := resolver.SelectRelease(releases, parse(tt.constraint))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.Version)
		})
	}
}

func TestSelectRelease_IndependentOfOrder(t *testing.T) {
	c, err := domain.ParseConstraint(">=1.0a1")
	require.NoError(t, err)

	orders := [][]domain.Release{
		{{Version: "1.0a1"}, {Version: "1.0a1.dev1"}, {Version: "1.0.0a1"}},
		{{Version: "1.0a1.dev1"}, {Version: "1.0.0a1"}, {Version: "1.0a1"}},
		{{Version: "1.0.0a1"}, {Version: "1.0a1"}, {Version: "1.0a1.dev1"}},
	}
	for _, releases := range orders {
		got, ok := resolver.SelectRelease(releases, c)
		require.True(t, ok)
		assert.Equal(t, "1.0.0a1", got.Version)
	}
}
