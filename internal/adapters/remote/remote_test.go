package remote_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/lumenv/internal/adapters/cas"
	"go.trai.ch/lumenv/internal/adapters/remote"
	"go.trai.ch/lumenv/internal/adapters/telemetry"
	"go.trai.ch/lumenv/internal/build"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/lumenv/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

type fixture struct {
	client   *remote.Client
	snapshot *domain.Snapshot
	channel  domain.Channel
}

func newFixture(t *testing.T, lifecycle *remote.Lifecycle) *fixture {
	t.Helper()

	store := cas.NewSnapshotStore(t.TempDir())
	index := cas.NewChannelIndex(t.TempDir())
	snap := domain.NewSnapshot("ml", "linux-64", nil, []domain.ResolvedPackage{
		{Manager: domain.ManagerPip, Name: "numpy", Version: "1.26.4"},
	})
	d, err := store.Put(snap)
	require.NoError(t, err)
	ch, _, err := index.Publish("ml", d)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug(gomock.Any()).AnyTimes()
	mockLogger.EXPECT().Info(gomock.Any()).AnyTimes()

	server := remote.NewServer(cas.NewSource(store, index), lifecycle, mockLogger, telemetry.NewNoOpTracer())
	lis := bufconn.Listen(bufSize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	client, err := remote.Dial("bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &fixture{client: client, snapshot: snap, channel: ch}
}

func TestRemote_FetchChannel(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	ch, snap, err := ports.Fetch(ctx, f.client, domain.SnapshotRef{Name: "ml"})
	require.NoError(t, err)
	assert.Equal(t, f.channel.Name, ch.Name)
	assert.Equal(t, f.channel.Version, ch.Version)
	assert.Equal(t, f.channel.Digest, ch.Digest)
	assert.True(t, f.channel.CreatedAt.Equal(ch.CreatedAt))
	assert.Equal(t, f.snapshot, snap)

	pinned, err := f.client.Channel(ctx, domain.SnapshotRef{Name: "ml", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, f.channel.Digest, pinned.Digest)

	channels, err := f.client.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "ml", channels[0].Name)
}

func TestRemote_NotFound(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.client.Channel(ctx, domain.SnapshotRef{Name: "missing"})
	require.ErrorIs(t, err, domain.ErrChannelNotFound)

	_, err = f.client.Channel(ctx, domain.SnapshotRef{Name: "ml", Version: 7})
	require.ErrorIs(t, err, domain.ErrChannelNotFound)

	_, err = f.client.Snapshot(ctx, digest.FromString("missing"))
	require.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestRemote_InvalidArgument(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.client.Snapshot(context.Background(), digest.Digest("sha256:nothex"))
	require.ErrorContains(t, err, domain.ErrInvalidSnapshotRef.Error())
}

func TestRemote_Ping(t *testing.T) {
	f := newFixture(t, remote.NewLifecycle(time.Hour))

	info, err := f.client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, build.Version, info.Version)
	assert.Greater(t, info.IdleRemaining, 59*time.Minute)
}

func TestRemote_Unavailable(t *testing.T) {
	lis := bufconn.Listen(bufSize)
	require.NoError(t, lis.Close())

	client, err := remote.Dial("bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = client.Ping(ctx)
	require.ErrorContains(t, err, domain.ErrRemoteUnavailable.Error())
}

func TestLifecycle_IdleShutdown(t *testing.T) {
	l := remote.NewLifecycle(20 * time.Millisecond)
	select {
	case <-l.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("lifecycle did not idle out")
	}
}

func TestLifecycle_Disabled(t *testing.T) {
	l := remote.NewLifecycle(0)
	l.Touch()
	assert.Equal(t, time.Duration(0), l.IdleRemaining())

	select {
	case <-l.Done():
		t.Fatal("disabled lifecycle shut down")
	case <-time.After(50 * time.Millisecond):
	}

	l.Stop()
	l.Stop()
	<-l.Done()
}

func TestServer_StopsOnIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Info("idle timeout reached, shutting down").Times(1)

	source := mocks.NewMockSnapshotSource(ctrl)
	server := remote.NewServer(source, remote.NewLifecycle(20*time.Millisecond), mockLogger, telemetry.NewNoOpTracer())

	done := make(chan error, 1)
	go func() { done <- server.Serve(context.Background(), bufconn.Listen(bufSize)) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop on idle")
	}
}
