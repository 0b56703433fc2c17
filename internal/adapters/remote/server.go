package remote

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/build"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const unixScheme = "unix://"

var _ distributionServer = (*Server)(nil)

// Server serves a ports.SnapshotSource over gRPC.
type Server struct {
	source     ports.SnapshotSource
	lifecycle  *Lifecycle
	logger     ports.Logger
	tracer     ports.Tracer
	grpcServer *grpc.Server
}

// NewServer creates a server for source. A nil lifecycle never idles out.
func NewServer(source ports.SnapshotSource, lifecycle *Lifecycle, logger ports.Logger, tracer ports.Tracer) *Server {
	if lifecycle == nil {
		lifecycle = NewLifecycle(0)
	}
	s := &Server{
		source:    source,
		lifecycle: lifecycle,
		logger:    logger,
		tracer:    tracer,
	}
	s.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(s.observe))
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s
}

// Listen opens addr, which is host:port or unix:///path/to/socket.
func Listen(addr string) (net.Listener, error) {
	if socketPath, ok := strings.CutPrefix(addr, unixScheme); ok {
		if err := os.MkdirAll(filepath.Dir(socketPath), domain.DirPerm); err != nil {
			return nil, zerr.Wrap(err, "failed to create socket directory")
		}
		if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
			return nil, zerr.Wrap(err, "failed to remove stale socket")
		}
		lis, err := net.Listen("unix", socketPath)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to listen"), "addr", addr)
		}
		return lis, nil
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to listen"), "addr", addr)
	}
	return lis, nil
}

// Serve handles requests on lis until ctx is done or the lifecycle idles out.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.GracefulStop()
		return nil
	case <-s.lifecycle.Done():
		s.logger.Info("idle timeout reached, shutting down")
		s.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// observe resets the idle timer and traces every call.
func (s *Server) observe(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	s.lifecycle.Touch()
	ctx, span := s.tracer.Start(ctx, "rpc", ports.WithAttribute("rpc.method", info.FullMethod))
	defer span.End()

	resp, err := handler(ctx, req)
	if err != nil {
		span.RecordError(err)
		s.logger.Debug(info.FullMethod + ": " + err.Error())
	}
	return resp, err
}

// Ping reports the server version and idle time remaining.
func (s *Server) Ping(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"version":                build.Version,
		"idle_remaining_seconds": s.lifecycle.IdleRemaining().Seconds(),
	})
}

// GetSnapshot returns the canonical bytes of the snapshot.
func (s *Server) GetSnapshot(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	d, err := digest.Parse(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, domain.ErrInvalidSnapshotRef.Error())
	}

	snapshot, err := s.source.Snapshot(ctx, d)
	if err != nil {
		return nil, toStatus(err)
	}
	data, err := snapshot.Canonical()
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return wrapperspb.Bytes(data), nil
}

// GetChannel resolves a channel reference.
func (s *Server) GetChannel(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	ref, err := domain.ParseSnapshotRef(in.GetValue())
	if err != nil || ref.IsDigest() {
		return nil, status.Error(codes.InvalidArgument, domain.ErrInvalidSnapshotRef.Error())
	}

	ch, err := s.source.Channel(ctx, ref)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := channelToStruct(ch)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// ListChannels returns the newest version of every channel.
func (s *Server) ListChannels(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	channels, err := s.source.Channels(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(channels))}
	for _, ch := range channels {
		item, err := channelToStruct(ch)
		if err != nil {
			return nil, status.Error(codes.Internal, err.Error())
		}
		list.Values = append(list.Values, structpb.NewStructValue(item))
	}
	return list, nil
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrSnapshotNotFound), errors.Is(err, domain.ErrChannelNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrDigestMismatch):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
