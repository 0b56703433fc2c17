// Package remote serves snapshots over gRPC and reads them back as a
// ports.SnapshotSource. Messages are protobuf well-known types.
package remote

import (
	"context"
	"strconv"
	"time"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "lumenv.distribution.v1.Distribution"

const (
	methodPing         = "/" + ServiceName + "/Ping"
	methodGetSnapshot  = "/" + ServiceName + "/GetSnapshot"
	methodGetChannel   = "/" + ServiceName + "/GetChannel"
	methodListChannels = "/" + ServiceName + "/ListChannels"
)

// distributionServer is the server API of the distribution service.
type distributionServer interface {
	Ping(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
	GetSnapshot(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	GetChannel(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error)
	ListChannels(ctx context.Context, in *emptypb.Empty) (*structpb.ListValue, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*distributionServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler: unaryHandler(methodPing, func(srv distributionServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return srv.Ping(ctx, in)
			}),
		},
		{
			MethodName: "GetSnapshot",
			Handler: unaryHandler(methodGetSnapshot, func(srv distributionServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
				return srv.GetSnapshot(ctx, in)
			}),
		},
		{
			MethodName: "GetChannel",
			Handler: unaryHandler(methodGetChannel, func(srv distributionServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
				return srv.GetChannel(ctx, in)
			}),
		},
		{
			MethodName: "ListChannels",
			Handler: unaryHandler(methodListChannels, func(srv distributionServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return srv.ListChannels(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lumenv/distribution/v1/distribution.proto",
}

// unaryHandler adapts a typed method to a grpc.MethodDesc handler.
func unaryHandler[Req any, PReq interface {
	*Req
}](
	fullMethod string,
	call func(srv distributionServer, ctx context.Context, in PReq) (any, error),
) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(distributionServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func channelToStruct(ch domain.Channel) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"name":       ch.Name,
		"version":    strconv.Itoa(ch.Version),
		"digest":     ch.Digest.String(),
		"created_at": ch.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func channelFromStruct(s *structpb.Struct) (domain.Channel, error) {
	fields := s.GetFields()
	version, err := strconv.Atoi(fields["version"].GetStringValue())
	if err != nil {
		return domain.Channel{}, zerr.Wrap(err, "invalid channel version in response")
	}
	d, err := digest.Parse(fields["digest"].GetStringValue())
	if err != nil {
		return domain.Channel{}, zerr.Wrap(err, "invalid channel digest in response")
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"].GetStringValue())
	if err != nil {
		return domain.Channel{}, zerr.Wrap(err, "invalid channel timestamp in response")
	}
	return domain.Channel{
		Name:      fields["name"].GetStringValue(),
		Version:   version,
		Digest:    d,
		CreatedAt: created,
	}, nil
}
