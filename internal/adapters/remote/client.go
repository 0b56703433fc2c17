package remote

import (
	"context"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"go.trai.ch/lumenv/internal/core/domain"
	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var _ ports.SnapshotSource = (*Client)(nil)

// ServerInfo is the result of a Ping.
type ServerInfo struct {
	Version       string
	IdleRemaining time.Duration
}

// Client reads snapshots from a distribution server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for addr, which is host:port or unix:///path.
// The connection is established lazily on the first call.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	target := addr
	if !strings.HasPrefix(addr, unixScheme) {
		target = "passthrough:///" + addr
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRemoteUnavailable.Error()), "addr", addr)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ping checks that the server is reachable.
func (c *Client) Ping(ctx context.Context) (ServerInfo, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodPing, &emptypb.Empty{}, out); err != nil {
		return ServerInfo{}, fromStatus(err, nil)
	}
	fields := out.GetFields()
	return ServerInfo{
		Version:       fields["version"].GetStringValue(),
		IdleRemaining: time.Duration(fields["idle_remaining_seconds"].GetNumberValue() * float64(time.Second)),
	}, nil
}

// Snapshot fetches a snapshot and verifies it against d.
func (c *Client) Snapshot(ctx context.Context, d digest.Digest) (*domain.Snapshot, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, methodGetSnapshot, wrapperspb.String(d.String()), out); err != nil {
		return nil, fromStatus(err, domain.ErrSnapshotNotFound)
	}
	return domain.DecodeSnapshot(out.GetValue(), d)
}

// Channel resolves a channel reference on the server.
func (c *Client) Channel(ctx context.Context, ref domain.SnapshotRef) (domain.Channel, error) {
	if ref.IsDigest() {
		return domain.Channel{}, zerr.With(domain.ErrInvalidSnapshotRef, "ref", ref.String())
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodGetChannel, wrapperspb.String(ref.String()), out); err != nil {
		return domain.Channel{}, fromStatus(err, domain.ErrChannelNotFound)
	}
	return channelFromStruct(out)
}

// Channels lists the newest version of every channel on the server.
func (c *Client) Channels(ctx context.Context) ([]domain.Channel, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, methodListChannels, &emptypb.Empty{}, out); err != nil {
		return nil, fromStatus(err, nil)
	}

	channels := make([]domain.Channel, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		ch, err := channelFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// fromStatus maps gRPC status codes back to domain errors. NotFound
// becomes notFound unwrapped.
func fromStatus(err error, notFound error) error {
	st, ok := status.FromError(err)
	if !ok {
		return zerr.Wrap(err, domain.ErrRemoteUnavailable.Error())
	}
	switch st.Code() {
	case codes.NotFound:
		if notFound != nil {
			return notFound
		}
	case codes.InvalidArgument:
		return zerr.With(domain.ErrInvalidSnapshotRef, "detail", st.Message())
	case codes.DataLoss:
		return zerr.With(domain.ErrDigestMismatch, "detail", st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return zerr.With(zerr.Wrap(err, domain.ErrRemoteUnavailable.Error()), "code", st.Code().String())
	}
	return zerr.With(zerr.New(st.Message()), "code", st.Code().String())
}
