// Package client dials the platform runtime's SDK socket and performs
// dynamic gRPC calls against descriptors synthesized at runtime, so apps
// never need generated stubs.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

var (
	// ErrClosed is returned by calls on a closed client.
	ErrClosed = errors.New("client closed")
)

// requestIDKey is the metadata key carrying the per-call request id.
const requestIDKey = "porcini-request-id"

// Client is a connection to the platform runtime.
type Client struct {
	conn           *grpc.ClientConn
	requestTimeout time.Duration
	closed         bool
}

// Options configures a Client.
type Options struct {
	// RequestTimeout bounds each unary call. Zero means no deadline.
	RequestTimeout time.Duration
}

// Dial connects to the runtime at target, typically a unix socket URI. The
// SDK socket is local, so transport credentials are plaintext.
func Dial(target string, opts Options, dialOpts ...grpc.DialOption) (*Client, error) {
	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, dialOpts...)
	conn, err := grpc.NewClient(target, all...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: conn, requestTimeout: opts.RequestTimeout}, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

// fullMethod builds the wire-level method path for a descriptor.
func fullMethod(md protoreflect.MethodDescriptor) string {
	return fmt.Sprintf("/%s/%s", md.Parent().FullName(), md.Name())
}

// Invoke performs a unary call described by md. The request message must be
// an instance of md's input type; the response is a fresh dynamic message of
// md's output type. Every call carries a unique request id in its metadata.
func (c *Client) Invoke(ctx context.Context, md protoreflect.MethodDescriptor, req *dynamicpb.Message) (*dynamicpb.Message, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx, requestIDKey, uuid.NewString())

	resp := dynamicpb.NewMessage(md.Output())
	if err := c.conn.Invoke(ctx, fullMethod(md), req, resp); err != nil {
		return nil, fmt.Errorf("invoke %s: %w", fullMethod(md), err)
	}
	return resp, nil
}

// Stream opens a server-streaming call described by md and sends the request.
// The stream stays open until the server finishes or ctx is cancelled; no
// per-request timeout applies.
func (c *Client) Stream(ctx context.Context, md protoreflect.MethodDescriptor, req *dynamicpb.Message) (*Stream, error) {
	if c.closed {
		return nil, ErrClosed
	}
	ctx = metadata.AppendToOutgoingContext(ctx, requestIDKey, uuid.NewString())

	desc := &grpc.StreamDesc{
		StreamName:    string(md.Name()),
		ServerStreams: md.IsStreamingServer(),
		ClientStreams: md.IsStreamingClient(),
	}
	raw, err := c.conn.NewStream(ctx, desc, fullMethod(md))
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", fullMethod(md), err)
	}
	if err := raw.SendMsg(req); err != nil {
		return nil, fmt.Errorf("send on %s: %w", fullMethod(md), err)
	}
	if err := raw.CloseSend(); err != nil {
		return nil, fmt.Errorf("close send on %s: %w", fullMethod(md), err)
	}
	return &Stream{raw: raw, md: md}, nil
}

// Stream is one live server-streaming call.
type Stream struct {
	raw grpc.ClientStream
	md  protoreflect.MethodDescriptor
}

// Recv returns the next message, or io.EOF when the server is done.
func (s *Stream) Recv() (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(s.md.Output())
	if err := s.raw.RecvMsg(msg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("recv on %s: %w", fullMethod(s.md), err)
	}
	return msg, nil
}
