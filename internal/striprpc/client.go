package striprpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls the service over an established connection. Every call is
// sent with the JSON content subtype.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Begin(ctx context.Context, in *BeginRequest, opts ...grpc.CallOption) (*BeginReply, error) {
	return invoke[BeginReply](ctx, c.cc, MethodBegin, in, opts)
}

func (c *Client) Strip(ctx context.Context, in *StripRequest, opts ...grpc.CallOption) (*StripReply, error) {
	return invoke[StripReply](ctx, c.cc, MethodStrip, in, opts)
}

func (c *Client) Finish(ctx context.Context, in *BuildRef, opts ...grpc.CallOption) (*FinishReply, error) {
	return invoke[FinishReply](ctx, c.cc, MethodFinish, in, opts)
}

func (c *Client) Abandon(ctx context.Context, in *BuildRef, opts ...grpc.CallOption) (*AbandonReply, error) {
	return invoke[AbandonReply](ctx, c.cc, MethodAbandon, in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
