package grpcservice

import (
	"context"

	"google.golang.org/grpc"
)

// Client is a typed client for recall.v1.History.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) List(ctx context.Context, req *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	if err := c.invoke(ctx, "List", req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, req *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	if err := c.invoke(ctx, "Search", req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Restore(ctx context.Context, req *RestoreRequest, opts ...grpc.CallOption) (*RestoreResponse, error) {
	out := new(RestoreResponse)
	if err := c.invoke(ctx, "Restore", req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, req *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.invoke(ctx, "Status", req, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch opens the event stream. Recv returns io.EOF when the server ends
// the stream.
func (c *Client) Watch(ctx context.Context, req *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[WatchEvent], error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &serviceDesc.Streams[0], fullMethod("Watch"), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, WatchEvent]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

// Credentials attaches a bearer token and source name to every call.
type Credentials struct {
	Token  string
	Source string
	// Secure reports whether the credentials require a TLS transport.
	Secure bool
}

func (c *Credentials) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	md := make(map[string]string, 2)
	if c.Token != "" {
		md["authorization"] = "Bearer " + c.Token
	}
	if c.Source != "" {
		md[SourceHeader] = c.Source
	}
	return md, nil
}

func (c *Credentials) RequireTransportSecurity() bool { return c.Secure }
