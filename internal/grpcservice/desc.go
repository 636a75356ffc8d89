package grpcservice

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "recall.v1.History"

// HistoryServer is the server API for the recall.v1.History service.
type HistoryServer interface {
	List(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Search(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Restore(context.Context, *RestoreRequest) (*RestoreResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[WatchEvent]) error
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv HistoryServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*HistoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: unaryHandler("List", HistoryServer.List)},
		{MethodName: "Search", Handler: unaryHandler("Search", HistoryServer.Search)},
		{MethodName: "Restore", Handler: unaryHandler("Restore", HistoryServer.Restore)},
		{MethodName: "Status", Handler: unaryHandler("Status", HistoryServer.Status)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "recall/v1/history",
}

func fullMethod(name string) string { return "/" + serviceName + "/" + name }

func unaryHandler[Req, Res any](name string, call func(HistoryServer, context.Context, *Req) (*Res, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(HistoryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(HistoryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(HistoryServer).Watch(in, &grpc.GenericServerStream[WatchRequest, WatchEvent]{ServerStream: stream})
}
