package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	codecName          = "json"
	lendingServiceName = "lending.v1.LendingService"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// LendingServer is the gRPC surface of the lending engine. Messages are the
// JSON bodies of the HTTP API carried with the "json" content subtype.
type LendingServer interface {
	Checkout(ctx context.Context, req *CheckoutRequest) (*LoanResponse, error)
	Renew(ctx context.Context, req *RenewRequest) (*LoanResponse, error)
	Return(ctx context.Context, req *ReturnRequest) (*ReturnResponse, error)
	Reserve(ctx context.Context, req *ReserveRequest) (*ReservationResponse, error)
	Inventory(ctx context.Context, req *InventoryRequest) (*InventoryResponse, error)
}

var LendingServiceDesc = grpc.ServiceDesc{
	ServiceName: lendingServiceName,
	HandlerType: (*LendingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Checkout", Handler: unaryHandler("Checkout", LendingServer.Checkout)},
		{MethodName: "Renew", Handler: unaryHandler("Renew", LendingServer.Renew)},
		{MethodName: "Return", Handler: unaryHandler("Return", LendingServer.Return)},
		{MethodName: "Reserve", Handler: unaryHandler("Reserve", LendingServer.Reserve)},
		{MethodName: "Inventory", Handler: unaryHandler("Inventory", LendingServer.Inventory)},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterLendingServer(s grpc.ServiceRegistrar, srv LendingServer) {
	s.RegisterService(&LendingServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + lendingServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(LendingServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LendingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LendingServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LendingClient calls LendingServer over a client connection using the json codec.
type LendingClient struct {
	cc grpc.ClientConnInterface
}

func NewLendingClient(cc grpc.ClientConnInterface) *LendingClient {
	return &LendingClient{cc: cc}
}

func (c *LendingClient) Checkout(ctx context.Context, req *CheckoutRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	return invoke[LoanResponse](ctx, c.cc, "Checkout", req, opts)
}

func (c *LendingClient) Renew(ctx context.Context, req *RenewRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	return invoke[LoanResponse](ctx, c.cc, "Renew", req, opts)
}

func (c *LendingClient) Return(ctx context.Context, req *ReturnRequest, opts ...grpc.CallOption) (*ReturnResponse, error) {
	return invoke[ReturnResponse](ctx, c.cc, "Return", req, opts)
}

func (c *LendingClient) Reserve(ctx context.Context, req *ReserveRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "Reserve", req, opts)
}

func (c *LendingClient) Inventory(ctx context.Context, opts ...grpc.CallOption) (*InventoryResponse, error) {
	return invoke[InventoryResponse](ctx, c.cc, "Inventory", &InventoryRequest{}, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
