package rpcpb

import (
	context "context"

	grpc "google.golang.org/grpc"
)

// ConnRPCClient is the client API for the ConnRPC service, matching what
// protoc-gen-go-grpc would emit for a single bidirectional-streaming
// "Exchange" method over Envelope.
type ConnRPCClient interface {
	Exchange(ctx context.Context, opts ...grpc.CallOption) (ConnRPC_ExchangeClient, error)
}

type connRPCClient struct {
	cc grpc.ClientConnInterface
}

// NewConnRPCClient wraps cc with the ConnRPC client stub.
func NewConnRPCClient(cc grpc.ClientConnInterface) ConnRPCClient {
	return &connRPCClient{cc}
}

func (c *connRPCClient) Exchange(ctx context.Context, opts ...grpc.CallOption) (ConnRPC_ExchangeClient, error) {
	stream, err := c.cc.NewStream(ctx, &connRPCServiceDesc.Streams[0], "/connrpc.ConnRPC/Exchange", opts...)
	if err != nil {
		return nil, err
	}
	return &connRPCExchangeClient{stream}, nil
}

// ConnRPC_ExchangeClient is the client side of the Exchange bidi stream.
type ConnRPC_ExchangeClient interface {
	Send(*Envelope) error
	Recv() (*Envelope, error)
	grpc.ClientStream
}

type connRPCExchangeClient struct {
	grpc.ClientStream
}

func (x *connRPCExchangeClient) Send(m *Envelope) error {
	return x.ClientStream.SendMsg(m)
}

func (x *connRPCExchangeClient) Recv() (*Envelope, error) {
	m := new(Envelope)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ConnRPCServer is the server API for the ConnRPC service.
type ConnRPCServer interface {
	Exchange(ConnRPC_ExchangeServer) error
}

// ConnRPC_ExchangeServer is the server side of the Exchange bidi stream.
type ConnRPC_ExchangeServer interface {
	Send(*Envelope) error
	Recv() (*Envelope, error)
	grpc.ServerStream
}

type connRPCExchangeServer struct {
	grpc.ServerStream
}

func (x *connRPCExchangeServer) Send(m *Envelope) error {
	return x.ServerStream.SendMsg(m)
}

func (x *connRPCExchangeServer) Recv() (*Envelope, error) {
	m := new(Envelope)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func connRPCExchangeHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(ConnRPCServer).Exchange(&connRPCExchangeServer{stream})
}

var connRPCServiceDesc = grpc.ServiceDesc{
	ServiceName: "connrpc.ConnRPC",
	HandlerType: (*ConnRPCServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Exchange",
			Handler:       connRPCExchangeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "connrpc.proto",
}

// RegisterConnRPCServer registers srv as the ConnRPC handler on s.
func RegisterConnRPCServer(s grpc.ServiceRegistrar, srv ConnRPCServer) {
	s.RegisterService(&connRPCServiceDesc, srv)
}
