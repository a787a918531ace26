package billingpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const BillingService_CreateBillingAccount_FullMethodName = "/billing.BillingService/CreateBillingAccount"

type BillingServiceClient interface {
	CreateBillingAccount(ctx context.Context, in *BillingRequest, opts ...grpc.CallOption) (*BillingResponse, error)
}

type billingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBillingServiceClient(cc grpc.ClientConnInterface) BillingServiceClient {
	return &billingServiceClient{cc}
}

func (c *billingServiceClient) CreateBillingAccount(ctx context.Context, in *BillingRequest, opts ...grpc.CallOption) (*BillingResponse, error) {
	cOpts := append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(BillingResponse)
	if err := c.cc.Invoke(ctx, BillingService_CreateBillingAccount_FullMethodName, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

type BillingServiceServer interface {
	CreateBillingAccount(context.Context, *BillingRequest) (*BillingResponse, error)
}

// UnimplementedBillingServiceServer can be embedded to stay forward compatible.
type UnimplementedBillingServiceServer struct{}

func (UnimplementedBillingServiceServer) CreateBillingAccount(context.Context, *BillingRequest) (*BillingResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateBillingAccount not implemented")
}

func RegisterBillingServiceServer(s grpc.ServiceRegistrar, srv BillingServiceServer) {
	s.RegisterService(&BillingService_ServiceDesc, srv)
}

func _BillingService_CreateBillingAccount_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BillingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BillingServiceServer).CreateBillingAccount(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: BillingService_CreateBillingAccount_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BillingServiceServer).CreateBillingAccount(ctx, req.(*BillingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var BillingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "billing.BillingService",
	HandlerType: (*BillingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateBillingAccount",
			Handler:    _BillingService_CreateBillingAccount_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/billing.proto",
}
