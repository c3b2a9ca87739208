package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service and method names of the analytics API
const (
	ServiceName   = "tsinsight.v1.Analytics"
	AnalyzeMethod = "/" + ServiceName + "/Analyze"
)

// AnalyticsServiceServer is the server API for the analytics service.
// Requests and responses are free-form structs; the "operation" field of
// the request selects what runs.
type AnalyticsServiceServer interface {
	Analyze(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterAnalyticsServiceServer registers srv on s
func RegisterAnalyticsServiceServer(s grpc.ServiceRegistrar, srv AnalyticsServiceServer) {
	s.RegisterService(&AnalyticsServiceDesc, srv)
}

func analyzeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AnalyticsServiceServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: AnalyzeMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AnalyticsServiceServer).Analyze(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AnalyticsServiceDesc describes the analytics service
var AnalyticsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyticsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Analyze",
			Handler:    analyzeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tsinsight/v1/analytics.proto",
}

// AnalyticsServiceClient calls the analytics service
type AnalyticsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalyticsServiceClient creates a client over cc
func NewAnalyticsServiceClient(cc grpc.ClientConnInterface) *AnalyticsServiceClient {
	return &AnalyticsServiceClient{cc: cc}
}

// Analyze runs one operation remotely
func (c *AnalyticsServiceClient) Analyze(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, AnalyzeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
