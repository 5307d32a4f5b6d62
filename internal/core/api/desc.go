package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * Wire surface of surveylogic.v1.NavigationAPI.
 *
 * Every request and response is a google.protobuf.Struct carrying the same
 * camelCase JSON documents the survey authoring tools produce, so clients
 * need no generated stubs: any gRPC client that can send a Struct can call
 * the service.
 */

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "surveylogic.v1.NavigationAPI"

// Full method names, as seen by interceptors.
const (
	MethodEvaluateLogic  = "/" + ServiceName + "/EvaluateLogic"
	MethodStartResponse  = "/" + ServiceName + "/StartResponse"
	MethodNavigate       = "/" + ServiceName + "/Navigate"
	MethodSubmitResponse = "/" + ServiceName + "/SubmitResponse"
)

// NavigationAPIServer is the server API for the NavigationAPI service.
type NavigationAPIServer interface {
	EvaluateLogic(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartResponse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Navigate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitResponse(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterNavigationAPIServer registers srv on s.
func RegisterNavigationAPIServer(s grpc.ServiceRegistrar, srv NavigationAPIServer) {
	s.RegisterService(&NavigationAPIServiceDesc, srv)
}

// NavigationAPIServiceDesc is the grpc.ServiceDesc for the NavigationAPI service.
var NavigationAPIServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NavigationAPIServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("EvaluateLogic", MethodEvaluateLogic, NavigationAPIServer.EvaluateLogic),
		unaryMethod("StartResponse", MethodStartResponse, NavigationAPIServer.StartResponse),
		unaryMethod("Navigate", MethodNavigate, NavigationAPIServer.Navigate),
		unaryMethod("SubmitResponse", MethodSubmitResponse, NavigationAPIServer.SubmitResponse),
	},
	Streams: []grpc.StreamDesc{},
}

type unaryCall func(NavigationAPIServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name, fullMethod string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(NavigationAPIServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(NavigationAPIServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// NavigationAPIClient is the client API for the NavigationAPI service.
type NavigationAPIClient struct {
	cc grpc.ClientConnInterface
}

// NewNavigationAPIClient creates a client over cc.
func NewNavigationAPIClient(cc grpc.ClientConnInterface) *NavigationAPIClient {
	return &NavigationAPIClient{cc: cc}
}

func (c *NavigationAPIClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateLogic evaluates a rule list statelessly.
func (c *NavigationAPIClient) EvaluateLogic(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodEvaluateLogic, in, opts...)
}

// StartResponse opens a response for an active survey.
func (c *NavigationAPIClient) StartResponse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodStartResponse, in, opts...)
}

// Navigate records answers and returns the next step.
func (c *NavigationAPIClient) Navigate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodNavigate, in, opts...)
}

// SubmitResponse finalizes a response.
func (c *NavigationAPIClient) SubmitResponse(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSubmitResponse, in, opts...)
}
