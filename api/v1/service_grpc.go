package v1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified name of the manager proxy service.
const ServiceName = "openassetio_grpc_proto.ManagerProxy"

const (
	ManagerProxy_ListIdentifiers_FullMethodName = "/" + ServiceName + "/ListIdentifiers"
	ManagerProxy_Instantiate_FullMethodName     = "/" + ServiceName + "/Instantiate"
	ManagerProxy_Destroy_FullMethodName         = "/" + ServiceName + "/Destroy"
	ManagerProxy_GetIdentifier_FullMethodName   = "/" + ServiceName + "/GetIdentifier"
	ManagerProxy_GetDisplayName_FullMethodName  = "/" + ServiceName + "/GetDisplayName"
	ManagerProxy_GetInfo_FullMethodName         = "/" + ServiceName + "/GetInfo"
	ManagerProxy_GetSettings_FullMethodName     = "/" + ServiceName + "/GetSettings"
	ManagerProxy_Initialize_FullMethodName      = "/" + ServiceName + "/Initialize"
)

// ManagerProxyClient is the client API of the manager proxy service.
type ManagerProxyClient interface {
	ListIdentifiers(ctx context.Context, in *ListIdentifiersRequest, opts ...grpc.CallOption) (*ListIdentifiersResponse, error)
	Instantiate(ctx context.Context, in *InstantiateRequest, opts ...grpc.CallOption) (*InstantiateResponse, error)
	Destroy(ctx context.Context, in *DestroyRequest, opts ...grpc.CallOption) (*DestroyResponse, error)
	GetIdentifier(ctx context.Context, in *GetIdentifierRequest, opts ...grpc.CallOption) (*GetIdentifierResponse, error)
	GetDisplayName(ctx context.Context, in *GetDisplayNameRequest, opts ...grpc.CallOption) (*GetDisplayNameResponse, error)
	GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error)
	GetSettings(ctx context.Context, in *GetSettingsRequest, opts ...grpc.CallOption) (*GetSettingsResponse, error)
	Initialize(ctx context.Context, in *InitializeRequest, opts ...grpc.CallOption) (*InitializeResponse, error)
}

type managerProxyClient struct {
	cc grpc.ClientConnInterface
}

// NewManagerProxyClient creates a client that exchanges JSON messages over cc.
func NewManagerProxyClient(cc grpc.ClientConnInterface) ManagerProxyClient {
	return &managerProxyClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *managerProxyClient) ListIdentifiers(ctx context.Context, in *ListIdentifiersRequest, opts ...grpc.CallOption) (*ListIdentifiersResponse, error) {
	out := new(ListIdentifiersResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_ListIdentifiers_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerProxyClient) Instantiate(ctx context.Context, in *InstantiateRequest, opts ...grpc.CallOption) (*InstantiateResponse, error) {
	out := new(InstantiateResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_Instantiate_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerProxyClient) Destroy(ctx context.Context, in *DestroyRequest, opts ...grpc.CallOption) (*DestroyResponse, error) {
	out := new(DestroyResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_Destroy_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerProxyClient) GetIdentifier(ctx context.Context, in *GetIdentifierRequest, opts ...grpc.CallOption) (*GetIdentifierResponse, error) {
	out := new(GetIdentifierResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_GetIdentifier_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerProxyClient) GetDisplayName(ctx context.Context, in *GetDisplayNameRequest, opts ...grpc.CallOption) (*GetDisplayNameResponse, error) {
	out := new(GetDisplayNameResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_GetDisplayName_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerProxyClient) GetInfo(ctx context.Context, in *GetInfoRequest, opts ...grpc.CallOption) (*GetInfoResponse, error) {
	out := new(GetInfoResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_GetInfo_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerProxyClient) GetSettings(ctx context.Context, in *GetSettingsRequest, opts ...grpc.CallOption) (*GetSettingsResponse, error) {
	out := new(GetSettingsResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_GetSettings_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *managerProxyClient) Initialize(ctx context.Context, in *InitializeRequest, opts ...grpc.CallOption) (*InitializeResponse, error) {
	out := new(InitializeResponse)
	if err := c.cc.Invoke(ctx, ManagerProxy_Initialize_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// ManagerProxyServer is the server API of the manager proxy service.
// Implementations must embed UnimplementedManagerProxyServer.
type ManagerProxyServer interface {
	ListIdentifiers(context.Context, *ListIdentifiersRequest) (*ListIdentifiersResponse, error)
	Instantiate(context.Context, *InstantiateRequest) (*InstantiateResponse, error)
	Destroy(context.Context, *DestroyRequest) (*DestroyResponse, error)
	GetIdentifier(context.Context, *GetIdentifierRequest) (*GetIdentifierResponse, error)
	GetDisplayName(context.Context, *GetDisplayNameRequest) (*GetDisplayNameResponse, error)
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	GetSettings(context.Context, *GetSettingsRequest) (*GetSettingsResponse, error)
	Initialize(context.Context, *InitializeRequest) (*InitializeResponse, error)
	mustEmbedUnimplementedManagerProxyServer()
}

// UnimplementedManagerProxyServer answers every call with codes.Unimplemented.
type UnimplementedManagerProxyServer struct{}

func (UnimplementedManagerProxyServer) ListIdentifiers(context.Context, *ListIdentifiersRequest) (*ListIdentifiersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListIdentifiers not implemented")
}

func (UnimplementedManagerProxyServer) Instantiate(context.Context, *InstantiateRequest) (*InstantiateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Instantiate not implemented")
}

func (UnimplementedManagerProxyServer) Destroy(context.Context, *DestroyRequest) (*DestroyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Destroy not implemented")
}

func (UnimplementedManagerProxyServer) GetIdentifier(context.Context, *GetIdentifierRequest) (*GetIdentifierResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetIdentifier not implemented")
}

func (UnimplementedManagerProxyServer) GetDisplayName(context.Context, *GetDisplayNameRequest) (*GetDisplayNameResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDisplayName not implemented")
}

func (UnimplementedManagerProxyServer) GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetInfo not implemented")
}

func (UnimplementedManagerProxyServer) GetSettings(context.Context, *GetSettingsRequest) (*GetSettingsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSettings not implemented")
}

func (UnimplementedManagerProxyServer) Initialize(context.Context, *InitializeRequest) (*InitializeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Initialize not implemented")
}

func (UnimplementedManagerProxyServer) mustEmbedUnimplementedManagerProxyServer() {}

// RegisterManagerProxyServer registers srv with s.
func RegisterManagerProxyServer(s grpc.ServiceRegistrar, srv ManagerProxyServer) {
	s.RegisterService(&ManagerProxy_ServiceDesc, srv)
}

func _ManagerProxy_ListIdentifiers_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListIdentifiersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).ListIdentifiers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_ListIdentifiers_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).ListIdentifiers(ctx, req.(*ListIdentifiersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ManagerProxy_Instantiate_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InstantiateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).Instantiate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_Instantiate_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).Instantiate(ctx, req.(*InstantiateRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ManagerProxy_Destroy_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DestroyRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).Destroy(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_Destroy_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).Destroy(ctx, req.(*DestroyRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ManagerProxy_GetIdentifier_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetIdentifierRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).GetIdentifier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_GetIdentifier_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).GetIdentifier(ctx, req.(*GetIdentifierRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ManagerProxy_GetDisplayName_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetDisplayNameRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).GetDisplayName(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_GetDisplayName_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).GetDisplayName(ctx, req.(*GetDisplayNameRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ManagerProxy_GetInfo_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).GetInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_GetInfo_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).GetInfo(ctx, req.(*GetInfoRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ManagerProxy_GetSettings_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSettingsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).GetSettings(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_GetSettings_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).GetSettings(ctx, req.(*GetSettingsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ManagerProxy_Initialize_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InitializeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ManagerProxyServer).Initialize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ManagerProxy_Initialize_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ManagerProxyServer).Initialize(ctx, req.(*InitializeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ManagerProxy_ServiceDesc is the grpc.ServiceDesc of the manager proxy service.
var ManagerProxy_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ManagerProxyServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListIdentifiers",
			Handler:    _ManagerProxy_ListIdentifiers_Handler,
		},
		{
			MethodName: "Instantiate",
			Handler:    _ManagerProxy_Instantiate_Handler,
		},
		{
			MethodName: "Destroy",
			Handler:    _ManagerProxy_Destroy_Handler,
		},
		{
			MethodName: "GetIdentifier",
			Handler:    _ManagerProxy_GetIdentifier_Handler,
		},
		{
			MethodName: "GetDisplayName",
			Handler:    _ManagerProxy_GetDisplayName_Handler,
		},
		{
			MethodName: "GetInfo",
			Handler:    _ManagerProxy_GetInfo_Handler,
		},
		{
			MethodName: "GetSettings",
			Handler:    _ManagerProxy_GetSettings_Handler,
		},
		{
			MethodName: "Initialize",
			Handler:    _ManagerProxy_Initialize_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "managerproxy/v1",
}
