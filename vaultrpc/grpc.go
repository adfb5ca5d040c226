package vaultrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "creditvault.v1.Vault"

// Method names. Every request and reply is a google.protobuf.Struct, so the
// service needs no generated code.
const (
	MethodContribute        = "Contribute"
	MethodContributeFor     = "ContributeFor"
	MethodCommit            = "Commit"
	MethodRemit             = "Remit"
	MethodRequestRescission = "RequestRescission"
	MethodCustody           = "Custody"
	MethodCharterFund       = "CharterFund"
	MethodSetMarshal        = "SetMarshal"
	MethodSetFreeze         = "SetFreeze"
	MethodMarshalFrozen     = "MarshalFrozen"
	MethodUpgrade           = "Upgrade"
)

// VaultServer is the server API for the Vault service.
type VaultServer interface {
	Contribute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ContributeFor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Commit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Remit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestRescission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Custody(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CharterFund(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetMarshal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetFreeze(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarshalFrozen(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Upgrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedVaultServer can be embedded to have forward compatible implementations.
type UnimplementedVaultServer struct{}

func unimplemented(method string) error {
	return status.Error(codes.Unimplemented, "method "+method+" not implemented")
}

func (UnimplementedVaultServer) Contribute(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodContribute)
}
func (UnimplementedVaultServer) ContributeFor(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodContributeFor)
}
func (UnimplementedVaultServer) Commit(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodCommit)
}
func (UnimplementedVaultServer) Remit(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRemit)
}
func (UnimplementedVaultServer) RequestRescission(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodRequestRescission)
}
func (UnimplementedVaultServer) Custody(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodCustody)
}
func (UnimplementedVaultServer) CharterFund(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodCharterFund)
}
func (UnimplementedVaultServer) SetMarshal(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSetMarshal)
}
func (UnimplementedVaultServer) SetFreeze(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodSetFreeze)
}
func (UnimplementedVaultServer) MarshalFrozen(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodMarshalFrozen)
}
func (UnimplementedVaultServer) Upgrade(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, unimplemented(MethodUpgrade)
}

// RegisterVaultServer registers the Vault service on a gRPC server.
func RegisterVaultServer(s grpc.ServiceRegistrar, srv VaultServer) {
	s.RegisterService(&Vault_ServiceDesc, srv)
}

// VaultClient is the raw client API for the Vault service.
type VaultClient interface {
	Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type vaultClient struct{ cc grpc.ClientConnInterface }

func NewVaultClient(cc grpc.ClientConnInterface) VaultClient { return &vaultClient{cc: cc} }

func (c *vaultClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type vaultMethod func(VaultServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(method string, call vaultMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(VaultServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			h := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(VaultServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, h)
		},
	}
}

// Vault_ServiceDesc is the grpc.ServiceDesc for the Vault service.
var Vault_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VaultServer)(nil),
	Methods: []grpc.MethodDesc{
		handler(MethodContribute, VaultServer.Contribute),
		handler(MethodContributeFor, VaultServer.ContributeFor),
		handler(MethodCommit, VaultServer.Commit),
		handler(MethodRemit, VaultServer.Remit),
		handler(MethodRequestRescission, VaultServer.RequestRescission),
		handler(MethodCustody, VaultServer.Custody),
		handler(MethodCharterFund, VaultServer.CharterFund),
		handler(MethodSetMarshal, VaultServer.SetMarshal),
		handler(MethodSetFreeze, VaultServer.SetFreeze),
		handler(MethodMarshalFrozen, VaultServer.MarshalFrozen),
		handler(MethodUpgrade, VaultServer.Upgrade),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "creditvault/v1/vault.proto",
}
