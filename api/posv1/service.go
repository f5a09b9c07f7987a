// Package posv1 declares the pos.v1.POSService gRPC service. Every method
// takes and returns a google.protobuf.Struct whose field names are snake
// case; the method name selects the operation.
package posv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "pos.v1.POSService"

// Session methods.
const (
	MethodInitializeScope = "InitializeScope"
	MethodSwitchCompany   = "SwitchCompany"
	MethodGetScope        = "GetScope"
	MethodListCompanies   = "ListCompanies"
	MethodCreateCompany   = "CreateCompany"
	MethodSignOut         = "SignOut"
)

// Catalog methods. Requests carry a "kind" of products, services, clients
// or sellers.
const (
	MethodListCatalog       = "ListCatalog"
	MethodGetCatalogItem    = "GetCatalogItem"
	MethodCreateCatalogItem = "CreateCatalogItem"
	MethodUpdateCatalogItem = "UpdateCatalogItem"
	MethodDeleteCatalogItem = "DeleteCatalogItem"
)

// Draft and sale methods.
const (
	MethodCreateDraft     = "CreateDraft"
	MethodGetDraft        = "GetDraft"
	MethodUpdateDraft     = "UpdateDraft"
	MethodDeleteDraft     = "DeleteDraft"
	MethodAddDraftItem    = "AddDraftItem"
	MethodUpdateDraftItem = "UpdateDraftItem"
	MethodRemoveDraftItem = "RemoveDraftItem"
	MethodSubmitDraft     = "SubmitDraft"
	MethodEditSale        = "EditSale"
	MethodListSales       = "ListSales"
	MethodGetSale         = "GetSale"
	MethodDeleteSale      = "DeleteSale"
)

// Methods lists every method of the service.
var Methods = []string{
	MethodInitializeScope, MethodSwitchCompany, MethodGetScope,
	MethodListCompanies, MethodCreateCompany, MethodSignOut,
	MethodListCatalog, MethodGetCatalogItem, MethodCreateCatalogItem,
	MethodUpdateCatalogItem, MethodDeleteCatalogItem,
	MethodCreateDraft, MethodGetDraft, MethodUpdateDraft, MethodDeleteDraft,
	MethodAddDraftItem, MethodUpdateDraftItem, MethodRemoveDraftItem,
	MethodSubmitDraft, MethodEditSale,
	MethodListSales, MethodGetSale, MethodDeleteSale,
}

// FullMethod returns the gRPC method path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// POSServiceServer is the server API for the POS service.
type POSServiceServer interface {
	Call(ctx context.Context, method string, req *structpb.Struct) (*structpb.Struct, error)
}

func RegisterPOSServiceServer(s grpc.ServiceRegistrar, srv POSServiceServer) {
	s.RegisterService(ServiceDesc(), srv)
}

// ServiceDesc describes pos.v1.POSService for grpc.ServiceRegistrar.
func ServiceDesc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*POSServiceServer)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "pos/v1/pos.proto",
	}
	for _, method := range Methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: method,
			Handler:    methodHandler(method),
		})
	}
	return desc
}

func methodHandler(method string) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(POSServiceServer).Call(ctx, method, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return srv.(POSServiceServer).Call(ctx, method, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// POSServiceClient is the client API for the POS service.
type POSServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewPOSServiceClient(cc grpc.ClientConnInterface) *POSServiceClient {
	return &POSServiceClient{cc: cc}
}

// Call invokes method with req.
func (c *POSServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
