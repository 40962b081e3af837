package grpc

import (
	"context"

	"google.golang.org/grpc"

	"ensname/internal/domain"
	"ensname/internal/names"
	"ensname/internal/registry"
)

const serviceName = "ensname.v1.NameService"

type NamehashRequest struct {
	Name string `json:"name" validate:"max=255"`
}

type NamehashResponse struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
	Node   string   `json:"node"`
}

type LabelHashRequest struct {
	Label string `json:"label" validate:"max=255"`
}

type LabelHashResponse struct {
	Label string `json:"label"`
	Hash  string `json:"hash"`
}

// ValidateRequest keeps Label untyped so that non-string input reaches the
// validator instead of failing decoding.
type ValidateRequest struct {
	Label any `json:"label"`
}

type ValidateResponse = domain.ValidationResult

type PreflightRequest struct {
	Label string `json:"label" validate:"max=255"`
}

type PreflightResponse = names.Preflight

type LookupRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type LookupResponse = registry.Record

type ReverseRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type ReverseResponse struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// BuildTxRequest asks for an unsigned record update. Resolver may be left
// empty for set-addr and set-text when the server has a registry.
type BuildTxRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=set-resolver set-addr set-text"`
	Name     string `json:"name" validate:"required,max=255"`
	Resolver string `json:"resolver,omitempty" validate:"omitempty,eth_addr"`
	Address  string `json:"address,omitempty" validate:"omitempty,eth_addr"`
	Key      string `json:"key,omitempty" validate:"max=255"`
	Value    string `json:"value,omitempty"`
}

type BuildTxResponse = names.TxResult

// NameServiceServer is the server API of ensname.v1.NameService.
type NameServiceServer interface {
	Namehash(context.Context, *NamehashRequest) (*NamehashResponse, error)
	LabelHash(context.Context, *LabelHashRequest) (*LabelHashResponse, error)
	Validate(context.Context, *ValidateRequest) (*ValidateResponse, error)
	Preflight(context.Context, *PreflightRequest) (*PreflightResponse, error)
	Lookup(context.Context, *LookupRequest) (*LookupResponse, error)
	Reverse(context.Context, *ReverseRequest) (*ReverseResponse, error)
	BuildTx(context.Context, *BuildTxRequest) (*BuildTxResponse, error)
}

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler[Req, Resp any](method string, call func(NameServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NameServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NameServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// NameServiceDesc describes ensname.v1.NameService for grpc.Server.
var NameServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*NameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Namehash", Handler: unaryHandler("Namehash", NameServiceServer.Namehash)},
		{MethodName: "LabelHash", Handler: unaryHandler("LabelHash", NameServiceServer.LabelHash)},
		{MethodName: "Validate", Handler: unaryHandler("Validate", NameServiceServer.Validate)},
		{MethodName: "Preflight", Handler: unaryHandler("Preflight", NameServiceServer.Preflight)},
		{MethodName: "Lookup", Handler: unaryHandler("Lookup", NameServiceServer.Lookup)},
		{MethodName: "Reverse", Handler: unaryHandler("Reverse", NameServiceServer.Reverse)},
		{MethodName: "BuildTx", Handler: unaryHandler("BuildTx", NameServiceServer.BuildTx)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ensname/v1/names",
}

func RegisterNameServiceServer(s grpc.ServiceRegistrar, srv NameServiceServer) {
	s.RegisterService(&NameServiceDesc, srv)
}

// NameServiceClient calls NameService over a connection using the JSON codec.
type NameServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewNameServiceClient(cc grpc.ClientConnInterface) *NameServiceClient {
	return &NameServiceClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NameServiceClient) Namehash(ctx context.Context, in *NamehashRequest, opts ...grpc.CallOption) (*NamehashResponse, error) {
	return invoke[NamehashRequest, NamehashResponse](ctx, c.cc, "Namehash", in, opts)
}

func (c *NameServiceClient) LabelHash(ctx context.Context, in *LabelHashRequest, opts ...grpc.CallOption) (*LabelHashResponse, error) {
	return invoke[LabelHashRequest, LabelHashResponse](ctx, c.cc, "LabelHash", in, opts)
}

func (c *NameServiceClient) Validate(ctx context.Context, in *ValidateRequest, opts ...grpc.CallOption) (*ValidateResponse, error) {
	return invoke[ValidateRequest, ValidateResponse](ctx, c.cc, "Validate", in, opts)
}

func (c *NameServiceClient) Preflight(ctx context.Context, in *PreflightRequest, opts ...grpc.CallOption) (*PreflightResponse, error) {
	return invoke[PreflightRequest, PreflightResponse](ctx, c.cc, "Preflight", in, opts)
}

func (c *NameServiceClient) Lookup(ctx context.Context, in *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	return invoke[LookupRequest, LookupResponse](ctx, c.cc, "Lookup", in, opts)
}

func (c *NameServiceClient) Reverse(ctx context.Context, in *ReverseRequest, opts ...grpc.CallOption) (*ReverseResponse, error) {
	return invoke[ReverseRequest, ReverseResponse](ctx, c.cc, "Reverse", in, opts)
}

func (c *NameServiceClient) BuildTx(ctx context.Context, in *BuildTxRequest, opts ...grpc.CallOption) (*BuildTxResponse, error) {
	return invoke[BuildTxRequest, BuildTxResponse](ctx, c.cc, "BuildTx", in, opts)
}
