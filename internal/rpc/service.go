// Package rpc defines the gRPC contract between the master and worker nodes.
//
// The service is registered by hand and carries protobuf well-known Struct
// messages, so no generated code is needed on either side.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName     = "nmt.v1.Translator"
	TranslateMethod = "/nmt.v1.Translator/Translate"
)

// TranslatorServer is the server API for the Translator service.
type TranslatorServer interface {
	// Translate decodes an encoded task and replies with encoded histories.
	Translate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedTranslatorServer can be embedded for forward compatibility.
type UnimplementedTranslatorServer struct{}

func (UnimplementedTranslatorServer) Translate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Translate not implemented")
}

// TranslatorClient is the client API for the Translator service.
type TranslatorClient interface {
	Translate(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type translatorClient struct {
	cc grpc.ClientConnInterface
}

// NewTranslatorClient creates a client on top of cc.
func NewTranslatorClient(cc grpc.ClientConnInterface) TranslatorClient {
	return &translatorClient{cc: cc}
}

func (c *translatorClient) Translate(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TranslateMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RegisterTranslatorServer registers srv on s.
func RegisterTranslatorServer(s grpc.ServiceRegistrar, srv TranslatorServer) {
	s.RegisterService(&TranslatorServiceDesc, srv)
}

func translateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslatorServer).Translate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TranslateMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TranslatorServer).Translate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// TranslatorServiceDesc describes the Translator service for grpc.Server.
var TranslatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranslatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Translate",
			Handler:    translateHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "nmt/v1/translator",
}
