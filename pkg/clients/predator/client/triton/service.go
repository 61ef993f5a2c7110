package triton

import (
	"context"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	MethodServerLive                   = "ServerLive"
	MethodServerReady                  = "ServerReady"
	MethodModelReady                   = "ModelReady"
	MethodServerMetadata               = "ServerMetadata"
	MethodModelMetadata                = "ModelMetadata"
	MethodModelInfer                   = "ModelInfer"
	MethodModelConfig                  = "ModelConfig"
	MethodModelStatistics              = "ModelStatistics"
	MethodRepositoryIndex              = "RepositoryIndex"
	MethodRepositoryModelLoad          = "RepositoryModelLoad"
	MethodRepositoryModelUnload        = "RepositoryModelUnload"
	MethodSystemSharedMemoryStatus     = "SystemSharedMemoryStatus"
	MethodSystemSharedMemoryRegister   = "SystemSharedMemoryRegister"
	MethodSystemSharedMemoryUnregister = "SystemSharedMemoryUnregister"
	MethodCudaSharedMemoryStatus       = "CudaSharedMemoryStatus"
	MethodCudaSharedMemoryRegister     = "CudaSharedMemoryRegister"
	MethodCudaSharedMemoryUnregister   = "CudaSharedMemoryUnregister"
)

// Invoker is the unary half of grpc.ClientConnInterface.
type Invoker interface {
	Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error
}

// NewRequest returns an empty request message for a service method.
func NewRequest(method string) *dynamicpb.Message {
	return dynamicpb.NewMessage(mustMethod(method).Input())
}

// Call runs one unary RPC and returns the response message.
func Call(ctx context.Context, cc Invoker, method string, req proto.Message, opts ...grpc.CallOption) (*dynamicpb.Message, error) {
	resp := dynamicpb.NewMessage(mustMethod(method).Output())
	if err := cc.Invoke(ctx, FullMethod(method), req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}

// Handler serves one method. The request is already decoded.
type Handler func(ctx context.Context, req *dynamicpb.Message) (proto.Message, error)

// ServiceDesc builds a service description for grpc.Server.RegisterService. Methods
// without a handler answer Unimplemented.
func ServiceDesc(handlers map[string]Handler) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    protoFileName,
	}
	methods := service.Methods()
	for i := 0; i < methods.Len(); i++ {
		md := methods.Get(i)
		name := string(md.Name())
		h, ok := handlers[name]
		if !ok {
			h = unimplemented(name)
		}
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    unaryHandler(name, h),
		})
	}
	return desc
}

// unaryHandler matches the unexported grpc.MethodDesc handler type.
func unaryHandler(name string, h Handler) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	input := mustMethod(name).Input()
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := dynamicpb.NewMessage(input)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return h(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return h(ctx, req.(*dynamicpb.Message))
		})
	}
}

func unimplemented(name string) Handler {
	return func(context.Context, *dynamicpb.Message) (proto.Message, error) {
		return nil, api.NewGrpcUnimplementedError("method %s not implemented", name)
	}
}

func mustMethod(name string) protoreflect.MethodDescriptor {
	md := Method(name)
	if md == nil {
		panic("triton: unknown method " + name)
	}
	return md
}
