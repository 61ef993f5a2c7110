// Package triton holds the GRPCInferenceService wire schema. The service definition is
// embedded and parsed once at start-up; messages are dynamic and go through gRPC's
// default proto codec unchanged.
package triton

import (
	_ "embed"
	"fmt"

	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

//go:embed grpc_service.proto
var grpcServiceProto string

const (
	protoFileName = "grpc_service.proto"
	packageName   = "inference"
	ServiceName   = packageName + ".GRPCInferenceService"
)

// Message names, relative to the inference package.
const (
	ServerLiveRequest                    = "ServerLiveRequest"
	ServerReadyRequest                   = "ServerReadyRequest"
	ModelReadyRequest                    = "ModelReadyRequest"
	ServerMetadataRequest                = "ServerMetadataRequest"
	ModelMetadataRequest                 = "ModelMetadataRequest"
	ModelInferRequest                    = "ModelInferRequest"
	ModelInferResponse                   = "ModelInferResponse"
	ModelConfigRequest                   = "ModelConfigRequest"
	ModelStatisticsRequest               = "ModelStatisticsRequest"
	RepositoryIndexRequest               = "RepositoryIndexRequest"
	RepositoryModelLoadRequest           = "RepositoryModelLoadRequest"
	RepositoryModelUnloadRequest         = "RepositoryModelUnloadRequest"
	SystemSharedMemoryStatusRequest      = "SystemSharedMemoryStatusRequest"
	SystemSharedMemoryRegisterRequest    = "SystemSharedMemoryRegisterRequest"
	SystemSharedMemoryUnregisterRequest  = "SystemSharedMemoryUnregisterRequest"
	CudaSharedMemoryStatusRequest        = "CudaSharedMemoryStatusRequest"
	CudaSharedMemoryRegisterRequest      = "CudaSharedMemoryRegisterRequest"
	CudaSharedMemoryUnregisterRequest    = "CudaSharedMemoryUnregisterRequest"
	InferParameter                       = "InferParameter"
	InferTensorContents                  = "InferTensorContents"
	ModelInferRequestInputTensor         = "ModelInferRequest.InferInputTensor"
	ModelInferRequestRequestedOutput     = "ModelInferRequest.InferRequestedOutputTensor"
	ModelInferResponseOutputTensor       = "ModelInferResponse.InferOutputTensor"
	ModelMetadataResponseTensorMetadata  = "ModelMetadataResponse.TensorMetadata"
	RepositoryIndexResponseModelIndex    = "RepositoryIndexResponse.ModelIndex"
	SystemSharedMemoryStatusRegionStatus = "SystemSharedMemoryStatusResponse.RegionStatus"
	CudaSharedMemoryStatusRegionStatus   = "CudaSharedMemoryStatusResponse.RegionStatus"
)

var (
	file     protoreflect.FileDescriptor
	service  protoreflect.ServiceDescriptor
	messages = make(map[string]protoreflect.MessageDescriptor)
)

func init() {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{protoFileName: grpcServiceProto}),
	}
	fds, err := parser.ParseFiles(protoFileName)
	if err != nil {
		log.Panic().Err(err).Msg("failed to parse the embedded inference service definition")
	}
	file = fds[0].UnwrapFile()
	service = file.Services().ByName("GRPCInferenceService")
	if service == nil {
		log.Panic().Msg("GRPCInferenceService missing from the embedded service definition")
	}
	indexMessages(file.Messages(), "")
}

func indexMessages(list protoreflect.MessageDescriptors, prefix string) {
	for i := 0; i < list.Len(); i++ {
		md := list.Get(i)
		name := prefix + string(md.Name())
		messages[name] = md
		indexMessages(md.Messages(), name+".")
	}
}

// File returns the parsed service definition.
func File() protoreflect.FileDescriptor {
	return file
}

// Descriptor returns the message descriptor for a name such as "ModelInferRequest" or
// "ModelInferRequest.InferInputTensor". Unknown names panic.
func Descriptor(name string) protoreflect.MessageDescriptor {
	md, ok := messages[name]
	if !ok {
		panic(fmt.Sprintf("triton: unknown message %q", name))
	}
	return md
}

// NewMessage returns an empty message of the named type.
func NewMessage(name string) *dynamicpb.Message {
	return dynamicpb.NewMessage(Descriptor(name))
}

// Method returns the descriptor of a service method, nil when the service has none.
func Method(name string) protoreflect.MethodDescriptor {
	return service.Methods().ByName(protoreflect.Name(name))
}

// FullMethod returns the gRPC path of a service method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
