package dummyserver

import (
	"context"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/clients/predator/client/triton"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// NewGRPCServer returns a grpc.Server with the inference service registered.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(GRPCRecovery, GRPCLogger))
	g := grpc.NewServer(opts...)
	g.RegisterService(triton.ServiceDesc(s.handlers()), nil)
	return g
}

func (s *Server) handlers() map[string]triton.Handler {
	return map[string]triton.Handler{
		triton.MethodServerLive:                   s.serverLive,
		triton.MethodServerReady:                  s.serverReady,
		triton.MethodModelReady:                   s.modelReady,
		triton.MethodServerMetadata:               s.serverMetadata,
		triton.MethodModelMetadata:                s.modelMetadata,
		triton.MethodModelInfer:                   s.modelInfer,
		triton.MethodModelConfig:                  s.modelConfig,
		triton.MethodModelStatistics:              s.modelStatistics,
		triton.MethodRepositoryIndex:              s.repositoryIndex,
		triton.MethodRepositoryModelLoad:          s.repositoryModelLoad,
		triton.MethodRepositoryModelUnload:        s.repositoryModelUnload,
		triton.MethodSystemSharedMemoryStatus:     s.systemSharedMemoryStatus,
		triton.MethodSystemSharedMemoryRegister:   s.systemSharedMemoryRegister,
		triton.MethodSystemSharedMemoryUnregister: s.systemSharedMemoryUnregister,
		triton.MethodCudaSharedMemoryStatus:       s.cudaSharedMemoryStatus,
		triton.MethodCudaSharedMemoryRegister:     s.cudaSharedMemoryRegister,
		triton.MethodCudaSharedMemoryUnregister:   s.cudaSharedMemoryUnregister,
	}
}

func response(method string) *dynamicpb.Message {
	return dynamicpb.NewMessage(triton.Method(method).Output())
}

func (s *Server) serverLive(context.Context, *dynamicpb.Message) (proto.Message, error) {
	resp := response(triton.MethodServerLive)
	triton.SetBool(resp, "live", true)
	return resp, nil
}

func (s *Server) serverReady(context.Context, *dynamicpb.Message) (proto.Message, error) {
	resp := response(triton.MethodServerReady)
	triton.SetBool(resp, "ready", true)
	return resp, nil
}

func (s *Server) modelReady(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	resp := response(triton.MethodModelReady)
	triton.SetBool(resp, "ready", s.isModelReady(triton.GetString(req, "name"), triton.GetString(req, "version")))
	return resp, nil
}

func (s *Server) serverMetadata(context.Context, *dynamicpb.Message) (proto.Message, error) {
	resp := response(triton.MethodServerMetadata)
	triton.SetString(resp, "name", serverName)
	triton.SetString(resp, "version", serverVersion)
	triton.SetStrings(resp, "extensions", extensions)
	return resp, nil
}

func (s *Server) modelMetadata(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	m, err := s.model(triton.GetString(req, "name"), triton.GetString(req, "version"))
	if err != nil {
		return nil, err
	}
	resp := response(triton.MethodModelMetadata)
	triton.SetString(resp, "name", m.Name)
	triton.SetStrings(resp, "versions", []string{modelVersion})
	triton.SetString(resp, "platform", platform)
	for _, in := range m.Inputs {
		setTensorMeta(triton.AppendMessage(resp, "inputs"), in)
	}
	for _, out := range m.Outputs {
		setTensorMeta(triton.AppendMessage(resp, "outputs"), out)
	}
	return resp, nil
}

func setTensorMeta(msg protoreflect.Message, meta TensorMeta) {
	triton.SetString(msg, "name", meta.Name)
	triton.SetString(msg, "datatype", meta.Datatype.String())
	triton.SetInt64s(msg, "shape", meta.Shape)
}

func (s *Server) modelConfig(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	m, err := s.model(triton.GetString(req, "name"), triton.GetString(req, "version"))
	if err != nil {
		return nil, err
	}
	resp := response(triton.MethodModelConfig)
	config := triton.MutableMessage(resp, "config")
	triton.SetString(config, "name", m.Name)
	triton.SetString(config, "platform", platform)
	triton.SetString(config, "backend", platform)
	for _, in := range m.Inputs {
		msg := triton.AppendMessage(config, "input")
		triton.SetString(msg, "name", in.Name)
		triton.SetEnum(msg, "data_type", configDatatype(in.Datatype))
		triton.SetInt64s(msg, "dims", in.Shape)
	}
	for _, out := range m.Outputs {
		msg := triton.AppendMessage(config, "output")
		triton.SetString(msg, "name", out.Name)
		triton.SetEnum(msg, "data_type", configDatatype(out.Datatype))
		triton.SetInt64s(msg, "dims", out.Shape)
	}
	return resp, nil
}

func (s *Server) modelStatistics(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	names, err := s.statsNames(triton.GetString(req, "name"), triton.GetString(req, "version"))
	if err != nil {
		return nil, err
	}
	resp := response(triton.MethodModelStatistics)
	for _, name := range names {
		st := s.statsOf(name)
		msg := triton.AppendMessage(resp, "model_stats")
		triton.SetString(msg, "name", name)
		triton.SetString(msg, "version", modelVersion)
		triton.SetUint64(msg, "last_inference", st.lastInference)
		triton.SetUint64(msg, "inference_count", st.inferenceCount)
		triton.SetUint64(msg, "execution_count", st.executionCount)
		infer := triton.MutableMessage(msg, "inference_stats")
		success := triton.MutableMessage(infer, "success")
		triton.SetUint64(success, "count", st.successCount)
		triton.SetUint64(success, "ns", st.successNs)
		fail := triton.MutableMessage(infer, "fail")
		triton.SetUint64(fail, "count", st.failCount)
		triton.SetUint64(fail, "ns", st.failNs)
	}
	return resp, nil
}

func (s *Server) repositoryIndex(context.Context, *dynamicpb.Message) (proto.Message, error) {
	resp := response(triton.MethodRepositoryIndex)
	for _, e := range s.index() {
		msg := triton.AppendMessage(resp, "models")
		triton.SetString(msg, "name", e.name)
		triton.SetString(msg, "version", modelVersion)
		triton.SetString(msg, "state", e.state)
	}
	return resp, nil
}

func (s *Server) repositoryModelLoad(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	if err := s.load(triton.GetString(req, "model_name")); err != nil {
		return nil, err
	}
	return response(triton.MethodRepositoryModelLoad), nil
}

func (s *Server) repositoryModelUnload(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	if err := s.unload(triton.GetString(req, "model_name")); err != nil {
		return nil, err
	}
	return response(triton.MethodRepositoryModelUnload), nil
}

// modelInfer decodes inputs from raw_input_contents, or typed contents when the
// request carries none, and answers with raw_output_contents.
func (s *Server) modelInfer(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	name := triton.GetString(req, "model_name")
	version := triton.GetString(req, "model_version")
	inputMsgs := triton.GetMessages(req, "inputs")
	raw := triton.GetBytesList(req, "raw_input_contents")
	if len(raw) > 0 && len(raw) != len(inputMsgs) {
		return nil, api.NewGrpcInvalidArgumentError(
			"expected %d raw input buffers, got %d", len(inputMsgs), len(raw))
	}

	inputs := make([]Tensor, len(inputMsgs))
	for i, msg := range inputMsgs {
		in, err := parseInput(triton.GetString(msg, "name"), triton.GetString(msg, "datatype"), triton.GetInt64s(msg, "shape"))
		if err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			in.Values, err = codec.DecodeRaw(in.Datatype, raw[i])
		} else {
			in.Values, err = codec.DecodeContents(in.Datatype, triton.GetContents(msg))
		}
		if err != nil {
			return nil, api.NewGrpcInvalidArgumentError("input '%s': %v", in.Name, err)
		}
		inputs[i] = in
	}
	var requested []string
	for _, out := range triton.GetMessages(req, "outputs") {
		requested = append(requested, triton.GetString(out, "name"))
	}

	outputs, err := s.infer(name, version, inputs, requested)
	if err != nil {
		return nil, err
	}

	resp := response(triton.MethodModelInfer)
	triton.SetString(resp, "model_name", name)
	triton.SetString(resp, "model_version", modelVersion)
	triton.SetString(resp, "id", triton.GetString(req, "id"))
	if params := triton.GetParameters(req, "parameters"); len(params) > 0 {
		triton.SetParameters(resp, "parameters", params)
	}
	for _, out := range outputs {
		b, err := codec.EncodeRaw(out.Datatype, out.Values)
		if err != nil {
			return nil, api.NewGrpcInternalServerError("output '%s': %v", out.Name, err)
		}
		msg := triton.AppendMessage(resp, "outputs")
		triton.SetString(msg, "name", out.Name)
		triton.SetString(msg, "datatype", out.Datatype.String())
		triton.SetInt64s(msg, "shape", out.Shape)
		triton.AppendBytes(resp, "raw_output_contents", b)
	}
	return resp, nil
}

func (s *Server) systemSharedMemoryStatus(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	regions, err := s.systemStatus(triton.GetString(req, "name"))
	if err != nil {
		return nil, err
	}
	resp := response(triton.MethodSystemSharedMemoryStatus)
	for name, region := range regions {
		msg := triton.PutMapMessage(resp, "regions", name)
		triton.SetString(msg, "name", name)
		triton.SetString(msg, "key", region.key)
		triton.SetUint64(msg, "offset", region.offset)
		triton.SetUint64(msg, "byte_size", region.byteSize)
	}
	return resp, nil
}

func (s *Server) systemSharedMemoryRegister(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	err := s.registerSystem(triton.GetString(req, "name"), systemRegion{
		key:      triton.GetString(req, "key"),
		offset:   triton.GetUint64(req, "offset"),
		byteSize: triton.GetUint64(req, "byte_size"),
	})
	if err != nil {
		return nil, err
	}
	return response(triton.MethodSystemSharedMemoryRegister), nil
}

func (s *Server) systemSharedMemoryUnregister(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	s.unregisterSystem(triton.GetString(req, "name"))
	return response(triton.MethodSystemSharedMemoryUnregister), nil
}

func (s *Server) cudaSharedMemoryStatus(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	regions, err := s.cudaStatus(triton.GetString(req, "name"))
	if err != nil {
		return nil, err
	}
	resp := response(triton.MethodCudaSharedMemoryStatus)
	for name, region := range regions {
		msg := triton.PutMapMessage(resp, "regions", name)
		triton.SetString(msg, "name", name)
		triton.SetUint64(msg, "device_id", uint64(region.deviceID))
		triton.SetUint64(msg, "byte_size", region.byteSize)
	}
	return resp, nil
}

func (s *Server) cudaSharedMemoryRegister(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	name := triton.GetString(req, "name")
	if len(triton.GetBytes(req, "raw_handle")) == 0 {
		return nil, api.NewGrpcInvalidArgumentError("cuda shared memory region '%s' has no raw handle", name)
	}
	err := s.registerCuda(name, cudaRegion{
		deviceID: triton.GetInt64(req, "device_id"),
		byteSize: triton.GetUint64(req, "byte_size"),
	})
	if err != nil {
		return nil, err
	}
	return response(triton.MethodCudaSharedMemoryRegister), nil
}

func (s *Server) cudaSharedMemoryUnregister(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
	s.unregisterCuda(triton.GetString(req, "name"))
	return response(triton.MethodCudaSharedMemoryUnregister), nil
}
