package triton

import (
	"context"
	"testing"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

func TestSchemaLoaded(t *testing.T) {
	require.NotNil(t, File())
	for _, name := range []string{
		MethodServerLive, MethodServerReady, MethodModelReady, MethodServerMetadata,
		MethodModelMetadata, MethodModelInfer, MethodModelConfig, MethodModelStatistics,
		MethodRepositoryIndex, MethodRepositoryModelLoad, MethodRepositoryModelUnload,
		MethodSystemSharedMemoryStatus, MethodSystemSharedMemoryRegister,
		MethodSystemSharedMemoryUnregister, MethodCudaSharedMemoryStatus,
		MethodCudaSharedMemoryRegister, MethodCudaSharedMemoryUnregister,
	} {
		assert.NotNil(t, Method(name), name)
	}
	assert.Equal(t, "/inference.GRPCInferenceService/ModelInfer", FullMethod(MethodModelInfer))
	assert.Panics(t, func() { NewMessage("NoSuchMessage") })
}

func TestModelInferRequest_WireFields(t *testing.T) {
	req := NewMessage(ModelInferRequest)
	SetString(req, "model_name", "m")
	b, err := proto.Marshal(req)
	require.NoError(t, err)
	// field 1, length-delimited
	assert.Equal(t, []byte{0x0a, 0x01, 'm'}, b)

	req = NewMessage(ModelInferRequest)
	AppendBytes(req, "raw_input_contents", []byte{1})
	b, err = proto.Marshal(req)
	require.NoError(t, err)
	// field 7, length-delimited
	assert.Equal(t, []byte{0x3a, 0x01, 0x01}, b)
}

func TestParameters_RoundTrip(t *testing.T) {
	params := tensor.Parameters{
		"priority": tensor.Int64Param(3),
		"sequence": tensor.BoolParam(true),
		"tag":      tensor.StringParam("x"),
	}
	req := NewMessage(ModelInferRequest)
	SetParameters(req, "parameters", params)

	b, err := proto.Marshal(req)
	require.NoError(t, err)
	decoded := NewMessage(ModelInferRequest)
	require.NoError(t, proto.Unmarshal(b, decoded))

	assert.Equal(t, params, GetParameters(decoded, "parameters"))
}

func TestContents_RoundTrip(t *testing.T) {
	out := NewMessage(ModelInferResponseOutputTensor)
	SetContents(out, codec.Contents{Int: []int32{1, -2}, Bytes: [][]byte{[]byte("a")}})

	got := GetContents(out)
	assert.Equal(t, []int32{1, -2}, got.Int)
	assert.Equal(t, [][]byte{[]byte("a")}, got.Bytes)
	assert.Empty(t, got.FP32)
}

func TestToJSON(t *testing.T) {
	resp := NewMessage("ServerMetadataResponse")
	SetString(resp, "name", "predator")
	SetStrings(resp, "extensions", []string{"statistics"})

	got, err := ToJSON(resp)
	require.NoError(t, err)
	assert.Equal(t, "predator", got["name"])
	assert.Equal(t, []any{"statistics"}, got["extensions"])
}

type fakeInvoker struct {
	method string
	fill   func(reply *dynamicpb.Message)
}

func (f *fakeInvoker) Invoke(_ context.Context, method string, _ any, reply any, _ ...grpc.CallOption) error {
	f.method = method
	f.fill(reply.(*dynamicpb.Message))
	return nil
}

func TestCall(t *testing.T) {
	inv := &fakeInvoker{fill: func(reply *dynamicpb.Message) { SetBool(reply, "live", true) }}
	resp, err := Call(context.Background(), inv, MethodServerLive, NewRequest(MethodServerLive))
	require.NoError(t, err)
	assert.True(t, GetBool(resp, "live"))
	assert.Equal(t, "/inference.GRPCInferenceService/ServerLive", inv.method)
}

func TestServiceDesc(t *testing.T) {
	desc := ServiceDesc(map[string]Handler{
		MethodModelReady: func(_ context.Context, req *dynamicpb.Message) (proto.Message, error) {
			resp := dynamicpb.NewMessage(Method(MethodModelReady).Output())
			SetBool(resp, "ready", GetString(req, "name") == "simple")
			return resp, nil
		},
	})
	assert.Equal(t, ServiceName, desc.ServiceName)
	assert.Len(t, desc.Methods, 17)

	handlers := map[string]grpc.MethodDesc{}
	for _, m := range desc.Methods {
		handlers[m.MethodName] = m
	}
	dec := func(in any) error {
		SetString(in.(*dynamicpb.Message), "name", "simple")
		return nil
	}

	resp, err := handlers[MethodModelReady].Handler(nil, context.Background(), dec, nil)
	require.NoError(t, err)
	assert.True(t, GetBool(resp.(*dynamicpb.Message), "ready"))

	var intercepted string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		intercepted = info.FullMethod
		return h(ctx, req)
	}
	resp, err = handlers[MethodModelReady].Handler(nil, context.Background(), dec, interceptor)
	require.NoError(t, err)
	assert.True(t, GetBool(resp.(*dynamicpb.Message), "ready"))
	assert.Equal(t, FullMethod(MethodModelReady), intercepted)

	_, err = handlers[MethodServerLive].Handler(nil, context.Background(), func(any) error { return nil }, nil)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
