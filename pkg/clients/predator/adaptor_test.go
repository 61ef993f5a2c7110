package predator

import (
	"testing"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/clients/predator/client/triton"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/inference"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/dynamicpb"
)

func buildRequest(t *testing.T) *inference.InferenceRequest {
	t.Helper()
	in := tensor.NewInferInput("INPUT0", []int64{1, 4}, tensor.Int32)
	require.NoError(t, in.SetData([]int32{1, 2, 3, 4}))
	out := tensor.NewInferOutput("OUTPUT0")
	out.SetBinaryData(true)
	req, err := inference.NewRequestBuilder("simple").
		Version("1").
		RequestID("req-7").
		ParameterValue("priority", 2).
		Input(in).
		Output(out).
		Build()
	require.NoError(t, err)
	return req
}

func TestMapRequestToProto(t *testing.T) {
	msg, err := Adapter{}.MapRequestToProto(buildRequest(t))
	require.NoError(t, err)

	assert.Equal(t, "simple", triton.GetString(msg, "model_name"))
	assert.Equal(t, "1", triton.GetString(msg, "model_version"))
	assert.Equal(t, "req-7", triton.GetString(msg, "id"))
	assert.Equal(t, tensor.Parameters{"priority": tensor.Int64Param(2)}, triton.GetParameters(msg, "parameters"))

	inputs := triton.GetMessages(msg, "inputs")
	require.Len(t, inputs, 1)
	assert.Equal(t, "INPUT0", triton.GetString(inputs[0], "name"))
	assert.Equal(t, "INT32", triton.GetString(inputs[0], "datatype"))
	assert.Equal(t, []int64{1, 4}, triton.GetInt64s(inputs[0], "shape"))
	assert.Equal(t, [][]byte{{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 4, 0, 0, 0}},
		triton.GetBytesList(msg, "raw_input_contents"))

	outputs := triton.GetMessages(msg, "outputs")
	require.Len(t, outputs, 1)
	assert.Equal(t, "OUTPUT0", triton.GetString(outputs[0], "name"))
	assert.Empty(t, triton.GetParameters(outputs[0], "parameters"))
}

func TestMapRequestToProto_OptionalFields(t *testing.T) {
	in := tensor.NewInferInput("INPUT0", nil, tensor.Bytes)
	require.NoError(t, in.SetData([]string{"ab", ""}))
	req, err := inference.NewRequestBuilder("identity").Input(in).Build()
	require.NoError(t, err)

	msg, err := Adapter{}.MapRequestToProto(req)
	require.NoError(t, err)
	assert.Empty(t, triton.GetString(msg, "model_version"))
	assert.Empty(t, triton.GetString(msg, "id"))
	assert.Empty(t, triton.GetMessages(msg, "outputs"))
	assert.Equal(t, []int64{2}, triton.GetInt64s(triton.GetMessages(msg, "inputs")[0], "shape"))
	assert.Equal(t, [][]byte{{2, 0, 0, 0, 'a', 'b', 0, 0, 0, 0}}, triton.GetBytesList(msg, "raw_input_contents"))
}

func TestMapRequestToJSON(t *testing.T) {
	body, err := Adapter{}.MapRequestToJSON(buildRequest(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "req-7",
		"parameters": {"priority": 2},
		"inputs": [{"name": "INPUT0", "datatype": "INT32", "shape": [1, 4], "parameters": {}, "data": [1, 2, 3, 4]}],
		"outputs": [{"name": "OUTPUT0", "parameters": {"binary_data": true}}]
	}`, string(body))
}

func inferResponse(outputs ...string) *dynamicpb.Message {
	resp := triton.NewMessage(triton.ModelInferResponse)
	triton.SetString(resp, "model_name", "simple")
	triton.SetString(resp, "model_version", "1")
	triton.SetString(resp, "id", "req-7")
	for _, name := range outputs {
		out := triton.AppendMessage(resp, "outputs")
		triton.SetString(out, "name", name)
		triton.SetString(out, "datatype", "INT32")
		triton.SetInt64s(out, "shape", []int64{2})
	}
	return resp
}

func TestMapProtoToResult_Raw(t *testing.T) {
	resp := inferResponse("OUTPUT0", "OUTPUT1")
	triton.AppendBytes(resp, "raw_output_contents", []byte{1, 0, 0, 0, 2, 0, 0, 0})
	triton.AppendBytes(resp, "raw_output_contents", []byte{3, 0, 0, 0, 4, 0, 0, 0})

	result, err := Adapter{}.MapProtoToResult(resp)
	require.NoError(t, err)
	assert.Equal(t, "simple", result.ModelName())
	assert.Equal(t, "req-7", result.ID())
	assert.Equal(t, []string{"OUTPUT0", "OUTPUT1"}, result.OutputNames())

	arr, found, err := result.AsArray("OUTPUT1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int32{3, 4}, arr.Raw())

	j, err := result.ResponseJSON()
	require.NoError(t, err)
	assert.Equal(t, "simple", j["modelName"])
}

func TestMapProtoToResult_Contents(t *testing.T) {
	resp := inferResponse("OUTPUT0")
	triton.SetContents(triton.GetMessages(resp, "outputs")[0], codec.Contents{Int: []int32{5, 6}})

	result, err := Adapter{}.MapProtoToResult(resp)
	require.NoError(t, err)
	arr, found, err := result.AsArray("OUTPUT0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int32{5, 6}, arr.Raw())
}

func TestMapProtoToResult_RawCountMismatch(t *testing.T) {
	resp := inferResponse("OUTPUT0", "OUTPUT1")
	triton.AppendBytes(resp, "raw_output_contents", []byte{1, 0, 0, 0, 2, 0, 0, 0})

	_, err := Adapter{}.MapProtoToResult(resp)
	e, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, e.Code)
}

func TestMapJSONToResult(t *testing.T) {
	body := []byte(`{"model_name":"simple","model_version":"1","id":"req-7","parameters":{"priority":2},
		"outputs":[{"name":"OUTPUT0","datatype":"INT64","shape":[2],"data":[9007199254740993,-1]}]}`)
	result, err := Adapter{}.MapJSONToResult(body)
	require.NoError(t, err)
	assert.Equal(t, "1", result.ModelVersion())
	assert.Equal(t, tensor.Int64Param(2), result.Parameters()["priority"])

	arr, found, err := result.AsArray("OUTPUT0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int64{9007199254740993, -1}, arr.Raw())

	_, err = Adapter{}.MapJSONToResult([]byte("not json"))
	e, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, e.Code)
}
