package inference

import (
	"testing"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int32Input(t *testing.T, name string, values []int32) *tensor.InferInput {
	t.Helper()
	in := tensor.NewInferInput(name, []int64{1, int64(len(values))}, tensor.Int32)
	require.NoError(t, in.SetData(values))
	return in
}

func TestBuild(t *testing.T) {
	in := int32Input(t, "INPUT0", []int32{1, 2, 3, 4})
	out := tensor.NewInferOutput("OUTPUT0")

	req, err := NewRequestBuilder("simple").
		Version("1").
		RequestID("req-1").
		Parameter("priority", tensor.Int64Param(2)).
		ParameterValue("tag", "a").
		Input(in).
		Output(out).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "simple", req.ModelName())
	assert.Equal(t, "1", req.ModelVersion())
	assert.Equal(t, "req-1", req.RequestID())
	assert.Equal(t, tensor.Parameters{"priority": tensor.Int64Param(2), "tag": tensor.StringParam("a")}, req.Parameters())
	require.Len(t, req.Inputs(), 1)
	assert.Equal(t, "INPUT0", req.Inputs()[0].Name())
	require.Len(t, req.Outputs(), 1)
	assert.Equal(t, "OUTPUT0", req.Outputs()[0].Name())
}

func TestBuild_SnapshotsDescriptors(t *testing.T) {
	in := int32Input(t, "INPUT0", []int32{1, 2, 3, 4})
	out := tensor.NewInferOutput("OUTPUT0")
	req, err := NewRequestBuilder("simple").Input(in).Output(out).Build()
	require.NoError(t, err)

	require.NoError(t, in.SetData([]int32{9, 9, 9, 9}))
	in.SetShape([]int64{4})
	out.SetBinaryData(true)

	got := req.Inputs()[0]
	assert.Equal(t, []int32{1, 2, 3, 4}, got.Data())
	assert.Equal(t, []int64{1, 4}, got.Shape())
	assert.Empty(t, req.Outputs()[0].Parameters())
}

func TestBuild_ParametersAreCopies(t *testing.T) {
	req, err := NewRequestBuilder("simple").Parameter("a", tensor.BoolParam(true)).Input(int32Input(t, "x", []int32{1})).Build()
	require.NoError(t, err)

	params := req.Parameters()
	params["b"] = tensor.BoolParam(false)
	assert.Len(t, req.Parameters(), 1)
}

func TestBuild_NoOutputsMeansServerDefaults(t *testing.T) {
	req, err := NewRequestBuilder("simple").Input(int32Input(t, "INPUT0", []int32{1})).Build()
	require.NoError(t, err)
	assert.Empty(t, req.Outputs())
	assert.Empty(t, req.ModelVersion())
	assert.Empty(t, req.RequestID())
}

func TestBuild_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		builder func() *RequestBuilder
	}{
		{
			name:    "empty model name",
			builder: func() *RequestBuilder { return NewRequestBuilder("").Input(int32Input(t, "x", []int32{1})) },
		},
		{
			name: "float parameter",
			builder: func() *RequestBuilder {
				return NewRequestBuilder("m").ParameterValue("p", 1.5).Input(int32Input(t, "x", []int32{1}))
			},
		},
		{
			name:    "nil input",
			builder: func() *RequestBuilder { return NewRequestBuilder("m").Input(nil) },
		},
		{
			name: "input without data",
			builder: func() *RequestBuilder {
				return NewRequestBuilder("m").Input(tensor.NewInferInput("x", []int64{1}, tensor.Int32))
			},
		},
		{
			name: "negative dimension",
			builder: func() *RequestBuilder {
				in := int32Input(t, "x", []int32{1})
				in.SetShape([]int64{-1})
				return NewRequestBuilder("m").Input(in)
			},
		},
		{
			name:    "nil output",
			builder: func() *RequestBuilder { return NewRequestBuilder("m").Input(int32Input(t, "x", []int32{1})).Output(nil) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder().Build()
			require.Error(t, err)
			assert.True(t, api.IsValidation(err))
		})
	}
}

func TestBuild_FirstParameterErrorWins(t *testing.T) {
	_, err := NewRequestBuilder("m").
		ParameterValue("first", 1.5).
		ParameterValue("second", nil).
		Input(int32Input(t, "x", []int32{1})).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"first"`)
}
