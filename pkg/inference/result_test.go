package inference

import (
	"testing"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func output(name string, shape []int64, values any) OutputTensor {
	return OutputTensor{
		Name:     name,
		Datatype: tensor.Int32,
		Shape:    shape,
		Decode:   func() (any, error) { return values, nil },
	}
}

func TestAsArray_FirstMatchWins(t *testing.T) {
	r := NewInferResult(ResultSource{Outputs: []OutputTensor{
		output("OUTPUT0", []int64{2}, []int32{1, 2}),
		output("OUTPUT0", []int64{2}, []int32{7, 8}),
	}})

	arr, found, err := r.AsArray("OUTPUT0")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int32{1, 2}, arr.Raw())
	assert.Equal(t, []string{"OUTPUT0", "OUTPUT0"}, r.OutputNames())
}

func TestAsArray_MissIsNotAnError(t *testing.T) {
	r := NewInferResult(ResultSource{Outputs: []OutputTensor{output("OUTPUT0", []int64{1}, []int32{1})}})

	arr, found, err := r.AsArray("nope")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, arr)
}

func TestAsArray_FitsDeclaredShape(t *testing.T) {
	r := NewInferResult(ResultSource{Outputs: []OutputTensor{
		output("tiled", []int64{2, 3}, []int32{1, 2}),
		output("truncated", []int64{2}, []int32{1, 2, 3, 4}),
	}})

	arr, _, err := r.AsArray("tiled")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 1, 2, 1, 2}, arr.Raw())
	assert.Equal(t, []int64{2, 3}, arr.Shape)

	arr, _, err = r.AsArray("truncated")
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2}, arr.Raw())
}

func TestAsArray_DecodeFailure(t *testing.T) {
	r := NewInferResult(ResultSource{Outputs: []OutputTensor{{
		Name:     "OUTPUT0",
		Datatype: tensor.Bytes,
		Shape:    []int64{1},
		Decode:   func() (any, error) { return nil, errors.Wrap(codec.ErrDecode, "truncated BYTES") },
	}}})

	_, found, err := r.AsArray("OUTPUT0")
	assert.True(t, found)
	require.Error(t, err)
	e, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, e.Code)
	assert.Contains(t, e.Message, "truncated BYTES")
}

func TestAsArray_UnallocatableShape(t *testing.T) {
	r := NewInferResult(ResultSource{Outputs: []OutputTensor{
		output("huge", []int64{1 << 62}, []int32{1}),
		output("wrapped", []int64{1 << 32, 1 << 32}, []int32{1}),
		output("limit", []int64{MaxOutputElements + 1}, []int32{1}),
	}})

	for _, name := range []string{"huge", "wrapped", "limit"} {
		var (
			arr   *tensor.Array
			found bool
			err   error
		)
		require.NotPanics(t, func() { arr, found, err = r.AsArray(name) }, name)
		assert.True(t, found, name)
		assert.Nil(t, arr, name)
		e, ok := api.AsError(err)
		require.True(t, ok, name)
		assert.Equal(t, codes.Internal, e.Code, name)
	}
}

func TestInferResult_Metadata(t *testing.T) {
	r := NewInferResult(ResultSource{
		ModelName:    "simple",
		ModelVersion: "1",
		ID:           "req-1",
		Parameters:   tensor.Parameters{"queue_ns": tensor.Int64Param(10)},
		Response:     "raw",
		JSON:         func() (map[string]any, error) { return map[string]any{"model_name": "simple"}, nil },
	})

	assert.Equal(t, "simple", r.ModelName())
	assert.Equal(t, "1", r.ModelVersion())
	assert.Equal(t, "req-1", r.ID())
	assert.Equal(t, tensor.Parameters{"queue_ns": tensor.Int64Param(10)}, r.Statistics())
	assert.Equal(t, "raw", r.Response())
	got, err := r.ResponseJSON()
	require.NoError(t, err)
	assert.Equal(t, "simple", got["model_name"])
}

func TestInferResult_Empty(t *testing.T) {
	r := NewInferResult(ResultSource{})
	assert.Empty(t, r.OutputNames())
	assert.NotNil(t, r.Parameters())
	got, err := r.ResponseJSON()
	require.NoError(t, err)
	assert.Empty(t, got)
}
