package main

import (
	"testing"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/inference"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	in, err := parseInput("INPUT0:int32:1x4:1,2,3,-4")
	require.NoError(t, err)
	assert.Equal(t, "INPUT0", in.Name())
	assert.Equal(t, tensor.Int32, in.Datatype())
	assert.Equal(t, []int64{1, 4}, in.Shape())
	assert.Equal(t, []int32{1, 2, 3, -4}, in.Data())

	in, err = parseInput("TEXT:BYTES:2:hello,world")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("hello"), []byte("world")}, in.Data())

	in, err = parseInput("FLAGS:BOOL:2:true,false")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, in.Data())
}

func TestParseInput_Errors(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{name: "missing values", arg: "INPUT0:INT32:1x4"},
		{name: "empty name", arg: ":INT32:1:1"},
		{name: "unknown datatype", arg: "INPUT0:INT3:1:1"},
		{name: "bad shape", arg: "INPUT0:INT32:1xa:1"},
		{name: "negative dimension", arg: "INPUT0:INT32:-1:1"},
		{name: "bad integer", arg: "INPUT0:INT32:1:1.5"},
		{name: "out of range", arg: "INPUT0:INT8:1:300"},
		{name: "bad bool", arg: "INPUT0:BOOL:1:maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseInput(tt.arg)
			assert.Error(t, err)
		})
	}
}

func TestParseParam(t *testing.T) {
	key, value, err := parseParam("priority=1")
	require.NoError(t, err)
	assert.Equal(t, "priority", key)
	assert.Equal(t, int64(1), value)

	_, value, err = parseParam("sequence_start=true")
	require.NoError(t, err)
	assert.Equal(t, true, value)

	_, value, err = parseParam("tag=a=b")
	require.NoError(t, err)
	assert.Equal(t, "a=b", value)

	_, _, err = parseParam("novalue")
	assert.Error(t, err)
}

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest(inferFlags{
		model:   modelFlags{name: "simple", version: "1"},
		inputs:  []string{"INPUT0:INT32:1x2:1,2"},
		outputs: []string{"OUTPUT0"},
		params:  []string{"priority=2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "simple", req.ModelName())
	assert.Equal(t, "1", req.ModelVersion())
	require.Len(t, req.Outputs(), 1)
	assert.Equal(t, "OUTPUT0", req.Outputs()[0].Name())
	assert.Equal(t, tensor.Int64Param(2), req.Parameters()["priority"])
}

func TestRenderResult(t *testing.T) {
	result := inference.NewInferResult(inference.ResultSource{
		ModelName: "simple",
		Outputs: []inference.OutputTensor{{
			Name:     "OUTPUT0",
			Datatype: tensor.Int32,
			Shape:    []int64{1, 2},
			Decode:   func() (any, error) { return []int32{3, 4}, nil },
		}},
	})
	out, err := renderResult(result)
	require.NoError(t, err)
	require.Len(t, out.Outputs, 1)
	assert.Equal(t, "OUTPUT0", out.Outputs[0].Name)
	assert.Equal(t, []any{int32(3), int32(4)}, out.Outputs[0].Data)
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"live", "ready", "model-ready", "metadata", "model-metadata", "infer", "load", "unload"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
