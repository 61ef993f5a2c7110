package dummyserver

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
)

const (
	ModelSimple   = "simple"
	ModelIdentity = "identity"

	modelVersion = "1"
	platform     = "predator_dummy"
)

// Tensor is a decoded tensor as the models see it.
type Tensor struct {
	Name     string
	Datatype tensor.Datatype
	Shape    []int64
	Values   any
}

type TensorMeta struct {
	Name     string
	Datatype tensor.Datatype
	Shape    []int64
}

// Model is one servable model of the dummy server.
type Model struct {
	Name    string
	Inputs  []TensorMeta
	Outputs []TensorMeta
	execute func(inputs []Tensor) ([]Tensor, error)
}

func catalog() map[string]*Model {
	return map[string]*Model{
		ModelSimple:   simpleModel(),
		ModelIdentity: identityModel(),
	}
}

// simpleModel adds and subtracts two INT32 tensors of the same length.
func simpleModel() *Model {
	shape := []int64{1, 16}
	return &Model{
		Name: ModelSimple,
		Inputs: []TensorMeta{
			{Name: "INPUT0", Datatype: tensor.Int32, Shape: shape},
			{Name: "INPUT1", Datatype: tensor.Int32, Shape: shape},
		},
		Outputs: []TensorMeta{
			{Name: "OUTPUT0", Datatype: tensor.Int32, Shape: shape},
			{Name: "OUTPUT1", Datatype: tensor.Int32, Shape: shape},
		},
		execute: func(inputs []Tensor) ([]Tensor, error) {
			a, err := int32Input(inputs, "INPUT0")
			if err != nil {
				return nil, err
			}
			b, err := int32Input(inputs, "INPUT1")
			if err != nil {
				return nil, err
			}
			if len(a.values) != len(b.values) {
				return nil, api.NewGrpcInvalidArgumentError(
					"INPUT0 has %d elements but INPUT1 has %d", len(a.values), len(b.values))
			}
			sum := make([]int32, len(a.values))
			diff := make([]int32, len(a.values))
			for i := range a.values {
				sum[i] = a.values[i] + b.values[i]
				diff[i] = a.values[i] - b.values[i]
			}
			return []Tensor{
				{Name: "OUTPUT0", Datatype: tensor.Int32, Shape: a.shape, Values: sum},
				{Name: "OUTPUT1", Datatype: tensor.Int32, Shape: a.shape, Values: diff},
			}, nil
		},
	}
}

type int32Tensor struct {
	shape  []int64
	values []int32
}

func int32Input(inputs []Tensor, name string) (int32Tensor, error) {
	for _, in := range inputs {
		if in.Name != name {
			continue
		}
		values, ok := in.Values.([]int32)
		if !ok || in.Datatype != tensor.Int32 {
			return int32Tensor{}, api.NewGrpcInvalidArgumentError(
				"inference input '%s' data-type is '%s', model expects 'INT32'", name, in.Datatype)
		}
		return int32Tensor{shape: in.Shape, values: values}, nil
	}
	return int32Tensor{}, api.NewGrpcInvalidArgumentError("expected input '%s' not found", name)
}

// identityModel returns input i as OUTPUTi, unchanged.
func identityModel() *Model {
	return &Model{
		Name:    ModelIdentity,
		Inputs:  []TensorMeta{{Name: "INPUT0", Datatype: tensor.Bytes, Shape: []int64{-1}}},
		Outputs: []TensorMeta{{Name: "OUTPUT0", Datatype: tensor.Bytes, Shape: []int64{-1}}},
		execute: func(inputs []Tensor) ([]Tensor, error) {
			outputs := make([]Tensor, len(inputs))
			for i, in := range inputs {
				outputs[i] = Tensor{
					Name:     fmt.Sprintf("OUTPUT%d", i),
					Datatype: in.Datatype,
					Shape:    in.Shape,
					Values:   in.Values,
				}
			}
			return outputs, nil
		},
	}
}

// selectOutputs keeps the requested outputs in request order. No names means all.
func selectOutputs(model string, outputs []Tensor, requested []string) ([]Tensor, error) {
	if len(requested) == 0 {
		return outputs, nil
	}
	selected := make([]Tensor, 0, len(requested))
	for _, name := range requested {
		found := false
		for _, out := range outputs {
			if out.Name == name {
				selected = append(selected, out)
				found = true
				break
			}
		}
		if !found {
			return nil, api.NewGrpcInvalidArgumentError(
				"unexpected inference output '%s' for model '%s'", name, model)
		}
	}
	return selected, nil
}

// configDatatype is the model config spelling of a datatype, e.g. TYPE_INT32.
func configDatatype(datatype tensor.Datatype) string {
	if datatype == tensor.Bytes {
		return "TYPE_STRING"
	}
	return "TYPE_" + datatype.String()
}
