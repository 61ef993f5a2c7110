package inference

import (
	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/pkg/errors"
)

// MaxOutputElements bounds the element count AsArray will allocate for one output.
const MaxOutputElements = 1 << 30

// OutputTensor is a response output whose payload is decoded on demand.
type OutputTensor struct {
	Name       string
	Datatype   tensor.Datatype
	Shape      []int64
	Parameters tensor.Parameters
	// Decode returns the flat payload as sent by the server.
	Decode func() (any, error)
}

// ResultSource is what a transport hands over to build an InferResult.
type ResultSource struct {
	ModelName    string
	ModelVersion string
	ID           string
	Parameters   tensor.Parameters
	Outputs      []OutputTensor
	// Response is the decoded message or body, returned as is by Response.
	Response any
	JSON     func() (map[string]any, error)
}

// InferResult wraps one decoded inference response. It is immutable.
type InferResult struct {
	src ResultSource
}

func NewInferResult(src ResultSource) *InferResult {
	if src.Parameters == nil {
		src.Parameters = tensor.Parameters{}
	}
	return &InferResult{src: src}
}

func (r *InferResult) ModelName() string {
	return r.src.ModelName
}

func (r *InferResult) ModelVersion() string {
	return r.src.ModelVersion
}

func (r *InferResult) ID() string {
	return r.src.ID
}

// OutputNames lists outputs in response order, duplicates included.
func (r *InferResult) OutputNames() []string {
	names := make([]string, len(r.src.Outputs))
	for i, o := range r.src.Outputs {
		names[i] = o.Name
	}
	return names
}

// AsArray decodes the first output named name and fits it to the declared shape,
// tiling or truncating the flat data. found is false, with a nil error, when the
// response has no such output.
func (r *InferResult) AsArray(name string) (arr *tensor.Array, found bool, err error) {
	for _, o := range r.src.Outputs {
		if o.Name != name {
			continue
		}
		count, err := tensor.ElementCount(o.Shape)
		if err != nil {
			return nil, true, api.NewDecodeError(err)
		}
		if count > MaxOutputElements {
			return nil, true, api.NewDecodeError(errors.Errorf(
				"output %q: shape %v has %d elements, limit is %d", o.Name, o.Shape, count, MaxOutputElements))
		}
		if o.Decode == nil {
			return tensor.NewArray(o.Name, o.Datatype, o.Shape, nil), true, nil
		}
		values, err := o.Decode()
		if err != nil {
			return nil, true, api.NewDecodeError(err)
		}
		return tensor.NewArray(o.Name, o.Datatype, o.Shape, codec.Resize(values, count)), true, nil
	}
	return nil, false, nil
}

// Output returns the metadata of the first output named name.
func (r *InferResult) Output(name string) (OutputTensor, bool) {
	for _, o := range r.src.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return OutputTensor{}, false
}

func (r *InferResult) Parameters() tensor.Parameters {
	return r.src.Parameters.Clone()
}

// Statistics returns the per-response parameters the server reported.
func (r *InferResult) Statistics() tensor.Parameters {
	return r.Parameters()
}

// Response returns the underlying decoded response unmodified.
func (r *InferResult) Response() any {
	return r.src.Response
}

// ResponseJSON returns the JSON projection of the response.
func (r *InferResult) ResponseJSON() (map[string]any, error) {
	if r.src.JSON == nil {
		return map[string]any{}, nil
	}
	return r.src.JSON()
}
