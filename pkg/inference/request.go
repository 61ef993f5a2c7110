package inference

import (
	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
)

// InferenceRequest is an immutable, built request. It maps to exactly one RPC or
// REST exchange and is safe to share between goroutines.
type InferenceRequest struct {
	modelName    string
	modelVersion string
	requestID    string
	parameters   tensor.Parameters
	inputs       []*tensor.InferInput
	outputs      []*tensor.InferOutput
}

func (r *InferenceRequest) ModelName() string {
	return r.modelName
}

// ModelVersion is empty when the server should pick the version.
func (r *InferenceRequest) ModelVersion() string {
	return r.modelVersion
}

// RequestID is empty when unset.
func (r *InferenceRequest) RequestID() string {
	return r.requestID
}

func (r *InferenceRequest) Parameters() tensor.Parameters {
	return r.parameters.Clone()
}

func (r *InferenceRequest) Inputs() []tensor.InputView {
	out := make([]tensor.InputView, len(r.inputs))
	for i, in := range r.inputs {
		out[i] = in
	}
	return out
}

// Outputs is empty when the server should return its default outputs.
func (r *InferenceRequest) Outputs() []tensor.OutputView {
	out := make([]tensor.OutputView, len(r.outputs))
	for i, o := range r.outputs {
		out[i] = o
	}
	return out
}

// RequestBuilder assembles an InferenceRequest. Descriptors added to it stay mutable
// until Build, which snapshots them.
type RequestBuilder struct {
	modelName    string
	modelVersion string
	requestID    string
	parameters   tensor.Parameters
	inputs       []*tensor.InferInput
	outputs      []*tensor.InferOutput
	err          error
}

func NewRequestBuilder(modelName string) *RequestBuilder {
	return &RequestBuilder{modelName: modelName, parameters: tensor.Parameters{}}
}

func (b *RequestBuilder) Version(version string) *RequestBuilder {
	b.modelVersion = version
	return b
}

func (b *RequestBuilder) RequestID(id string) *RequestBuilder {
	b.requestID = id
	return b
}

func (b *RequestBuilder) Parameter(key string, value tensor.ParamValue) *RequestBuilder {
	if err := b.parameters.Set(key, value); err != nil && b.err == nil {
		b.err = err
	}
	return b
}

// ParameterValue records a dynamically typed parameter. A value of an unsupported
// type makes Build fail.
func (b *RequestBuilder) ParameterValue(key string, v any) *RequestBuilder {
	value, err := tensor.ParamOf(v)
	if err != nil {
		if b.err == nil {
			b.err = api.NewValidationErrorf("parameter %q: %s", key, errorMessage(err))
		}
		return b
	}
	return b.Parameter(key, value)
}

func (b *RequestBuilder) Input(inputs ...*tensor.InferInput) *RequestBuilder {
	b.inputs = append(b.inputs, inputs...)
	return b
}

func (b *RequestBuilder) Output(outputs ...*tensor.InferOutput) *RequestBuilder {
	b.outputs = append(b.outputs, outputs...)
	return b
}

// Build validates and snapshots the request. No I/O happens here.
func (b *RequestBuilder) Build() (*InferenceRequest, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.modelName == "" {
		return nil, api.NewValidationError("model name is required")
	}
	req := &InferenceRequest{
		modelName:    b.modelName,
		modelVersion: b.modelVersion,
		requestID:    b.requestID,
		parameters:   b.parameters.Clone(),
		inputs:       make([]*tensor.InferInput, 0, len(b.inputs)),
		outputs:      make([]*tensor.InferOutput, 0, len(b.outputs)),
	}
	for i, in := range b.inputs {
		if in == nil {
			return nil, api.NewValidationErrorf("input %d is nil", i)
		}
		if !in.Datatype().Valid() {
			return nil, api.NewValidationErrorf("input %q has unsupported datatype %q", in.Name(), in.Datatype())
		}
		if !in.HasData() {
			return nil, api.NewValidationErrorf("input %q has no data", in.Name())
		}
		for _, dim := range in.Shape() {
			if dim < 0 {
				return nil, api.NewValidationErrorf("input %q has a negative dimension in shape %v", in.Name(), in.Shape())
			}
		}
		req.inputs = append(req.inputs, in.Snapshot())
	}
	for i, out := range b.outputs {
		if out == nil {
			return nil, api.NewValidationErrorf("output %d is nil", i)
		}
		req.outputs = append(req.outputs, out.Snapshot())
	}
	return req, nil
}

func errorMessage(err error) string {
	if e, ok := api.AsError(err); ok {
		return e.Message
	}
	return err.Error()
}
