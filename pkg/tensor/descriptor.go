package tensor

import (
	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
)

const (
	// ParamBinaryData asks a REST server to return an output as binary rather than JSON.
	ParamBinaryData = "binary_data"
)

// InputView is the read-only side of an input descriptor.
type InputView interface {
	Name() string
	Datatype() Datatype
	Shape() []int64
	Parameters() Parameters
	// Data and RawData expose internal storage and must not be modified.
	Data() any
	RawData() []byte
}

// OutputView is the read-only side of a requested output descriptor.
type OutputView interface {
	Name() string
	Parameters() Parameters
}

// InferInput describes one input tensor of an inference request.
// It is not safe for concurrent mutation.
type InferInput struct {
	name       string
	datatype   Datatype
	shape      []int64
	parameters Parameters
	data       any
	raw        []byte
}

func NewInferInput(name string, shape []int64, datatype Datatype) *InferInput {
	return &InferInput{
		name:       name,
		datatype:   datatype,
		shape:      append([]int64(nil), shape...),
		parameters: Parameters{},
	}
}

func (in *InferInput) Name() string {
	return in.name
}

func (in *InferInput) Datatype() Datatype {
	return in.datatype
}

// Shape returns a copy of the declared shape.
func (in *InferInput) Shape() []int64 {
	return append([]int64(nil), in.shape...)
}

// Parameters returns a copy of the input parameters.
func (in *InferInput) Parameters() Parameters {
	return in.parameters.Clone()
}

func (in *InferInput) SetDatatype(datatype Datatype) {
	in.datatype = datatype
}

func (in *InferInput) SetShape(shape []int64) {
	in.shape = append([]int64(nil), shape...)
}

func (in *InferInput) SetParameter(key string, value ParamValue) error {
	return in.parameters.Set(key, value)
}

// SetParameterValue converts v with ParamOf before storing it.
func (in *InferInput) SetParameterValue(key string, v any) error {
	value, err := ParamOf(v)
	if err != nil {
		return err
	}
	return in.parameters.Set(key, value)
}

func (in *InferInput) ClearParameters() {
	in.parameters = Parameters{}
}

// SetData copies values into the input. The datatype is inferred from the element
// type and an empty shape becomes [len(values)].
func (in *InferInput) SetData(values any) error {
	datatype, err := DatatypeOf(values)
	if err != nil {
		return err
	}
	in.data = copyValues(values)
	in.raw = nil
	in.datatype = datatype
	if len(in.shape) == 0 {
		in.shape = []int64{int64(Len(values))}
	}
	return nil
}

// SetRawData attaches a buffer already encoded for the declared datatype. Fixed-width
// buffers must be a whole number of elements.
func (in *InferInput) SetRawData(raw []byte) error {
	if !in.datatype.Valid() {
		return api.NewValidationErrorf("input %q has unsupported datatype %q", in.name, in.datatype)
	}
	if size := in.datatype.Size(); size > 0 && len(raw)%size != 0 {
		return api.NewValidationErrorf("input %q: %d bytes is not a multiple of the %s width %d", in.name, len(raw), in.datatype, size)
	}
	in.raw = append([]byte(nil), raw...)
	in.data = nil
	return nil
}

// Data returns the typed payload set by SetData, nil otherwise.
func (in *InferInput) Data() any {
	return in.data
}

// RawData returns the buffer set by SetRawData, nil otherwise.
func (in *InferInput) RawData() []byte {
	return in.raw
}

func (in *InferInput) HasData() bool {
	return in.data != nil || in.raw != nil
}

// Snapshot returns a deep copy that later mutation of in cannot reach.
func (in *InferInput) Snapshot() *InferInput {
	out := &InferInput{
		name:       in.name,
		datatype:   in.datatype,
		shape:      append([]int64(nil), in.shape...),
		parameters: in.parameters.Clone(),
	}
	if in.data != nil {
		out.data = copyValues(in.data)
	}
	if in.raw != nil {
		out.raw = append([]byte(nil), in.raw...)
	}
	return out
}

// InferOutput names an output the caller wants returned.
type InferOutput struct {
	name       string
	parameters Parameters
}

func NewInferOutput(name string) *InferOutput {
	return &InferOutput{name: name, parameters: Parameters{}}
}

func (out *InferOutput) Name() string {
	return out.name
}

func (out *InferOutput) Parameters() Parameters {
	return out.parameters.Clone()
}

func (out *InferOutput) SetParameter(key string, value ParamValue) error {
	return out.parameters.Set(key, value)
}

func (out *InferOutput) SetParameterValue(key string, v any) error {
	value, err := ParamOf(v)
	if err != nil {
		return err
	}
	return out.parameters.Set(key, value)
}

// SetBinaryData is honoured by the REST transport only.
func (out *InferOutput) SetBinaryData(binary bool) {
	out.parameters[ParamBinaryData] = BoolParam(binary)
}

func (out *InferOutput) ClearParameters() {
	out.parameters = Parameters{}
}

func (out *InferOutput) Snapshot() *InferOutput {
	return &InferOutput{name: out.name, parameters: out.parameters.Clone()}
}
