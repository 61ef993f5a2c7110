package codec

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// JSONInput is one entry of the "inputs" array of a REST infer request.
type JSONInput struct {
	Name       string         `json:"name"`
	Datatype   string         `json:"datatype"`
	Shape      []int64        `json:"shape"`
	Parameters map[string]any `json:"parameters"`
	Data       []any          `json:"data"`
}

// JSONRequestedOutput is one entry of the "outputs" array of a REST infer request.
type JSONRequestedOutput struct {
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// JSONOutput is one entry of the "outputs" array of a REST infer response.
type JSONOutput struct {
	Name       string         `json:"name"`
	Datatype   string         `json:"datatype"`
	Shape      []int64        `json:"shape"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Data       []any          `json:"data"`
}

type JSONInferRequest struct {
	ID         string                `json:"id,omitempty"`
	Parameters map[string]any        `json:"parameters,omitempty"`
	Inputs     []JSONInput           `json:"inputs"`
	Outputs    []JSONRequestedOutput `json:"outputs,omitempty"`
}

type JSONInferResponse struct {
	ModelName    string         `json:"model_name"`
	ModelVersion string         `json:"model_version,omitempty"`
	ID           string         `json:"id,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Outputs      []JSONOutput   `json:"outputs"`
}

// EncodeJSON flattens a payload into JSON scalars. FP16 and BF16 widen to float32,
// BYTES elements become strings.
func EncodeJSON(datatype tensor.Datatype, values any) ([]any, error) {
	if dt, err := tensor.DatatypeOf(values); err != nil {
		return nil, err
	} else if dt != datatype {
		return nil, mismatch(datatype, values)
	}
	switch v := values.(type) {
	case []bool:
		return boxed(v), nil
	case []uint8:
		return boxed(v), nil
	case []uint16:
		return boxed(v), nil
	case []uint32:
		return boxed(v), nil
	case []uint64:
		return boxed(v), nil
	case []int8:
		return boxed(v), nil
	case []int16:
		return boxed(v), nil
	case []int32:
		return boxed(v), nil
	case []int64:
		return boxed(v), nil
	case []float32:
		return boxed(v), nil
	case []float64:
		return boxed(v), nil
	case []float16.Float16:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = x.Float32()
		}
		return out, nil
	case []tensor.BFloat16:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = x.Float32()
		}
		return out, nil
	case [][]byte:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = string(x)
		}
		return out, nil
	case []string:
		return boxed(v), nil
	}
	return nil, mismatch(datatype, values)
}

// DecodeJSON converts the flat "data" array of a REST output into a typed slice.
// Numbers are expected as json.Number so 64-bit integers survive exactly; float64 is
// accepted as well.
func DecodeJSON(datatype tensor.Datatype, data []any) (any, error) {
	switch datatype {
	case tensor.Bool:
		out := make([]bool, len(data))
		for i, v := range data {
			switch x := v.(type) {
			case bool:
				out[i] = x
			default:
				n, err := toInt64(v)
				if err != nil {
					return nil, err
				}
				out[i] = n != 0
			}
		}
		return out, nil
	case tensor.Uint8:
		return decodeUints[uint8](data, math.MaxUint8)
	case tensor.Uint16:
		return decodeUints[uint16](data, math.MaxUint16)
	case tensor.Uint32:
		return decodeUints[uint32](data, math.MaxUint32)
	case tensor.Uint64:
		return decodeUints[uint64](data, math.MaxUint64)
	case tensor.Int8:
		return decodeInts[int8](data, math.MinInt8, math.MaxInt8)
	case tensor.Int16:
		return decodeInts[int16](data, math.MinInt16, math.MaxInt16)
	case tensor.Int32:
		return decodeInts[int32](data, math.MinInt32, math.MaxInt32)
	case tensor.Int64:
		return decodeInts[int64](data, math.MinInt64, math.MaxInt64)
	case tensor.FP16:
		out := make([]float16.Float16, len(data))
		for i, v := range data {
			f, err := toFloat64(v)
			if err != nil {
				return nil, err
			}
			out[i] = float16.Fromfloat32(float32(f))
		}
		return out, nil
	case tensor.BF16:
		out := make([]tensor.BFloat16, len(data))
		for i, v := range data {
			f, err := toFloat64(v)
			if err != nil {
				return nil, err
			}
			out[i] = tensor.BFloat16FromFloat32(float32(f))
		}
		return out, nil
	case tensor.FP32:
		out := make([]float32, len(data))
		for i, v := range data {
			f, err := toFloat64(v)
			if err != nil {
				return nil, err
			}
			out[i] = float32(f)
		}
		return out, nil
	case tensor.FP64:
		out := make([]float64, len(data))
		for i, v := range data {
			f, err := toFloat64(v)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	case tensor.Bytes:
		out := make([][]byte, len(data))
		for i, v := range data {
			s, ok := v.(string)
			if !ok {
				return nil, errors.Wrapf(ErrDecode, "BYTES element %d is %T, not a string", i, v)
			}
			out[i] = []byte(s)
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrDecode, "unsupported datatype %q", datatype)
}

// InputToJSON builds the REST form of an input. A raw buffer attached with
// SetRawData is decoded first so the body stays plain JSON.
func InputToJSON(in tensor.InputView) (JSONInput, error) {
	values := in.Data()
	if values == nil {
		if in.RawData() == nil {
			return JSONInput{}, api.NewValidationErrorf("input %q has no data", in.Name())
		}
		decoded, err := DecodeRaw(in.Datatype(), in.RawData())
		if err != nil {
			return JSONInput{}, api.NewValidationErrorf("input %q: %s", in.Name(), err)
		}
		values = decoded
	}
	data, err := EncodeJSON(in.Datatype(), values)
	if e, ok := api.AsError(err); ok {
		return JSONInput{}, api.NewValidationErrorf("input %q: %s", in.Name(), e.Message)
	}
	shape := in.Shape()
	if shape == nil {
		shape = []int64{}
	}
	return JSONInput{
		Name:       in.Name(),
		Datatype:   in.Datatype().String(),
		Shape:      shape,
		Parameters: in.Parameters().Map(),
		Data:       data,
	}, nil
}

func OutputToJSON(out tensor.OutputView) JSONRequestedOutput {
	return JSONRequestedOutput{Name: out.Name(), Parameters: out.Parameters().Map()}
}

// ParamsFromJSON reads a decoded JSON parameter object back into typed values.
func ParamsFromJSON(m map[string]any) (tensor.Parameters, error) {
	out := make(tensor.Parameters, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case bool:
			out[k] = tensor.BoolParam(x)
		case string:
			out[k] = tensor.StringParam(x)
		default:
			n, err := toInt64(v)
			if err != nil {
				return nil, errors.Wrapf(err, "parameter %q", k)
			}
			out[k] = tensor.Int64Param(n)
		}
	}
	return out, nil
}

func boxed[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func decodeInts[T int8 | int16 | int32 | int64](data []any, lo, hi int64) ([]T, error) {
	out := make([]T, len(data))
	for i, v := range data {
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < lo || n > hi {
			return nil, errors.Wrapf(ErrDecode, "element %d value %d out of range", i, n)
		}
		out[i] = T(n)
	}
	return out, nil
}

func decodeUints[T uint8 | uint16 | uint32 | uint64](data []any, hi uint64) ([]T, error) {
	out := make([]T, len(data))
	for i, v := range data {
		n, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		if n > hi {
			return nil, errors.Wrapf(ErrDecode, "element %d value %d out of range", i, n)
		}
		out[i] = T(n)
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, errors.Wrapf(ErrDecode, "%q is not an integer", x.String())
		}
		return n, nil
	case float64:
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, errors.Wrapf(ErrDecode, "%v is not an int64", x)
		}
		return int64(x), nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	}
	return 0, errors.Wrapf(ErrDecode, "%T is not a number", v)
}

func toUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case json.Number:
		n, err := strconv.ParseUint(x.String(), 10, 64)
		if err != nil {
			return 0, errors.Wrapf(ErrDecode, "%q is not an unsigned integer", x.String())
		}
		return n, nil
	case float64:
		if x != math.Trunc(x) || x < 0 || x >= math.MaxUint64 {
			return 0, errors.Wrapf(ErrDecode, "%v is not a uint64", x)
		}
		return uint64(x), nil
	case int:
		if x < 0 {
			return 0, errors.Wrapf(ErrDecode, "%d is negative", x)
		}
		return uint64(x), nil
	case uint64:
		return x, nil
	}
	return 0, errors.Wrapf(ErrDecode, "%T is not a number", v)
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, errors.Wrapf(ErrDecode, "%q is not a number", x.String())
		}
		return f, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, errors.Wrapf(ErrDecode, "%T is not a number", v)
}
