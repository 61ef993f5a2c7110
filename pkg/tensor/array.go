package tensor

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/x448/float16"
)

// Array is a decoded output tensor. Values are flat and row-major; Shape is the
// shape the server declared for the output.
type Array struct {
	Name     string
	Datatype Datatype
	Shape    []int64
	values   any
}

// NewArray wraps a flat payload slice of the kind DatatypeOf accepts.
func NewArray(name string, datatype Datatype, shape []int64, values any) *Array {
	if s, ok := values.([]string); ok {
		values = copyValues(s)
	}
	return &Array{Name: name, Datatype: datatype, Shape: append([]int64(nil), shape...), values: values}
}

func (a *Array) Len() int {
	if a == nil || a.values == nil {
		return 0
	}
	return Len(a.values)
}

// Raw returns the underlying flat slice, e.g. []int32 for INT32 or [][]byte for BYTES.
func (a *Array) Raw() any {
	return a.values
}

// At returns element i boxed, or nil if i is out of range.
func (a *Array) At(i int) any {
	if i < 0 || i >= a.Len() {
		return nil
	}
	switch v := a.values.(type) {
	case []bool:
		return v[i]
	case []uint8:
		return v[i]
	case []uint16:
		return v[i]
	case []uint32:
		return v[i]
	case []uint64:
		return v[i]
	case []int8:
		return v[i]
	case []int16:
		return v[i]
	case []int32:
		return v[i]
	case []int64:
		return v[i]
	case []float32:
		return v[i]
	case []float64:
		return v[i]
	case []float16.Float16:
		return v[i]
	case []BFloat16:
		return v[i]
	case [][]byte:
		return v[i]
	default:
		return nil
	}
}

func (a *Array) String() string {
	return fmt.Sprintf("%s %s %v %v", a.Name, a.Datatype, a.Shape, a.values)
}

// Values returns the flat elements as []T. BYTES arrays can be read as [][]byte or
// []string.
func Values[T Element](a *Array) ([]T, error) {
	if a == nil {
		return nil, api.NewValidationError("nil array")
	}
	if v, ok := a.values.([]T); ok {
		return v, nil
	}
	if bs, ok := a.values.([][]byte); ok {
		var zero T
		if _, isString := any(zero).(string); isString {
			out := make([]T, len(bs))
			for i, b := range bs {
				out[i] = any(string(b)).(T)
			}
			return out, nil
		}
	}
	var zero T
	return nil, api.NewValidationErrorf("output %q holds %s values, not %T", a.Name, a.Datatype, zero)
}
