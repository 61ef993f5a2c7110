package tensor

import (
	"math"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/x448/float16"
)

// BFloat16 is the upper half of an IEEE 754 float32 bit pattern.
type BFloat16 uint16

// BFloat16FromFloat32 rounds f to the nearest bfloat16, ties to even.
func BFloat16FromFloat32(f float32) BFloat16 {
	bits := math.Float32bits(f)
	if f != f {
		return BFloat16(bits>>16 | 0x0040)
	}
	rounding := uint32(0x7FFF) + (bits>>16)&1
	return BFloat16((bits + rounding) >> 16)
}

func (b BFloat16) Float32() float32 {
	return math.Float32frombits(uint32(b) << 16)
}

func (b BFloat16) Bits() uint16 {
	return uint16(b)
}

// Element lists the Go element types a tensor payload can be built from.
type Element interface {
	bool | uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64 |
		float16.Float16 | BFloat16 | float32 | float64 | []byte | string
}

// DatatypeOf infers the wire datatype from a flat payload slice.
func DatatypeOf(values any) (Datatype, error) {
	switch values.(type) {
	case []bool:
		return Bool, nil
	case []uint8:
		return Uint8, nil
	case []uint16:
		return Uint16, nil
	case []uint32:
		return Uint32, nil
	case []uint64:
		return Uint64, nil
	case []int8:
		return Int8, nil
	case []int16:
		return Int16, nil
	case []int32:
		return Int32, nil
	case []int64:
		return Int64, nil
	case []float16.Float16:
		return FP16, nil
	case []BFloat16:
		return BF16, nil
	case []float32:
		return FP32, nil
	case []float64:
		return FP64, nil
	case [][]byte, []string:
		return Bytes, nil
	default:
		return "", api.NewValidationErrorf("tensor data must be a flat slice of a supported element type, got %T", values)
	}
}

// Len returns the element count of a payload slice accepted by DatatypeOf, -1 otherwise.
func Len(values any) int {
	switch v := values.(type) {
	case []bool:
		return len(v)
	case []uint8:
		return len(v)
	case []uint16:
		return len(v)
	case []uint32:
		return len(v)
	case []uint64:
		return len(v)
	case []int8:
		return len(v)
	case []int16:
		return len(v)
	case []int32:
		return len(v)
	case []int64:
		return len(v)
	case []float16.Float16:
		return len(v)
	case []BFloat16:
		return len(v)
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	case [][]byte:
		return len(v)
	case []string:
		return len(v)
	default:
		return -1
	}
}

// copyValues returns a private copy of a payload slice. []string is normalised to
// [][]byte so BYTES payloads have a single representation.
func copyValues(values any) any {
	switch v := values.(type) {
	case []bool:
		return append([]bool(nil), v...)
	case []uint8:
		return append([]uint8(nil), v...)
	case []uint16:
		return append([]uint16(nil), v...)
	case []uint32:
		return append([]uint32(nil), v...)
	case []uint64:
		return append([]uint64(nil), v...)
	case []int8:
		return append([]int8(nil), v...)
	case []int16:
		return append([]int16(nil), v...)
	case []int32:
		return append([]int32(nil), v...)
	case []int64:
		return append([]int64(nil), v...)
	case []float16.Float16:
		return append([]float16.Float16(nil), v...)
	case []BFloat16:
		return append([]BFloat16(nil), v...)
	case []float32:
		return append([]float32(nil), v...)
	case []float64:
		return append([]float64(nil), v...)
	case [][]byte:
		out := make([][]byte, len(v))
		for i, b := range v {
			out[i] = append([]byte{}, b...)
		}
		return out
	case []string:
		out := make([][]byte, len(v))
		for i, s := range v {
			out[i] = []byte(s)
		}
		return out
	default:
		return nil
	}
}

// ElementCount is the product of shape. Negative dimensions and products that do
// not fit in an int are rejected; a zero dimension makes the count zero.
func ElementCount(shape []int64) (int, error) {
	for _, dim := range shape {
		if dim < 0 {
			return 0, api.NewValidationErrorf("shape %v has a negative dimension", shape)
		}
		if dim == 0 {
			return 0, nil
		}
	}
	count := 1
	for _, dim := range shape {
		if dim > int64(math.MaxInt) || count > math.MaxInt/int(dim) {
			return 0, api.NewValidationErrorf("shape %v overflows the element count", shape)
		}
		count *= int(dim)
	}
	return count, nil
}
