package codec

import (
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// Contents mirrors the typed repeated fields of InferTensorContents, used by servers
// that do not answer with raw output contents.
type Contents struct {
	Bool   []bool
	Int    []int32
	Int64  []int64
	Uint   []uint32
	Uint64 []uint64
	FP32   []float32
	FP64   []float64
	Bytes  [][]byte
}

// DecodeContents picks the field that carries datatype and converts it. Narrow integer
// types travel widened to 32 bits; FP16 and BF16 have no typed field.
func DecodeContents(datatype tensor.Datatype, c Contents) (any, error) {
	switch datatype {
	case tensor.Bool:
		return append([]bool{}, c.Bool...), nil
	case tensor.Int8:
		return convert[int32, int8](c.Int), nil
	case tensor.Int16:
		return convert[int32, int16](c.Int), nil
	case tensor.Int32:
		return append([]int32{}, c.Int...), nil
	case tensor.Int64:
		return append([]int64{}, c.Int64...), nil
	case tensor.Uint8:
		return convert[uint32, uint8](c.Uint), nil
	case tensor.Uint16:
		return convert[uint32, uint16](c.Uint), nil
	case tensor.Uint32:
		return append([]uint32{}, c.Uint...), nil
	case tensor.Uint64:
		return append([]uint64{}, c.Uint64...), nil
	case tensor.FP32:
		return append([]float32{}, c.FP32...), nil
	case tensor.FP64:
		return append([]float64{}, c.FP64...), nil
	case tensor.Bytes:
		out := make([][]byte, len(c.Bytes))
		for i, b := range c.Bytes {
			out[i] = append([]byte{}, b...)
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrDecode, "datatype %q has no typed contents field", datatype)
}

// EncodeContents is the inverse of DecodeContents.
func EncodeContents(datatype tensor.Datatype, values any) (Contents, error) {
	var c Contents
	switch v := values.(type) {
	case []bool:
		c.Bool = v
	case []int8:
		c.Int = convert[int8, int32](v)
	case []int16:
		c.Int = convert[int16, int32](v)
	case []int32:
		c.Int = v
	case []int64:
		c.Int64 = v
	case []uint8:
		c.Uint = convert[uint8, uint32](v)
	case []uint16:
		c.Uint = convert[uint16, uint32](v)
	case []uint32:
		c.Uint = v
	case []uint64:
		c.Uint64 = v
	case []float32:
		c.FP32 = v
	case []float64:
		c.FP64 = v
	case [][]byte:
		c.Bytes = v
	case []float16.Float16, []tensor.BFloat16:
		return c, errors.Errorf("datatype %q has no typed contents field", datatype)
	default:
		return c, mismatch(datatype, values)
	}
	return c, nil
}

type integer interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64
}

func convert[From, To integer](in []From) []To {
	out := make([]To, len(in))
	for i, v := range in {
		out[i] = To(v)
	}
	return out
}
