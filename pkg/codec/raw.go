package codec

import (
	"encoding/binary"
	"math"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// ErrDecode marks a wire payload that cannot be decoded for its declared datatype.
var ErrDecode = errors.New("tensor decode failed")

// EncodeRaw lays a fixed-width payload out as flat little-endian bytes. BYTES
// payloads are serialized with SerializeBytes.
func EncodeRaw(datatype tensor.Datatype, values any) ([]byte, error) {
	if datatype == tensor.Bytes {
		bs, ok := values.([][]byte)
		if !ok {
			if ss, isStrings := values.([]string); isStrings {
				bs = make([][]byte, len(ss))
				for i, s := range ss {
					bs[i] = []byte(s)
				}
			} else {
				return nil, mismatch(datatype, values)
			}
		}
		return SerializeBytes(bs), nil
	}

	le := binary.LittleEndian
	switch v := values.(type) {
	case []bool:
		if datatype != tensor.Bool {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, len(v))
		for i, b := range v {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	case []uint8:
		if datatype != tensor.Uint8 {
			return nil, mismatch(datatype, values)
		}
		return append([]byte(nil), v...), nil
	case []int8:
		if datatype != tensor.Int8 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, len(v))
		for i, x := range v {
			out[i] = byte(x)
		}
		return out, nil
	case []uint16:
		if datatype != tensor.Uint16 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 2*len(v))
		for i, x := range v {
			le.PutUint16(out[2*i:], x)
		}
		return out, nil
	case []int16:
		if datatype != tensor.Int16 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 2*len(v))
		for i, x := range v {
			le.PutUint16(out[2*i:], uint16(x))
		}
		return out, nil
	case []float16.Float16:
		if datatype != tensor.FP16 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 2*len(v))
		for i, x := range v {
			le.PutUint16(out[2*i:], x.Bits())
		}
		return out, nil
	case []tensor.BFloat16:
		if datatype != tensor.BF16 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 2*len(v))
		for i, x := range v {
			le.PutUint16(out[2*i:], x.Bits())
		}
		return out, nil
	case []uint32:
		if datatype != tensor.Uint32 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 4*len(v))
		for i, x := range v {
			le.PutUint32(out[4*i:], x)
		}
		return out, nil
	case []int32:
		if datatype != tensor.Int32 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 4*len(v))
		for i, x := range v {
			le.PutUint32(out[4*i:], uint32(x))
		}
		return out, nil
	case []float32:
		if datatype != tensor.FP32 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 4*len(v))
		for i, x := range v {
			le.PutUint32(out[4*i:], math.Float32bits(x))
		}
		return out, nil
	case []uint64:
		if datatype != tensor.Uint64 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 8*len(v))
		for i, x := range v {
			le.PutUint64(out[8*i:], x)
		}
		return out, nil
	case []int64:
		if datatype != tensor.Int64 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 8*len(v))
		for i, x := range v {
			le.PutUint64(out[8*i:], uint64(x))
		}
		return out, nil
	case []float64:
		if datatype != tensor.FP64 {
			return nil, mismatch(datatype, values)
		}
		out := make([]byte, 8*len(v))
		for i, x := range v {
			le.PutUint64(out[8*i:], math.Float64bits(x))
		}
		return out, nil
	default:
		return nil, mismatch(datatype, values)
	}
}

// DecodeRaw is the inverse of EncodeRaw. The element count of a BYTES buffer is the
// number of length-prefixed runs it holds.
func DecodeRaw(datatype tensor.Datatype, raw []byte) (any, error) {
	if datatype == tensor.Bytes {
		return DeserializeBytes(raw)
	}
	size := datatype.Size()
	if size <= 0 {
		return nil, errors.Wrapf(ErrDecode, "unsupported datatype %q", datatype)
	}
	if len(raw)%size != 0 {
		return nil, errors.Wrapf(ErrDecode, "%d bytes is not a multiple of the %s width %d", len(raw), datatype, size)
	}
	n := len(raw) / size
	le := binary.LittleEndian
	switch datatype {
	case tensor.Bool:
		out := make([]bool, n)
		for i := range out {
			out[i] = raw[i] != 0
		}
		return out, nil
	case tensor.Uint8:
		return append([]uint8{}, raw...), nil
	case tensor.Int8:
		out := make([]int8, n)
		for i := range out {
			out[i] = int8(raw[i])
		}
		return out, nil
	case tensor.Uint16:
		out := make([]uint16, n)
		for i := range out {
			out[i] = le.Uint16(raw[2*i:])
		}
		return out, nil
	case tensor.Int16:
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(le.Uint16(raw[2*i:]))
		}
		return out, nil
	case tensor.FP16:
		out := make([]float16.Float16, n)
		for i := range out {
			out[i] = float16.Frombits(le.Uint16(raw[2*i:]))
		}
		return out, nil
	case tensor.BF16:
		out := make([]tensor.BFloat16, n)
		for i := range out {
			out[i] = tensor.BFloat16(le.Uint16(raw[2*i:]))
		}
		return out, nil
	case tensor.Uint32:
		out := make([]uint32, n)
		for i := range out {
			out[i] = le.Uint32(raw[4*i:])
		}
		return out, nil
	case tensor.Int32:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(le.Uint32(raw[4*i:]))
		}
		return out, nil
	case tensor.FP32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(raw[4*i:]))
		}
		return out, nil
	case tensor.Uint64:
		out := make([]uint64, n)
		for i := range out {
			out[i] = le.Uint64(raw[8*i:])
		}
		return out, nil
	case tensor.Int64:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(le.Uint64(raw[8*i:]))
		}
		return out, nil
	case tensor.FP64:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(raw[8*i:]))
		}
		return out, nil
	}
	return nil, errors.Wrapf(ErrDecode, "unsupported datatype %q", datatype)
}

// EncodeInput returns the binary wire payload of an input: its raw buffer when one was
// attached, otherwise its typed data encoded for the declared datatype.
func EncodeInput(in tensor.InputView) ([]byte, error) {
	if raw := in.RawData(); raw != nil {
		return raw, nil
	}
	if in.Data() == nil {
		return nil, api.NewValidationErrorf("input %q has no data", in.Name())
	}
	raw, err := EncodeRaw(in.Datatype(), in.Data())
	if e, ok := api.AsError(err); ok {
		return nil, api.NewValidationErrorf("input %q: %s", in.Name(), e.Message)
	}
	return raw, err
}

func mismatch(datatype tensor.Datatype, values any) error {
	return api.NewValidationErrorf("datatype %s cannot hold %T", datatype, values)
}
