package codec

import (
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/x448/float16"
)

// Resize fits a flat payload to count elements. A short payload is tiled from its
// start, a long one is truncated. An empty payload grows with zero values. Unknown
// payload types are returned unchanged.
func Resize(values any, count int) any {
	switch v := values.(type) {
	case []bool:
		return resize(v, count)
	case []uint8:
		return resize(v, count)
	case []uint16:
		return resize(v, count)
	case []uint32:
		return resize(v, count)
	case []uint64:
		return resize(v, count)
	case []int8:
		return resize(v, count)
	case []int16:
		return resize(v, count)
	case []int32:
		return resize(v, count)
	case []int64:
		return resize(v, count)
	case []float16.Float16:
		return resize(v, count)
	case []tensor.BFloat16:
		return resize(v, count)
	case []float32:
		return resize(v, count)
	case []float64:
		return resize(v, count)
	case [][]byte:
		return resize(v, count)
	case []string:
		return resize(v, count)
	}
	return values
}

func resize[T any](values []T, count int) []T {
	if count < 0 {
		count = 0
	}
	if len(values) == count {
		return values
	}
	if len(values) > count {
		return values[:count:count]
	}
	out := make([]T, count)
	if len(values) == 0 {
		return out
	}
	for i := 0; i < count; i += len(values) {
		copy(out[i:], values)
	}
	return out
}

// ElementCount is the product of shape; see tensor.ElementCount.
func ElementCount(shape []int64) (int, error) {
	return tensor.ElementCount(shape)
}
