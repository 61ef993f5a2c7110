package tensor

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
)

// ParamKind tags the value held by a ParamValue.
type ParamKind int

const (
	ParamInvalid ParamKind = iota
	ParamInt64
	ParamBool
	ParamString
)

func (k ParamKind) String() string {
	switch k {
	case ParamInt64:
		return "int64"
	case ParamBool:
		return "bool"
	case ParamString:
		return "string"
	default:
		return "invalid"
	}
}

// ParamValue holds exactly one of int64, bool or string. The zero value is invalid and
// is rejected wherever a parameter is set.
type ParamValue struct {
	kind ParamKind
	i    int64
	b    bool
	s    string
}

func Int64Param(v int64) ParamValue {
	return ParamValue{kind: ParamInt64, i: v}
}

func BoolParam(v bool) ParamValue {
	return ParamValue{kind: ParamBool, b: v}
}

func StringParam(v string) ParamValue {
	return ParamValue{kind: ParamString, s: v}
}

// ParamOf converts a dynamically typed value. Integers that fit in int64, bool and
// string are accepted; floats, nil, slices, maps and everything else are rejected.
func ParamOf(v any) (ParamValue, error) {
	switch x := v.(type) {
	case ParamValue:
		if x.kind == ParamInvalid {
			return ParamValue{}, api.NewValidationError("unsupported value type for the parameter: invalid ParamValue")
		}
		return x, nil
	case bool:
		return BoolParam(x), nil
	case string:
		return StringParam(x), nil
	case int:
		return Int64Param(int64(x)), nil
	case int8:
		return Int64Param(int64(x)), nil
	case int16:
		return Int64Param(int64(x)), nil
	case int32:
		return Int64Param(int64(x)), nil
	case int64:
		return Int64Param(x), nil
	case uint8:
		return Int64Param(int64(x)), nil
	case uint16:
		return Int64Param(int64(x)), nil
	case uint32:
		return Int64Param(int64(x)), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return ParamValue{}, api.NewValidationErrorf("parameter value %d overflows int64", x)
		}
		return Int64Param(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return ParamValue{}, api.NewValidationErrorf("parameter value %d overflows int64", x)
		}
		return Int64Param(int64(x)), nil
	default:
		return ParamValue{}, api.NewValidationErrorf("unsupported value type %T for the parameter", v)
	}
}

func (p ParamValue) Kind() ParamKind {
	return p.kind
}

func (p ParamValue) Int64() (int64, bool) {
	return p.i, p.kind == ParamInt64
}

func (p ParamValue) Bool() (bool, bool) {
	return p.b, p.kind == ParamBool
}

func (p ParamValue) Str() (string, bool) {
	return p.s, p.kind == ParamString
}

// Interface returns the held value as int64, bool or string.
func (p ParamValue) Interface() any {
	switch p.kind {
	case ParamInt64:
		return p.i
	case ParamBool:
		return p.b
	case ParamString:
		return p.s
	default:
		return nil
	}
}

func (p ParamValue) String() string {
	switch p.kind {
	case ParamInt64:
		return strconv.FormatInt(p.i, 10)
	case ParamBool:
		return strconv.FormatBool(p.b)
	case ParamString:
		return p.s
	default:
		return "<invalid>"
	}
}

// Parameters maps a parameter key to its value. Keys are unique; last write wins.
type Parameters map[string]ParamValue

// Set validates v and stores it under key.
func (p Parameters) Set(key string, v ParamValue) error {
	if v.kind == ParamInvalid {
		return api.NewValidationError(fmt.Sprintf("unsupported value type for the parameter %q", key))
	}
	p[key] = v
	return nil
}

// Clone copies the map; nil stays nil.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Map returns the parameters as plain JSON-friendly values.
func (p Parameters) Map() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}
