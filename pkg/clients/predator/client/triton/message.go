package triton

import (
	"fmt"
	"sort"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func field(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	fd := m.Descriptor().Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("triton: %s has no field %q", m.Descriptor().FullName(), name))
	}
	return fd
}

func SetString(m protoreflect.Message, name, v string) {
	m.Set(field(m, name), protoreflect.ValueOfString(v))
}

func SetBool(m protoreflect.Message, name string, v bool) {
	m.Set(field(m, name), protoreflect.ValueOfBool(v))
}

func SetInt64(m protoreflect.Message, name string, v int64) {
	m.Set(field(m, name), protoreflect.ValueOfInt64(v))
}

func SetInt32(m protoreflect.Message, name string, v int32) {
	m.Set(field(m, name), protoreflect.ValueOfInt32(v))
}

func SetUint64(m protoreflect.Message, name string, v uint64) {
	m.Set(field(m, name), protoreflect.ValueOfUint64(v))
}

func SetBytes(m protoreflect.Message, name string, v []byte) {
	m.Set(field(m, name), protoreflect.ValueOfBytes(v))
}

// SetEnum sets an enum field by value name, e.g. "TYPE_INT32".
func SetEnum(m protoreflect.Message, name, value string) {
	fd := field(m, name)
	ev := fd.Enum().Values().ByName(protoreflect.Name(value))
	if ev == nil {
		return
	}
	m.Set(fd, protoreflect.ValueOfEnum(ev.Number()))
}

func GetString(m protoreflect.Message, name string) string {
	return m.Get(field(m, name)).String()
}

func GetBool(m protoreflect.Message, name string) bool {
	return m.Get(field(m, name)).Bool()
}

func GetInt64(m protoreflect.Message, name string) int64 {
	return m.Get(field(m, name)).Int()
}

func GetUint64(m protoreflect.Message, name string) uint64 {
	return m.Get(field(m, name)).Uint()
}

func GetBytes(m protoreflect.Message, name string) []byte {
	return m.Get(field(m, name)).Bytes()
}

// GetEnum returns the value name of an enum field.
func GetEnum(m protoreflect.Message, name string) string {
	fd := field(m, name)
	ev := fd.Enum().Values().ByNumber(m.Get(fd).Enum())
	if ev == nil {
		return ""
	}
	return string(ev.Name())
}

// GetMessage returns a set singular message field, nil otherwise.
func GetMessage(m protoreflect.Message, name string) protoreflect.Message {
	fd := field(m, name)
	if !m.Has(fd) {
		return nil
	}
	return m.Get(fd).Message()
}

// MutableMessage returns a singular message field, allocating it when unset.
func MutableMessage(m protoreflect.Message, name string) protoreflect.Message {
	return m.Mutable(field(m, name)).Message()
}

func SetInt64s(m protoreflect.Message, name string, values []int64) {
	list := m.Mutable(field(m, name)).List()
	list.Truncate(0)
	for _, v := range values {
		list.Append(protoreflect.ValueOfInt64(v))
	}
}

func GetInt64s(m protoreflect.Message, name string) []int64 {
	list := m.Get(field(m, name)).List()
	out := make([]int64, list.Len())
	for i := range out {
		out[i] = list.Get(i).Int()
	}
	return out
}

func SetStrings(m protoreflect.Message, name string, values []string) {
	list := m.Mutable(field(m, name)).List()
	list.Truncate(0)
	for _, v := range values {
		list.Append(protoreflect.ValueOfString(v))
	}
}

func GetStrings(m protoreflect.Message, name string) []string {
	list := m.Get(field(m, name)).List()
	out := make([]string, list.Len())
	for i := range out {
		out[i] = list.Get(i).String()
	}
	return out
}

func AppendBytes(m protoreflect.Message, name string, v []byte) {
	m.Mutable(field(m, name)).List().Append(protoreflect.ValueOfBytes(v))
}

func GetBytesList(m protoreflect.Message, name string) [][]byte {
	list := m.Get(field(m, name)).List()
	out := make([][]byte, list.Len())
	for i := range out {
		out[i] = list.Get(i).Bytes()
	}
	return out
}

// AppendMessage adds an empty element to a repeated message field and returns it.
func AppendMessage(m protoreflect.Message, name string) protoreflect.Message {
	list := m.Mutable(field(m, name)).List()
	elem := list.NewElement()
	list.Append(elem)
	return elem.Message()
}

func GetMessages(m protoreflect.Message, name string) []protoreflect.Message {
	list := m.Get(field(m, name)).List()
	out := make([]protoreflect.Message, list.Len())
	for i := range out {
		out[i] = list.Get(i).Message()
	}
	return out
}

// PutMapMessage stores an empty message under key in a map<string, Message> field and
// returns it.
func PutMapMessage(m protoreflect.Message, name, key string) protoreflect.Message {
	mp := m.Mutable(field(m, name)).Map()
	return mp.Mutable(protoreflect.ValueOfString(key).MapKey()).Message()
}

// GetMapMessages returns the entries of a map<string, Message> field.
func GetMapMessages(m protoreflect.Message, name string) map[string]protoreflect.Message {
	mp := m.Get(field(m, name)).Map()
	out := make(map[string]protoreflect.Message, mp.Len())
	mp.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
		out[k.String()] = v.Message()
		return true
	})
	return out
}

// SetParameters writes typed parameters into a map<string, InferParameter> field.
// Keys are written in sorted order.
func SetParameters(m protoreflect.Message, name string, params tensor.Parameters) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := PutMapMessage(m, name, k)
		v := params[k]
		switch v.Kind() {
		case tensor.ParamBool:
			b, _ := v.Bool()
			SetBool(p, "bool_param", b)
		case tensor.ParamInt64:
			n, _ := v.Int64()
			SetInt64(p, "int64_param", n)
		case tensor.ParamString:
			s, _ := v.Str()
			SetString(p, "string_param", s)
		}
	}
}

// GetParameters reads a map<string, InferParameter> field. Entries with no value set
// are skipped.
func GetParameters(m protoreflect.Message, name string) tensor.Parameters {
	out := tensor.Parameters{}
	for k, p := range GetMapMessages(m, name) {
		oneof := p.Descriptor().Oneofs().ByName("parameter_choice")
		fd := p.WhichOneof(oneof)
		if fd == nil {
			continue
		}
		switch fd.Name() {
		case "bool_param":
			out[k] = tensor.BoolParam(p.Get(fd).Bool())
		case "int64_param":
			out[k] = tensor.Int64Param(p.Get(fd).Int())
		case "string_param":
			out[k] = tensor.StringParam(p.Get(fd).String())
		}
	}
	return out
}

// GetContents reads the typed contents of a tensor message.
func GetContents(tensorMsg protoreflect.Message) codec.Contents {
	c := GetMessage(tensorMsg, "contents")
	if c == nil {
		return codec.Contents{}
	}
	out := codec.Contents{
		Int64: GetInt64s(c, "int64_contents"),
		Bytes: GetBytesList(c, "bytes_contents"),
	}
	bools := c.Get(field(c, "bool_contents")).List()
	for i := 0; i < bools.Len(); i++ {
		out.Bool = append(out.Bool, bools.Get(i).Bool())
	}
	ints := c.Get(field(c, "int_contents")).List()
	for i := 0; i < ints.Len(); i++ {
		out.Int = append(out.Int, int32(ints.Get(i).Int()))
	}
	uints := c.Get(field(c, "uint_contents")).List()
	for i := 0; i < uints.Len(); i++ {
		out.Uint = append(out.Uint, uint32(uints.Get(i).Uint()))
	}
	uint64s := c.Get(field(c, "uint64_contents")).List()
	for i := 0; i < uint64s.Len(); i++ {
		out.Uint64 = append(out.Uint64, uint64s.Get(i).Uint())
	}
	fp32 := c.Get(field(c, "fp32_contents")).List()
	for i := 0; i < fp32.Len(); i++ {
		out.FP32 = append(out.FP32, float32(fp32.Get(i).Float()))
	}
	fp64 := c.Get(field(c, "fp64_contents")).List()
	for i := 0; i < fp64.Len(); i++ {
		out.FP64 = append(out.FP64, fp64.Get(i).Float())
	}
	return out
}

// SetContents writes typed contents into a tensor message.
func SetContents(tensorMsg protoreflect.Message, contents codec.Contents) {
	c := MutableMessage(tensorMsg, "contents")
	appendAll(c, "bool_contents", contents.Bool, protoreflect.ValueOfBool)
	appendAll(c, "int_contents", contents.Int, protoreflect.ValueOfInt32)
	appendAll(c, "int64_contents", contents.Int64, protoreflect.ValueOfInt64)
	appendAll(c, "uint_contents", contents.Uint, protoreflect.ValueOfUint32)
	appendAll(c, "uint64_contents", contents.Uint64, protoreflect.ValueOfUint64)
	appendAll(c, "fp32_contents", contents.FP32, protoreflect.ValueOfFloat32)
	appendAll(c, "fp64_contents", contents.FP64, protoreflect.ValueOfFloat64)
	appendAll(c, "bytes_contents", contents.Bytes, protoreflect.ValueOfBytes)
}

func appendAll[T any](m protoreflect.Message, name string, values []T, of func(T) protoreflect.Value) {
	if len(values) == 0 {
		return
	}
	list := m.Mutable(field(m, name)).List()
	for _, v := range values {
		list.Append(of(v))
	}
}
