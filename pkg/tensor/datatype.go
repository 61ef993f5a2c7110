package tensor

import (
	"strings"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
)

// Datatype is the wire name of a tensor element type.
type Datatype string

const (
	Bool   Datatype = "BOOL"
	Uint8  Datatype = "UINT8"
	Uint16 Datatype = "UINT16"
	Uint32 Datatype = "UINT32"
	Uint64 Datatype = "UINT64"
	Int8   Datatype = "INT8"
	Int16  Datatype = "INT16"
	Int32  Datatype = "INT32"
	Int64  Datatype = "INT64"
	FP16   Datatype = "FP16"
	BF16   Datatype = "BF16"
	FP32   Datatype = "FP32"
	FP64   Datatype = "FP64"
	Bytes  Datatype = "BYTES"
)

// Element size lookup table, BYTES is variable length.
var elementSizeMap = map[Datatype]int{
	Bool:   1,
	Uint8:  1,
	Uint16: 2,
	Uint32: 4,
	Uint64: 8,
	Int8:   1,
	Int16:  2,
	Int32:  4,
	Int64:  8,
	FP16:   2,
	BF16:   2,
	FP32:   4,
	FP64:   8,
	Bytes:  -1,
}

// Size returns the width in bytes of one element, -1 for BYTES and 0 for unknown types.
func (d Datatype) Size() int {
	return elementSizeMap[d]
}

func (d Datatype) Valid() bool {
	_, ok := elementSizeMap[d]
	return ok
}

func (d Datatype) String() string {
	return string(d)
}

// ParseDatatype accepts the wire name in any case.
func ParseDatatype(name string) (Datatype, error) {
	d := Datatype(strings.ToUpper(strings.TrimSpace(name)))
	if !d.Valid() {
		return "", api.NewValidationErrorf("unsupported datatype %q", name)
	}
	return d, nil
}
