package codec

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const lengthPrefixSize = 4

// SerializeBytes writes every element as [uint32 little-endian length][bytes].
func SerializeBytes(elements [][]byte) []byte {
	total := 0
	for _, e := range elements {
		total += lengthPrefixSize + len(e)
	}
	buffer := make([]byte, total)
	offset := 0
	for _, e := range elements {
		binary.LittleEndian.PutUint32(buffer[offset:], uint32(len(e)))
		offset += lengthPrefixSize
		offset += copy(buffer[offset:], e)
	}
	return buffer
}

// DeserializeBytes reads length-prefixed runs until raw is exhausted. Returned
// elements do not alias raw.
func DeserializeBytes(raw []byte) ([][]byte, error) {
	elements := make([][]byte, 0)
	offset := 0
	for offset < len(raw) {
		if len(raw)-offset < lengthPrefixSize {
			return nil, errors.Wrapf(ErrDecode, "truncated length prefix at offset %d", offset)
		}
		size := int(binary.LittleEndian.Uint32(raw[offset:]))
		offset += lengthPrefixSize
		if size < 0 || size > len(raw)-offset {
			return nil, errors.Wrapf(ErrDecode, "element at offset %d wants %d bytes, %d left", offset-lengthPrefixSize, size, len(raw)-offset)
		}
		elements = append(elements, append([]byte{}, raw[offset:offset+size]...))
		offset += size
	}
	return elements, nil
}
