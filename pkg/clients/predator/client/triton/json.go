package triton

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

var jsonNumbers = jsoniter.Config{UseNumber: true}.Froze()

// ToJSON projects a message onto plain JSON values using the canonical proto JSON
// mapping (lowerCamelCase keys, 64-bit integers as strings).
func ToJSON(msg proto.Message) (map[string]any, error) {
	b, err := protojson.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "marshal message to json")
	}
	out := map[string]any{}
	if err := jsonNumbers.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "decode message json")
	}
	return out, nil
}

// MarshalJSON renders a message with its proto field names (snake_case), the way the
// REST endpoints serve structured responses.
func MarshalJSON(msg proto.Message) ([]byte, error) {
	return protojson.MarshalOptions{UseProtoNames: true}.Marshal(msg)
}
