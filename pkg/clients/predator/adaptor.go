package predator

import (
	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/clients/predator/client/triton"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/inference"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/dynamicpb"
)

// jsonNumbers keeps 64-bit integers exact when decoding REST bodies.
var jsonNumbers = jsoniter.Config{UseNumber: true, SortMapKeys: true}.Froze()

// Adapter maps built requests onto each transport's wire form and wire responses
// back onto InferResult.
type Adapter struct{}

// MapRequestToProto builds a ModelInferRequest. Tensor bytes travel in
// raw_input_contents, parallel to inputs.
func (a Adapter) MapRequestToProto(req *inference.InferenceRequest) (*dynamicpb.Message, error) {
	msg := triton.NewRequest(triton.MethodModelInfer)
	triton.SetString(msg, "model_name", req.ModelName())
	if req.ModelVersion() != "" {
		triton.SetString(msg, "model_version", req.ModelVersion())
	}
	if req.RequestID() != "" {
		triton.SetString(msg, "id", req.RequestID())
	}
	if params := req.Parameters(); len(params) > 0 {
		triton.SetParameters(msg, "parameters", params)
	}

	for _, in := range req.Inputs() {
		raw, err := codec.EncodeInput(in)
		if err != nil {
			return nil, err
		}
		tensorMsg := triton.AppendMessage(msg, "inputs")
		triton.SetString(tensorMsg, "name", in.Name())
		triton.SetString(tensorMsg, "datatype", in.Datatype().String())
		triton.SetInt64s(tensorMsg, "shape", in.Shape())
		if params := in.Parameters(); len(params) > 0 {
			triton.SetParameters(tensorMsg, "parameters", params)
		}
		triton.AppendBytes(msg, "raw_input_contents", raw)
	}

	for _, out := range req.Outputs() {
		outMsg := triton.AppendMessage(msg, "outputs")
		triton.SetString(outMsg, "name", out.Name())
		params := out.Parameters()
		delete(params, tensor.ParamBinaryData)
		if len(params) > 0 {
			triton.SetParameters(outMsg, "parameters", params)
		}
	}
	return msg, nil
}

// MapProtoToResult wraps a ModelInferResponse. Outputs are read from
// raw_output_contents when the server filled it and from typed contents otherwise.
func (a Adapter) MapProtoToResult(resp *dynamicpb.Message) (*inference.InferResult, error) {
	outputs := triton.GetMessages(resp, "outputs")
	raw := triton.GetBytesList(resp, "raw_output_contents")
	if len(raw) > 0 && len(raw) != len(outputs) {
		return nil, api.NewDecodeError(errors.Wrapf(codec.ErrDecode,
			"%d raw output buffers for %d outputs", len(raw), len(outputs)))
	}

	src := inference.ResultSource{
		ModelName:    triton.GetString(resp, "model_name"),
		ModelVersion: triton.GetString(resp, "model_version"),
		ID:           triton.GetString(resp, "id"),
		Parameters:   triton.GetParameters(resp, "parameters"),
		Outputs:      make([]inference.OutputTensor, len(outputs)),
		Response:     resp,
		JSON:         func() (map[string]any, error) { return triton.ToJSON(resp) },
	}
	for i, out := range outputs {
		datatype := tensor.Datatype(triton.GetString(out, "datatype"))
		o := inference.OutputTensor{
			Name:       triton.GetString(out, "name"),
			Datatype:   datatype,
			Shape:      triton.GetInt64s(out, "shape"),
			Parameters: triton.GetParameters(out, "parameters"),
		}
		if len(raw) > 0 {
			buf := raw[i]
			o.Decode = func() (any, error) { return codec.DecodeRaw(datatype, buf) }
		} else {
			contents := triton.GetContents(out)
			o.Decode = func() (any, error) { return codec.DecodeContents(datatype, contents) }
		}
		src.Outputs[i] = o
	}
	return inference.NewInferResult(src), nil
}

// MapRequestToJSON builds the REST infer body. id and parameters are omitted when
// empty.
func (a Adapter) MapRequestToJSON(req *inference.InferenceRequest) ([]byte, error) {
	body := codec.JSONInferRequest{
		ID:     req.RequestID(),
		Inputs: make([]codec.JSONInput, 0, len(req.Inputs())),
	}
	if params := req.Parameters(); len(params) > 0 {
		body.Parameters = params.Map()
	}
	for _, in := range req.Inputs() {
		j, err := codec.InputToJSON(in)
		if err != nil {
			return nil, err
		}
		body.Inputs = append(body.Inputs, j)
	}
	for _, out := range req.Outputs() {
		body.Outputs = append(body.Outputs, codec.OutputToJSON(out))
	}
	b, err := jsonNumbers.Marshal(body)
	if err != nil {
		return nil, api.NewValidationErrorf("encode infer request: %s", err)
	}
	return b, nil
}

// MapJSONToResult decodes a REST infer response body.
func (a Adapter) MapJSONToResult(body []byte) (*inference.InferResult, error) {
	var resp codec.JSONInferResponse
	if err := jsonNumbers.Unmarshal(body, &resp); err != nil {
		return nil, api.NewDecodeError(errors.Wrapf(codec.ErrDecode, "infer response: %s", err))
	}
	params, err := codec.ParamsFromJSON(resp.Parameters)
	if err != nil {
		return nil, api.NewDecodeError(err)
	}

	src := inference.ResultSource{
		ModelName:    resp.ModelName,
		ModelVersion: resp.ModelVersion,
		ID:           resp.ID,
		Parameters:   params,
		Outputs:      make([]inference.OutputTensor, len(resp.Outputs)),
		Response:     &resp,
		JSON:         func() (map[string]any, error) { return decodeJSONObject(body) },
	}
	for i, out := range resp.Outputs {
		outParams, err := codec.ParamsFromJSON(out.Parameters)
		if err != nil {
			return nil, api.NewDecodeError(err)
		}
		datatype := tensor.Datatype(out.Datatype)
		data := out.Data
		src.Outputs[i] = inference.OutputTensor{
			Name:       out.Name,
			Datatype:   datatype,
			Shape:      out.Shape,
			Parameters: outParams,
			Decode:     func() (any, error) { return codec.DecodeJSON(datatype, data) },
		}
	}
	return inference.NewInferResult(src), nil
}

func decodeJSONObject(body []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(body) == 0 {
		return out, nil
	}
	if err := jsonNumbers.Unmarshal(body, &out); err != nil {
		return nil, api.NewDecodeError(errors.Wrapf(codec.ErrDecode, "response body: %s", err))
	}
	return out, nil
}
