package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/inference"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/spf13/cobra"
)

type inferFlags struct {
	model     modelFlags
	requestID string
	inputs    []string
	outputs   []string
	params    []string
}

type outputJSON struct {
	Name     string  `json:"name"`
	Datatype string  `json:"datatype"`
	Shape    []int64 `json:"shape"`
	Data     []any   `json:"data"`
}

type inferJSON struct {
	ModelName    string         `json:"model_name"`
	ModelVersion string         `json:"model_version,omitempty"`
	ID           string         `json:"id,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Outputs      []outputJSON   `json:"outputs"`
}

func (a *app) newInferCommand() *cobra.Command {
	var f inferFlags
	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Run one inference request",
		Example: "  predatorctl infer -m simple \\\n" +
			"    --input INPUT0:INT32:1x4:1,2,3,4 --input INPUT1:INT32:1x4:1,1,1,1 --output OUTPUT0",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildRequest(f)
			if err != nil {
				return err
			}
			result, err := a.client.Infer(cmd.Context(), req)
			if err != nil {
				return err
			}
			out, err := renderResult(result)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	f.model.register(cmd)
	cmd.Flags().StringVar(&f.requestID, "id", "", "request id echoed by the server")
	cmd.Flags().StringArrayVarP(&f.inputs, "input", "i", nil, "input as NAME:DATATYPE:SHAPE:v1,v2,.. with SHAPE like 1x4, repeatable")
	cmd.Flags().StringArrayVarP(&f.outputs, "output", "o", nil, "requested output name, repeatable")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "request parameter as key=value, repeatable")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func buildRequest(f inferFlags) (*inference.InferenceRequest, error) {
	b := inference.NewRequestBuilder(f.model.name).Version(f.model.version).RequestID(f.requestID)
	for _, spec := range f.inputs {
		in, err := parseInput(spec)
		if err != nil {
			return nil, err
		}
		b.Input(in)
	}
	for _, name := range f.outputs {
		b.Output(tensor.NewInferOutput(name))
	}
	for _, kv := range f.params {
		key, value, err := parseParam(kv)
		if err != nil {
			return nil, err
		}
		b.ParameterValue(key, value)
	}
	return b.Build()
}

// parseInput reads NAME:DATATYPE:SHAPE:VALUES. BYTES values are taken verbatim and
// cannot contain commas.
func parseInput(spec string) (*tensor.InferInput, error) {
	parts := strings.SplitN(spec, ":", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("input %q: want NAME:DATATYPE:SHAPE:VALUES", spec)
	}
	name := parts[0]
	if name == "" {
		return nil, fmt.Errorf("input %q: empty name", spec)
	}
	datatype, err := tensor.ParseDatatype(parts[1])
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", name, err)
	}
	shape, err := parseShape(parts[2])
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", name, err)
	}
	values, err := parseValues(datatype, parts[3])
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", name, err)
	}
	in := tensor.NewInferInput(name, shape, datatype)
	if err := in.SetData(values); err != nil {
		return nil, fmt.Errorf("input %q: %w", name, err)
	}
	return in, nil
}

func parseShape(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	dims := strings.Split(s, "x")
	shape := make([]int64, len(dims))
	for i, d := range dims {
		n, err := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad dimension %q in shape %q", d, s)
		}
		shape[i] = n
	}
	return shape, nil
}

// parseValues feeds the comma separated literals through the JSON decoder so the CLI
// accepts exactly what a REST body would.
func parseValues(datatype tensor.Datatype, s string) (any, error) {
	var fields []string
	if s != "" {
		fields = strings.Split(s, ",")
	}
	data := make([]any, len(fields))
	for i, f := range fields {
		switch datatype {
		case tensor.Bytes:
			data[i] = f
		case tensor.Bool:
			b, err := strconv.ParseBool(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("bad BOOL value %q", f)
			}
			data[i] = b
		default:
			data[i] = json.Number(strings.TrimSpace(f))
		}
	}
	return codec.DecodeJSON(datatype, data)
}

// parseParam reads key=value. Integers and true/false keep their type.
func parseParam(kv string) (string, any, error) {
	key, value, ok := strings.Cut(kv, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("param %q: want key=value", kv)
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return key, n, nil
	}
	switch value {
	case "true":
		return key, true, nil
	case "false":
		return key, false, nil
	}
	return key, value, nil
}

func renderResult(result *inference.InferResult) (inferJSON, error) {
	out := inferJSON{
		ModelName:    result.ModelName(),
		ModelVersion: result.ModelVersion(),
		ID:           result.ID(),
		Parameters:   result.Parameters().Map(),
		Outputs:      []outputJSON{},
	}
	for _, name := range result.OutputNames() {
		arr, found, err := result.AsArray(name)
		if err != nil {
			return inferJSON{}, err
		}
		if !found {
			continue
		}
		data, err := codec.EncodeJSON(arr.Datatype, arr.Raw())
		if err != nil {
			return inferJSON{}, err
		}
		out.Outputs = append(out.Outputs, outputJSON{
			Name:     arr.Name,
			Datatype: arr.Datatype.String(),
			Shape:    arr.Shape,
			Data:     data,
		})
	}
	return out, nil
}
