package metric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTagValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "no special characters", input: "simple_value", expected: "simple_value"},
		{name: "host and port", input: "predator.svc:8001", expected: "predator.svc_8001"},
		{name: "url path is kept", input: "v2/models/simple/infer", expected: "v2/models/simple/infer"},
		{name: "spaces", input: "model with spaces", expected: "model_with_spaces"},
		{name: "mixed", input: "a,b|c@d#e\\f", expected: "a_b_c_d_e_f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeTagValue(tt.input))
		})
	}
}

func TestBuildTag(t *testing.T) {
	tags := BuildTag(NewTag(TagModelName, "simple"), NewTag(TagCallerId, "svc:a"))
	assert.Equal(t, []string{"model_name:simple", "caller_id:svc_a"}, tags)

	UpdateTags(&tags, NewTag(TagErrorType, "timeout"))
	assert.Len(t, tags, 3)
}

func TestBuildExternalServiceTags(t *testing.T) {
	assert.Equal(t, []string{
		"communication_protocol:grpc",
		"external_service:predator",
		"method:/inference.GRPCInferenceService/ModelInfer",
		"grpc_status_code:14",
	}, BuildExternalGRPCServiceTags("predator", "/inference.GRPCInferenceService/ModelInfer", 14))

	assert.Contains(t, BuildExternalHTTPServiceTags("predator", "v2/health/live", "GET", 200), "http_status_code:200")
}

func TestEmitWithDefaultClient(t *testing.T) {
	assert.NotPanics(t, func() {
		Count(ExternalApiRequestCount, 1, nil)
		Timing(ExternalApiRequestLatency, time.Millisecond, nil)
		Gauge(AsyncInferPending, 1, nil)
	})
}
