package predator

import (
	"context"
	"encoding/base64"
	"sync/atomic"
	"time"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/clients/predator/client/triton"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/grpcclient"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/inference"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/metric"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	// Header keys for authentication
	headerCallerID      = "PREDATOR-CALLER-ID"
	headerCallerToken   = "PREDATOR-AUTH-TOKEN"
	predatorServiceName = "predator"
)

// GRPCClient talks to the inference service over one multiplexed connection shared by
// all callers.
type GRPCClient struct {
	adapter  Adapter
	callerId string
	headers  metadata.MD
	verbose  bool
	conn     *grpcclient.GRPCClient
	pending  atomic.Int64
}

// NewGRPCClient validates config and creates the connection. No I/O happens until the
// first call.
func NewGRPCClient(config *Config) (*GRPCClient, error) {
	if config == nil {
		_, err := validConfigs(nil)
		return nil, err
	}
	conf := *config
	conf.Protocol = ProtocolGRPC
	conf.applyDefaults()
	if valid, err := validConfigs(&conf); !valid {
		return nil, err
	}

	conn, err := grpcclient.NewConnFromConfig(&grpcclient.Config{
		Host:           conf.Host,
		Port:           conf.Port,
		DeadLine:       conf.DeadlineMS,
		PlainText:      conf.PlainText,
		TLSConfig:      conf.TLSConfig,
		ConnectTimeout: conf.connectionTimeout(),
		DialOptions:    conf.DialOptions,
	}, predatorServiceName)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{
		adapter:  Adapter{},
		callerId: conf.CallerId,
		headers:  getMetadata(conf.CallerId, conf.CallerToken),
		verbose:  conf.Verbose,
		conn:     conn,
	}, nil
}

func getMetadata(callerId string, callerToken string) metadata.MD {
	md := metadata.New(nil)
	if callerId != "" {
		md.Set(headerCallerID, callerId)
	}
	if callerToken != "" {
		md.Set(headerCallerToken, callerToken)
	}
	return md
}

// call runs one unary RPC with the configured deadline and headers.
func (c *GRPCClient) call(ctx context.Context, method string, req proto.Message) (*dynamicpb.Message, error) {
	ctx, cancel := c.conn.WithDeadline(ctx)
	defer cancel()
	if len(c.headers) > 0 {
		ctx = metadata.NewOutgoingContext(ctx, c.headers)
	}
	if c.verbose {
		log.Debug().Str("method", method).Interface("request", messageJSON(req)).Msg("Sending request to predator")
	}
	resp, err := triton.Call(ctx, c.conn, method, req)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Msg("Predator call failed")
		return nil, api.FromGRPC(err)
	}
	if c.verbose {
		log.Debug().Str("method", method).Interface("response", messageJSON(resp)).Msg("Received response from predator")
	}
	return resp, nil
}

func messageJSON(msg proto.Message) any {
	j, err := triton.ToJSON(msg)
	if err != nil {
		return err.Error()
	}
	return j
}

// Infer runs one ModelInfer and blocks until it completes.
func (c *GRPCClient) Infer(ctx context.Context, req *inference.InferenceRequest) (*inference.InferResult, error) {
	msg, err := c.mapRequest(req)
	if err != nil {
		return nil, err
	}
	return c.infer(ctx, req.ModelName(), msg)
}

// AsyncInfer dispatches without blocking. cb, when non-nil, runs on the goroutine
// that performed the call; the returned Future resolves after cb returns. Validation
// failures are delivered the same way.
func (c *GRPCClient) AsyncInfer(ctx context.Context, req *inference.InferenceRequest, cb inference.Callback) *inference.Future {
	msg, err := c.mapRequest(req)
	if err != nil {
		return inference.Go(func() (*inference.InferResult, error) { return nil, err }, cb)
	}
	metric.Gauge(metric.AsyncInferPending, float64(c.pending.Add(1)), c.buildMetricTags(req.ModelName(), ""))
	return inference.Go(func() (*inference.InferResult, error) {
		defer func() {
			metric.Gauge(metric.AsyncInferPending, float64(c.pending.Add(-1)), c.buildMetricTags(req.ModelName(), ""))
		}()
		return c.infer(ctx, req.ModelName(), msg)
	}, cb)
}

func (c *GRPCClient) mapRequest(req *inference.InferenceRequest) (*dynamicpb.Message, error) {
	if req == nil {
		return nil, api.NewValidationError("inference request is nil")
	}
	return c.adapter.MapRequestToProto(req)
}

func (c *GRPCClient) infer(ctx context.Context, modelName string, msg *dynamicpb.Message) (*inference.InferResult, error) {
	startTime := time.Now()
	resp, err := c.call(ctx, triton.MethodModelInfer, msg)
	if err != nil {
		metric.Incr(metric.InferErrorCount, c.buildMetricTags(modelName, errorType(err)))
		return nil, err
	}
	metric.Timing(metric.InferLatency, time.Since(startTime), c.buildMetricTags(modelName, ""))
	return c.adapter.MapProtoToResult(resp)
}

func errorType(err error) string {
	if e, ok := api.AsError(err); ok {
		return e.Status()
	}
	return "unknown"
}

func (c *GRPCClient) buildMetricTags(modelName string, errorType string) []string {
	tags := metric.BuildTag(
		metric.NewTag(metric.TagModelName, modelName),
		metric.NewTag(metric.TagCallerId, c.callerId),
		metric.NewTag(metric.TagCommunicationProtocol, metric.TagValueCommunicationProtocolGrpc),
	)
	if errorType != "" {
		metric.UpdateTags(&tags, metric.NewTag(metric.TagErrorType, errorType))
	}
	return tags
}

func (c *GRPCClient) IsServerLive(ctx context.Context) (bool, error) {
	resp, err := c.call(ctx, triton.MethodServerLive, triton.NewRequest(triton.MethodServerLive))
	if err != nil {
		return false, err
	}
	return triton.GetBool(resp, "live"), nil
}

func (c *GRPCClient) IsServerReady(ctx context.Context) (bool, error) {
	resp, err := c.call(ctx, triton.MethodServerReady, triton.NewRequest(triton.MethodServerReady))
	if err != nil {
		return false, err
	}
	return triton.GetBool(resp, "ready"), nil
}

// IsModelReady checks one model. An empty version lets the server choose.
func (c *GRPCClient) IsModelReady(ctx context.Context, name, version string) (bool, error) {
	resp, err := c.call(ctx, triton.MethodModelReady, modelRequest(triton.MethodModelReady, name, version))
	if err != nil {
		return false, err
	}
	return triton.GetBool(resp, "ready"), nil
}

func modelRequest(method, name, version string) *dynamicpb.Message {
	req := triton.NewRequest(method)
	triton.SetString(req, "name", name)
	if version != "" {
		triton.SetString(req, "version", version)
	}
	return req
}

func (c *GRPCClient) ServerMetadata(ctx context.Context) (*dynamicpb.Message, error) {
	return c.call(ctx, triton.MethodServerMetadata, triton.NewRequest(triton.MethodServerMetadata))
}

func (c *GRPCClient) ModelMetadata(ctx context.Context, name, version string) (*dynamicpb.Message, error) {
	return c.call(ctx, triton.MethodModelMetadata, modelRequest(triton.MethodModelMetadata, name, version))
}

func (c *GRPCClient) ModelConfig(ctx context.Context, name, version string) (*dynamicpb.Message, error) {
	return c.call(ctx, triton.MethodModelConfig, modelRequest(triton.MethodModelConfig, name, version))
}

func (c *GRPCClient) ModelStatistics(ctx context.Context, name, version string) (*dynamicpb.Message, error) {
	return c.call(ctx, triton.MethodModelStatistics, modelRequest(triton.MethodModelStatistics, name, version))
}

func (c *GRPCClient) RepositoryIndex(ctx context.Context) (*dynamicpb.Message, error) {
	return c.call(ctx, triton.MethodRepositoryIndex, triton.NewRequest(triton.MethodRepositoryIndex))
}

func (c *GRPCClient) LoadModel(ctx context.Context, name string) error {
	req := triton.NewRequest(triton.MethodRepositoryModelLoad)
	triton.SetString(req, "model_name", name)
	_, err := c.call(ctx, triton.MethodRepositoryModelLoad, req)
	return err
}

func (c *GRPCClient) UnloadModel(ctx context.Context, name string) error {
	req := triton.NewRequest(triton.MethodRepositoryModelUnload)
	triton.SetString(req, "model_name", name)
	_, err := c.call(ctx, triton.MethodRepositoryModelUnload, req)
	return err
}

// SystemSharedMemoryStatus reports one region, or all of them when name is empty.
func (c *GRPCClient) SystemSharedMemoryStatus(ctx context.Context, name string) (*dynamicpb.Message, error) {
	req := triton.NewRequest(triton.MethodSystemSharedMemoryStatus)
	triton.SetString(req, "name", name)
	return c.call(ctx, triton.MethodSystemSharedMemoryStatus, req)
}

func (c *GRPCClient) RegisterSystemSharedMemory(ctx context.Context, name, key string, byteSize, offset uint64) error {
	req := triton.NewRequest(triton.MethodSystemSharedMemoryRegister)
	triton.SetString(req, "name", name)
	triton.SetString(req, "key", key)
	triton.SetUint64(req, "offset", offset)
	triton.SetUint64(req, "byte_size", byteSize)
	_, err := c.call(ctx, triton.MethodSystemSharedMemoryRegister, req)
	return err
}

// UnregisterSystemSharedMemory removes one region, or all of them when name is empty.
func (c *GRPCClient) UnregisterSystemSharedMemory(ctx context.Context, name string) error {
	req := triton.NewRequest(triton.MethodSystemSharedMemoryUnregister)
	triton.SetString(req, "name", name)
	_, err := c.call(ctx, triton.MethodSystemSharedMemoryUnregister, req)
	return err
}

func (c *GRPCClient) CudaSharedMemoryStatus(ctx context.Context, name string) (*dynamicpb.Message, error) {
	req := triton.NewRequest(triton.MethodCudaSharedMemoryStatus)
	triton.SetString(req, "name", name)
	return c.call(ctx, triton.MethodCudaSharedMemoryStatus, req)
}

// RegisterCudaSharedMemory registers a CUDA IPC handle given in base64.
func (c *GRPCClient) RegisterCudaSharedMemory(ctx context.Context, name, rawHandle string, deviceID int64, byteSize uint64) error {
	handle, err := base64.StdEncoding.DecodeString(rawHandle)
	if err != nil {
		return api.NewValidationErrorf("cuda shared memory %q: raw handle is not base64: %s", name, err)
	}
	req := triton.NewRequest(triton.MethodCudaSharedMemoryRegister)
	triton.SetString(req, "name", name)
	triton.SetBytes(req, "raw_handle", handle)
	triton.SetInt64(req, "device_id", deviceID)
	triton.SetUint64(req, "byte_size", byteSize)
	_, err = c.call(ctx, triton.MethodCudaSharedMemoryRegister, req)
	return err
}

func (c *GRPCClient) UnregisterCudaSharedMemory(ctx context.Context, name string) error {
	req := triton.NewRequest(triton.MethodCudaSharedMemoryUnregister)
	triton.SetString(req, "name", name)
	_, err := c.call(ctx, triton.MethodCudaSharedMemoryUnregister, req)
	return err
}

func (c *GRPCClient) ServerMetadataJSON(ctx context.Context) (map[string]any, error) {
	return asJSON(c.ServerMetadata(ctx))
}

func (c *GRPCClient) ModelMetadataJSON(ctx context.Context, name, version string) (map[string]any, error) {
	return asJSON(c.ModelMetadata(ctx, name, version))
}

func (c *GRPCClient) ModelConfigJSON(ctx context.Context, name, version string) (map[string]any, error) {
	return asJSON(c.ModelConfig(ctx, name, version))
}

func (c *GRPCClient) ModelStatisticsJSON(ctx context.Context, name, version string) (map[string]any, error) {
	return asJSON(c.ModelStatistics(ctx, name, version))
}

func (c *GRPCClient) RepositoryIndexJSON(ctx context.Context) (map[string]any, error) {
	return asJSON(c.RepositoryIndex(ctx))
}

// AsJSON projects an admin response onto plain JSON values.
func AsJSON(msg proto.Message) (map[string]any, error) {
	out, err := triton.ToJSON(msg)
	if err != nil {
		return nil, api.NewDecodeError(err)
	}
	return out, nil
}

func asJSON(msg *dynamicpb.Message, err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	return AsJSON(msg)
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
