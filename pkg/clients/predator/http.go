package predator

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/inference"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/metric"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// HTTPClient talks to the REST endpoint of the inference service. Every call is
// synchronous; ConnectionCount bounds how many run at once across callers.
type HTTPClient struct {
	adapter           Adapter
	callerId          string
	client            *resty.Client
	transport         *http.Transport
	sem               *semaphore.Weighted
	verbose           bool
	legacyResultFetch bool
}

func NewHTTPClient(config *Config) (*HTTPClient, error) {
	if config == nil {
		_, err := validConfigs(nil)
		return nil, err
	}
	conf := *config
	conf.Protocol = ProtocolHTTP
	conf.applyDefaults()
	if valid, err := validConfigs(&conf); !valid {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: conf.connectionTimeout()}).DialContext,
		MaxConnsPerHost:     conf.ConnectionCount,
		MaxIdleConnsPerHost: conf.ConnectionCount,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     conf.TLSConfig,
	}
	client := resty.New().
		SetTransport(transport).
		SetBaseURL(baseURL(&conf)).
		SetTimeout(conf.networkTimeout())
	if conf.CallerId != "" {
		client.SetHeader(headerCallerID, conf.CallerId)
	}
	if conf.CallerToken != "" {
		client.SetHeader(headerCallerToken, conf.CallerToken)
	}

	return &HTTPClient{
		adapter:           Adapter{},
		callerId:          conf.CallerId,
		client:            client,
		transport:         transport,
		sem:               semaphore.NewWeighted(int64(conf.ConnectionCount)),
		verbose:           conf.Verbose,
		legacyResultFetch: conf.LegacyResultFetch,
	}, nil
}

func baseURL(conf *Config) string {
	if strings.Contains(conf.Host, "://") {
		return strings.TrimSuffix(conf.Host, "/")
	}
	scheme := "https"
	if conf.PlainText {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(conf.Host, conf.Port)
}

func modelPath(name, version string) string {
	path := "v2/models/" + url.PathEscape(name)
	if version != "" {
		path += "/versions/" + url.PathEscape(version)
	}
	return path
}

// acquire reserves one of the configured connections for a whole call.
func (c *HTTPClient) acquire(ctx context.Context) (func(), error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, api.FromTransport(err)
	}
	return func() { c.sem.Release(1) }, nil
}

// send performs one exchange. Only transport failures are returned as errors; the
// caller inspects the status.
func (c *HTTPClient) send(ctx context.Context, method, path string, body []byte) (*resty.Response, error) {
	r := c.client.R().SetContext(ctx)
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if c.verbose {
		log.Debug().Str("method", method).Str("uri", path).Bytes("body", body).Msg("Sending request to predator")
	}
	startTime := time.Now()
	resp, err := r.Execute(method, path)
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode()
	}
	tags := metric.BuildExternalHTTPServiceTags(predatorServiceName, path, method, statusCode)
	metric.Timing(metric.ExternalApiRequestLatency, time.Since(startTime), tags)
	metric.Count(metric.ExternalApiRequestCount, 1, tags)
	if err != nil {
		log.Warn().Err(err).Str("method", method).Str("uri", path).Msg("Predator request failed")
		return nil, api.FromTransport(err)
	}
	if c.verbose {
		log.Debug().Int("status", statusCode).Str("uri", path).Bytes("body", resp.Body()).Msg("Received response from predator")
	}
	return resp, nil
}

// do runs one exchange and turns a non-200 status into the decoded error envelope.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, api.FromHTTPResponse(resp.StatusCode(), resp.Body())
	}
	return resp.Body(), nil
}

// Infer posts the request to the model's infer URI. With LegacyResultFetch the result
// is read from a following GET of the same URI instead of the POST response.
func (c *HTTPClient) Infer(ctx context.Context, req *inference.InferenceRequest) (*inference.InferResult, error) {
	if req == nil {
		return nil, api.NewValidationError("inference request is nil")
	}
	body, err := c.adapter.MapRequestToJSON(req)
	if err != nil {
		return nil, err
	}
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	path := modelPath(req.ModelName(), req.ModelVersion()) + "/infer"
	startTime := time.Now()
	result, err := c.do(ctx, http.MethodPost, path, body)
	if err == nil && c.legacyResultFetch {
		result, err = c.do(ctx, http.MethodGet, path, nil)
	}
	if err != nil {
		metric.Incr(metric.InferErrorCount, c.buildMetricTags(req.ModelName(), errorType(err)))
		return nil, err
	}
	metric.Timing(metric.InferLatency, time.Since(startTime), c.buildMetricTags(req.ModelName(), ""))
	return c.adapter.MapJSONToResult(result)
}

func (c *HTTPClient) buildMetricTags(modelName string, errorType string) []string {
	return metric.BuildTag(
		metric.NewTag(metric.TagModelName, modelName),
		metric.NewTag(metric.TagCallerId, c.callerId),
		metric.NewTag(metric.TagCommunicationProtocol, metric.TagValueCommunicationProtocolHttp),
		metric.NewTag(metric.TagErrorType, errorType),
	)
}

// probe reports whether path answers 200.
func (c *HTTPClient) probe(ctx context.Context, path string) (bool, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()
	resp, err := c.send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}
	return resp.StatusCode() == http.StatusOK, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, method, path string) (map[string]any, error) {
	body, err := c.fetch(ctx, method, path)
	if err != nil {
		return nil, err
	}
	return decodeJSONObject(body)
}

func (c *HTTPClient) fetch(ctx context.Context, method, path string) ([]byte, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.do(ctx, method, path, nil)
}

func (c *HTTPClient) IsServerLive(ctx context.Context) (bool, error) {
	return c.probe(ctx, "v2/health/live")
}

func (c *HTTPClient) IsServerReady(ctx context.Context) (bool, error) {
	return c.probe(ctx, "v2/health/ready")
}

func (c *HTTPClient) IsModelReady(ctx context.Context, name, version string) (bool, error) {
	return c.probe(ctx, modelPath(name, version)+"/ready")
}

func (c *HTTPClient) ServerMetadata(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, http.MethodGet, "v2")
}

func (c *HTTPClient) ModelMetadata(ctx context.Context, name, version string) (map[string]any, error) {
	return c.getJSON(ctx, http.MethodGet, modelPath(name, version))
}

func (c *HTTPClient) ModelConfig(ctx context.Context, name, version string) (map[string]any, error) {
	return c.getJSON(ctx, http.MethodGet, modelPath(name, version)+"/config")
}

// ModelStatistics covers every loaded model when name is empty.
func (c *HTTPClient) ModelStatistics(ctx context.Context, name, version string) (map[string]any, error) {
	if name == "" {
		return c.getJSON(ctx, http.MethodGet, "v2/models/stats")
	}
	return c.getJSON(ctx, http.MethodGet, modelPath(name, version)+"/stats")
}

// RepositoryIndex returns {"models": [...]}, the same shape as the gRPC projection.
// The REST endpoint answers with a bare array.
func (c *HTTPClient) RepositoryIndex(ctx context.Context) (map[string]any, error) {
	body, err := c.fetch(ctx, http.MethodPost, "v2/repository/index")
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return decodeJSONObject(body)
	}
	var models []any
	if err := jsonNumbers.Unmarshal(trimmed, &models); err != nil {
		return nil, api.NewDecodeError(errors.Wrapf(codec.ErrDecode, "repository index: %s", err))
	}
	return map[string]any{"models": models}, nil
}

func (c *HTTPClient) LoadModel(ctx context.Context, name string) error {
	_, err := c.getJSON(ctx, http.MethodPost, "v2/repository/models/"+url.PathEscape(name)+"/load")
	return err
}

func (c *HTTPClient) UnloadModel(ctx context.Context, name string) error {
	_, err := c.getJSON(ctx, http.MethodPost, "v2/repository/models/"+url.PathEscape(name)+"/unload")
	return err
}

func (c *HTTPClient) ServerMetadataJSON(ctx context.Context) (map[string]any, error) {
	return c.ServerMetadata(ctx)
}

func (c *HTTPClient) ModelMetadataJSON(ctx context.Context, name, version string) (map[string]any, error) {
	return c.ModelMetadata(ctx, name, version)
}

func (c *HTTPClient) ModelConfigJSON(ctx context.Context, name, version string) (map[string]any, error) {
	return c.ModelConfig(ctx, name, version)
}

func (c *HTTPClient) ModelStatisticsJSON(ctx context.Context, name, version string) (map[string]any, error) {
	return c.ModelStatistics(ctx, name, version)
}

func (c *HTTPClient) RepositoryIndexJSON(ctx context.Context) (map[string]any, error) {
	return c.RepositoryIndex(ctx)
}

// Close drops idle connections. Calls made afterwards open new ones.
func (c *HTTPClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
