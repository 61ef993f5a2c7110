package metric

import (
	"strconv"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
)

const (
	ExternalApiRequestCount   = "predator_client_request_count"
	ExternalApiRequestLatency = "predator_client_request_latency"
	InferLatency              = "predator_client_infer_latency"
	InferErrorCount           = "predator_client_infer_error_count"
	AsyncInferPending         = "predator_client_async_infer_pending"
	ApiRequestCount           = "predator_dummy_request_count"
	ApiRequestLatency         = "predator_dummy_request_latency"
)

var (
	// safe for concurrent use
	statsDClient = getDefaultClient()
	samplingRate = 1.0
	mu           sync.RWMutex
)

// Init points the package at a statsd agent. A failed dial keeps the default client.
func Init(address string, globalTags []string, rate float64) {
	client, err := statsd.New(address, statsd.WithTags(globalTags))
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("StatsD client initialization failed, metrics will be unavailable")
		return
	}
	mu.Lock()
	statsDClient = client
	if rate > 0 {
		samplingRate = rate
	}
	mu.Unlock()
	log.Info().Msgf("Metrics client initialized with address - %s, global tags - %v, and sampling rate - %f",
		address, globalTags, rate)
}

// SetClient replaces the statsd client and returns the previous one.
func SetClient(client statsd.ClientInterface) statsd.ClientInterface {
	mu.Lock()
	defer mu.Unlock()
	prev := statsDClient
	statsDClient = client
	return prev
}

func getDefaultClient() statsd.ClientInterface {
	client, err := statsd.New("localhost:8125", statsd.WithoutTelemetry())
	if err != nil {
		return &statsd.NoOpClient{}
	}
	return client
}

func current() (statsd.ClientInterface, float64) {
	mu.RLock()
	defer mu.RUnlock()
	return statsDClient, samplingRate
}

func Timing(name string, value time.Duration, tags []string) {
	client, rate := current()
	if err := client.Timing(name, value, tags, rate); err != nil {
		log.Warn().AnErr("Error occurred while doing statsd timing", err)
	}
}

// TimingWithStart is meant for 'defer metric.TimingWithStart(name, time.Now(), tags)'.
func TimingWithStart(name string, startTime time.Time, tags []string) {
	Timing(name, time.Since(startTime), tags)
}

func Count(name string, value int64, tags []string) {
	client, rate := current()
	if err := client.Count(name, value, tags, rate); err != nil {
		log.Warn().AnErr("Error occurred while doing statsd count", err)
	}
}

func Incr(name string, tags []string) {
	Count(name, 1, tags)
}

func Gauge(name string, value float64, tags []string) {
	client, rate := current()
	if err := client.Gauge(name, value, tags, rate); err != nil {
		log.Warn().AnErr("Error occurred while doing statsd gauge", err)
	}
}

func BuildExternalHTTPServiceTags(service, path, method string, statusCode int) []string {
	return BuildTag(
		NewTag(TagCommunicationProtocol, TagValueCommunicationProtocolHttp),
		NewTag(TagExternalService, service),
		NewTag(TagPath, path),
		NewTag(TagMethod, method),
		NewTag(TagHttpStatusCode, strconv.Itoa(statusCode)),
	)
}

func BuildExternalGRPCServiceTags(service, method string, statusCode int) []string {
	return BuildTag(
		NewTag(TagCommunicationProtocol, TagValueCommunicationProtocolGrpc),
		NewTag(TagExternalService, service),
		NewTag(TagMethod, method),
		NewTag(TagGrpcStatusCode, strconv.Itoa(statusCode)),
	)
}
