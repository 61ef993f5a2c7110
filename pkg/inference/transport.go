package inference

import "context"

// Transport dispatches built requests. Implementations share one connection across
// callers and are safe for concurrent use.
type Transport interface {
	Infer(ctx context.Context, req *InferenceRequest) (*InferResult, error)
	IsServerLive(ctx context.Context) (bool, error)
	IsServerReady(ctx context.Context) (bool, error)
	IsModelReady(ctx context.Context, name, version string) (bool, error)
	Close() error
}

// Callback receives the outcome of an asynchronous call. It runs on the goroutine
// that performed the call and may run concurrently with other callbacks.
type Callback func(result *InferResult, err error)

// AsyncTransport is implemented by transports that can dispatch without blocking.
type AsyncTransport interface {
	Transport
	AsyncInfer(ctx context.Context, req *InferenceRequest, cb Callback) *Future
}
