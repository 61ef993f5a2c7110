package inference

import (
	"context"
	"fmt"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
)

// Future resolves once, after the call finished and its callback returned.
type Future struct {
	done   chan struct{}
	result *InferResult
	err    error
}

// Go runs call on a new goroutine, then cb on that same goroutine, then resolves the
// returned Future. A panicking callback is logged; the Future still resolves.
func Go(call func() (*InferResult, error), cb Callback) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.result, f.err = run(call)
		if cb != nil {
			invoke(cb, f.result, f.err)
		}
	}()
	return f
}

func run(call func() (*InferResult, error)) (result *InferResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Panic occurred while running inference call")
			result, err = nil, &api.Error{Kind: api.KindTransport, Code: codes.Internal, Message: fmt.Sprintf("panic in inference call: %v", r)}
		}
	}()
	return call()
}

func invoke(cb Callback, result *InferResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Panic occurred in inference callback")
		}
	}()
	cb(result, err)
}

// Done is closed once the Future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future resolves or ctx ends. A ctx error does not cancel
// the call.
func (f *Future) Wait(ctx context.Context) (*InferResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until the Future resolves.
func (f *Future) Result() (*InferResult, error) {
	<-f.done
	return f.result, f.err
}
