package inference

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGo_CallbackRunsBeforeResolve(t *testing.T) {
	want := NewInferResult(ResultSource{ModelName: "simple"})
	var called atomic.Bool

	f := Go(func() (*InferResult, error) { return want, nil }, func(r *InferResult, err error) {
		assert.NoError(t, err)
		assert.Same(t, want, r)
		called.Store(true)
	})

	got, err := f.Result()
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.True(t, called.Load())
}

func TestGo_DoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	f := Go(func() (*InferResult, error) {
		<-release
		return nil, errors.New("boom")
	}, nil)

	select {
	case <-f.Done():
		t.Fatal("future resolved before the call finished")
	default:
	}
	close(release)
	_, err := f.Result()
	assert.EqualError(t, err, "boom")
}

func TestGo_CallbackPanicStillResolves(t *testing.T) {
	f := Go(func() (*InferResult, error) { return nil, nil }, func(*InferResult, error) { panic("callback") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.NoError(t, err)
}

func TestGo_CallPanicBecomesError(t *testing.T) {
	f := Go(func() (*InferResult, error) { panic("call") }, nil)
	_, err := f.Result()
	require.Error(t, err)
	assert.True(t, api.IsTransport(err))
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	f := Go(func() (*InferResult, error) {
		<-release
		return nil, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-f.Done()
}
