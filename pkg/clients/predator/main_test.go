package predator

import (
	"context"
	"net"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/Meesho/BharatMLStack/predator-client/internal/dummyserver"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/metric"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func resetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[int]Client)
	onceMap = make(map[int]*sync.Once)
}

// timings records Timing calls by metric name and drops everything else.
type timings struct {
	statsd.NoOpClient
	mu   sync.Mutex
	tags map[string][][]string
}

func (r *timings) Timing(name string, _ time.Duration, tags []string, _ float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[name] = append(r.tags[name], tags)
	return nil
}

func (r *timings) get(name string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tags[name]
}

func recordTimings(t *testing.T) *timings {
	t.Helper()
	r := &timings{tags: map[string][][]string{}}
	prev := metric.SetClient(r)
	t.Cleanup(func() { metric.SetClient(prev) })
	return r
}

// startGRPC serves g on an in-memory listener and returns a client dialed to it.
func startGRPC(t *testing.T, g *grpc.Server, mutate ...func(*Config)) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = g.Serve(lis) }()

	conf := &Config{
		Host:      "passthrough:///bufnet",
		PlainText: true,
		CallerId:  "predator-client-test",
		DialOptions: []grpc.DialOption{
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	}
	for _, f := range mutate {
		f(conf)
	}
	client, err := NewGRPCClient(conf)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		g.Stop()
	})
	return client
}

func startDummyGRPC(t *testing.T) (*dummyserver.Server, *GRPCClient) {
	t.Helper()
	srv := dummyserver.New()
	return srv, startGRPC(t, srv.NewGRPCServer())
}

func startDummyHTTP(t *testing.T, mutate ...func(*Config)) (*dummyserver.Server, *HTTPClient) {
	t.Helper()
	srv := dummyserver.New()
	ts := httptest.NewServer(srv.HTTPHandler())
	conf := &Config{Host: ts.URL, CallerId: "predator-client-test"}
	for _, f := range mutate {
		f(conf)
	}
	client, err := NewHTTPClient(conf)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		ts.Close()
	})
	return srv, client
}
