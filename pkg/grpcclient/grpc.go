package grpcclient

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/metric"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type Config struct {
	// Host is a host name, or a complete gRPC target such as "passthrough:///bufnet".
	Host      string
	Port      string
	DeadLine  int64
	// PlainText disables TLS. Without it the connection uses TLSConfig, or TLS that
	// does not verify the server certificate when TLSConfig is nil.
	PlainText bool
	TLSConfig *tls.Config
	// ConnectTimeout bounds each connection attempt, 0 keeps the gRPC default.
	ConnectTimeout time.Duration
	DialOptions    []grpc.DialOption
}

func (c *Config) Target() string {
	if strings.Contains(c.Host, "://") {
		return c.Host
	}
	return net.JoinHostPort(c.Host, c.Port)
}

// GRPCClient wraps a client connection and records latency and count per method.
type GRPCClient struct {
	Conn                *grpc.ClientConn
	DeadLine            int64
	externalServiceName string
}

// NewConnFromConfig creates the connection lazily; no I/O happens until the first call.
func NewConnFromConfig(config *Config, externalServiceName string) (*GRPCClient, error) {
	opts := []grpc.DialOption{
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"round_robin"}`),
	}
	opts = append(opts, grpc.WithTransportCredentials(transportCredentials(config)))
	if config.ConnectTimeout > 0 {
		opts = append(opts, grpc.WithConnectParams(grpc.ConnectParams{MinConnectTimeout: config.ConnectTimeout}))
	}
	opts = append(opts, config.DialOptions...)

	conn, err := grpc.NewClient(config.Target(), opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "grpc connection to %s", config.Target())
	}
	return &GRPCClient{Conn: conn, DeadLine: config.DeadLine, externalServiceName: externalServiceName}, nil
}

func transportCredentials(config *Config) credentials.TransportCredentials {
	if config.PlainText {
		return insecure.NewCredentials()
	}
	if config.TLSConfig != nil {
		return credentials.NewTLS(config.TLSConfig)
	}
	return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
}

// Invoke is grpc.ClientConn.Invoke with metrics.
func (c *GRPCClient) Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error {
	startTime := time.Now()
	err := c.Conn.Invoke(ctx, method, args, reply, opts...)
	code := status.Code(err)
	tags := metric.BuildExternalGRPCServiceTags(c.externalServiceName, method, int(code))
	metric.Timing(metric.ExternalApiRequestLatency, time.Since(startTime), tags)
	metric.Count(metric.ExternalApiRequestCount, 1, tags)
	return err
}

// NewStream is not implemented for this client
func (c *GRPCClient) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("NewStream is not implemented")
}

// WithDeadline applies the configured per-call deadline when ctx has none.
func (c *GRPCClient) WithDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.DeadLine <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(c.DeadLine)*time.Millisecond)
}

func (c *GRPCClient) Close() error {
	return c.Conn.Close()
}
