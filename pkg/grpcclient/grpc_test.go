package grpcclient

import (
	"context"
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestConfigTarget(t *testing.T) {
	assert.Equal(t, "localhost:8001", (&Config{Host: "localhost", Port: "8001"}).Target())
	assert.Equal(t, "[::1]:8001", (&Config{Host: "::1", Port: "8001"}).Target())
	assert.Equal(t, "passthrough:///bufnet", (&Config{Host: "passthrough:///bufnet", Port: "0"}).Target())
}

func TestTransportCredentials(t *testing.T) {
	assert.Equal(t, "insecure", transportCredentials(&Config{PlainText: true}).Info().SecurityProtocol)
	assert.Equal(t, "tls", transportCredentials(&Config{}).Info().SecurityProtocol)

	creds := transportCredentials(&Config{TLSConfig: &tls.Config{ServerName: "predator.internal"}})
	assert.Equal(t, "tls", creds.Info().SecurityProtocol)
	assert.Equal(t, "predator.internal", creds.Info().ServerName)
}

func TestWithDeadline(t *testing.T) {
	c := &GRPCClient{DeadLine: 50}
	ctx, cancel := c.WithDeadline(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)

	parent, parentCancel := context.WithTimeout(context.Background(), time.Hour)
	defer parentCancel()
	ctx, cancel = c.WithDeadline(parent)
	defer cancel()
	deadline, _ = ctx.Deadline()
	assert.True(t, deadline.After(time.Now().Add(time.Minute)))
}

func TestInvoke_ReturnsStatus(t *testing.T) {
	lis := bufconn.Listen(1 << 16)
	server := grpc.NewServer(grpc.UnknownServiceHandler(func(any, grpc.ServerStream) error {
		return status.Error(codes.NotFound, "no such method")
	}))
	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	client, err := NewConnFromConfig(&Config{
		Host:      "passthrough:///bufnet",
		PlainText: true,
		DeadLine:  1000,
		DialOptions: []grpc.DialOption{grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		})},
	}, "test")
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := client.WithDeadline(context.Background())
	defer cancel()
	err = client.Invoke(ctx, "/test.Service/Missing", &emptypb.Empty{}, &emptypb.Empty{})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.NewStream(ctx, &grpc.StreamDesc{}, "/test.Service/Stream")
	assert.Error(t, err)
}
