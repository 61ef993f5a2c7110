package predator

import (
	"context"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/inference"
)

// Client is the protocol-neutral surface shared by GRPCClient and HTTPClient. Admin
// responses are returned in their JSON projection.
type Client interface {
	inference.Transport
	ServerMetadataJSON(ctx context.Context) (map[string]any, error)
	ModelMetadataJSON(ctx context.Context, name, version string) (map[string]any, error)
	ModelConfigJSON(ctx context.Context, name, version string) (map[string]any, error)
	ModelStatisticsJSON(ctx context.Context, name, version string) (map[string]any, error)
	RepositoryIndexJSON(ctx context.Context) (map[string]any, error)
	LoadModel(ctx context.Context, name string) error
	UnloadModel(ctx context.Context, name string) error
}

var (
	_ Client                   = (*GRPCClient)(nil)
	_ Client                   = (*HTTPClient)(nil)
	_ inference.AsyncTransport = (*GRPCClient)(nil)
)
