package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestFromGRPC(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantCode codes.Code
		wantMsg  string
	}{
		{
			name:     "unavailable is a transport error",
			err:      status.Error(codes.Unavailable, "connection refused"),
			wantKind: KindTransport,
			wantCode: codes.Unavailable,
			wantMsg:  "connection refused",
		},
		{
			name:     "deadline is a transport error",
			err:      status.Error(codes.DeadlineExceeded, "too slow"),
			wantKind: KindTransport,
			wantCode: codes.DeadlineExceeded,
			wantMsg:  "too slow",
		},
		{
			name:     "not found is a server error",
			err:      status.Error(codes.NotFound, "unknown model"),
			wantKind: KindServer,
			wantCode: codes.NotFound,
			wantMsg:  "unknown model",
		},
		{
			name:     "plain error is a transport error",
			err:      errors.New("dial tcp: refused"),
			wantKind: KindTransport,
			wantCode: codes.Unavailable,
			wantMsg:  "dial tcp: refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsError(FromGRPC(tt.err))
			require.True(t, ok)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantMsg, got.Message)
			assert.Equal(t, tt.err.Error(), got.Debug)
		})
	}
}

func TestFromGRPC_Nil(t *testing.T) {
	assert.NoError(t, FromGRPC(nil))
	assert.NoError(t, FromTransport(nil))
}

func TestFromGRPC_KeepsNormalisedError(t *testing.T) {
	orig := NewValidationError("bad parameter")
	got := FromGRPC(pkgerrors.Wrap(orig, "building request"))
	assert.Same(t, orig, got)
}

func TestFromTransport_ContextErrors(t *testing.T) {
	e, ok := AsError(FromTransport(pkgerrors.Wrap(context.DeadlineExceeded, "post")))
	require.True(t, ok)
	assert.Equal(t, codes.DeadlineExceeded, e.Code)
	assert.True(t, IsTransport(e))

	e, ok = AsError(FromTransport(context.Canceled))
	require.True(t, ok)
	assert.Equal(t, codes.Canceled, e.Code)
}

func TestFromHTTPResponse(t *testing.T) {
	t.Run("decodes error envelope", func(t *testing.T) {
		e, ok := AsError(FromHTTPResponse(http.StatusBadRequest, []byte(`{"error":"unknown model 'foo'"}`)))
		require.True(t, ok)
		assert.Equal(t, KindServer, e.Kind)
		assert.Equal(t, codes.InvalidArgument, e.Code)
		assert.Equal(t, http.StatusBadRequest, e.HTTPStatus)
		assert.Equal(t, "unknown model 'foo'", e.Message)
	})

	t.Run("falls back to status text", func(t *testing.T) {
		e, ok := AsError(FromHTTPResponse(http.StatusServiceUnavailable, []byte("<html>")))
		require.True(t, ok)
		assert.Equal(t, codes.Unavailable, e.Code)
		assert.Equal(t, "Service Unavailable", e.Message)
		assert.Equal(t, "<html>", e.Debug)
	})
}

func TestCodeFromHTTPStatus_RoundTrip(t *testing.T) {
	for _, code := range []codes.Code{
		codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied, codes.NotFound,
		codes.AlreadyExists, codes.ResourceExhausted, codes.Unimplemented, codes.Unavailable,
		codes.DeadlineExceeded,
	} {
		assert.Equal(t, code, CodeFromHTTPStatus(HTTPStatusFromCode(code)), code.String())
	}
	assert.Equal(t, codes.Unknown, CodeFromHTTPStatus(http.StatusTeapot))
}

func TestErrorFormatting(t *testing.T) {
	e := NewValidationErrorf("unsupported value type %T for parameter %q", 1.5, "alpha")
	assert.True(t, IsValidation(e))
	assert.False(t, IsServer(e))
	assert.Equal(t, "InvalidArgument", e.Status())
	assert.Equal(t, `[validation] InvalidArgument: unsupported value type float64 for parameter "alpha"`, e.Error())
}

func TestNewGrpcError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{NewGrpcInvalidArgumentError("input '%s' is bad", "INPUT0"), codes.InvalidArgument},
		{NewGrpcNotFoundError("model '%s'", "m"), codes.NotFound},
		{NewGrpcInternalServerError("%v", errors.New("boom")), codes.Internal},
		{NewGrpcUnavailableError("warming up"), codes.Unavailable},
		{NewGrpcUnimplementedError("method %s not implemented", "X"), codes.Unimplemented},
	}
	for _, tt := range tests {
		st := status.Convert(tt.err)
		assert.Equal(t, tt.code, st.Code())

		e, ok := AsError(FromGRPC(tt.err))
		require.True(t, ok)
		assert.Equal(t, st.Message(), e.Message)
	}
	assert.Equal(t, "input 'INPUT0' is bad", status.Convert(tests[0].err).Message())
}
