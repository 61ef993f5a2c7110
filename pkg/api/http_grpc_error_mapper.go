package api

import (
	"context"
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorEnvelope is the body a REST server sends with any non-200 status.
type errorEnvelope struct {
	Error string `json:"error"`
}

// AsError unwraps err into *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// FromGRPC normalises an error returned by a gRPC call. The original status code is
// kept and the full error text is kept as the debug string.
func FromGRPC(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	st, ok := status.FromError(err)
	if !ok {
		return FromTransport(err)
	}
	kind := KindServer
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		kind = KindTransport
	}
	return &Error{
		Kind:    kind,
		Code:    st.Code(),
		Message: st.Message(),
		Debug:   err.Error(),
	}
}

// FromTransport wraps a failure that happened before any response was received.
func FromTransport(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	code := codes.Unavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return &Error{
		Kind:    KindTransport,
		Code:    code,
		Message: err.Error(),
		Debug:   err.Error(),
	}
}

// FromHTTPResponse decodes the {"error": <message>} envelope of a non-200 response.
func FromHTTPResponse(httpStatus int, body []byte) error {
	var envelope errorEnvelope
	message := ""
	if len(body) > 0 {
		if err := jsoniter.Unmarshal(body, &envelope); err == nil {
			message = envelope.Error
		}
	}
	e := NewServerError(httpStatus, message)
	e.Debug = string(body)
	return e
}

// CodeFromHTTPStatus maps an HTTP status to the corresponding gRPC code.
func CodeFromHTTPStatus(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusOK:
		return codes.OK
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusInternalServerError:
		return codes.Internal
	case http.StatusNotImplemented:
		return codes.Unimplemented
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Unknown
	}
}

// HTTPStatusFromCode is the inverse of CodeFromHTTPStatus, used by servers that answer
// REST requests with errors produced for gRPC.
func HTTPStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
