package api

import (
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind classifies where an Error originated.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindTransport
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the single error shape returned by both transports.
type Error struct {
	Kind Kind
	// Code is the gRPC classification. REST failures are mapped onto it.
	Code codes.Code
	// HTTPStatus is set only for errors produced by the REST transport.
	HTTPStatus int
	Message    string
	Debug      string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Code, e.Message)
}

// Status returns the status classification as text, e.g. "Unavailable".
func (e *Error) Status() string {
	return e.Code.String()
}

func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Code: codes.InvalidArgument, Message: message}
}

func NewValidationErrorf(format string, args ...any) *Error {
	return NewValidationError(fmt.Sprintf(format, args...))
}

// NewServerError builds a server-classified error from an HTTP status.
func NewServerError(httpStatus int, message string) *Error {
	if message == "" {
		message = http.StatusText(httpStatus)
	}
	return &Error{
		Kind:       KindServer,
		Code:       CodeFromHTTPStatus(httpStatus),
		HTTPStatus: httpStatus,
		Message:    message,
	}
}

func IsValidation(err error) bool {
	return kindOf(err) == KindValidation
}

func IsTransport(err error) bool {
	return kindOf(err) == KindTransport
}

func IsServer(err error) bool {
	return kindOf(err) == KindServer
}

func kindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return 0
}

// NewDecodeError reports a response payload that could not be decoded.
func NewDecodeError(err error) *Error {
	return &Error{Kind: KindServer, Code: codes.Internal, Message: err.Error(), Debug: fmt.Sprintf("%+v", err)}
}
