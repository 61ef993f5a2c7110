package api

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status errors for server handlers. A REST handler answers with the same message in
// its error envelope and the status given by HTTPStatusFromCode.

func NewGrpcError(code codes.Code, format string, args ...any) error {
	return status.Errorf(code, format, args...)
}

func NewGrpcInvalidArgumentError(format string, args ...any) error {
	return NewGrpcError(codes.InvalidArgument, format, args...)
}

func NewGrpcNotFoundError(format string, args ...any) error {
	return NewGrpcError(codes.NotFound, format, args...)
}

func NewGrpcInternalServerError(format string, args ...any) error {
	return NewGrpcError(codes.Internal, format, args...)
}

func NewGrpcUnavailableError(format string, args ...any) error {
	return NewGrpcError(codes.Unavailable, format, args...)
}

func NewGrpcUnimplementedError(format string, args ...any) error {
	return NewGrpcError(codes.Unimplemented, format, args...)
}
