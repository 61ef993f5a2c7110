package dummyserver

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/clients/predator/client/triton"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/metric"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

const headerCallerID = "predator-caller-id"

// call is one served request, whichever protocol carried it.
type call struct {
	protocol string
	route    string
	model    string
	callerID string
	code     string
	elapsed  time.Duration
	err      error
}

func (c call) observe() {
	event := log.Debug()
	if c.err != nil {
		event = log.Warn().Err(c.err)
	}
	event.Str("protocol", c.protocol).
		Str("route", c.route).
		Str("model", c.model).
		Str("caller", c.callerID).
		Str("code", c.code).
		Dur("elapsed", c.elapsed).
		Msg("served")

	codeTag := metric.TagHttpStatusCode
	if c.protocol == metric.TagValueCommunicationProtocolGrpc {
		codeTag = metric.TagGrpcStatusCode
	}
	tags := metric.BuildTag(
		metric.NewTag(metric.TagCommunicationProtocol, c.protocol),
		metric.NewTag(metric.TagPath, c.route),
		metric.NewTag(codeTag, c.code),
	)
	if c.model != "" {
		metric.UpdateTags(&tags, metric.NewTag(metric.TagModelName, c.model))
	}
	if c.callerID != "" {
		metric.UpdateTags(&tags, metric.NewTag(metric.TagCallerId, c.callerID))
	}
	metric.Timing(metric.ApiRequestLatency, c.elapsed, tags)
	metric.Incr(metric.ApiRequestCount, tags)
}

// GRPCRecovery answers a panicking handler with codes.Internal.
func GRPCRecovery(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("method", info.FullMethod).Msgf("handler panic: %v\n%s", r, debug.Stack())
			err = status.Errorf(codes.Internal, "panic recovered: %v", r)
		}
	}()
	return handler(ctx, req)
}

// GRPCLogger records every unary call with its model and caller.
func GRPCLogger(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	call{
		protocol: metric.TagValueCommunicationProtocolGrpc,
		route:    info.FullMethod,
		model:    requestModel(info.FullMethod, req),
		callerID: incomingCaller(ctx),
		code:     status.Code(err).String(),
		elapsed:  time.Since(start),
		err:      err,
	}.observe()
	return resp, err
}

// requestModel reads the model a request names. Shared-memory requests name a region.
func requestModel(method string, req any) string {
	msg, ok := req.(proto.Message)
	if !ok || strings.Contains(method, "SharedMemory") {
		return ""
	}
	m := msg.ProtoReflect()
	if m.Descriptor().Fields().ByName("name") != nil {
		return triton.GetString(m, "name")
	}
	if m.Descriptor().Fields().ByName("model_name") != nil {
		return triton.GetString(m, "model_name")
	}
	return ""
}

func incomingCaller(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(headerCallerID); len(v) > 0 {
		return v[0]
	}
	return ""
}

// HTTPRecovery turns panics into the {"error": msg} envelope.
func HTTPRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("path", c.Request.URL.Path).Msgf("handler panic: %v\n%s", r, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprint(r)})
			}
		}()
		c.Next()
	}
}

// HTTPLogger records every request with its model and caller.
func HTTPLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		var err error
		if len(c.Errors) > 0 {
			err = c.Errors.Last()
		}
		call{
			protocol: metric.TagValueCommunicationProtocolHttp,
			route:    c.Request.Method + " " + route,
			model:    c.Param("name"),
			callerID: c.GetHeader(headerCallerID),
			code:     strconv.Itoa(c.Writer.Status()),
			elapsed:  time.Since(start),
			err:      err,
		}.observe()
	}
}
