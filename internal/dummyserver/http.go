package dummyserver

import (
	"fmt"
	"net/http"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/clients/predator/client/triton"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/codec"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"
)

var jsonNumbers = jsoniter.Config{UseNumber: true, SortMapKeys: true}.Froze()

// HTTPHandler returns the REST routes of the inference protocol.
func (s *Server) HTTPHandler() *gin.Engine {
	router := gin.New()
	router.Use(HTTPRecovery(), HTTPLogger())

	v2 := router.Group("/v2")
	v2.GET("", s.restServerMetadata)
	v2.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	v2.GET("/health/ready", func(c *gin.Context) { c.Status(http.StatusOK) })
	v2.GET("/models/stats", s.restModelStatistics)

	for _, prefix := range []string{"/models/:name", "/models/:name/versions/:version"} {
		models := v2.Group(prefix)
		models.GET("", s.restModelMetadata)
		models.GET("/ready", s.restModelReady)
		models.GET("/config", s.restModelConfig)
		models.GET("/stats", s.restModelStatistics)
		models.POST("/infer", s.restInfer)
		models.GET("/infer", s.restLastResult)
	}

	v2.POST("/repository/index", s.restRepositoryIndex)
	v2.POST("/repository/models/:name/load", s.restLoad)
	v2.POST("/repository/models/:name/unload", s.restUnload)
	return router
}

// writeError answers with the error envelope and the HTTP status matching err's code.
func writeError(c *gin.Context, err error) {
	st := status.Convert(err)
	c.AbortWithStatusJSON(api.HTTPStatusFromCode(st.Code()), gin.H{"error": st.Message()})
}

func writeBadRequest(c *gin.Context, format string, args ...any) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

// writeMessage renders a gRPC response message as REST JSON.
func writeMessage(c *gin.Context, msg proto.Message) {
	b, err := triton.MarshalJSON(msg)
	if err != nil {
		writeError(c, api.NewGrpcInternalServerError("%v", err))
		return
	}
	c.Data(http.StatusOK, "application/json", b)
}

func modelRequest(c *gin.Context, method string) *dynamicpb.Message {
	req := triton.NewRequest(method)
	triton.SetString(req, "name", c.Param("name"))
	triton.SetString(req, "version", c.Param("version"))
	return req
}

func (s *Server) restServerMetadata(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"name": serverName, "version": serverVersion, "extensions": extensions})
}

func (s *Server) restModelReady(c *gin.Context) {
	if !s.isModelReady(c.Param("name"), c.Param("version")) {
		c.Status(http.StatusBadRequest)
		return
	}
	c.Status(http.StatusOK)
}

func tensorMetaJSON(metas []TensorMeta) []gin.H {
	out := make([]gin.H, len(metas))
	for i, m := range metas {
		out[i] = gin.H{"name": m.Name, "datatype": m.Datatype.String(), "shape": m.Shape}
	}
	return out
}

func (s *Server) restModelMetadata(c *gin.Context) {
	m, err := s.model(c.Param("name"), c.Param("version"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":     m.Name,
		"versions": []string{modelVersion},
		"platform": platform,
		"inputs":   tensorMetaJSON(m.Inputs),
		"outputs":  tensorMetaJSON(m.Outputs),
	})
}

func (s *Server) restModelConfig(c *gin.Context) {
	resp, err := s.modelConfig(c.Request.Context(), modelRequest(c, triton.MethodModelConfig))
	if err != nil {
		writeError(c, err)
		return
	}
	writeMessage(c, triton.GetMessage(resp.ProtoReflect(), "config").Interface())
}

func (s *Server) restModelStatistics(c *gin.Context) {
	resp, err := s.modelStatistics(c.Request.Context(), modelRequest(c, triton.MethodModelStatistics))
	if err != nil {
		writeError(c, err)
		return
	}
	writeMessage(c, resp)
}

func (s *Server) restRepositoryIndex(c *gin.Context) {
	index := s.index()
	out := make([]gin.H, len(index))
	for i, e := range index {
		out[i] = gin.H{"name": e.name, "version": modelVersion, "state": e.state}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) restLoad(c *gin.Context) {
	if err := s.load(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) restUnload(c *gin.Context) {
	if err := s.unload(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// restInfer runs a JSON infer request. The response body is also kept as the model's
// last result for GET on the same URI.
func (s *Server) restInfer(c *gin.Context) {
	name := c.Param("name")
	body, err := c.GetRawData()
	if err != nil {
		writeBadRequest(c, "failed to read the request body: %v", err)
		return
	}
	var req codec.JSONInferRequest
	if err := jsonNumbers.Unmarshal(body, &req); err != nil {
		writeBadRequest(c, "failed to parse the request JSON buffer: %v", err)
		return
	}

	inputs := make([]Tensor, len(req.Inputs))
	for i, in := range req.Inputs {
		t, err := parseInput(in.Name, in.Datatype, in.Shape)
		if err != nil {
			writeError(c, err)
			return
		}
		if t.Values, err = codec.DecodeJSON(t.Datatype, in.Data); err != nil {
			writeBadRequest(c, "input '%s': %v", in.Name, err)
			return
		}
		inputs[i] = t
	}
	requested := make([]string, len(req.Outputs))
	for i, out := range req.Outputs {
		requested[i] = out.Name
	}

	outputs, err := s.infer(name, c.Param("version"), inputs, requested)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := codec.JSONInferResponse{
		ModelName:    name,
		ModelVersion: modelVersion,
		ID:           req.ID,
		Parameters:   req.Parameters,
		Outputs:      make([]codec.JSONOutput, len(outputs)),
	}
	for i, out := range outputs {
		data, err := codec.EncodeJSON(out.Datatype, out.Values)
		if err != nil {
			writeError(c, api.NewGrpcInternalServerError("output '%s': %v", out.Name, err))
			return
		}
		resp.Outputs[i] = codec.JSONOutput{Name: out.Name, Datatype: out.Datatype.String(), Shape: out.Shape, Data: data}
	}
	b, err := jsonNumbers.Marshal(resp)
	if err != nil {
		writeError(c, api.NewGrpcInternalServerError("%v", err))
		return
	}
	s.setLastResult(name, b)
	c.Data(http.StatusOK, "application/json", b)
}

func (s *Server) restLastResult(c *gin.Context) {
	name := c.Param("name")
	if _, err := s.model(name, c.Param("version")); err != nil {
		writeError(c, err)
		return
	}
	body, ok := s.lastResult(name)
	if !ok {
		writeBadRequest(c, "no inference result for model '%s'", name)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}
