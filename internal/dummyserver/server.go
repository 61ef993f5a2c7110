// Package dummyserver is an in-process inference server speaking both the gRPC and the
// REST protocol, used by tests and by cmd/predator-dummy.
package dummyserver

import (
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Meesho/BharatMLStack/predator-client/pkg/api"
	"github.com/Meesho/BharatMLStack/predator-client/pkg/tensor"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const (
	serverName    = "predator-dummy"
	serverVersion = "1.0.0"
)

var extensions = []string{"model_repository", "system_shared_memory", "cuda_shared_memory", "statistics"}

type modelStats struct {
	lastInference  uint64
	inferenceCount uint64
	executionCount uint64
	successCount   uint64
	successNs      uint64
	failCount      uint64
	failNs         uint64
}

type systemRegion struct {
	key      string
	offset   uint64
	byteSize uint64
}

type cudaRegion struct {
	deviceID int64
	byteSize uint64
}

// Server holds the model repository and shared-memory registry behind both protocols.
type Server struct {
	mu            sync.RWMutex
	models        map[string]*Model
	loaded        map[string]bool
	stats         map[string]*modelStats
	systemRegions map[string]systemRegion
	cudaRegions   map[string]cudaRegion
	// lastResults holds the last REST infer response body per model.
	lastResults map[string][]byte

	grpcServer *grpc.Server
	httpServer *http.Server
}

// New returns a server with every catalog model loaded.
func New() *Server {
	s := &Server{
		models:        catalog(),
		loaded:        make(map[string]bool),
		stats:         make(map[string]*modelStats),
		systemRegions: make(map[string]systemRegion),
		cudaRegions:   make(map[string]cudaRegion),
		lastResults:   make(map[string][]byte),
	}
	for name := range s.models {
		s.loaded[name] = true
		s.stats[name] = &modelStats{}
	}
	return s
}

// Run serves gRPC and REST on one listener until it is closed.
func (s *Server) Run(listener net.Listener) error {
	// Create a cmux multiplexer that will multiplex 2 protocols on same port
	mux := cmux.New(listener)
	httpListener := mux.Match(cmux.HTTP1Fast())
	grpcListener := mux.Match(cmux.HTTP2(), cmux.HTTP2HeaderField("content-type", "application/grpc"), cmux.Any())

	s.grpcServer = s.NewGRPCServer()
	reflection.Register(s.grpcServer)
	s.httpServer = &http.Server{Handler: s.HTTPHandler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.grpcServer.Serve(grpcListener); err != nil && err != cmux.ErrListenerClosed {
			log.Error().Err(err).Msg("gRPC server stopped")
		}
	}()
	go func() {
		if err := s.httpServer.Serve(httpListener); err != nil && err != http.ErrServerClosed && err != cmux.ErrListenerClosed {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()
	log.Info().Str("address", listener.Addr().String()).Msg("predator dummy server started")
	return mux.Serve()
}

// Stop shuts down servers started by Run.
func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
}

func (s *Server) model(name, version string) (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[name]
	if !ok || !s.loaded[name] {
		return nil, api.NewGrpcNotFoundError("Request for unknown model: '%s' is not found", name)
	}
	if version != "" && version != modelVersion {
		return nil, api.NewGrpcNotFoundError(
			"Request for unknown model: '%s' version %s is not found", name, version)
	}
	return m, nil
}

// infer runs a model and keeps its statistics.
func (s *Server) infer(name, version string, inputs []Tensor, requested []string) ([]Tensor, error) {
	m, err := s.model(name, version)
	if err != nil {
		return nil, err
	}
	startTime := time.Now()
	outputs, err := m.execute(inputs)
	if err == nil {
		outputs, err = selectOutputs(name, outputs, requested)
	}
	elapsed := uint64(time.Since(startTime).Nanoseconds())

	s.mu.Lock()
	st := s.stats[name]
	st.inferenceCount++
	st.executionCount++
	st.lastInference = uint64(time.Now().UnixMilli())
	if err != nil {
		st.failCount++
		st.failNs += elapsed
	} else {
		st.successCount++
		st.successNs += elapsed
	}
	s.mu.Unlock()
	return outputs, err
}

func (s *Server) isModelReady(name, version string) bool {
	_, err := s.model(name, version)
	return err == nil
}

func (s *Server) load(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[name]; !ok {
		return api.NewGrpcInvalidArgumentError("failed to load '%s', no version is available", name)
	}
	s.loaded[name] = true
	return nil
}

func (s *Server) unload(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[name]; !ok {
		return api.NewGrpcInvalidArgumentError("failed to unload '%s', model is not in the repository", name)
	}
	s.loaded[name] = false
	delete(s.lastResults, name)
	return nil
}

type indexEntry struct {
	name, state string
}

func (s *Server) index() []indexEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]indexEntry, len(names))
	for i, name := range names {
		state := "UNAVAILABLE"
		if s.loaded[name] {
			state = "READY"
		}
		out[i] = indexEntry{name: name, state: state}
	}
	return out
}

func (s *Server) statsOf(name string) modelStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.stats[name]
}

// statsNames is every model when name is empty, otherwise the one loaded model.
func (s *Server) statsNames(name, version string) ([]string, error) {
	if name != "" {
		if _, err := s.model(name, version); err != nil {
			return nil, err
		}
		return []string{name}, nil
	}
	var names []string
	for _, e := range s.index() {
		if e.state == "READY" {
			names = append(names, e.name)
		}
	}
	return names, nil
}

func (s *Server) registerSystem(name string, region systemRegion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.systemRegions[name]; ok {
		return api.NewGrpcInvalidArgumentError("shared memory region '%s' already in manager", name)
	}
	s.systemRegions[name] = region
	return nil
}

func (s *Server) unregisterSystem(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		s.systemRegions = make(map[string]systemRegion)
		return
	}
	delete(s.systemRegions, name)
}

func (s *Server) systemStatus(name string) (map[string]systemRegion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name == "" {
		out := make(map[string]systemRegion, len(s.systemRegions))
		for k, v := range s.systemRegions {
			out[k] = v
		}
		return out, nil
	}
	region, ok := s.systemRegions[name]
	if !ok {
		return nil, api.NewGrpcNotFoundError("Unable to find system shared memory region: '%s'", name)
	}
	return map[string]systemRegion{name: region}, nil
}

func (s *Server) registerCuda(name string, region cudaRegion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cudaRegions[name]; ok {
		return api.NewGrpcInvalidArgumentError("shared memory region '%s' already in manager", name)
	}
	s.cudaRegions[name] = region
	return nil
}

func (s *Server) unregisterCuda(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		s.cudaRegions = make(map[string]cudaRegion)
		return
	}
	delete(s.cudaRegions, name)
}

func (s *Server) cudaStatus(name string) (map[string]cudaRegion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name == "" {
		out := make(map[string]cudaRegion, len(s.cudaRegions))
		for k, v := range s.cudaRegions {
			out[k] = v
		}
		return out, nil
	}
	region, ok := s.cudaRegions[name]
	if !ok {
		return nil, api.NewGrpcNotFoundError("Unable to find cuda shared memory region: '%s'", name)
	}
	return map[string]cudaRegion{name: region}, nil
}

func (s *Server) setLastResult(model string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResults[model] = body
}

func (s *Server) lastResult(model string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.lastResults[model]
	return body, ok
}

func parseInput(name, datatype string, shape []int64) (Tensor, error) {
	dt, err := tensor.ParseDatatype(datatype)
	if err != nil {
		return Tensor{}, api.NewGrpcInvalidArgumentError("input '%s': unsupported datatype '%s'", name, datatype)
	}
	return Tensor{Name: name, Datatype: dt, Shape: shape}, nil
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
