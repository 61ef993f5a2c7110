package predator

import (
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	Version1 = 1
)

var (
	mu       sync.Mutex
	registry = make(map[int]Client)
	onceMap  = make(map[int]*sync.Once)
)

// InitClient creates the client for version once, picking the transport from
// conf.Protocol. It panics on an invalid config, and if the client is already
// initialised by another path.
func InitClient(version int, conf *Config) Client {
	mu.Lock()
	// Ensure a `sync.Once` instance exists for the given version
	if _, exists := onceMap[version]; !exists {
		onceMap[version] = &sync.Once{}
	}
	once := onceMap[version]
	mu.Unlock()

	once.Do(func() {
		client, err := NewClient(conf)
		if err != nil {
			log.Panic().Err(err).Msgf("Invalid predator client configs for version %d", version)
		}
		mu.Lock()
		defer mu.Unlock()
		if registry[version] != nil {
			log.Panic().Msgf("Client for version %d already initialised", version)
		}
		registry[version] = client
	})
	return GetInstance(version)
}

// InitClientFromEnv is InitClient with the config read by ConfigFromEnv(prefix).
func InitClientFromEnv(version int, prefix string) Client {
	conf, err := ConfigFromEnv(prefix)
	if err != nil {
		log.Panic().Err(err).Stringer("config", conf).Msg("Invalid predator client configs")
	}
	return InitClient(version, conf)
}

func GetInstance(version int) Client {
	mu.Lock()
	defer mu.Unlock()
	if registry[version] == nil {
		log.Panic().Msgf("Client for version %d not initialised", version)
	}
	return registry[version]
}

// NewClient builds the client for conf.Protocol, gRPC when unset.
func NewClient(conf *Config) (Client, error) {
	if conf == nil {
		_, err := validConfigs(nil)
		return nil, err
	}
	if conf.Protocol == ProtocolHTTP {
		return NewHTTPClient(conf)
	}
	if conf.Protocol != "" && conf.Protocol != ProtocolGRPC {
		_, err := validConfigs(conf)
		return nil, err
	}
	return NewGRPCClient(conf)
}
