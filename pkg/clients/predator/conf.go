package predator

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
)

const (
	Protocol            = "PROTOCOL"
	Host                = "HOST"
	Port                = "PORT"
	DeadlineMS          = "DEADLINE_MS"
	PlainText           = "PLAINTEXT"
	ConnectionCount     = "CONNECTION_COUNT"
	ConnectionTimeoutMS = "CONNECTION_TIMEOUT_MS"
	NetworkTimeoutMS    = "NETWORK_TIMEOUT_MS"
	CallerId            = "CALLER_ID"
	AuthToken           = "AUTH_TOKEN"
	Verbose             = "VERBOSE"
	LegacyResultFetch   = "LEGACY_RESULT_FETCH"
)

const (
	ProtocolGRPC = "grpc"
	ProtocolHTTP = "http"

	DefaultGRPCPort            = "8001"
	DefaultHTTPPort            = "8000"
	DefaultDeadlineMS          = 60000
	DefaultConnectionCount     = 1
	DefaultConnectionTimeoutMS = 60000
	DefaultNetworkTimeoutMS    = 60000
	DefaultPlainText           = true
)

type Config struct {
	Protocol string `json:"Protocol"`
	// Host is a host name. The gRPC client also accepts a full target such as
	// "dns:///predator:8001" and the REST client a base URL such as "http://predator:8000".
	Host       string `json:"Host"`
	Port       string `json:"Port"`
	DeadlineMS int64  `json:"DeadlineMS"`
	PlainText  bool   `json:"PlainText"`
	// ConnectionCount bounds concurrent REST exchanges.
	ConnectionCount     int    `json:"ConnectionCount"`
	ConnectionTimeoutMS int64  `json:"ConnectionTimeoutMS"`
	NetworkTimeoutMS    int64  `json:"NetworkTimeoutMS"`
	CallerId            string `json:"CallerId"`
	CallerToken         string `json:"CallerToken"`
	Verbose             bool   `json:"Verbose"`
	// LegacyResultFetch makes the REST client discard the infer POST body and read the
	// result from a second GET of the same URI.
	LegacyResultFetch bool `json:"LegacyResultFetch"`

	// TLSConfig verifies the server when PlainText is off. Left nil, the gRPC client
	// skips certificate verification.
	TLSConfig   *tls.Config       `json:"-"`
	DialOptions []grpc.DialOption `json:"-"`
}

// ConfigFromEnv reads <prefix>HOST, <prefix>PORT and the other keys through viper,
// filling defaults for anything unset.
func ConfigFromEnv(prefix string) (*Config, error) {
	viper.AutomaticEnv()
	conf := &Config{
		Protocol:            strings.ToLower(viper.GetString(prefix + Protocol)),
		Host:                viper.GetString(prefix + Host),
		Port:                viper.GetString(prefix + Port),
		DeadlineMS:          viper.GetInt64(prefix + DeadlineMS),
		PlainText:           DefaultPlainText,
		ConnectionCount:     viper.GetInt(prefix + ConnectionCount),
		ConnectionTimeoutMS: viper.GetInt64(prefix + ConnectionTimeoutMS),
		NetworkTimeoutMS:    viper.GetInt64(prefix + NetworkTimeoutMS),
		CallerId:            viper.GetString(prefix + CallerId),
		CallerToken:         viper.GetString(prefix + AuthToken),
		Verbose:             viper.GetBool(prefix + Verbose),
		LegacyResultFetch:   viper.GetBool(prefix + LegacyResultFetch),
	}
	if viper.IsSet(prefix + PlainText) {
		conf.PlainText = viper.GetBool(prefix + PlainText)
	}
	if viper.IsSet(prefix+DeadlineMS) && conf.DeadlineMS <= 0 {
		return conf, fmt.Errorf("predator service deadline exceed timeout is invalid, configured value: %v", conf.DeadlineMS)
	}
	conf.applyDefaults()
	if valid, err := validConfigs(conf); !valid {
		return conf, err
	}
	return conf, nil
}

// applyDefaults fills unset fields.
func (c *Config) applyDefaults() {
	if c.Protocol == "" {
		c.Protocol = ProtocolGRPC
	}
	if c.DeadlineMS == 0 {
		c.DeadlineMS = DefaultDeadlineMS
	}
	if c.Port == "" && !strings.Contains(c.Host, "://") {
		if c.Protocol == ProtocolHTTP {
			c.Port = DefaultHTTPPort
		} else {
			c.Port = DefaultGRPCPort
		}
	}
	if c.ConnectionCount == 0 {
		c.ConnectionCount = DefaultConnectionCount
	}
	if c.ConnectionTimeoutMS == 0 {
		c.ConnectionTimeoutMS = DefaultConnectionTimeoutMS
	}
	if c.NetworkTimeoutMS == 0 {
		c.NetworkTimeoutMS = DefaultNetworkTimeoutMS
	}
}

func (c *Config) connectionTimeout() time.Duration {
	return time.Duration(c.ConnectionTimeoutMS) * time.Millisecond
}

func (c *Config) networkTimeout() time.Duration {
	return time.Duration(c.NetworkTimeoutMS) * time.Millisecond
}

// String renders the config for logs. CallerToken, TLSConfig and DialOptions are left out.
func (c Config) String() string {
	return fmt.Sprintf("{Protocol:%s Host:%s Port:%s DeadlineMS:%d PlainText:%t ConnectionCount:%d "+
		"ConnectionTimeoutMS:%d NetworkTimeoutMS:%d CallerId:%s Verbose:%t LegacyResultFetch:%t}",
		c.Protocol, c.Host, c.Port, c.DeadlineMS, c.PlainText, c.ConnectionCount,
		c.ConnectionTimeoutMS, c.NetworkTimeoutMS, c.CallerId, c.Verbose, c.LegacyResultFetch)
}

func validConfigs(configs *Config) (bool, error) {
	if configs == nil {
		return false, fmt.Errorf("predator client config is nil")
	}
	if configs.Protocol != ProtocolGRPC && configs.Protocol != ProtocolHTTP {
		return false, fmt.Errorf("predator protocol is invalid, configured value: %v", configs.Protocol)
	}
	if configs.Host == "" {
		return false, fmt.Errorf("predator service host is invalid, configured value: %v", configs.Host)
	}
	if configs.Port == "" && !strings.Contains(configs.Host, "://") {
		return false, fmt.Errorf("predator service port is invalid, configured value: %v", configs.Port)
	}
	if configs.DeadlineMS <= 0 {
		return false, fmt.Errorf("predator service deadline exceed timeout is invalid, configured value: %v",
			configs.DeadlineMS)
	}
	if configs.ConnectionCount < 0 {
		return false, fmt.Errorf("predator connection count is invalid, configured value: %v", configs.ConnectionCount)
	}
	if configs.ConnectionTimeoutMS < 0 || configs.NetworkTimeoutMS < 0 {
		return false, fmt.Errorf("predator timeouts must not be negative, configured values: %v, %v",
			configs.ConnectionTimeoutMS, configs.NetworkTimeoutMS)
	}
	return true, nil
}
