package predator

import (
	"fmt"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("PREDATOR_HOST", "predator.local")
	viper.Set("PREDATOR_PROTOCOL", "HTTP")
	viper.Set("PREDATOR_CALLER_ID", "feed-ranker")
	viper.Set("PREDATOR_AUTH_TOKEN", "secret")
	viper.Set("PREDATOR_CONNECTION_COUNT", 4)
	viper.Set("PREDATOR_PLAINTEXT", false)

	conf, err := ConfigFromEnv("PREDATOR_")
	require.NoError(t, err)
	assert.Equal(t, ProtocolHTTP, conf.Protocol)
	assert.Equal(t, "predator.local", conf.Host)
	assert.Equal(t, DefaultHTTPPort, conf.Port)
	assert.Equal(t, int64(DefaultDeadlineMS), conf.DeadlineMS)
	assert.Equal(t, 4, conf.ConnectionCount)
	assert.Equal(t, "feed-ranker", conf.CallerId)
	assert.Equal(t, "secret", conf.CallerToken)
	assert.False(t, conf.PlainText)
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("P_HOST", "predator.local")

	conf, err := ConfigFromEnv("P_")
	require.NoError(t, err)
	assert.Equal(t, ProtocolGRPC, conf.Protocol)
	assert.Equal(t, DefaultGRPCPort, conf.Port)
	assert.True(t, conf.PlainText)
	assert.Equal(t, DefaultConnectionCount, conf.ConnectionCount)
	assert.Equal(t, int64(DefaultNetworkTimeoutMS), conf.NetworkTimeoutMS)
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("P_HOST", "predator.local")
	viper.Set("P_DEADLINE_MS", -1)

	_, err := ConfigFromEnv("P_")
	assert.ErrorContains(t, err, "deadline")

	viper.Reset()
	_, err = ConfigFromEnv("P_")
	assert.ErrorContains(t, err, "host")
}

func TestValidConfigs(t *testing.T) {
	valid := func() *Config {
		return &Config{Protocol: ProtocolGRPC, Host: "h", Port: "8001", DeadlineMS: 10}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "protocol", mutate: func(c *Config) { c.Protocol = "udp" }, wantErr: "protocol"},
		{name: "host", mutate: func(c *Config) { c.Host = "" }, wantErr: "host"},
		{name: "port", mutate: func(c *Config) { c.Port = "" }, wantErr: "port"},
		{name: "url host needs no port", mutate: func(c *Config) { c.Host, c.Port = "http://h:1", "" }},
		{name: "deadline", mutate: func(c *Config) { c.DeadlineMS = 0 }, wantErr: "deadline"},
		{name: "connection count", mutate: func(c *Config) { c.ConnectionCount = -1 }, wantErr: "connection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := valid()
			tt.mutate(conf)
			ok, err := validConfigs(conf)
			if tt.wantErr == "" {
				assert.True(t, ok)
				assert.NoError(t, err)
				return
			}
			assert.False(t, ok)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	ok, err := validConfigs(nil)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://h:8000", baseURL(&Config{Host: "h", Port: "8000", PlainText: true}))
	assert.Equal(t, "https://h:8000", baseURL(&Config{Host: "h", Port: "8000"}))
	assert.Equal(t, "http://127.0.0.1:5555", baseURL(&Config{Host: "http://127.0.0.1:5555/"}))
	assert.Equal(t, "v2/models/m%2Fx/versions/2", modelPath("m/x", "2"))
	assert.Equal(t, "v2/models/m", modelPath("m", ""))
}

func TestConfig_StringOmitsToken(t *testing.T) {
	conf := &Config{Protocol: ProtocolGRPC, Host: "predator.local", Port: "8001", CallerId: "feed-ranker", CallerToken: "s3cr3t-token"}

	for _, s := range []string{conf.String(), fmt.Sprintf("%v", conf), fmt.Sprintf("%s", *conf)} {
		assert.NotContains(t, s, "s3cr3t-token")
		assert.Contains(t, s, "Host:predator.local")
		assert.Contains(t, s, "CallerId:feed-ranker")
	}
}
