package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	require.NoError(t, InitLoggerWithOutput("warn", &buf))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("dropped")
	log.Warn().Str("model_name", "simple").Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	require.NoError(t, InitLoggerWithOutput("", &buf))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestInitLogger_BadLevel(t *testing.T) {
	assert.Error(t, InitLoggerWithOutput("verbose", &bytes.Buffer{}))
}
