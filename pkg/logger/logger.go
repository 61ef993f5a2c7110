package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger sets the global zerolog level from its name and switches to console
// output. An unknown level is an error rather than a panic so CLIs can report it.
func InitLogger(level string) error {
	return InitLoggerWithOutput(level, os.Stderr)
}

func InitLoggerWithOutput(level string, out io.Writer) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: "02-01-2006 15:04:05.000"})
	log.Debug().Str("level", lvl.String()).Msg("Logger initialized!")
	return nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "", "INFO":
		return zerolog.InfoLevel, nil
	case "WARN":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "FATAL":
		return zerolog.FatalLevel, nil
	case "PANIC":
		return zerolog.PanicLevel, nil
	case "DISABLED":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("incorrect log level %s", level)
	}
}
