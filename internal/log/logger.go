package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Production emits JSON lines; every other
// environment gets the console writer. An unparsable level falls back to
// debug outside production and info inside it.
func New(environment string, level string, service string) zerolog.Logger {
	var output io.Writer = os.Stdout
	if environment != "production" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.DebugLevel
		if environment == "production" {
			lvl = zerolog.InfoLevel
		}
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(output).With().
		Timestamp().
		Str("env", environment).
		Str("service", service).
		Logger()
}
