package log

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	New("production", "warn", "api")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	New("production", "", "api")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	New("development", "loud", "worker")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
