package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewHonoursLevel(t *testing.T) {
	logger, err := New(Config{Level: "error", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestDefaultConfigWritesToStderr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
	assert.Equal(t, "warn", cfg.Level)
}

func TestOrFallsBackToNop(t *testing.T) {
	assert.NotNil(t, Or(nil).Logger)

	l := NewDefault()
	assert.Same(t, l, Or(l))
}
