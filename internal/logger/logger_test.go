package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New("loud")
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	log, level, err := New("info")
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.False(t, SetLevel(level, ""))
	assert.False(t, SetLevel(level, "info"))
	assert.True(t, SetLevel(level, "debug"))
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.False(t, SetLevel(level, "nope"))
}
