package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zap.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zap.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zap.InfoLevel, parseLevel(""))
	assert.Equal(t, zap.InfoLevel, parseLevel("loud"))
}

func TestNewHonoursLevel(t *testing.T) {
	lg := New("warn")
	assert.False(t, lg.Desugar().Core().Enabled(zap.InfoLevel))
	assert.True(t, lg.Desugar().Core().Enabled(zap.WarnLevel))

	cli := NewConsole(false)
	assert.False(t, cli.Desugar().Core().Enabled(zap.InfoLevel))
	assert.True(t, NewConsole(true).Desugar().Core().Enabled(zap.DebugLevel))
}
