package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"alfredoptarigan/cv-screener/internal/config"
)

func TestJobFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	log.Info("evaluating", JobFields("  e1 ", "peb-2025", "")...)

	entries := observed.All()
	require.Len(t, entries, 1)

	ctx := entries[0].ContextMap()
	assert.Equal(t, "e1", ctx[FieldJobID])
	assert.Equal(t, "peb-2025", ctx[FieldPosting])
	_, hasBatch := ctx[FieldBatchID]
	assert.False(t, hasBatch)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "héllo", TruncateForLog("  héllo  ", 10))
	assert.Equal(t, "hé...", TruncateForLog("héllo", 2))
	assert.Equal(t, "", TruncateForLog("hello", 0))
}

func TestNewLevels(t *testing.T) {
	tests := map[string]struct {
		cfg      config.LogConfig
		enabled  zapcore.Level
		disabled zapcore.Level
	}{
		"default is info":        {cfg: config.LogConfig{}, enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		"debug flag":             {cfg: config.LogConfig{JSON: true, Debug: true}, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		"explicit level wins":    {cfg: config.LogConfig{Debug: true, Level: "warn"}, enabled: zapcore.WarnLevel, disabled: zapcore.InfoLevel},
		"level is case tolerant": {cfg: config.LogConfig{Level: " ERROR "}, enabled: zapcore.ErrorLevel, disabled: zapcore.WarnLevel},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			l, err := New(tt.cfg, "api")
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.disabled))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "chatty"}, "worker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}
