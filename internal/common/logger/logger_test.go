package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapWrapper_FieldsAndErrors(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).
		WithFields(map[string]interface{}{"component": "search"}).
		WithError(errors.New("boom"))

	log.Warn("fallback", map[string]interface{}{"query": "villa", "cause": errors.New("timeout")})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "fallback", entries[0].Message)
		assert.Equal(t, "search", ctx["component"])
		assert.Equal(t, "villa", ctx["query"])
		assert.Equal(t, "boom", ctx["error"])
		assert.Equal(t, "timeout", ctx["cause"])
	}
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.With(map[string]interface{}{"a": 1}).Info("ignored", nil)
	})
}
