package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("debug")
	require.NoError(t, err)
	require.NotNil(t, l)

	l.With(zap.Int("shop_id", 4)).Info("fitted")
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("loud")
	assert.Error(t, err)
}

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() {
		l.Debug("debug")
		l.Info("info", zap.String("k", "v"))
		l.Warn("warn")
		l.Error("error")
		l.With(zap.Int("n", 1)).Info("child")
	})
}
