package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestZapLogLevelFromString(t *testing.T) {
	tests := []struct {
		levelStr string
		expected zapcore.Level
		isError  bool
	}{
		{"DEBUG", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"WARNING", zapcore.WarnLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"ERROR", zapcore.ErrorLevel, false},
		{"FATAL", zapcore.FatalLevel, false},
		{"PANIC", zapcore.PanicLevel, false},
		{"UNKNOWN", -1, true},
	}

	for _, test := range tests {
		t.Run(test.levelStr, func(t *testing.T) {
			level, err := ZapLogLevelFromString(test.levelStr)
			if test.isError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, level)
		})
	}
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLogger(zapcore.AddSync(&buf), false, false, zapcore.InfoLevel)

	logger.Debug("hidden")
	logger.Info("field completed", zap.String("field", "hero"), WithRequestID("abc"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "field completed", entry["msg"])
	require.Equal(t, "hero", entry["field"])
	require.Equal(t, "abc", entry["request_id"])
	require.Contains(t, entry, "hostname")
	require.Contains(t, entry, "pid")
}
