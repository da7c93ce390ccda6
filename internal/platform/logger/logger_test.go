package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtiscan/screener-api/internal/config"
)

func TestSetupReturnsLogger(t *testing.T) {
	testCases := []struct {
		name     string
		logLevel string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"uppercase level", "DEBUG", slog.LevelDebug},
		{"invalid level falls back to info", "loud", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := Setup(config.ServerConfig{Port: 8080, LogLevel: tc.logLevel})
			require.NoError(t, err)
			require.NotNil(t, logger)

			assert.True(t, logger.Enabled(nil, tc.expected),
				"logger should be enabled at the configured level")
			if tc.expected != slog.LevelDebug {
				assert.False(t, logger.Enabled(nil, tc.expected-1),
					"logger should not be enabled below the configured level")
			}
		})
	}
}
