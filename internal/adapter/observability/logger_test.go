package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/futureblink-ai/internal/config"
)

func TestSetupLogger_DevAndProd(t *testing.T) {
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "dev", OTELServiceName: "svc"}))
	require.NotNil(t, SetupLogger(config.Config{AppEnv: "prod", OTELServiceName: "svc"}))
}

func TestNewLogger_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, config.Config{AppEnv: "prod", LogLevel: "warn", OTELServiceName: "futureblink-ai"})
	lg.Info("hidden")
	assert.Zero(t, buf.Len())

	lg.Warn("shown")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "futureblink-ai", entry["service"])
	assert.Equal(t, "prod", entry["env"])
}

func TestNewLogger_DevIsDebug(t *testing.T) {
	var buf bytes.Buffer
	lg := newLogger(&buf, config.Config{AppEnv: "dev", LogLevel: "error"})
	lg.Debug("dbg")
	assert.Contains(t, buf.String(), "dbg")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
