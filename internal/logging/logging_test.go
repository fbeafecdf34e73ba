package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestHandlerFormatPerEnv(t *testing.T) {
	var buf bytes.Buffer
	slog.New(handler(&buf, "prod", "info")).Info("reservation created", "reservation_id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "reservation created", line["msg"])
	assert.EqualValues(t, 7, line["reservation_id"])

	buf.Reset()
	lg := slog.New(handler(&buf, "dev", "warn"))
	lg.Info("hidden")
	lg.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "app.log")
	lg, closer, err := New("prod", "info", file)
	require.NoError(t, err)

	lg.Info("event published", "event_id", 4)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_id":4`)
}
