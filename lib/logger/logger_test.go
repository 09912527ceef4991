package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in  string
		exp slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, c := range cases {
		assert.Equal(t, c.exp, ParseLevel(c.in), c.in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, Config{Level: "warn", Format: "json"})
	log.Info("dropped")
	log.Warn("kept", "chain", "eos")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "eos", rec["chain"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer

	New(&buf, Config{}).Info("started", "port", "3030")
	assert.Contains(t, buf.String(), "started")
	assert.Contains(t, buf.String(), "port=3030")
	// no colour codes outside terminals
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestIsTerminal(t *testing.T) {
	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)

	defer devNull.Close()

	// a character device is not a terminal
	assert.False(t, isTerminal(devNull))
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)

	defer f.Close()

	assert.False(t, isTerminal(f))
}
