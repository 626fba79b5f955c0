package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("source failed", slog.String("source", "OFAC"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "source failed")
	assert.Contains(t, out, "source=OFAC")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Info("screening complete", slog.Int("companies", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "screening complete", rec["msg"])
	assert.Equal(t, float64(3), rec["companies"])
}

func TestNew_ErrorLog(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "errors.log")

	logger, closer, err := New(Options{Level: "debug", Writer: &buf, ErrorLog: path})
	require.NoError(t, err)

	scoped := logger.With(slog.String("source", "UN"))
	scoped.Info("source processed")
	scoped.Error("source failed", slog.String("error", "timeout"))
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "source processed")
	assert.Contains(t, buf.String(), "source failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "source failed", rec["msg"])
	assert.Equal(t, "UN", rec["source"])
	assert.Equal(t, "ERROR", rec["level"])
}

func TestNew_InvalidOptions(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
