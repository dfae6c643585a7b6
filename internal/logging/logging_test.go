package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
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
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
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

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: FormatJSON, Level: "info"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("image resolved", "strategy", "artist", "source", "spotify")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "image resolved", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "spotify", record["source"])
}

func TestNew_PrettyWithoutTerminalHasNoColor(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: FormatPretty, Level: "debug"})
	require.NoError(t, err)

	logger.Debug("cache miss", "key", "image:artist:Ado")

	out := buf.String()
	assert.Contains(t, out, "cache miss")
	assert.Contains(t, out, "key=image:artist:Ado")
	assert.NotContains(t, out, "\033[")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Format: "xml"})
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, Options{Level: "loud"})
	assert.Error(t, err)
}
