package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConsoleLevel(t *testing.T) {
	tests := []struct {
		name      string
		opts      Options
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{name: "default is warn", wantWarn: true},
		{name: "info", opts: Options{Level: "info"}, wantInfo: true, wantWarn: true},
		{name: "verbose", opts: Options{Level: "error", Verbose: true}, wantDebug: true, wantInfo: true, wantWarn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Console = &buf
			logger, closeFn, err := New(tt.opts)
			require.NoError(t, err)

			logger.Debug("debug-line")
			logger.Info("info-line")
			logger.Warn("warn-line")
			require.NoError(t, closeFn())

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, "debug-line"))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, "info-line"))
			assert.Equal(t, tt.wantWarn, strings.Contains(out, "warn-line"))
		})
	}
}

func TestInvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestFileCoreWritesJSON(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "operations.log")

	logger, closeFn, err := New(Options{File: path, Console: &console})
	require.NoError(t, err)
	logger.Debug("inserted", zap.String("collection", "students"))
	require.NoError(t, closeFn())

	assert.Empty(t, console.String(), "debug stays off the console by default")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "inserted", entry["msg"])
	assert.Equal(t, "students", entry["collection"])
	assert.Equal(t, "debug", entry["level"])
}
