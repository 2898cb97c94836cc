package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDefault sends the default logger to a buffer and restores the
// charmbracelet defaults when the test ends.
func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetOutput(os.Stderr)
		log.SetFormatter(log.TextFormatter)
	})
	return &buf
}

func decodeLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), "line %q", line)
		records = append(records, rec)
	}
	return records
}

func TestSetup_Level(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		quiet   bool
		want    log.Level
	}{
		{name: "default", want: log.InfoLevel},
		{name: "verbose", verbose: true, want: log.DebugLevel},
		{name: "quiet", quiet: true, want: log.ErrorLevel},
		{name: "quiet wins", verbose: true, quiet: true, want: log.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureDefault(t)
			Setup(tt.verbose, tt.quiet, false)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNew_ComponentPrefixInJSON(t *testing.T) {
	Setup(true, false, true)
	buf := captureDefault(t)

	New("action").Debug("action started", "id", "a1")
	New("workflow").Warn("step rejected", "step", "input")
	New("").Info("plain")

	records := decodeLines(t, buf.String())
	require.Len(t, records, 3)

	assert.Equal(t, "action", records[0]["prefix"])
	assert.Equal(t, "debug", records[0]["level"])
	assert.Equal(t, "a1", records[0]["id"])

	assert.Equal(t, "workflow", records[1]["prefix"])
	assert.Equal(t, "input", records[1]["step"])

	_, hasPrefix := records[2]["prefix"]
	assert.False(t, hasPrefix)
}

func TestSetup_QuietDropsActionNoise(t *testing.T) {
	Setup(false, true, false)
	buf := captureDefault(t)

	logger := New("registry")
	logger.Info("action added")
	logger.Warn("closing process during removal")
	assert.Empty(t, buf.String())

	logger.Error("lock timeout")
	assert.Contains(t, buf.String(), "lock timeout")
	assert.Contains(t, buf.String(), "registry")
}

func TestSetup_WritesToStderr(t *testing.T) {
	captureDefault(t)
	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	t.Cleanup(func() { os.Stdout = orig })

	Setup(true, false, false)
	New("engine").Info("shutting down")
	require.NoError(t, w.Close())

	var out bytes.Buffer
	_, err = out.ReadFrom(r)
	require.NoError(t, err)
	assert.Empty(t, out.String(), "stdout is reserved for command output")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    log.Level
		wantErr bool
	}{
		{in: "debug", want: log.DebugLevel},
		{in: "INFO", want: log.InfoLevel},
		{in: " warn ", want: log.WarnLevel},
		{in: "warning", want: log.WarnLevel},
		{in: "err", want: log.ErrorLevel},
		{in: "error", want: log.ErrorLevel},
		{in: "loud", want: log.InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.in)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyLevel(t *testing.T) {
	captureDefault(t)
	Setup(false, false, false)

	require.NoError(t, ApplyLevel(""))
	assert.Equal(t, log.InfoLevel, log.GetLevel())

	require.NoError(t, ApplyLevel("warning"))
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	require.Error(t, ApplyLevel("chatty"))
	assert.Equal(t, log.WarnLevel, log.GetLevel(), "an invalid name keeps the level")
}

func TestTag(t *testing.T) {
	tests := map[log.Level]string{
		log.DebugLevel: "DEBUG",
		log.InfoLevel:  "INFO",
		log.WarnLevel:  "WARN",
		log.ErrorLevel: "ERROR",
	}
	for level, want := range tests {
		assert.Equal(t, want, Tag(level))
	}
}

func TestDiscard_ProducesNoOutput(t *testing.T) {
	buf := captureDefault(t)

	Discard().Error("dropped")
	assert.Empty(t, buf.String())
}
