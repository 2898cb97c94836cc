package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	cfg := NewDefaults()
	require.NotNil(t, cfg)

	assert.Equal(t, "2s", cfg.Engine.LockTimeout)
	assert.Equal(t, "500ms", cfg.Engine.GraceDelay)
	assert.Equal(t, 1000, cfg.Engine.ConsoleLines)
	assert.Equal(t, 500, cfg.Engine.LogEntries)
	assert.Equal(t, "200ms", cfg.Engine.PollInterval)
	assert.Equal(t, "workflows/**/*.toml", cfg.Engine.WorkflowFiles)
	assert.NotNil(t, cfg.Workflows)
	assert.Empty(t, cfg.Workflows)
}

func TestNewDefaults_ReturnsFreshInstance(t *testing.T) {
	t.Parallel()
	a := NewDefaults()
	b := NewDefaults()
	a.Workflows["x"] = WorkflowConfig{}
	assert.Empty(t, b.Workflows)
}

func TestNewDefaults_PassValidation(t *testing.T) {
	t.Parallel()
	vr := Validate(NewDefaults(), nil)
	assert.Empty(t, vr.Issues)
}

func TestEngineConfig_Durations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cfg   EngineConfig
		lock  time.Duration
		grace time.Duration
		poll  time.Duration
	}{
		{
			name:  "empty falls back",
			cfg:   EngineConfig{},
			lock:  DefaultLockTimeout,
			grace: DefaultGraceDelay,
			poll:  DefaultPollInterval,
		},
		{
			name:  "explicit",
			cfg:   EngineConfig{LockTimeout: "5s", GraceDelay: "0s", PollInterval: "1s"},
			lock:  5 * time.Second,
			grace: 0,
			poll:  time.Second,
		},
		{
			name:  "invalid falls back",
			cfg:   EngineConfig{LockTimeout: "later", GraceDelay: "-1s", PollInterval: "x"},
			lock:  DefaultLockTimeout,
			grace: DefaultGraceDelay,
			poll:  DefaultPollInterval,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.lock, tt.cfg.LockTimeoutDuration())
			assert.Equal(t, tt.grace, tt.cfg.GraceDelayDuration())
			assert.Equal(t, tt.poll, tt.cfg.PollIntervalDuration())
		})
	}
}
