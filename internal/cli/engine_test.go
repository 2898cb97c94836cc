package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/config"
	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
)

func testEngine(t *testing.T) (*engine, *bytes.Buffer) {
	t.Helper()
	eng := newEngine(&config.ResolvedConfig{Config: config.NewDefaults()})
	var buf bytes.Buffer
	eng.logger = log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	return eng, &buf
}

func TestEngine_RegistersBuiltins(t *testing.T) {
	eng, _ := testEngine(t)

	_, err := eng.workflows.Get("batch")
	assert.NoError(t, err)
	assert.Equal(t, 0, eng.actions.Len())
}

func TestEngine_ShutdownStopsAndRemovesEveryAction(t *testing.T) {
	eng, buf := testEngine(t)

	opts := []action.Option{action.WithBackground(true), action.WithLogger(logging.Discard())}
	running, err := action.New(eng.actions, func(ctx context.Context, _ *action.BackgroundAction) error {
		<-ctx.Done()
		return ctx.Err()
	}, opts...)
	require.NoError(t, err)
	require.NoError(t, running.Start(context.Background()))

	finished, err := action.New(eng.actions, func(context.Context, *action.BackgroundAction) error {
		return nil
	}, opts...)
	require.NoError(t, err)
	require.NoError(t, finished.Start(context.Background()))
	<-finished.Done()

	require.Equal(t, 2, eng.actions.Len())
	require.NoError(t, eng.shutdown())

	assert.Equal(t, 0, eng.actions.Len())
	select {
	case <-running.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("running action was not stopped by shutdown")
	}

	logged := buf.String()
	assert.Contains(t, logged, "shutting down")
	assert.Contains(t, logged, "actions=2")
	assert.Contains(t, logged, "running=1")
	assert.NotContains(t, logged, "shutdown incomplete")
}

func TestEngine_ShutdownEmptyRegistry(t *testing.T) {
	eng, buf := testEngine(t)

	assert.NoError(t, eng.shutdown())
	assert.Contains(t, buf.String(), "actions=0")
}
