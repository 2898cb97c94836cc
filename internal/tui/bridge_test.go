package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

func TestEventBridge_StatusCmd(t *testing.T) {
	t.Parallel()

	b := NewEventBridge()
	ch := make(chan workflow.StatusEvent, 1)
	ch <- workflow.StatusEvent{Type: workflow.StatusUpdate, Message: "working"}

	cmd := b.StatusCmd(context.Background(), ch)
	require.NotNil(t, cmd)
	msg, ok := cmd().(StatusMsg)
	require.True(t, ok)
	assert.Equal(t, "working", msg.Event.Message)
}

func TestEventBridge_NilChannel(t *testing.T) {
	t.Parallel()

	b := NewEventBridge()
	assert.Nil(t, b.StatusCmd(context.Background(), nil))
}

func TestEventBridge_ClosedChannel(t *testing.T) {
	t.Parallel()

	b := NewEventBridge()
	status := make(chan workflow.StatusEvent)
	close(status)

	assert.Nil(t, b.StatusCmd(context.Background(), status)())
}

func TestEventBridge_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewEventBridge()
	assert.Nil(t, b.StatusCmd(ctx, make(chan workflow.StatusEvent))())
}
