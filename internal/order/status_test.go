package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikarp/bus-ticketing/internal/model"
)

func TestFromGatewayStatus(t *testing.T) {
	cases := map[string]string{
		"settlement": model.StatusConfirmed,
		"capture":    model.StatusConfirmed,
		"pending":    model.StatusPending,
		"deny":       model.StatusCancelled,
		"cancel":     model.StatusCancelled,
		"expire":     model.StatusCancelled,
	}
	for external, want := range cases {
		got, err := FromGatewayStatus(external)
		require.NoError(t, err, external)
		assert.Equal(t, want, got, external)
	}
}

func TestFromGatewayStatusUnknown(t *testing.T) {
	_, err := FromGatewayStatus("refund")
	require.Error(t, err)
	var unknown ErrUnknownGatewayStatus
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "refund", unknown.Status)
}

func TestDecideRedeliveryIsNoop(t *testing.T) {
	// The gateway retries webhooks; a second settlement for an already
	// confirmed order must change nothing.
	assert.Equal(t, TransitionNone, Decide(model.StatusConfirmed, model.StatusConfirmed))
	assert.Equal(t, TransitionNone, Decide(model.StatusCancelled, model.StatusCancelled))
	assert.Equal(t, TransitionNone, Decide(model.StatusPending, model.StatusPending))
}

func TestDecideTerminalStatesAreFinal(t *testing.T) {
	// A late "pending" or a conflicting outcome never reopens or flips a
	// settled order.
	assert.Equal(t, TransitionNone, Decide(model.StatusConfirmed, model.StatusPending))
	assert.Equal(t, TransitionNone, Decide(model.StatusConfirmed, model.StatusCancelled))
	assert.Equal(t, TransitionNone, Decide(model.StatusCancelled, model.StatusConfirmed))
	assert.Equal(t, TransitionNone, Decide(model.StatusCompleted, model.StatusCancelled))
}

func TestDecideAppliesFromPending(t *testing.T) {
	assert.Equal(t, TransitionApply, Decide(model.StatusPending, model.StatusConfirmed))
	assert.Equal(t, TransitionApply, Decide(model.StatusPending, model.StatusCancelled))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(model.StatusPending))
	assert.True(t, IsTerminal(model.StatusConfirmed))
	assert.True(t, IsTerminal(model.StatusCancelled))
	assert.True(t, IsTerminal(model.StatusCompleted))
}
