package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neekaru/whatsappgo-fleet/internal/client"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from State
		kind client.EventKind
		want State
		ok   bool
	}{
		{StateCreating, client.EventQR, StateAwaitingQR, true},
		{StateCreating, client.EventAuthenticated, StateAuthenticated, true},
		{StateAwaitingQR, client.EventQR, StateAwaitingQR, true},
		{StateAwaitingQR, client.EventAuthenticated, StateAuthenticated, true},
		{StateAuthenticated, client.EventReady, StateReady, true},
		{StateCreating, client.EventReady, StateCreating, false},
		{StateAwaitingQR, client.EventReady, StateAwaitingQR, false},
		{StateReady, client.EventQR, StateReady, false},
		{StateAuthenticated, client.EventQR, StateAuthenticated, false},
		{StateReady, client.EventAuthenticated, StateReady, false},
		{StateCreating, client.EventAuthFailure, StateAuthFailed, true},
		{StateReady, client.EventAuthFailure, StateAuthFailed, true},
		{StateAwaitingQR, eventInitFailure, StateAuthFailed, true},
		{StateCreating, client.EventDisconnected, StateDisconnected, true},
		{StateAwaitingQR, client.EventDisconnected, StateDisconnected, true},
		{StateAuthenticated, client.EventDisconnected, StateDisconnected, true},
		{StateReady, client.EventDisconnected, StateDisconnected, true},
		{StateAuthFailed, client.EventReady, StateAuthFailed, false},
		{StateAuthFailed, client.EventDisconnected, StateAuthFailed, false},
		{StateDisconnected, client.EventQR, StateDisconnected, false},
		{StateDisconnected, client.EventAuthFailure, StateDisconnected, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"/"+string(tt.kind), func(t *testing.T) {
			got, ok := Transition(tt.from, tt.kind)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateText(t *testing.T) {
	b, err := StateAwaitingQR.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "AWAITING_QR", string(b))
	assert.True(t, StateDisconnected.Terminal())
	assert.False(t, StateReady.Terminal())
	assert.Equal(t, "State(42)", State(42).String())
}
