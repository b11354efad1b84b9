package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateMachine_CanTransition(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.CanTransition(StatusPending, StatusCompleted))
	assert.True(t, sm.CanTransition(StatusPending, StatusSkipped))
	assert.False(t, sm.CanTransition(StatusCompleted, StatusSkipped))
	assert.False(t, sm.CanTransition(StatusSkipped, StatusCompleted))
	assert.False(t, sm.CanTransition(StatusCompleted, StatusPending))
	assert.False(t, sm.CanTransition("archived", StatusCompleted))
}

func TestStateMachine_IsKnown(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.IsKnown(StatusPending))
	assert.True(t, sm.IsKnown(StatusSkipped))
	assert.False(t, sm.IsKnown(""))
	assert.False(t, sm.IsKnown("archived"))
}
