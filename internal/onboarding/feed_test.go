package onboarding

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carbon-scribe/onboarding-tracker/internal/notifications"
)

// MockPublisher is a mock implementation of the Publisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(message notifications.WebSocketMessage) error {
	args := m.Called(message)
	return args.Error(0)
}

func TestPublishChanges(t *testing.T) {
	tracker := newABC(t)
	publisher := new(MockPublisher)

	var sent []notifications.WebSocketMessage
	publisher.On("Publish", mock.Anything).Run(func(args mock.Arguments) {
		sent = append(sent, args.Get(0).(notifications.WebSocketMessage))
	}).Return(nil)

	stop := PublishChanges(tracker, publisher, nil)
	_, _ = tracker.CompleteStep("a")
	_, _ = tracker.CompleteStep("z")
	stop()
	_, _ = tracker.CompleteStep("b")

	require.Len(t, sent, 1)
	assert.Equal(t, notifications.WSMessageTypeProgress, sent[0].Type)

	var event ChangeEvent
	require.NoError(t, json.Unmarshal(sent[0].Data, &event))
	assert.Equal(t, ChangeCompleted, event.Kind)
	assert.Equal(t, "a", event.StepID)
	assert.Equal(t, 33, event.State.PercentComplete)
}

func TestPublishChanges_FailureDoesNotFailMutation(t *testing.T) {
	tracker := newABC(t)
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything).Return(errors.New("broadcast channel full"))

	PublishChanges(tracker, publisher, nil)
	res, err := tracker.CompleteStep("a")
	require.NoError(t, err)
	assert.NoError(t, res.Warning)
	publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestSnapshotMessage(t *testing.T) {
	tracker := newABC(t)
	_, _ = tracker.SkipStep("a")

	msg, err := SnapshotMessage(tracker)()
	require.NoError(t, err)
	assert.Equal(t, notifications.WSMessageTypeSnapshot, msg.Type)

	var state ProgressState
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	assert.Equal(t, tracker.State(), state)
}
