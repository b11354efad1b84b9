package onboarding

import (
	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/internal/notifications"
)

// Publisher delivers messages to rendering clients
type Publisher interface {
	Publish(message notifications.WebSocketMessage) error
}

// PublishChanges forwards every change event of t to publisher and returns
// the unsubscribe function.
func PublishChanges(t *Tracker, publisher Publisher, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	return t.Subscribe(func(event ChangeEvent) {
		msg, err := notifications.NewMessage(notifications.WSMessageTypeProgress, event)
		if err == nil {
			err = publisher.Publish(msg)
		}
		if err != nil {
			logger.Warn("Failed to publish onboarding change",
				zap.String("kind", string(event.Kind)),
				zap.Error(err))
		}
	})
}

// SnapshotMessage builds the message sent to a client when it first connects
func SnapshotMessage(t *Tracker) func() (notifications.WebSocketMessage, error) {
	return func() (notifications.WebSocketMessage, error) {
		return notifications.NewMessage(notifications.WSMessageTypeSnapshot, t.State())
	}
}
