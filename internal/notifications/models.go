package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// WebSocketMessage represents WebSocket message format
type WebSocketMessage struct {
	Type      string         `json:"type"`
	Data      datatypes.JSON `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

const (
	// WebSocket message types
	WSMessageTypeSnapshot = "snapshot"
	WSMessageTypeProgress = "progress"
	WSMessageTypeStatus   = "status"
)

// NewMessage encodes payload as the data of a message of the given type
func NewMessage(msgType string, payload any) (WebSocketMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return WebSocketMessage{}, fmt.Errorf("failed to encode %s message: %w", msgType, err)
	}
	return WebSocketMessage{
		Type:      msgType,
		Data:      datatypes.JSON(data),
		Timestamp: time.Now(),
	}, nil
}
