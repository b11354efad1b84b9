package onboarding

import (
	"encoding/json"
	"fmt"
)

// EncodeSnapshot serializes a snapshot in the persisted layout
func EncodeSnapshot(snapshot PersistedState) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a stored snapshot. Any parse failure is ErrCorruptState.
func DecodeSnapshot(data []byte) (PersistedState, error) {
	var snapshot PersistedState
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return PersistedState{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return snapshot, nil
}
