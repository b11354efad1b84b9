package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carbon-scribe/onboarding-tracker/internal/onboarding"
)

// Entry is one recorded status change of one step
type Entry struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionKey      string         `gorm:"index;not null" json:"session_key"`
	StepID          string         `gorm:"not null" json:"step_id"`
	Action          string         `gorm:"not null" json:"action"`
	FromStatus      string         `json:"from_status"`
	ToStatus        string         `json:"to_status"`
	PercentComplete int            `json:"percent_complete"`
	Metadata        datatypes.JSON `json:"metadata"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}

// TableName overrides the gorm default
func (Entry) TableName() string {
	return "onboarding_audit_entries"
}

// BeforeCreate assigns an id when the caller did not
func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type entryMetadata struct {
	CurrentIndex int  `json:"current_index"`
	TotalSteps   int  `json:"total_steps"`
	Done         bool `json:"done"`
}

// EntriesFor converts a change event into one entry per changed step
func EntriesFor(sessionKey string, event onboarding.ChangeEvent) []*Entry {
	meta, _ := json.Marshal(entryMetadata{
		CurrentIndex: event.State.CurrentIndex,
		TotalSteps:   event.State.TotalSteps,
		Done:         event.State.Done,
	})

	entries := make([]*Entry, 0, len(event.Changes))
	for _, change := range event.Changes {
		entries = append(entries, &Entry{
			ID:              uuid.New(),
			SessionKey:      sessionKey,
			StepID:          change.StepID,
			Action:          string(event.Kind),
			FromStatus:      string(change.From),
			ToStatus:        string(change.To),
			PercentComplete: event.State.PercentComplete,
			Metadata:        datatypes.JSON(meta),
			CreatedAt:       event.At,
		})
	}
	return entries
}
