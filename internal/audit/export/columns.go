package export

import (
	"fmt"
	"time"

	"carbon-scribe/onboarding-tracker/internal/audit"
)

// Column describes one exported field of an audit entry
type Column struct {
	Key   string
	Label string
	Value func(e *audit.Entry) interface{}
}

// Columns is the export layout shared by every format
var Columns = []Column{
	{Key: "created_at", Label: "Time", Value: func(e *audit.Entry) interface{} { return e.CreatedAt }},
	{Key: "step_id", Label: "Step", Value: func(e *audit.Entry) interface{} { return e.StepID }},
	{Key: "action", Label: "Action", Value: func(e *audit.Entry) interface{} { return e.Action }},
	{Key: "from_status", Label: "From", Value: func(e *audit.Entry) interface{} { return e.FromStatus }},
	{Key: "to_status", Label: "To", Value: func(e *audit.Entry) interface{} { return e.ToStatus }},
	{Key: "percent_complete", Label: "Progress %", Value: func(e *audit.Entry) interface{} { return e.PercentComplete }},
	{Key: "session_key", Label: "Session", Value: func(e *audit.Entry) interface{} { return e.SessionKey }},
}

func labels() []string {
	out := make([]string, len(Columns))
	for i, col := range Columns {
		out[i] = col.Label
	}
	return out
}

// formatValue renders a cell for the text-based formats
func formatValue(val interface{}, timestampFormat string) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(timestampFormat)
	default:
		return fmt.Sprintf("%v", v)
	}
}
