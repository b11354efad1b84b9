package workflows

// Step statuses understood by the state machine.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

// StateMachine enforces onboarding step status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a new state machine with allowed transitions
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			StatusPending:   {StatusCompleted, StatusSkipped},
			StatusCompleted: {},
			StatusSkipped:   {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// IsKnown reports whether status is one the machine recognizes.
func (sm *StateMachine) IsKnown(status string) bool {
	_, exists := sm.allowedTransitions[status]
	return exists
}
