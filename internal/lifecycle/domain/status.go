package domain

// StageStatus represents the lifecycle status of a stage.
type StageStatus string

const (
	// StatusNotStarted indicates the stage has not been entered yet.
	StatusNotStarted StageStatus = "not_started"
	// StatusInProgress indicates the stage is the project's active stage.
	StatusInProgress StageStatus = "in_progress"
	// StatusCompleted indicates the stage has been passed. Terminal.
	StatusCompleted StageStatus = "completed"
	// StatusBlocked indicates the active stage is stalled on an external event.
	StatusBlocked StageStatus = "blocked"
)

// String returns the string representation of the status.
func (s StageStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a known value.
func (s StageStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status represents a terminal state.
func (s StageStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// CanTransitionTo returns true if transitioning to the given status is valid.
func (s StageStatus) CanTransitionTo(target StageStatus) bool {
	switch s {
	case StatusNotStarted:
		return target == StatusInProgress
	case StatusInProgress:
		return target == StatusCompleted || target == StatusBlocked
	case StatusBlocked:
		return target == StatusInProgress
	case StatusCompleted:
		return false
	default:
		return false
	}
}

// ParseStageStatus parses a string into a StageStatus.
func ParseStageStatus(s string) (StageStatus, error) {
	status := StageStatus(s)
	if !status.IsValid() {
		return "", ErrInvalidStageStatus
	}
	return status, nil
}
