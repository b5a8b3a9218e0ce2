package domain

import "fmt"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// Transition validates a status change. A re-entrant transition to the same
// state is a no-op; any transition out of a terminal state is an error.
func (s TaskStatus) Transition(next TaskStatus) (TaskStatus, error) {
	if s == next {
		return s, nil
	}
	if s.IsTerminal() {
		return s, fmt.Errorf("invalid transition %s -> %s: %s is terminal", s, next, s)
	}
	switch {
	case s == TaskStatusPending && next == TaskStatusRunning:
		return next, nil
	case s == TaskStatusRunning && next.IsTerminal():
		return next, nil
	}
	return s, fmt.Errorf("invalid transition %s -> %s", s, next)
}

// Task represents one requested download tracked by the manager. Its id is
// unique among currently tracked tasks and never references stale state
// after the task is removed.
type Task struct {
	ID       string
	URL      string
	Source   string
	Status   TaskStatus
	Progress int
	Error    string
}
