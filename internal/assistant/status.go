package assistant

import "github.com/sashabaranov/go-openai"

// RunStatus is the lifecycle state of one remote run.
type RunStatus string

const (
	StatusCreated        RunStatus = "created"
	StatusQueued         RunStatus = "queued"
	StatusInProgress     RunStatus = "in_progress"
	StatusRequiresAction RunStatus = "requires_action"
	StatusCompleted      RunStatus = "completed"
	StatusFailed         RunStatus = "failed"
	StatusExpired        RunStatus = "expired"
	StatusCancelling     RunStatus = "cancelling"
	StatusCancelled      RunStatus = "cancelled"
	StatusIncomplete     RunStatus = "incomplete"
)

func statusOf(run openai.Run) RunStatus {
	if run.Status == "" {
		return StatusCreated
	}
	return RunStatus(run.Status)
}

// Pending reports whether the run is still worth polling. No tool handler
// exists, so requires_action is simply polled until the backend moves on.
func (s RunStatus) Pending() bool {
	switch s {
	case StatusCreated, StatusQueued, StatusInProgress, StatusRequiresAction:
		return true
	}
	return false
}

func (s RunStatus) Succeeded() bool {
	return s == StatusCompleted
}
