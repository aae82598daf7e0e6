package domain

import "time"

// WorkflowStatus enumerates lifecycle states for workflow instances.
type WorkflowStatus string

const (
	WorkflowStatusDraft   WorkflowStatus = "draft"
	WorkflowStatusActive  WorkflowStatus = "active"
	WorkflowStatusPaused  WorkflowStatus = "paused"
	WorkflowStatusError   WorkflowStatus = "error"
	WorkflowStatusDeleted WorkflowStatus = "deleted"
)

// WorkflowInstance is a tenant's binding to an n8n workflow.
type WorkflowInstance struct {
	Meta
	Name               string
	ExternalWorkflowID string
	Status             WorkflowStatus
	ExecutionCount     int64
	SuccessCount       int64
	FailureCount       int64
	LastExecutedAt     *time.Time
}

func (w *WorkflowInstance) Kind() EntityKind      { return KindWorkflow }
func (w *WorkflowInstance) Base() *Meta           { return &w.Meta }
func (w *WorkflowInstance) CurrentStatus() string { return string(w.Status) }

// SuccessRate is success_count / execution_count, or 0 before the first run.
func (w *WorkflowInstance) SuccessRate() float64 {
	if w.ExecutionCount == 0 {
		return 0
	}
	return float64(w.SuccessCount) / float64(w.ExecutionCount)
}

// ExecutionStatus is the terminal outcome of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// WorkflowExecution is the log row written after the runner returns.
type WorkflowExecution struct {
	ID                  string
	OrgID               string
	WorkflowID          string
	ExternalExecutionID string
	Status              ExecutionStatus
	Error               string
	Input               map[string]any
	Output              map[string]any
	StartedAt           time.Time
	FinishedAt          time.Time
	DurationMs          int64
}
