package dto

import "time"

// CreateWorkflowRequest payload.
type CreateWorkflowRequest struct {
	Name               string `json:"name"`
	ExternalWorkflowID string `json:"external_workflow_id"`
}

// TriggerRequest payload for POST /workflows/:id/executions.
type TriggerRequest struct {
	Input          map[string]any `json:"input"`
	TimeoutSeconds int            `json:"timeout_seconds"`
}

// WorkflowResponse body. SuccessRate is derived on read.
type WorkflowResponse struct {
	Meta
	Name               string     `json:"name"`
	ExternalWorkflowID string     `json:"external_workflow_id"`
	Status             string     `json:"status"`
	ExecutionCount     int64      `json:"execution_count"`
	SuccessCount       int64      `json:"success_count"`
	FailureCount       int64      `json:"failure_count"`
	SuccessRate        float64    `json:"success_rate"`
	LastExecutedAt     *time.Time `json:"last_executed_at,omitempty"`
}

// ExecutionResponse is one execution log row.
type ExecutionResponse struct {
	ID                  string         `json:"id"`
	WorkflowID          string         `json:"workflow_id"`
	ExternalExecutionID string         `json:"external_execution_id,omitempty"`
	Status              string         `json:"status"`
	Error               string         `json:"error,omitempty"`
	Output              map[string]any `json:"output,omitempty"`
	StartedAt           time.Time      `json:"started_at"`
	FinishedAt          time.Time      `json:"finished_at"`
	DurationMs          int64          `json:"duration_ms"`
}

// TriggerResponse returns the workflow after the run and the run itself.
type TriggerResponse struct {
	Workflow  WorkflowResponse  `json:"workflow"`
	Execution ExecutionResponse `json:"execution"`
}
