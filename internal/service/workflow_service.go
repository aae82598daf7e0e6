package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/repository"
	"github.com/opsledger/lifecycle-service/internal/runner"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// WorkflowCreateInput describes workflow registration payload.
type WorkflowCreateInput struct {
	Name               string
	ExternalWorkflowID string
}

// TriggerInput carries the workflow input and an optional per-call timeout.
type TriggerInput struct {
	Input   map[string]any
	Timeout time.Duration
}

// ExecutionResult is the workflow snapshot after the run plus its log row.
type ExecutionResult struct {
	Workflow  *domain.WorkflowInstance
	Execution *domain.WorkflowExecution
}

// CreateWorkflow registers a workflow instance in draft.
func (s *LifecycleService) CreateWorkflow(ctx context.Context, caller Caller, input WorkflowCreateInput) (*domain.WorkflowInstance, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(input.ExternalWorkflowID) == "" {
		details["external_workflow_id"] = "required"
	}
	if len(details) > 0 {
		return nil, s.reject(domain.KindWorkflow, apperrors.NewValidationError("invalid workflow", details))
	}
	workflow := &domain.WorkflowInstance{
		Meta:               newMeta(caller.OrgID, s.clock.Now()),
		Name:               strings.TrimSpace(input.Name),
		ExternalWorkflowID: strings.TrimSpace(input.ExternalWorkflowID),
		Status:             domain.WorkflowStatusDraft,
	}

	var pending []events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Workflows().Create(ctx, workflow); err != nil {
			return saveError(domain.KindWorkflow, workflow.ID, err)
		}
		ev, err := s.recordCreated(ctx, tx, caller, workflow)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindWorkflow, err)
	}
	s.publish(ctx, pending...)
	return workflow, nil
}

// GetWorkflow loads a workflow instance within the caller's tenant.
func (s *LifecycleService) GetWorkflow(ctx context.Context, caller Caller, id string) (*domain.WorkflowInstance, error) {
	entity, err := s.GetEntity(ctx, caller, domain.KindWorkflow, id)
	if err != nil {
		return nil, err
	}
	return entity.(*domain.WorkflowInstance), nil
}

// ChangeWorkflowStatus applies a workflow transition. Deleting is a soft delete.
func (s *LifecycleService) ChangeWorkflowStatus(ctx context.Context, caller Caller, id string, input StatusChangeInput) (*domain.WorkflowInstance, error) {
	var (
		out     *domain.WorkflowInstance
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		workflow, err := tx.Workflows().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindWorkflow, id, err)
		}
		noop, err := prepareTransition(caller, workflow, input)
		if err != nil {
			return err
		}
		out = workflow
		if noop {
			return nil
		}

		now := s.clock.Now()
		from := string(workflow.Status)
		workflow.Status = domain.WorkflowStatus(input.Status)
		workflow.UpdatedAt = now
		if err := tx.Workflows().Update(ctx, workflow, workflow.Version); err != nil {
			return saveError(domain.KindWorkflow, id, err)
		}
		ev, err := s.recordStatusChange(ctx, tx, caller, workflow, from, now)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindWorkflow, err)
	}
	s.publish(ctx, pending...)
	return out, nil
}

// TriggerExecution runs an active workflow on the external runner. The runner
// call happens outside any transaction and under a timeout; its outcome is then
// recorded in one transaction that bumps the counters and writes the execution
// log. Timeouts and runner errors are recorded as failed executions and returned
// together with the result. If the instance stopped being active while the run
// was in flight, only the log row is written and NotExecutable is returned.
func (s *LifecycleService) TriggerExecution(ctx context.Context, caller Caller, id string, input TriggerInput) (*ExecutionResult, error) {
	workflow, err := s.store.Workflows().Get(ctx, id)
	if err != nil {
		return nil, s.reject(domain.KindWorkflow, loadError(domain.KindWorkflow, id, err))
	}
	if err := authorize(caller, workflow); err != nil {
		return nil, s.reject(domain.KindWorkflow, err)
	}
	if workflow.Status != domain.WorkflowStatusActive {
		return nil, s.reject(domain.KindWorkflow, apperrors.NewNotExecutable(string(workflow.Status)))
	}
	if s.runner == nil {
		return nil, s.reject(domain.KindWorkflow, apperrors.NewExternalError(errors.New("workflow runner not configured")))
	}

	timeout := input.Timeout
	if timeout <= 0 {
		timeout = s.runnerTimeout
	}
	started := s.clock.Now()
	result, runErr := s.runWithTimeout(ctx, workflow.ExternalWorkflowID, input.Input, timeout)
	finished := s.clock.Now()

	execution := &domain.WorkflowExecution{
		ID:                  uuid.NewString(),
		OrgID:               workflow.OrgID,
		WorkflowID:          workflow.ID,
		ExternalExecutionID: result.ExecutionID,
		Status:              result.Status,
		Error:               result.Error,
		Input:               input.Input,
		Output:              result.Output,
		StartedAt:           started,
		FinishedAt:          finished,
		DurationMs:          finished.Sub(started).Milliseconds(),
	}
	var callErr error
	if runErr != nil {
		execution.Status = domain.ExecutionStatusFailed
		execution.Error = runErr.Error()
		if errors.Is(runErr, runner.ErrTimeout) || errors.Is(runErr, context.DeadlineExceeded) {
			callErr = apperrors.NewExternalTimeout(runErr)
		} else {
			callErr = apperrors.NewExternalError(runErr)
		}
	}
	if execution.Status == "" {
		execution.Status = domain.ExecutionStatusSuccess
	}

	var (
		out     *domain.WorkflowInstance
		pending []events.Event
		lapsed  domain.WorkflowStatus
	)
	// the run already happened; record it even if the caller has gone away
	recordCtx := context.WithoutCancel(ctx)
	err = s.store.WithinTx(recordCtx, func(tx repository.Store) error {
		current, err := tx.Workflows().GetForUpdate(recordCtx, workflow.ID)
		if err != nil {
			return loadError(domain.KindWorkflow, id, err)
		}
		if current.Status != domain.WorkflowStatusActive {
			// left active mid-run: keep the log row, leave the counters alone
			lapsed = current.Status
			out = current
			if err := tx.Executions().Create(recordCtx, execution); err != nil {
				return apperrors.NewInternalError(err)
			}
			return nil
		}
		updated, err := tx.Workflows().RecordExecution(recordCtx, workflow.ID, execution.Status, finished)
		if err != nil {
			return loadError(domain.KindWorkflow, id, err)
		}
		if err := tx.Executions().Create(recordCtx, execution); err != nil {
			return apperrors.NewInternalError(err)
		}
		err = s.writeHistory(recordCtx, tx, caller, updated, domain.ChangeTypeExecution,
			map[string]any{"execution_count": updated.ExecutionCount - 1},
			map[string]any{"execution_id": execution.ID, "status": execution.Status, "execution_count": updated.ExecutionCount},
			finished)
		if err != nil {
			return err
		}
		pending = append(pending, s.event(events.EventWorkflowExecuted, caller, updated, finished, events.WorkflowExecutedPayload{
			ExecutionID:         execution.ID,
			ExternalExecutionID: execution.ExternalExecutionID,
			Status:              execution.Status,
			DurationMs:          execution.DurationMs,
			ExecutionCount:      updated.ExecutionCount,
			SuccessRate:         updated.SuccessRate(),
		}))
		out = updated
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindWorkflow, err)
	}
	s.metrics.RecordExecution(string(execution.Status), finished.Sub(started))
	s.publish(ctx, pending...)

	res := &ExecutionResult{Workflow: out, Execution: execution}
	if lapsed != "" {
		return res, s.reject(domain.KindWorkflow, apperrors.NewNotExecutable(string(lapsed)))
	}
	if callErr != nil {
		return res, s.reject(domain.KindWorkflow, callErr)
	}
	return res, nil
}

func (s *LifecycleService) runWithTimeout(ctx context.Context, externalID string, input map[string]any, timeout time.Duration) (runner.Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.runner.Trigger(runCtx, externalID, input)
}

// ListExecutions returns the newest execution log rows of a workflow.
func (s *LifecycleService) ListExecutions(ctx context.Context, caller Caller, id string, limit int) ([]domain.WorkflowExecution, error) {
	if _, err := s.GetWorkflow(ctx, caller, id); err != nil {
		return nil, err
	}
	rows, err := s.store.Executions().ListByWorkflow(ctx, id, limit)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if rows == nil {
		rows = []domain.WorkflowExecution{}
	}
	return rows, nil
}
