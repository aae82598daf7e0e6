package repository

import (
	"context"
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

const workflowColumns = `id, org_id, version, name, external_workflow_id, status,
       execution_count, success_count, failure_count, last_executed_at, created_at, updated_at`

type workflowRepository struct {
	q Querier
}

func (r *workflowRepository) Create(ctx context.Context, w *domain.WorkflowInstance) error {
	if err := checkPersistable(domain.KindWorkflow, string(w.Status)); err != nil {
		return err
	}
	const query = `
        INSERT INTO workflows (id, org_id, version, name, external_workflow_id, status,
            execution_count, success_count, failure_count, last_executed_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.q.Exec(ctx, query,
		w.ID, w.OrgID, w.Version, w.Name, w.ExternalWorkflowID, w.Status,
		w.ExecutionCount, w.SuccessCount, w.FailureCount, w.LastExecutedAt, w.CreatedAt, w.UpdatedAt)
	return err
}

func (r *workflowRepository) Get(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	return r.fetch(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id=$1`, id)
}

func (r *workflowRepository) GetForUpdate(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	return r.fetch(ctx, `SELECT `+workflowColumns+` FROM workflows WHERE id=$1 FOR UPDATE`, id)
}

func (r *workflowRepository) fetch(ctx context.Context, query string, args ...any) (*domain.WorkflowInstance, error) {
	var w domain.WorkflowInstance
	if err := r.q.QueryRow(ctx, query, args...).Scan(
		&w.ID, &w.OrgID, &w.Version, &w.Name, &w.ExternalWorkflowID, &w.Status,
		&w.ExecutionCount, &w.SuccessCount, &w.FailureCount, &w.LastExecutedAt, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &w, nil
}

// Update writes name and status only; counters belong to RecordExecution.
func (r *workflowRepository) Update(ctx context.Context, w *domain.WorkflowInstance, expectedVersion int64) error {
	if err := checkPersistable(domain.KindWorkflow, string(w.Status)); err != nil {
		return err
	}
	const query = `
        UPDATE workflows SET name=$1, status=$2, updated_at=$3, version=version+1
        WHERE id=$4 AND version=$5`
	cmd, err := r.q.Exec(ctx, query, w.Name, w.Status, w.UpdatedAt, w.ID, expectedVersion)
	if err != nil {
		return err
	}
	if err := casResult(cmd.RowsAffected()); err != nil {
		return err
	}
	w.Version = expectedVersion + 1
	return nil
}

func (r *workflowRepository) RecordExecution(ctx context.Context, id string, outcome domain.ExecutionStatus, at time.Time) (*domain.WorkflowInstance, error) {
	success, failure := 0, 0
	if outcome == domain.ExecutionStatusSuccess {
		success = 1
	} else {
		failure = 1
	}
	query := `
        UPDATE workflows SET execution_count=execution_count+1,
            success_count=success_count+$1, failure_count=failure_count+$2,
            last_executed_at=$3, updated_at=$3, version=version+1
        WHERE id=$4
        RETURNING ` + workflowColumns
	return r.fetch(ctx, query, success, failure, at, id)
}
