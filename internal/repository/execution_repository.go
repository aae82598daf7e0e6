package repository

import (
	"context"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

type executionRepository struct {
	q Querier
}

func (r *executionRepository) Create(ctx context.Context, e *domain.WorkflowExecution) error {
	const query = `
        INSERT INTO workflow_executions (id, org_id, workflow_id, external_execution_id, status, error,
            input, output, started_at, finished_at, duration_ms)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.OrgID, e.WorkflowID, e.ExternalExecutionID, e.Status, e.Error,
		e.Input, e.Output, e.StartedAt, e.FinishedAt, e.DurationMs)
	return err
}

func (r *executionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit int) ([]domain.WorkflowExecution, error) {
	const query = `
        SELECT id, org_id, workflow_id, external_execution_id, status, error, input, output,
               started_at, finished_at, duration_ms
        FROM workflow_executions WHERE workflow_id=$1 ORDER BY started_at DESC, id DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, workflowID, normalizeLimit(limit, 50))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkflowExecution
	for rows.Next() {
		var e domain.WorkflowExecution
		if err := rows.Scan(
			&e.ID, &e.OrgID, &e.WorkflowID, &e.ExternalExecutionID, &e.Status, &e.Error,
			&e.Input, &e.Output, &e.StartedAt, &e.FinishedAt, &e.DurationMs,
		); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
