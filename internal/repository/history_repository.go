package repository

import (
	"context"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

type historyRepository struct {
	q Querier
}

func (r *historyRepository) Create(ctx context.Context, h *domain.StatusHistory) error {
	const query = `
        INSERT INTO status_history (id, org_id, entity_kind, entity_id, change_type, actor_type, actor_id,
            old_value, new_value, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.q.Exec(ctx, query,
		h.ID, h.OrgID, h.EntityKind, h.EntityID, h.ChangeType, h.ActorType, h.ActorID,
		h.OldValue, h.NewValue, h.CreatedAt)
	return err
}

func (r *historyRepository) ListByEntity(ctx context.Context, kind domain.EntityKind, entityID string) ([]domain.StatusHistory, error) {
	const query = `
        SELECT id, org_id, entity_kind, entity_id, change_type, actor_type, actor_id, old_value, new_value, created_at
        FROM status_history WHERE entity_kind=$1 AND entity_id=$2 ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, kind, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusHistory
	for rows.Next() {
		var h domain.StatusHistory
		if err := rows.Scan(
			&h.ID, &h.OrgID, &h.EntityKind, &h.EntityID, &h.ChangeType, &h.ActorType, &h.ActorID,
			&h.OldValue, &h.NewValue, &h.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}
