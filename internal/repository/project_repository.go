package repository

import (
	"context"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

const projectColumns = `id, org_id, version, name, description, status,
       approved_at, started_at, completed_at, cancelled_at, created_at, updated_at`

type projectRepository struct {
	q Querier
}

func (r *projectRepository) Create(ctx context.Context, p *domain.Project) error {
	if err := checkPersistable(domain.KindProject, string(p.Status)); err != nil {
		return err
	}
	const query = `
        INSERT INTO projects (id, org_id, version, name, description, status,
            approved_at, started_at, completed_at, cancelled_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.OrgID, p.Version, p.Name, p.Description, p.Status,
		p.ApprovedAt, p.StartedAt, p.CompletedAt, p.CancelledAt, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *projectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	return r.fetch(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id)
}

func (r *projectRepository) GetForUpdate(ctx context.Context, id string) (*domain.Project, error) {
	return r.fetch(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1 FOR UPDATE`, id)
}

func (r *projectRepository) fetch(ctx context.Context, query, id string) (*domain.Project, error) {
	p, err := scanProject(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return p, nil
}

func (r *projectRepository) Update(ctx context.Context, p *domain.Project, expectedVersion int64) error {
	if err := checkPersistable(domain.KindProject, string(p.Status)); err != nil {
		return err
	}
	const query = `
        UPDATE projects SET name=$1, description=$2, status=$3, approved_at=$4, started_at=$5,
            completed_at=$6, cancelled_at=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10`
	cmd, err := r.q.Exec(ctx, query,
		p.Name, p.Description, p.Status, p.ApprovedAt, p.StartedAt,
		p.CompletedAt, p.CancelledAt, p.UpdatedAt, p.ID, expectedVersion)
	if err != nil {
		return err
	}
	if err := casResult(cmd.RowsAffected()); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	return nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID, &p.OrgID, &p.Version, &p.Name, &p.Description, &p.Status,
		&p.ApprovedAt, &p.StartedAt, &p.CompletedAt, &p.CancelledAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
