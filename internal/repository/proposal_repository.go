package repository

import (
	"context"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

const proposalColumns = `id, org_id, version, project_id, title, amount, status,
       sent_at, viewed_at, decided_at, created_at, updated_at`

type proposalRepository struct {
	q Querier
}

func (r *proposalRepository) Create(ctx context.Context, p *domain.Proposal) error {
	if err := checkPersistable(domain.KindProposal, string(p.Status)); err != nil {
		return err
	}
	const query = `
        INSERT INTO proposals (id, org_id, version, project_id, title, amount, status,
            sent_at, viewed_at, decided_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.OrgID, p.Version, p.ProjectID, p.Title, p.Amount, p.Status,
		p.SentAt, p.ViewedAt, p.DecidedAt, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *proposalRepository) Get(ctx context.Context, id string) (*domain.Proposal, error) {
	return r.fetch(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id=$1`, id)
}

func (r *proposalRepository) GetForUpdate(ctx context.Context, id string) (*domain.Proposal, error) {
	return r.fetch(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id=$1 FOR UPDATE`, id)
}

func (r *proposalRepository) fetch(ctx context.Context, query, id string) (*domain.Proposal, error) {
	var p domain.Proposal
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OrgID, &p.Version, &p.ProjectID, &p.Title, &p.Amount, &p.Status,
		&p.SentAt, &p.ViewedAt, &p.DecidedAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

func (r *proposalRepository) Update(ctx context.Context, p *domain.Proposal, expectedVersion int64) error {
	if err := checkPersistable(domain.KindProposal, string(p.Status)); err != nil {
		return err
	}
	const query = `
        UPDATE proposals SET title=$1, amount=$2, status=$3, sent_at=$4, viewed_at=$5,
            decided_at=$6, updated_at=$7, version=version+1
        WHERE id=$8 AND version=$9`
	cmd, err := r.q.Exec(ctx, query,
		p.Title, p.Amount, p.Status, p.SentAt, p.ViewedAt, p.DecidedAt, p.UpdatedAt, p.ID, expectedVersion)
	if err != nil {
		return err
	}
	if err := casResult(cmd.RowsAffected()); err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	return nil
}
