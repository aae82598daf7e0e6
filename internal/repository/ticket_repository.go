package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opsledger/lifecycle-service/internal/domain"
)

const ticketColumns = `id, org_id, version, title, description, status, priority,
       sla_response_due_at, sla_resolution_due_at, first_response_at, resolved_at, closed_at,
       created_at, updated_at`

type ticketRepository struct {
	q Querier
}

func (r *ticketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	if err := checkPersistable(domain.KindTicket, string(t.Status)); err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (id, org_id, version, title, description, status, priority,
            sla_response_due_at, sla_resolution_due_at, first_response_at, resolved_at, closed_at,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.OrgID, t.Version, t.Title, t.Description, t.Status, t.Priority,
		t.SLAResponseDueAt, t.SLAResolutionDueAt, t.FirstResponseAt, t.ResolvedAt, t.ClosedAt,
		t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *ticketRepository) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetch(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetch(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) fetch(ctx context.Context, query, id string) (*domain.Ticket, error) {
	t, err := scanTicket(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapNoRows(err)
	}
	return t, nil
}

// Update never touches first_response_at once it is set.
func (r *ticketRepository) Update(ctx context.Context, t *domain.Ticket, expectedVersion int64) error {
	if err := checkPersistable(domain.KindTicket, string(t.Status)); err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4,
            sla_response_due_at=$5, sla_resolution_due_at=$6,
            first_response_at=COALESCE(first_response_at, $7),
            resolved_at=$8, closed_at=$9, updated_at=$10, version=version+1
        WHERE id=$11 AND version=$12`
	cmd, err := r.q.Exec(ctx, query,
		t.Title, t.Description, t.Status, t.Priority,
		t.SLAResponseDueAt, t.SLAResolutionDueAt, t.FirstResponseAt,
		t.ResolvedAt, t.ClosedAt, t.UpdatedAt, t.ID, expectedVersion)
	if err != nil {
		return err
	}
	if err := casResult(cmd.RowsAffected()); err != nil {
		return err
	}
	t.Version = expectedVersion + 1
	return nil
}

func (r *ticketRepository) ListOpen(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	args := []any{}
	where := `status NOT IN ('resolved','closed')`
	if filter.OrgID != "" {
		args = append(args, filter.OrgID)
		where += fmt.Sprintf(" AND org_id=$%d", len(args))
	}
	if filter.AfterID != "" {
		args = append(args, filter.AfterID)
		where += fmt.Sprintf(" AND id > $%d", len(args))
	}
	args = append(args, normalizeLimit(filter.Limit, 1000))
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY id ASC LIMIT $%d`, ticketColumns, where, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func scanTicket(row rowScanner) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(
		&t.ID, &t.OrgID, &t.Version, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.SLAResponseDueAt, &t.SLAResolutionDueAt, &t.FirstResponseAt, &t.ResolvedAt, &t.ClosedAt,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
