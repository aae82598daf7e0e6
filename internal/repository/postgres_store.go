package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	pool *pgxpool.Pool
	q    Querier
	inTx bool
}

// NewPostgresStore builds a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, q: pool}
}

func (s *pgStore) Projects() ProjectRepository     { return &projectRepository{q: s.q} }
func (s *pgStore) Proposals() ProposalRepository   { return &proposalRepository{q: s.q} }
func (s *pgStore) Invoices() InvoiceRepository     { return &invoiceRepository{q: s.q} }
func (s *pgStore) Tickets() TicketRepository       { return &ticketRepository{q: s.q} }
func (s *pgStore) Workflows() WorkflowRepository   { return &workflowRepository{q: s.q} }
func (s *pgStore) Executions() ExecutionRepository { return &executionRepository{q: s.q} }
func (s *pgStore) History() HistoryRepository      { return &historyRepository{q: s.q} }

// WithinTx runs fn inside a single database transaction. A store that is already
// inside a transaction joins it.
func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgStore{pool: s.pool, q: tx, inTx: true}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func casResult(rowsAffected int64) error {
	if rowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
