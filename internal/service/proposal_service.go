package service

import (
	"context"
	"strings"
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
	"github.com/opsledger/lifecycle-service/internal/events"
	"github.com/opsledger/lifecycle-service/internal/repository"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// ProposalCreateInput describes proposal creation payload. Amount is in minor units.
type ProposalCreateInput struct {
	ProjectID *string
	Title     string
	Amount    int64
}

// CreateProposal stores a new proposal in draft, optionally linked to a project
// of the same tenant.
func (s *LifecycleService) CreateProposal(ctx context.Context, caller Caller, input ProposalCreateInput) (*domain.Proposal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, s.reject(domain.KindProposal, apperrors.NewValidationError("title is required", nil))
	}
	if input.Amount < 0 {
		return nil, s.reject(domain.KindProposal, apperrors.NewValidationError("amount must not be negative", nil))
	}
	proposal := &domain.Proposal{
		Meta:      newMeta(caller.OrgID, s.clock.Now()),
		ProjectID: input.ProjectID,
		Title:     title,
		Amount:    input.Amount,
		Status:    domain.ProposalStatusDraft,
	}

	var pending []events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if input.ProjectID != nil {
			project, err := tx.Projects().Get(ctx, *input.ProjectID)
			if err != nil {
				return loadError(domain.KindProject, *input.ProjectID, err)
			}
			if err := authorize(caller, project); err != nil {
				return err
			}
		}
		if err := tx.Proposals().Create(ctx, proposal); err != nil {
			return saveError(domain.KindProposal, proposal.ID, err)
		}
		ev, err := s.recordCreated(ctx, tx, caller, proposal)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindProposal, err)
	}
	s.publish(ctx, pending...)
	return proposal, nil
}

// GetProposal loads a proposal within the caller's tenant.
func (s *LifecycleService) GetProposal(ctx context.Context, caller Caller, id string) (*domain.Proposal, error) {
	entity, err := s.GetEntity(ctx, caller, domain.KindProposal, id)
	if err != nil {
		return nil, err
	}
	return entity.(*domain.Proposal), nil
}

// ChangeProposalStatus applies a proposal transition and stamps send, view and
// decision times.
func (s *LifecycleService) ChangeProposalStatus(ctx context.Context, caller Caller, id string, input StatusChangeInput) (*domain.Proposal, error) {
	var (
		out     *domain.Proposal
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		proposal, err := tx.Proposals().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindProposal, id, err)
		}
		noop, err := prepareTransition(caller, proposal, input)
		if err != nil {
			return err
		}
		out = proposal
		if noop {
			return nil
		}

		now := s.clock.Now()
		from := string(proposal.Status)
		applyProposalStatus(proposal, domain.ProposalStatus(input.Status), now)
		proposal.UpdatedAt = now
		if err := tx.Proposals().Update(ctx, proposal, proposal.Version); err != nil {
			return saveError(domain.KindProposal, id, err)
		}
		ev, err := s.recordStatusChange(ctx, tx, caller, proposal, from, now)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindProposal, err)
	}
	s.publish(ctx, pending...)
	return out, nil
}

func applyProposalStatus(p *domain.Proposal, to domain.ProposalStatus, now time.Time) {
	p.Status = to
	switch to {
	case domain.ProposalStatusSent:
		setOnce(&p.SentAt, now)
	case domain.ProposalStatusViewed:
		setOnce(&p.ViewedAt, now)
	case domain.ProposalStatusApproved, domain.ProposalStatusRejected,
		domain.ProposalStatusExpired, domain.ProposalStatusRevised:
		setOnce(&p.DecidedAt, now)
	}
}
