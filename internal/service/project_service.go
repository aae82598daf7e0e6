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

// ProjectCreateInput describes project creation payload.
type ProjectCreateInput struct {
	Name        string
	Description string
}

// CreateProject stores a new project in draft.
func (s *LifecycleService) CreateProject(ctx context.Context, caller Caller, input ProjectCreateInput) (*domain.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, s.reject(domain.KindProject, apperrors.NewValidationError("name is required", nil))
	}
	project := &domain.Project{
		Meta:        newMeta(caller.OrgID, s.clock.Now()),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.ProjectStatusDraft,
	}

	var pending []events.Event
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Projects().Create(ctx, project); err != nil {
			return saveError(domain.KindProject, project.ID, err)
		}
		ev, err := s.recordCreated(ctx, tx, caller, project)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindProject, err)
	}
	s.publish(ctx, pending...)
	return project, nil
}

// GetProject loads a project within the caller's tenant.
func (s *LifecycleService) GetProject(ctx context.Context, caller Caller, id string) (*domain.Project, error) {
	entity, err := s.GetEntity(ctx, caller, domain.KindProject, id)
	if err != nil {
		return nil, err
	}
	return entity.(*domain.Project), nil
}

// ChangeProjectStatus applies a project transition and its milestone timestamps.
func (s *LifecycleService) ChangeProjectStatus(ctx context.Context, caller Caller, id string, input StatusChangeInput) (*domain.Project, error) {
	var (
		out     *domain.Project
		pending []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		project, err := tx.Projects().GetForUpdate(ctx, id)
		if err != nil {
			return loadError(domain.KindProject, id, err)
		}
		noop, err := prepareTransition(caller, project, input)
		if err != nil {
			return err
		}
		out = project
		if noop {
			return nil
		}

		now := s.clock.Now()
		from := string(project.Status)
		applyProjectStatus(project, domain.ProjectStatus(input.Status), now)
		project.UpdatedAt = now
		if err := tx.Projects().Update(ctx, project, project.Version); err != nil {
			return saveError(domain.KindProject, id, err)
		}
		ev, err := s.recordStatusChange(ctx, tx, caller, project, from, now)
		if err != nil {
			return err
		}
		pending = append(pending, ev)
		return nil
	})
	if err != nil {
		return nil, s.reject(domain.KindProject, err)
	}
	s.publish(ctx, pending...)
	return out, nil
}

func applyProjectStatus(p *domain.Project, to domain.ProjectStatus, now time.Time) {
	from := p.Status
	p.Status = to
	switch to {
	case domain.ProjectStatusApproved:
		setOnce(&p.ApprovedAt, now)
	case domain.ProjectStatusInProgress:
		setOnce(&p.StartedAt, now)
	case domain.ProjectStatusCompleted:
		setOnce(&p.CompletedAt, now)
	case domain.ProjectStatusCancelled:
		setOnce(&p.CancelledAt, now)
	case domain.ProjectStatusDraft:
		if from == domain.ProjectStatusCancelled {
			p.CancelledAt = nil
		}
	}
}

// setOnce stamps *field with now unless it already holds a value.
func setOnce(field **time.Time, now time.Time) {
	if *field == nil {
		t := now
		*field = &t
	}
}
