package domain

import "time"

// ProjectStatus enumerates lifecycle states for projects.
type ProjectStatus string

const (
	ProjectStatusDraft        ProjectStatus = "draft"
	ProjectStatusProposalSent ProjectStatus = "proposal_sent"
	ProjectStatusApproved     ProjectStatus = "approved"
	ProjectStatusInProgress   ProjectStatus = "in_progress"
	ProjectStatusOnHold       ProjectStatus = "on_hold"
	ProjectStatusCompleted    ProjectStatus = "completed"
	ProjectStatusCancelled    ProjectStatus = "cancelled"
)

// Project is a client engagement.
type Project struct {
	Meta
	Name        string
	Description string
	Status      ProjectStatus
	ApprovedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

func (p *Project) Kind() EntityKind      { return KindProject }
func (p *Project) Base() *Meta           { return &p.Meta }
func (p *Project) CurrentStatus() string { return string(p.Status) }
