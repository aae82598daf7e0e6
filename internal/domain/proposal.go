package domain

import "time"

// ProposalStatus enumerates lifecycle states for proposals.
type ProposalStatus string

const (
	ProposalStatusDraft    ProposalStatus = "draft"
	ProposalStatusSent     ProposalStatus = "sent"
	ProposalStatusViewed   ProposalStatus = "viewed"
	ProposalStatusApproved ProposalStatus = "approved"
	ProposalStatusRejected ProposalStatus = "rejected"
	ProposalStatusExpired  ProposalStatus = "expired"
	ProposalStatusRevised  ProposalStatus = "revised"
)

// Proposal is an offer sent to a client, optionally tied to a project.
type Proposal struct {
	Meta
	ProjectID *string
	Title     string
	Amount    int64
	Status    ProposalStatus
	SentAt    *time.Time
	ViewedAt  *time.Time
	DecidedAt *time.Time
}

func (p *Proposal) Kind() EntityKind      { return KindProposal }
func (p *Proposal) Base() *Meta           { return &p.Meta }
func (p *Proposal) CurrentStatus() string { return string(p.Status) }
