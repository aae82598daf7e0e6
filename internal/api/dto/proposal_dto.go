package dto

import "time"

// CreateProposalRequest payload. Amount is in minor units.
type CreateProposalRequest struct {
	ProjectID *string `json:"project_id"`
	Title     string  `json:"title"`
	Amount    int64   `json:"amount"`
}

// ProposalResponse body.
type ProposalResponse struct {
	Meta
	ProjectID *string    `json:"project_id,omitempty"`
	Title     string     `json:"title"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	ViewedAt  *time.Time `json:"viewed_at,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}
