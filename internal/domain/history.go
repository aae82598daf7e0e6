package domain

import "time"

// ChangeType captures what changed in a history entry.
type ChangeType string

const (
	ChangeTypeCreated   ChangeType = "CREATED"
	ChangeTypeStatus    ChangeType = "STATUS_CHANGE"
	ChangeTypePriority  ChangeType = "PRIORITY_CHANGE"
	ChangeTypeResponse  ChangeType = "FIRST_RESPONSE"
	ChangeTypePayment   ChangeType = "PAYMENT"
	ChangeTypeExecution ChangeType = "EXECUTION"
)

// StatusHistory is an immutable audit trail entry written in the same
// transaction as the mutation it describes.
type StatusHistory struct {
	ID         string
	OrgID      string
	EntityKind EntityKind
	EntityID   string
	ChangeType ChangeType
	ActorType  ActorType
	ActorID    string
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
