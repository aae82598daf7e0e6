package domain

import "time"

// EntityKind identifies one of the lifecycle-managed aggregates.
type EntityKind string

const (
	KindProject  EntityKind = "project"
	KindProposal EntityKind = "proposal"
	KindInvoice  EntityKind = "invoice"
	KindTicket   EntityKind = "ticket"
	KindWorkflow EntityKind = "workflow"
)

// EntityKinds lists every kind in a stable order.
var EntityKinds = []EntityKind{KindProject, KindProposal, KindInvoice, KindTicket, KindWorkflow}

// ParseEntityKind accepts the singular or plural route form of a kind.
func ParseEntityKind(raw string) (EntityKind, bool) {
	switch raw {
	case "project", "projects":
		return KindProject, true
	case "proposal", "proposals":
		return KindProposal, true
	case "invoice", "invoices":
		return KindInvoice, true
	case "ticket", "tickets":
		return KindTicket, true
	case "workflow", "workflows":
		return KindWorkflow, true
	}
	return "", false
}

// Meta carries the fields every entity shares. Version increases by one on every
// persisted mutation and backs optimistic concurrency checks.
type Meta struct {
	ID        string
	OrgID     string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entity is implemented by every lifecycle-managed aggregate.
type Entity interface {
	Kind() EntityKind
	Base() *Meta
	CurrentStatus() string
}
