package dto

import (
	"time"
)

// StatusChangeRequest payload for POST /:kind/:id/status.
type StatusChangeRequest struct {
	Status          string `json:"status"`
	ExpectedVersion int64  `json:"expected_version"`
}

// TransitionsResponse lists the statuses reachable in one step.
type TransitionsResponse struct {
	Kind        string   `json:"kind"`
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	Transitions []string `json:"transitions"`
}

// HistoryEntry is one audit row.
type HistoryEntry struct {
	ID         string         `json:"id"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ChangeType string         `json:"change_type"`
	ActorType  string         `json:"actor_type"`
	ActorID    string         `json:"actor_id"`
	OldValue   map[string]any `json:"old_value,omitempty"`
	NewValue   map[string]any `json:"new_value,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Meta is shared by every entity response.
type Meta struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
