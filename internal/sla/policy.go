// Package sla holds the SLA policy table, the deadline calculator and the breach
// monitor. Nothing in this package performs I/O apart from loading a policy file.
package sla

import (
	"fmt"
	"sync"
	"time"

	"github.com/opsledger/lifecycle-service/internal/domain"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

// DefaultResolutionMultiplier applies when a tenant has no resolution target for a priority.
const DefaultResolutionMultiplier = 4

var responseTargets = map[domain.TicketPriority]time.Duration{
	domain.TicketPriorityUrgent: 1 * time.Hour,
	domain.TicketPriorityHigh:   4 * time.Hour,
	domain.TicketPriorityMedium: 8 * time.Hour,
	domain.TicketPriorityLow:    24 * time.Hour,
}

// ResponseTarget returns the first-response target for a priority.
func ResponseTarget(priority domain.TicketPriority) (time.Duration, error) {
	target, ok := responseTargets[priority]
	if !ok {
		return 0, unknownPriority(priority)
	}
	return target, nil
}

func unknownPriority(priority domain.TicketPriority) error {
	return apperrors.NewValidationError("unknown ticket priority", map[string]any{"priority": string(priority)})
}

// Policy is the resolved SLA configuration of one tenant.
type Policy struct {
	resolution map[domain.TicketPriority]time.Duration
}

// ResponseTarget returns the first-response target for a priority.
func (p Policy) ResponseTarget(priority domain.TicketPriority) (time.Duration, error) {
	return ResponseTarget(priority)
}

// ResolutionTarget returns the tenant's resolution target, defaulting to
// DefaultResolutionMultiplier times the response target.
func (p Policy) ResolutionTarget(priority domain.TicketPriority) (time.Duration, error) {
	response, err := ResponseTarget(priority)
	if err != nil {
		return 0, err
	}
	if target, ok := p.resolution[priority]; ok {
		return target, nil
	}
	return response * DefaultResolutionMultiplier, nil
}

// Table maps tenants to their policies. The zero value serves defaults only.
type Table struct {
	mu      sync.RWMutex
	tenants map[string]Policy
}

// NewTable returns a table with no tenant overrides.
func NewTable() *Table {
	return &Table{tenants: map[string]Policy{}}
}

// SetResolutionTargets installs resolution overrides for a tenant. Targets shorter
// than the priority's response target are rejected.
func (t *Table) SetResolutionTargets(orgID string, targets map[domain.TicketPriority]time.Duration) error {
	resolution := make(map[domain.TicketPriority]time.Duration, len(targets))
	for priority, target := range targets {
		response, err := ResponseTarget(priority)
		if err != nil {
			return err
		}
		if target < response {
			return fmt.Errorf("tenant %s: %s resolution target %s is shorter than response target %s", orgID, priority, target, response)
		}
		resolution[priority] = target
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tenants == nil {
		t.tenants = map[string]Policy{}
	}
	t.tenants[orgID] = Policy{resolution: resolution}
	return nil
}

// For returns the policy applying to orgID.
func (t *Table) For(orgID string) Policy {
	if t == nil {
		return Policy{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tenants[orgID]
}

// Tenants returns the org ids with overrides.
func (t *Table) Tenants() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.tenants))
	for orgID := range t.tenants {
		out = append(out, orgID)
	}
	return out
}
