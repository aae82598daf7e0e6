package sla

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/domain"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

func TestResponseTargets(t *testing.T) {
	tests := []struct {
		priority domain.TicketPriority
		want     time.Duration
	}{
		{domain.TicketPriorityUrgent, time.Hour},
		{domain.TicketPriorityHigh, 4 * time.Hour},
		{domain.TicketPriorityMedium, 8 * time.Hour},
		{domain.TicketPriorityLow, 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			got, err := ResponseTarget(tt.priority)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseTargetStrictlyIncreasesAsPriorityDecreases(t *testing.T) {
	var previous time.Duration
	for _, p := range domain.TicketPriorities {
		target, err := ResponseTarget(p)
		require.NoError(t, err)
		assert.Greater(t, target, previous, string(p))
		previous = target
	}
}

func TestUnknownPriority(t *testing.T) {
	_, err := ResponseTarget("critical")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = Policy{}.ResolutionTarget("critical")
	assert.Error(t, err)
}

func TestResolutionDefaultsToMultipleOfResponse(t *testing.T) {
	table := NewTable()
	for _, p := range domain.TicketPriorities {
		response, _ := ResponseTarget(p)
		resolution, err := table.For("org-1").ResolutionTarget(p)
		require.NoError(t, err)
		assert.Equal(t, response*DefaultResolutionMultiplier, resolution)
	}
}

func TestTenantResolutionOverride(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.SetResolutionTargets("org-acme", map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityUrgent: 6 * time.Hour,
	}))

	got, err := table.For("org-acme").ResolutionTarget(domain.TicketPriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, got)

	got, _ = table.For("org-acme").ResolutionTarget(domain.TicketPriorityHigh)
	assert.Equal(t, 16*time.Hour, got)

	got, _ = table.For("org-other").ResolutionTarget(domain.TicketPriorityUrgent)
	assert.Equal(t, 4*time.Hour, got)
}

func TestOverrideShorterThanResponseRejected(t *testing.T) {
	table := NewTable()
	err := table.SetResolutionTargets("org-acme", map[domain.TicketPriority]time.Duration{
		domain.TicketPriorityLow: 2 * time.Hour,
	})
	assert.Error(t, err)
	assert.Empty(t, table.Tenants())
}

func TestDecodePolicyFile(t *testing.T) {
	doc := `
tenants:
  org-acme:
    resolution:
      urgent: 6h
      LOW: 72h
  org-beta:
    resolution:
      high: 12h
`
	table := NewTable()
	require.NoError(t, table.Decode(strings.NewReader(doc)))

	got, _ := table.For("org-acme").ResolutionTarget(domain.TicketPriorityLow)
	assert.Equal(t, 72*time.Hour, got)
	got, _ = table.For("org-beta").ResolutionTarget(domain.TicketPriorityHigh)
	assert.Equal(t, 12*time.Hour, got)
	assert.ElementsMatch(t, []string{"org-acme", "org-beta"}, table.Tenants())
}

func TestDecodePolicyFileErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown priority", "tenants:\n  a:\n    resolution:\n      critical: 1h\n"},
		{"bad duration", "tenants:\n  a:\n    resolution:\n      low: two days\n"},
		{"too short", "tenants:\n  a:\n    resolution:\n      medium: 1h\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, NewTable().Decode(strings.NewReader(tt.doc)))
		})
	}
}

func TestLoadTableEmptyPath(t *testing.T) {
	table, err := LoadTable("")
	require.NoError(t, err)
	assert.Empty(t, table.Tenants())
}
