package transition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/lifecycle-service/internal/domain"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		kind domain.EntityKind
		from string
		to   string
		want bool
	}{
		{"project draft to proposal_sent", domain.KindProject, "draft", "proposal_sent", true},
		{"project proposal_sent back to draft", domain.KindProject, "proposal_sent", "draft", true},
		{"project cancelled reopens to draft", domain.KindProject, "cancelled", "draft", true},
		{"project completed is terminal", domain.KindProject, "completed", "in_progress", false},
		{"project cannot skip approval", domain.KindProject, "draft", "in_progress", false},
		{"invoice paid to refunded", domain.KindInvoice, "paid", "refunded", true},
		{"invoice draft cannot be paid", domain.KindInvoice, "draft", "paid", false},
		{"invoice overdue to partially_paid", domain.KindInvoice, "overdue", "partially_paid", true},
		{"invoice refunded is terminal", domain.KindInvoice, "refunded", "paid", false},
		{"ticket open to closed", domain.KindTicket, "open", "closed", true},
		{"ticket resolved reopens", domain.KindTicket, "resolved", "in_progress", true},
		{"ticket open cannot resolve directly", domain.KindTicket, "open", "resolved", false},
		{"ticket waiting cannot resolve", domain.KindTicket, "waiting", "resolved", false},
		{"workflow error recovers", domain.KindWorkflow, "error", "active", true},
		{"workflow draft cannot pause", domain.KindWorkflow, "draft", "paused", false},
		{"workflow deleted is terminal", domain.KindWorkflow, "deleted", "active", false},
		{"proposal viewed to revised", domain.KindProposal, "viewed", "revised", true},
		{"proposal draft cannot be approved", domain.KindProposal, "draft", "approved", false},
		{"self transition on terminal state", domain.KindProject, "completed", "completed", true},
		{"self transition on open ticket", domain.KindTicket, "open", "open", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanTransition(tt.kind, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanTransitionIsTotal(t *testing.T) {
	for _, kind := range domain.EntityKinds {
		states, err := States(kind)
		require.NoError(t, err)
		for _, from := range states {
			for _, to := range states {
				_, err := CanTransition(kind, from, to)
				assert.NoError(t, err, "%s %s->%s", kind, from, to)
			}
		}
	}
}

func TestUnknownKindAndState(t *testing.T) {
	_, err := CanTransition("contract", "draft", "sent")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidEntityKind))

	_, err = CanTransition(domain.KindTicket, "open", "escalated")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	_, err = Available(domain.KindInvoice, "void")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
}

func TestValidate(t *testing.T) {
	err := Validate(domain.KindInvoice, "cancelled", "sent")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	assert.NoError(t, Validate(domain.KindInvoice, "sent", "overdue"))
	assert.NoError(t, Validate(domain.KindInvoice, "cancelled", "cancelled"))
}

func TestAvailable(t *testing.T) {
	next, err := Available(domain.KindProject, "completed")
	require.NoError(t, err)
	assert.NotNil(t, next)
	assert.Empty(t, next)

	next, err = Available(domain.KindTicket, "resolved")
	require.NoError(t, err)
	assert.Equal(t, []string{"closed", "in_progress"}, next)

	next[0] = "mutated"
	again, _ := Available(domain.KindTicket, "resolved")
	assert.Equal(t, "closed", again[0])
}

func TestAvailableMatchesCanTransition(t *testing.T) {
	for _, kind := range domain.EntityKinds {
		states, _ := States(kind)
		for _, from := range states {
			next, err := Available(kind, from)
			require.NoError(t, err)
			allowed := map[string]bool{}
			for _, n := range next {
				allowed[n] = true
			}
			for _, to := range states {
				if to == from {
					continue
				}
				ok, _ := CanTransition(kind, from, to)
				assert.Equal(t, allowed[to], ok, "%s %s->%s", kind, from, to)
			}
		}
	}
}

func TestTerminalStates(t *testing.T) {
	terminal := map[domain.EntityKind][]string{
		domain.KindProject:  {"completed"},
		domain.KindProposal: {"approved", "expired", "rejected", "revised"},
		domain.KindInvoice:  {"cancelled", "refunded"},
		domain.KindTicket:   {"closed"},
		domain.KindWorkflow: {"deleted"},
	}
	for kind, want := range terminal {
		states, _ := States(kind)
		var got []string
		for _, s := range states {
			if ok, _ := IsTerminal(kind, s); ok {
				got = append(got, s)
			}
		}
		assert.Equal(t, want, got, string(kind))
	}
}

func TestEveryStateReachable(t *testing.T) {
	for _, kind := range domain.EntityKinds {
		states, _ := States(kind)
		for _, s := range states {
			ok, err := Reachable(kind, s)
			require.NoError(t, err)
			assert.True(t, ok, "%s %s", kind, s)
		}
	}
}

func TestInitial(t *testing.T) {
	initial, err := Initial(domain.KindTicket)
	require.NoError(t, err)
	assert.Equal(t, "open", initial)

	initial, _ = Initial(domain.KindInvoice)
	assert.Equal(t, "draft", initial)
}
