// Package transition validates status changes against per-kind adjacency tables.
// Every function here is pure and total: unknown kinds and states are reported as
// errors rather than denials.
package transition

import (
	"sort"

	"github.com/opsledger/lifecycle-service/internal/domain"
	apperrors "github.com/opsledger/lifecycle-service/pkg/util/errorutil"
)

func lookup(kind domain.EntityKind) (graph, error) {
	g, ok := graphs[kind]
	if !ok {
		return graph{}, apperrors.NewInvalidEntityKind(string(kind))
	}
	return g, nil
}

func (g graph) requireState(kind domain.EntityKind, state string) error {
	if _, ok := g.edges[state]; !ok {
		return apperrors.NewInvalidState(string(kind), state)
	}
	return nil
}

// CanTransition reports whether kind may move from one status to another. A
// request for the current status is always allowed.
func CanTransition(kind domain.EntityKind, from, to string) (bool, error) {
	g, err := lookup(kind)
	if err != nil {
		return false, err
	}
	if err := g.requireState(kind, from); err != nil {
		return false, err
	}
	if err := g.requireState(kind, to); err != nil {
		return false, err
	}
	if from == to {
		return true, nil
	}
	for _, next := range g.edges[from] {
		if next == to {
			return true, nil
		}
	}
	return false, nil
}

// Validate is CanTransition folded into a single error, returning
// InvalidTransition when the edge is absent.
func Validate(kind domain.EntityKind, from, to string) error {
	ok, err := CanTransition(kind, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewInvalidTransition(string(kind), from, to)
	}
	return nil
}

// Available returns the outgoing edges of a status in table order. Terminal
// statuses return an empty, non-nil slice.
func Available(kind domain.EntityKind, from string) ([]string, error) {
	g, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := g.requireState(kind, from); err != nil {
		return nil, err
	}
	out := make([]string, len(g.edges[from]))
	copy(out, g.edges[from])
	return out, nil
}

// Initial returns the creation status of kind.
func Initial(kind domain.EntityKind) (string, error) {
	g, err := lookup(kind)
	if err != nil {
		return "", err
	}
	return g.initial, nil
}

// IsTerminal reports whether a status has no outgoing edges.
func IsTerminal(kind domain.EntityKind, state string) (bool, error) {
	next, err := Available(kind, state)
	if err != nil {
		return false, err
	}
	return len(next) == 0, nil
}

// States returns every status of kind, sorted.
func States(kind domain.EntityKind) ([]string, error) {
	g, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	states := make([]string, 0, len(g.edges))
	for state := range g.edges {
		states = append(states, state)
	}
	sort.Strings(states)
	return states, nil
}

// Reachable reports whether state can be reached from the initial status through
// a sequence of valid transitions.
func Reachable(kind domain.EntityKind, state string) (bool, error) {
	g, err := lookup(kind)
	if err != nil {
		return false, err
	}
	if err := g.requireState(kind, state); err != nil {
		return false, err
	}
	seen := map[string]bool{g.initial: true}
	queue := []string{g.initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == state {
			return true, nil
		}
		for _, next := range g.edges[current] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false, nil
}
