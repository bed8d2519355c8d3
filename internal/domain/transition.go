package domain

import "fmt"

// TransitionTable maps (current state, event) to the next state.
// A missing entry is a rejected transition. Self-loops are allowed and are
// how idempotent events (approve an approved listing) are expressed.
type TransitionTable[S comparable, E comparable] struct {
	name  string
	edges map[S]map[E]S
}

// Edge is one row of a transition table.
type Edge[S comparable, E comparable] struct {
	From  S
	Event E
	To    S
}

// NewTransitionTable builds a table from its edges. name identifies the entity
// type in error messages ("booking", "listing").
func NewTransitionTable[S comparable, E comparable](name string, edges ...Edge[S, E]) TransitionTable[S, E] {
	t := TransitionTable[S, E]{name: name, edges: make(map[S]map[E]S)}
	for _, e := range edges {
		if t.edges[e.From] == nil {
			t.edges[e.From] = make(map[E]S)
		}
		t.edges[e.From][e.Event] = e.To
	}
	return t
}

// Next returns the state reached from `from` on `event`, or ErrInvalidTransition.
func (t TransitionTable[S, E]) Next(from S, event E) (S, error) {
	if to, ok := t.edges[from][event]; ok {
		return to, nil
	}
	var zero S
	return zero, fmt.Errorf("%w: %s cannot %v from %v", ErrInvalidTransition, t.name, event, from)
}

// Terminal reports whether no event leaves state s.
func (t TransitionTable[S, E]) Terminal(s S) bool {
	return len(t.edges[s]) == 0
}
