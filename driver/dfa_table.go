package driver

import (
	verr "github.com/nihei9/farkle/error"
	spec "github.com/nihei9/farkle/spec/grammar"
	"golang.org/x/exp/slices"
)

const asciiSize = 128

// noTransition fills the ASCII slots that have no transition, including those covered by stop edges.
const noTransition = -1

// DFATable answers DFA transitions in constant time for ASCII input. Other characters are looked up by binary
// search over the edges that reach past ASCII. Default transitions are folded into the ASCII table and consulted
// after the search otherwise.
type DFATable struct {
	ascii    []int32
	edges    [][]spec.DFAEdge
	defaults []spec.DFATarget
	accepts  [][]spec.TokenSymbolID
}

func NewDFATable(g *spec.Grammar) (*DFATable, error) {
	dfa, ok := g.DFA()
	if !ok {
		return nil, verr.Errorf(verr.ErrUnusableGrammar, "no usable state machine: the grammar has no DFA")
	}
	stateCount := len(dfa.States)

	var defaults []spec.DFATarget
	if m, ok := g.DefaultTransitions(); ok {
		if len(m.Targets) != stateCount {
			return nil, verr.Errorf(verr.ErrInconsistentGrammar, "%v default transitions for a DFA of %v states", len(m.Targets), stateCount)
		}
		defaults = m.Targets
	}

	t := &DFATable{
		ascii:    make([]int32, stateCount*asciiSize),
		edges:    make([][]spec.DFAEdge, stateCount),
		defaults: defaults,
		accepts:  make([][]spec.TokenSymbolID, stateCount),
	}
	for s, st := range dfa.States {
		row := t.ascii[s*asciiSize : (s+1)*asciiSize]
		fill := int32(noTransition)
		if defaults != nil && defaults[s].Valid {
			fill = int32(defaults[s].State)
		}
		for c := range row {
			row[c] = fill
		}

		for i, e := range st.Edges {
			if !e.Stop && e.Target.Int() >= stateCount {
				return nil, verr.Errorf(verr.ErrInconsistentGrammar, "state %v targets the undefined state %v", s, e.Target)
			}
			if e.From < asciiSize {
				v := int32(e.Target)
				if e.Stop {
					v = noTransition
				}
				hi := e.To
				if hi >= asciiSize {
					hi = asciiSize - 1
				}
				for c := e.From; c <= hi; c++ {
					if c >= 0 {
						row[c] = v
					}
				}
			}
			if e.To >= asciiSize && t.edges[s] == nil {
				t.edges[s] = st.Edges[i:]
			}
		}

		t.accepts[s] = st.Accept
	}

	return t, nil
}

func (t *DFATable) StateCount() int {
	return len(t.accepts)
}

// Next returns the state the DFA moves to from state on c. It returns false when no edge matches and the state
// has no default transition, and when the matching edge is a stop edge. An undefined state has no transitions.
func (t *DFATable) Next(state spec.DFAStateID, c rune) (spec.DFAStateID, bool) {
	if state.Int() >= len(t.accepts) {
		return 0, false
	}
	if c >= 0 && c < asciiSize {
		next := t.ascii[state.Int()*asciiSize+int(c)]
		if next == noTransition {
			return 0, false
		}
		return spec.DFAStateID(next), true
	}

	edges := t.edges[state]
	i, found := slices.BinarySearchFunc(edges, c, func(e spec.DFAEdge, c rune) int {
		switch {
		case e.To < c:
			return -1
		case e.From > c:
			return 1
		}
		return 0
	})
	if found {
		e := edges[i]
		if e.Stop {
			return 0, false
		}
		return e.Target, true
	}

	if t.defaults != nil {
		if d := t.defaults[state]; d.Valid {
			return d.State, true
		}
	}
	return 0, false
}

// Accept returns the token symbol a state accepts. A state of a DFA with conflicts may accept several; Accept
// returns the first of them.
func (t *DFATable) Accept(state spec.DFAStateID) (spec.TokenSymbolID, bool) {
	as := t.Accepts(state)
	if len(as) == 0 {
		return spec.TokenSymbolIDNil, false
	}
	return as[0], true
}

func (t *DFATable) Accepts(state spec.DFAStateID) []spec.TokenSymbolID {
	if state.Int() >= len(t.accepts) {
		return nil
	}
	return t.accepts[state]
}
