package tester

import (
	"math/rand"

	spec "github.com/nihei9/farkle/spec/grammar"
)

// RandomDFA builds a valid DFA of stateCount states whose edges lie in [0, maxChar]. About one edge in eight is
// a stop edge, and about half of the states accept one of the token symbols 1 through tokenSymbolCount.
func RandomDFA(rng *rand.Rand, stateCount int, maxChar rune, tokenSymbolCount int) *spec.DFA {
	states := make([]spec.DFAState, stateCount)
	for s := range states {
		edgeCount := rng.Intn(12)
		if edgeCount == 0 {
			edgeCount = 1
		}
		span := int(maxChar)/edgeCount + 1
		c := rune(0)
		for i := 0; i < edgeCount && c <= maxChar; i++ {
			from := c + rune(rng.Intn(span/2+1))
			if from > maxChar {
				break
			}
			to := from + rune(rng.Intn(span/2+1))
			if to > maxChar {
				to = maxChar
			}
			e := spec.DFAEdge{
				From: from,
				To:   to,
			}
			if rng.Intn(8) == 0 {
				e.Stop = true
			} else {
				e.Target = spec.DFAStateID(rng.Intn(stateCount))
			}
			states[s].Edges = append(states[s].Edges, e)
			c = to + 1
		}
		if tokenSymbolCount > 0 && rng.Intn(2) == 0 {
			states[s].Accept = []spec.TokenSymbolID{spec.TokenSymbolID(rng.Intn(tokenSymbolCount) + 1)}
		}
	}
	return &spec.DFA{
		States: states,
	}
}

// RandomDefaultTransitions gives about a third of the states a fallback.
func RandomDefaultTransitions(rng *rand.Rand, stateCount int) *spec.DefaultTransitions {
	m := &spec.DefaultTransitions{
		Targets: make([]spec.DFATarget, stateCount),
	}
	for s := range m.Targets {
		if rng.Intn(3) == 0 {
			m.Targets[s] = spec.DFATarget{
				State: spec.DFAStateID(rng.Intn(stateCount)),
				Valid: true,
			}
		}
	}
	return m
}

// NaiveNext is the reference transition function: it scans every edge of the state, and falls back to the
// default transition only when no edge matches. A matching stop edge yields no transition.
func NaiveNext(dfa *spec.DFA, defaults *spec.DefaultTransitions, state spec.DFAStateID, c rune) (spec.DFAStateID, bool) {
	for _, e := range dfa.States[state].Edges {
		if c < e.From || c > e.To {
			continue
		}
		if e.Stop {
			return 0, false
		}
		return e.Target, true
	}
	if defaults != nil {
		if t := defaults.Targets[state]; t.Valid {
			return t.State, true
		}
	}
	return 0, false
}
