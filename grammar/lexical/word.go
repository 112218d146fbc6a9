package lexical

import (
	"unicode"

	spec "github.com/nihei9/farkle/spec/grammar"
)

const maxRune = unicode.MaxRune

// ShortestWord returns a shortest input that moves a DFA from the initial state to target. It returns false
// when target is unreachable. defaults may be nil.
func ShortestWord(dfa *spec.DFA, defaults *spec.DefaultTransitions, target spec.DFAStateID) (string, bool) {
	if target.Int() >= len(dfa.States) {
		return "", false
	}
	words, reached := shortestWords(dfa, defaults)
	return words[target], reached[target]
}

// ShortestWords returns a shortest input for every state of a DFA. The word of an unreachable state is empty, as
// is the word of the initial state.
func ShortestWords(dfa *spec.DFA, defaults *spec.DefaultTransitions) []string {
	words, _ := shortestWords(dfa, defaults)
	return words
}

func shortestWords(dfa *spec.DFA, defaults *spec.DefaultTransitions) ([]string, []bool) {
	words := make([]string, len(dfa.States))
	reached := make([]bool, len(dfa.States))
	if len(dfa.States) == 0 {
		return words, reached
	}

	type step struct {
		from spec.DFAStateID
		c    rune
	}
	steps := make([]step, len(dfa.States))
	reached[spec.DFAStateIDInitial] = true
	queue := []spec.DFAStateID{spec.DFAStateIDInitial}
	visit := func(from, to spec.DFAStateID, c rune) {
		if to.Int() >= len(dfa.States) || reached[to] {
			return
		}
		reached[to] = true
		steps[to] = step{from: from, c: c}
		queue = append(queue, to)
	}
	for i := 0; i < len(queue); i++ {
		s := queue[i]
		edges := dfa.States[s].Edges
		for _, e := range edges {
			if e.Stop {
				continue
			}
			visit(s, e.Target, pickChar(e.From, e.To))
		}
		if defaults != nil && s.Int() < len(defaults.Targets) {
			if d := defaults.Targets[s]; d.Valid {
				if c, ok := uncoveredChar(edges); ok {
					visit(s, d.State, c)
				}
			}
		}
	}

	for s := range dfa.States {
		if !reached[s] {
			continue
		}
		var rs []rune
		for cur := spec.DFAStateID(s); cur != spec.DFAStateIDInitial; cur = steps[cur].from {
			rs = append(rs, steps[cur].c)
		}
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
		words[s] = string(rs)
	}

	return words, reached
}

// pickChar returns the lowest printable character in [from, to], or from when there is none nearby.
func pickChar(from, to rune) rune {
	if c, ok := firstPrintable(from, to); ok {
		return c
	}
	return from
}

// firstPrintable looks for a printable character in [from, to], scanning at most 256 characters from the first
// candidate.
func firstPrintable(from, to rune) (rune, bool) {
	if from < ' ' {
		from = ' '
	}
	limit := from + 256
	if to > limit {
		to = limit
	}
	for c := from; c <= to; c++ {
		if unicode.IsPrint(c) {
			return c, true
		}
	}
	return 0, false
}

// uncoveredChar returns a character no edge covers, preferring a printable one. edges must be sorted.
func uncoveredChar(edges []spec.DFAEdge) (rune, bool) {
	var gaps [][2]rune
	next := rune(0)
	for _, e := range edges {
		if e.From > next {
			gaps = append(gaps, [2]rune{next, e.From - 1})
		}
		if e.To+1 > next {
			next = e.To + 1
		}
	}
	if next <= maxRune {
		gaps = append(gaps, [2]rune{next, maxRune})
	}
	if len(gaps) == 0 {
		return 0, false
	}

	for _, g := range gaps {
		if c, ok := firstPrintable(g[0], g[1]); ok {
			return c, true
		}
	}
	return gaps[0][0], true
}
