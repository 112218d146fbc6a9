package driver

import (
	verr "github.com/nihei9/farkle/error"
	spec "github.com/nihei9/farkle/spec/grammar"
)

// OptimizedGrammar bundles the lookup tables of a grammar. Build it once per grammar and share it: it is
// read-only after construction and safe for concurrent use.
type OptimizedGrammar struct {
	g   *spec.Grammar
	dfa *DFATable
	lr  *LRTable

	// lrErr tells why lr is nil.
	lrErr error
}

// NewOptimizedGrammar requires a DFA. A grammar that cannot be parsed, such as a DFA-only grammar, still yields
// an OptimizedGrammar for tokenizing; its LR queries report no action, and LRTable returns the reason.
func NewOptimizedGrammar(g *spec.Grammar, opts ...TableOption) (*OptimizedGrammar, error) {
	dfa, err := NewDFATable(g)
	if err != nil {
		return nil, err
	}
	og := &OptimizedGrammar{
		g:   g,
		dfa: dfa,
	}
	og.lr, og.lrErr = NewLRTable(g, opts...)
	if og.lrErr != nil && !verr.Is(og.lrErr, verr.ErrUnusableGrammar) {
		return nil, og.lrErr
	}
	return og, nil
}

func (g *OptimizedGrammar) Grammar() *spec.Grammar {
	return g.g
}

func (g *OptimizedGrammar) DFATable() *DFATable {
	return g.dfa
}

func (g *OptimizedGrammar) LRTable() (*LRTable, error) {
	return g.lr, g.lrErr
}

func (g *OptimizedGrammar) NextDFAState(state spec.DFAStateID, c rune) (spec.DFAStateID, bool) {
	return g.dfa.Next(state, c)
}

func (g *OptimizedGrammar) LALRAction(state spec.LRStateID, terminal spec.TokenSymbolID) (spec.Action, bool) {
	if g.lr == nil {
		return spec.Action{}, false
	}
	return g.lr.Action(state, terminal)
}

func (g *OptimizedGrammar) LALREOFAction(state spec.LRStateID) (spec.Action, bool) {
	if g.lr == nil {
		return spec.Action{}, false
	}
	return g.lr.EOFAction(state)
}

func (g *OptimizedGrammar) LALRGoto(state spec.LRStateID, nt spec.NonterminalID) (spec.LRStateID, bool) {
	if g.lr == nil {
		return 0, false
	}
	return g.lr.Goto(state, nt)
}
