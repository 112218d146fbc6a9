package grammar

import (
	verr "github.com/nihei9/farkle/error"
	"golang.org/x/exp/slices"
)

// Grammar is a loaded or built grammar. Its tables are append-only and index-stable; once a Grammar is handed to
// the format or driver packages it must not be modified, and it can then be shared between goroutines freely.
type Grammar struct {
	Name string

	// StartSymbol is nil for grammars without a syntax part.
	StartSymbol NonterminalID

	// Unparsable tells that the LR table, if any, must not be used for parsing.
	Unparsable bool

	TokenSymbols []*TokenSymbol
	Nonterminals []*Nonterminal
	Groups       []*Group

	// Productions are sorted by head so that each nonterminal owns one contiguous run.
	Productions []*Production

	StateMachines []StateMachine
	SpecialNames  []*SpecialName

	unknownData bool
}

// HasUnknownData reports whether the file the grammar was read from contained anything this package doesn't
// understand: a newer minor version, a foreign stream, table, state machine kind, column, or flag bit.
func (g *Grammar) HasUnknownData() bool {
	return g.unknownData
}

// MarkUnknownData is called by readers that skipped data they didn't recognize.
func (g *Grammar) MarkUnknownData() {
	g.unknownData = true
}

func (g *Grammar) TokenSymbol(id TokenSymbolID) (*TokenSymbol, bool) {
	if id.IsNil() || id.Int() > len(g.TokenSymbols) {
		return nil, false
	}
	return g.TokenSymbols[id-1], true
}

func (g *Grammar) Nonterminal(id NonterminalID) (*Nonterminal, bool) {
	if id.IsNil() || id.Int() > len(g.Nonterminals) {
		return nil, false
	}
	return g.Nonterminals[id-1], true
}

func (g *Grammar) Group(id GroupID) (*Group, bool) {
	if id.IsNil() || id.Int() > len(g.Groups) {
		return nil, false
	}
	return g.Groups[id-1], true
}

func (g *Grammar) GroupByName(name string) (GroupID, *Group, bool) {
	for i, gr := range g.Groups {
		if gr.Name == name {
			return GroupID(i + 1), gr, true
		}
	}
	return GroupIDNil, nil, false
}

func (g *Grammar) Production(id ProductionID) (*Production, bool) {
	if id.IsNil() || id.Int() > len(g.Productions) {
		return nil, false
	}
	return g.Productions[id-1], true
}

// TerminalCount returns the number of token symbols flagged as terminals. Because terminals precede all other
// token symbols, they are exactly the IDs 1 through TerminalCount.
func (g *Grammar) TerminalCount() int {
	n := 0
	for _, s := range g.TokenSymbols {
		if !s.IsTerminal() {
			break
		}
		n++
	}
	return n
}

// ProductionsOf returns the first ID and the productions of a nonterminal.
func (g *Grammar) ProductionsOf(nt NonterminalID) (ProductionID, []*Production) {
	lo, hi := g.productionRun(nt)
	return ProductionID(lo + 1), g.Productions[lo:hi]
}

func (g *Grammar) productionRun(nt NonterminalID) (int, int) {
	lo, _ := slices.BinarySearchFunc(g.Productions, nt, func(p *Production, nt NonterminalID) int {
		return int(p.Head) - int(nt)
	})
	hi := lo
	for hi < len(g.Productions) && g.Productions[hi].Head == nt {
		hi++
	}
	return lo, hi
}

// SymbolBySpecialName looks up a symbol registered under a special name.
func (g *Grammar) SymbolBySpecialName(name string) (Symbol, bool) {
	for _, sn := range g.SpecialNames {
		if sn.Name == name {
			return sn.Symbol, true
		}
	}
	return Symbol{}, false
}

func (g *Grammar) StateMachine(kind StateMachineKind) (StateMachine, bool) {
	for _, m := range g.StateMachines {
		if m.Kind() == kind {
			return m, true
		}
	}
	return nil, false
}

// DFA returns the tokenizer DFA, preferring the conflict-free one when both are present.
func (g *Grammar) DFA() (*DFA, bool) {
	if m, ok := g.StateMachine(StateMachineKindDFA); ok {
		return m.(*DFA), true
	}
	if m, ok := g.StateMachine(StateMachineKindDFAWithConflicts); ok {
		return m.(*DFA), true
	}
	return nil, false
}

func (g *Grammar) DefaultTransitions() (*DefaultTransitions, bool) {
	m, ok := g.StateMachine(StateMachineKindDFADefaultTransitions)
	if !ok {
		return nil, false
	}
	return m.(*DefaultTransitions), true
}

// LALR returns the deterministic LR table. It fails with ErrUnusableGrammar when the grammar cannot be
// parsed with it.
func (g *Grammar) LALR() (*LR, error) {
	if err := g.checkParsable(); err != nil {
		return nil, err
	}
	m, ok := g.StateMachine(StateMachineKindLALR)
	if !ok {
		return nil, verr.Errorf(verr.ErrUnusableGrammar, "no usable state machine: the grammar has no LALR table")
	}
	return m.(*LR), nil
}

// LR returns the LALR table if present and the GLR table otherwise.
func (g *Grammar) LR() (*LR, error) {
	if err := g.checkParsable(); err != nil {
		return nil, err
	}
	if m, ok := g.StateMachine(StateMachineKindLALR); ok {
		return m.(*LR), nil
	}
	if m, ok := g.StateMachine(StateMachineKindGLR); ok {
		return m.(*LR), nil
	}
	return nil, verr.Errorf(verr.ErrUnusableGrammar, "no usable state machine: the grammar has no LR table")
}

func (g *Grammar) checkParsable() error {
	if g.Unparsable {
		return verr.Errorf(verr.ErrUnusableGrammar, "the grammar is flagged as unparsable")
	}
	if g.StartSymbol.IsNil() {
		return verr.Errorf(verr.ErrUnusableGrammar, "the grammar has no start symbol")
	}
	return nil
}

// SymbolName returns a printable name of a symbol reference.
func (g *Grammar) SymbolName(sym Symbol) string {
	if id, ok := sym.Terminal(); ok {
		if s, ok := g.TokenSymbol(id); ok {
			return s.Name
		}
	}
	if id, ok := sym.Nonterminal(); ok {
		if nt, ok := g.Nonterminal(id); ok {
			return nt.Name
		}
	}
	return sym.String()
}
