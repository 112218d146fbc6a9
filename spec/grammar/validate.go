package grammar

import (
	"fmt"

	verr "github.com/nihei9/farkle/error"
)

// Table names used in error reports.
const (
	TableNameGrammar          = "Grammar"
	TableNameTokenSymbol      = "TokenSymbol"
	TableNameGroup            = "Group"
	TableNameGroupNesting     = "GroupNesting"
	TableNameNonterminal      = "Nonterminal"
	TableNameProduction       = "Production"
	TableNameProductionMember = "ProductionMember"
	TableNameStateMachine     = "StateMachine"
	TableNameSpecialName      = "SpecialName"
)

func inconsistent(table string, row int, format string, a ...interface{}) error {
	return &verr.FormatError{
		Cause:  verr.ErrInconsistentGrammar,
		Table:  table,
		Row:    row,
		Detail: fmt.Sprintf(format, a...),
	}
}

func badIndex(table string, row int, format string, a ...interface{}) error {
	return &verr.FormatError{
		Cause:  verr.ErrMalformedIndex,
		Table:  table,
		Row:    row,
		Detail: fmt.Sprintf(format, a...),
	}
}

// Validate checks every invariant a grammar must satisfy to be written or used. Row numbers in the returned
// error are 1-based, like the IDs.
func (g *Grammar) Validate() error {
	if !g.StartSymbol.IsNil() {
		if _, ok := g.Nonterminal(g.StartSymbol); !ok {
			return badIndex(TableNameGrammar, 1, "start symbol %v is out of range", g.StartSymbol)
		}
	}

	validators := []func() error{
		g.validateTokenSymbols,
		g.validateGroups,
		g.validateProductions,
		g.validateSpecialNames,
		g.validateStateMachines,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

func (g *Grammar) validateTokenSymbols() error {
	seenNonTerminal := false
	for i, s := range g.TokenSymbols {
		if s == nil {
			return inconsistent(TableNameTokenSymbol, i+1, "the symbol is nil")
		}
		if !s.IsTerminal() {
			seenNonTerminal = true
			continue
		}
		if seenNonTerminal {
			return inconsistent(TableNameTokenSymbol, i+1, "terminal %v follows a symbol that is not a terminal", s.Name)
		}
	}
	for i, nt := range g.Nonterminals {
		if nt == nil {
			return inconsistent(TableNameNonterminal, i+1, "the nonterminal is nil")
		}
	}
	return nil
}

func (g *Grammar) validateGroups() error {
	for i, gr := range g.Groups {
		row := i + 1
		if gr == nil {
			return inconsistent(TableNameGroup, row, "the group is nil")
		}

		container, ok := g.TokenSymbol(gr.Container)
		if !ok {
			return badIndex(TableNameGroup, row, "container %v is out of range", gr.Container)
		}
		if container.Flags&TokenSymbolGroupStart != 0 {
			return inconsistent(TableNameGroup, row, "container %v must not be a group start", container.Name)
		}

		start, ok := g.TokenSymbol(gr.Start)
		if !ok {
			return badIndex(TableNameGroup, row, "start %v is out of range", gr.Start)
		}
		if start.Flags&TokenSymbolGroupStart == 0 {
			return inconsistent(TableNameGroup, row, "start %v must be a group start", start.Name)
		}

		if gr.End.IsNil() {
			if gr.Flags&GroupEndsOnEndOfInput == 0 {
				return inconsistent(TableNameGroup, row, "a group without an end symbol must end on the end of the input")
			}
		} else {
			end, ok := g.TokenSymbol(gr.End)
			if !ok {
				return badIndex(TableNameGroup, row, "end %v is out of range", gr.End)
			}
			if end.Flags&TokenSymbolGroupStart != 0 {
				return inconsistent(TableNameGroup, row, "end %v must not be a group start", end.Name)
			}
		}

		for _, n := range gr.Nesting {
			if _, ok := g.Group(n); !ok {
				return badIndex(TableNameGroupNesting, row, "nested group %v is out of range", n)
			}
		}
	}
	return nil
}

func (g *Grammar) validateProductions() error {
	prevHead := NonterminalIDNil
	for i, p := range g.Productions {
		row := i + 1
		if p == nil {
			return inconsistent(TableNameProduction, row, "the production is nil")
		}
		if _, ok := g.Nonterminal(p.Head); !ok {
			return badIndex(TableNameProduction, row, "head %v is out of range", p.Head)
		}
		if p.Head < prevHead {
			return inconsistent(TableNameProduction, row, "productions must be grouped by head in ascending order; %v follows %v", p.Head, prevHead)
		}
		prevHead = p.Head

		for _, m := range p.Members {
			if err := g.validateSymbol(TableNameProductionMember, row, m, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Grammar) validateSymbol(table string, row int, sym Symbol, mustBeTerminal bool) error {
	switch sym.Kind {
	case SymbolKindTerminal:
		s, ok := g.TokenSymbol(TokenSymbolID(sym.ID))
		if !ok {
			return badIndex(table, row, "token symbol %v is out of range", sym.ID)
		}
		if mustBeTerminal && !s.IsTerminal() {
			return inconsistent(table, row, "%v is not a terminal", s.Name)
		}
	case SymbolKindNonterminal:
		if _, ok := g.Nonterminal(NonterminalID(sym.ID)); !ok {
			return badIndex(table, row, "nonterminal %v is out of range", sym.ID)
		}
	default:
		return inconsistent(table, row, "unknown symbol kind %v", sym.Kind)
	}
	return nil
}

func (g *Grammar) validateSpecialNames() error {
	names := map[string]struct{}{}
	for i, sn := range g.SpecialNames {
		row := i + 1
		if sn == nil {
			return inconsistent(TableNameSpecialName, row, "the special name is nil")
		}
		if _, dup := names[sn.Name]; dup {
			return inconsistent(TableNameSpecialName, row, "special name %q is duplicated", sn.Name)
		}
		names[sn.Name] = struct{}{}

		if err := g.validateSymbol(TableNameSpecialName, row, sn.Symbol, false); err != nil {
			return err
		}
		hasFlag := false
		if id, ok := sn.Symbol.Terminal(); ok {
			s, _ := g.TokenSymbol(id)
			hasFlag = s.Flags&TokenSymbolHasSpecialName != 0
		} else {
			nt, _ := g.Nonterminal(NonterminalID(sn.Symbol.ID))
			hasFlag = nt.Flags&NonterminalHasSpecialName != 0
		}
		if !hasFlag {
			return inconsistent(TableNameSpecialName, row, "%v is not flagged as having a special name", g.SymbolName(sn.Symbol))
		}
	}
	return nil
}

func (g *Grammar) validateStateMachines() error {
	seen := map[StateMachineKind]struct{}{}
	var dfa *DFA
	var defaults *DefaultTransitions
	for i, m := range g.StateMachines {
		row := i + 1
		if m == nil {
			return inconsistent(TableNameStateMachine, row, "the state machine is nil")
		}
		kind := m.Kind()
		if kind.IsKnown() {
			if _, dup := seen[kind]; dup {
				return inconsistent(TableNameStateMachine, row, "state machine kind %v appears more than once", kind)
			}
			seen[kind] = struct{}{}
		}

		var err error
		switch m := m.(type) {
		case *DFA:
			err = g.validateDFA(m)
			if dfa == nil || kind == StateMachineKindDFA {
				dfa = m
			}
		case *DefaultTransitions:
			defaults = m
		case *LR:
			err = g.validateLR(m)
		case *UnknownStateMachine:
			if kind.IsKnown() {
				err = fmt.Errorf("an opaque state machine must not use the known kind %v", kind)
			}
		}
		if err != nil {
			return inconsistent(TableNameStateMachine, row, "%v: %v", kind, err)
		}
	}

	if defaults != nil {
		if dfa == nil {
			return inconsistent(TableNameStateMachine, 0, "default transitions need a DFA")
		}
		if err := validateDefaultTransitions(dfa, defaults); err != nil {
			return inconsistent(TableNameStateMachine, 0, "%v: %v", StateMachineKindDFADefaultTransitions, err)
		}
	}

	return nil
}

func (g *Grammar) validateDFA(m *DFA) error {
	stateCount := len(m.States)
	if stateCount == 0 {
		return fmt.Errorf("a DFA needs at least one state")
	}
	for s, st := range m.States {
		for i, e := range st.Edges {
			if e.From > e.To {
				return fmt.Errorf("state %v: edge #%v has an empty range [%v, %v]", s, i, e.From, e.To)
			}
			if e.From < 0 {
				return fmt.Errorf("state %v: edge #%v starts at a negative character", s, i)
			}
			if i > 0 && st.Edges[i-1].To >= e.From {
				return fmt.Errorf("state %v: edges #%v and #%v are unsorted or overlap", s, i-1, i)
			}
			if !e.Stop && e.Target.Int() >= stateCount {
				return fmt.Errorf("state %v: edge #%v targets the undefined state %v", s, i, e.Target)
			}
		}
		if !m.Conflicts && len(st.Accept) > 1 {
			return fmt.Errorf("state %v: a DFA without conflicts accepts at most one symbol", s)
		}
		for _, a := range st.Accept {
			if _, ok := g.TokenSymbol(a); !ok {
				return fmt.Errorf("state %v: accept symbol %v is out of range", s, a)
			}
		}
	}
	return nil
}

func validateDefaultTransitions(dfa *DFA, m *DefaultTransitions) error {
	if len(m.Targets) != len(dfa.States) {
		return fmt.Errorf("the state count %v doesn't match the DFA's %v", len(m.Targets), len(dfa.States))
	}
	for s, t := range m.Targets {
		if t.Valid && t.State.Int() >= len(dfa.States) {
			return fmt.Errorf("state %v targets the undefined state %v", s, t.State)
		}
	}
	return nil
}

func (g *Grammar) validateLR(m *LR) error {
	stateCount := len(m.States)
	if stateCount == 0 {
		return fmt.Errorf("an LR table needs at least one state")
	}
	for s, st := range m.States {
		for i, a := range st.Actions {
			term, ok := g.TokenSymbol(a.Terminal)
			if !ok {
				return fmt.Errorf("state %v: action #%v refers to the undefined token symbol %v", s, i, a.Terminal)
			}
			if !term.IsTerminal() {
				return fmt.Errorf("state %v: action #%v refers to %v, which is not a terminal", s, i, term.Name)
			}
			if i > 0 {
				prev := st.Actions[i-1].Terminal
				if prev > a.Terminal || (!m.GLR && prev == a.Terminal) {
					return fmt.Errorf("state %v: actions #%v and #%v are unsorted or duplicated", s, i-1, i)
				}
			}
			switch a.Action.Kind {
			case ActionKindShift:
				if a.Action.State.Int() >= stateCount {
					return fmt.Errorf("state %v: action #%v shifts to the undefined state %v", s, i, a.Action.State)
				}
			case ActionKindReduce:
				if _, ok := g.Production(a.Action.Production); !ok {
					return fmt.Errorf("state %v: action #%v reduces by the undefined production %v", s, i, a.Action.Production)
				}
			default:
				return fmt.Errorf("state %v: action #%v must be a shift or a reduction, not %v", s, i, a.Action.Kind)
			}
		}

		if !m.GLR && len(st.EOFActions) > 1 {
			return fmt.Errorf("state %v: an LALR state has at most one action on the end of the input", s)
		}
		for i, a := range st.EOFActions {
			switch a.Kind {
			case ActionKindAccept:
			case ActionKindReduce:
				if _, ok := g.Production(a.Production); !ok {
					return fmt.Errorf("state %v: EOF action #%v reduces by the undefined production %v", s, i, a.Production)
				}
			default:
				return fmt.Errorf("state %v: EOF action #%v must be an accept or a reduction, not %v", s, i, a.Kind)
			}
		}

		for i, gt := range st.Gotos {
			if _, ok := g.Nonterminal(gt.Nonterminal); !ok {
				return fmt.Errorf("state %v: goto #%v refers to the undefined nonterminal %v", s, i, gt.Nonterminal)
			}
			if i > 0 && st.Gotos[i-1].Nonterminal >= gt.Nonterminal {
				return fmt.Errorf("state %v: gotos #%v and #%v are unsorted or duplicated", s, i-1, i)
			}
			if gt.State.Int() >= stateCount {
				return fmt.Errorf("state %v: goto #%v targets the undefined state %v", s, i, gt.State)
			}
		}
	}
	return nil
}
