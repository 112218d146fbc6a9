package tester

import (
	spec "github.com/nihei9/farkle/spec/grammar"
)

// Token symbols, nonterminals, and productions of ExprGrammar.
const (
	ExprNumber       = spec.TokenSymbolID(1)
	ExprPlus         = spec.TokenSymbolID(2)
	ExprWhitespace   = spec.TokenSymbolID(3)
	ExprComment      = spec.TokenSymbolID(4)
	ExprCommentStart = spec.TokenSymbolID(5)
	ExprCommentEnd   = spec.TokenSymbolID(6)

	ExprExpr = spec.NonterminalID(1)

	ExprProdSum    = spec.ProductionID(1)
	ExprProdNumber = spec.ProductionID(2)
)

// ExprGrammar returns a new small but complete grammar:
//
//	EXPR ::= NUMBER PLUS NUMBER
//	       | NUMBER
//
// NUMBER is [0-9]+, PLUS is '+', whitespace is noise, and /* ... */ comments form a group. EXPR is registered
// under the special name "expr". Every call returns a fresh grammar the caller may modify.
func ExprGrammar() *spec.Grammar {
	return &spec.Grammar{
		Name:        "expr",
		StartSymbol: ExprExpr,
		TokenSymbols: []*spec.TokenSymbol{
			{Name: "NUMBER", Flags: spec.TokenSymbolTerminal},
			{Name: "PLUS", Flags: spec.TokenSymbolTerminal},
			{Name: "Whitespace", Flags: spec.TokenSymbolNoise},
			{Name: "Comment", Flags: spec.TokenSymbolNoise},
			{Name: "/*", Flags: spec.TokenSymbolGroupStart},
			{Name: "*/"},
		},
		Nonterminals: []*spec.Nonterminal{
			{Name: "EXPR", Flags: spec.NonterminalHasSpecialName},
		},
		Groups: []*spec.Group{
			{
				Name:      "Comment",
				Container: ExprComment,
				Start:     ExprCommentStart,
				End:       ExprCommentEnd,
				Flags:     spec.GroupAdvanceByCharacter,
				Nesting:   []spec.GroupID{1},
			},
		},
		Productions: []*spec.Production{
			{
				Head: ExprExpr,
				Members: []spec.Symbol{
					spec.TerminalSymbol(ExprNumber),
					spec.TerminalSymbol(ExprPlus),
					spec.TerminalSymbol(ExprNumber),
				},
			},
			{
				Head: ExprExpr,
				Members: []spec.Symbol{
					spec.TerminalSymbol(ExprNumber),
				},
			},
		},
		StateMachines: []spec.StateMachine{
			exprDFA(),
			exprLALR(),
		},
		SpecialNames: []*spec.SpecialName{
			{Name: "expr", Symbol: spec.NonterminalSymbol(ExprExpr)},
		},
	}
}

func exprDFA() *spec.DFA {
	return &spec.DFA{
		States: []spec.DFAState{
			// 0: initial
			{
				Edges: []spec.DFAEdge{
					{From: ' ', To: ' ', Target: 1},
					{From: '*', To: '*', Target: 5},
					{From: '+', To: '+', Target: 2},
					{From: '/', To: '/', Target: 3},
					{From: '0', To: '9', Target: 4},
				},
			},
			// 1: whitespace
			{
				Edges: []spec.DFAEdge{
					{From: ' ', To: ' ', Target: 1},
				},
				Accept: []spec.TokenSymbolID{ExprWhitespace},
			},
			// 2: +
			{
				Accept: []spec.TokenSymbolID{ExprPlus},
			},
			// 3: /
			{
				Edges: []spec.DFAEdge{
					{From: '*', To: '*', Target: 6},
				},
			},
			// 4: number
			{
				Edges: []spec.DFAEdge{
					{From: '0', To: '9', Target: 4},
				},
				Accept: []spec.TokenSymbolID{ExprNumber},
			},
			// 5: *
			{
				Edges: []spec.DFAEdge{
					{From: '/', To: '/', Target: 7},
				},
			},
			// 6: /*
			{
				Accept: []spec.TokenSymbolID{ExprCommentStart},
			},
			// 7: */
			{
				Accept: []spec.TokenSymbolID{ExprCommentEnd},
			},
		},
	}
}

func exprLALR() *spec.LR {
	return &spec.LR{
		States: []spec.LRState{
			{
				Actions: []spec.TerminalAction{
					{Terminal: ExprNumber, Action: spec.Shift(2)},
				},
				Gotos: []spec.Goto{
					{Nonterminal: ExprExpr, State: 1},
				},
			},
			{
				EOFActions: []spec.Action{spec.Accept()},
			},
			{
				Actions: []spec.TerminalAction{
					{Terminal: ExprPlus, Action: spec.Shift(3)},
				},
				EOFActions: []spec.Action{spec.Reduce(ExprProdNumber)},
			},
			{
				Actions: []spec.TerminalAction{
					{Terminal: ExprNumber, Action: spec.Shift(4)},
				},
			},
			{
				EOFActions: []spec.Action{spec.Reduce(ExprProdSum)},
			},
		},
	}
}
