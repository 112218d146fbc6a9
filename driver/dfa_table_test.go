package driver

import (
	"fmt"
	"math/rand"
	"testing"

	verr "github.com/nihei9/farkle/error"
	spec "github.com/nihei9/farkle/spec/grammar"
	"github.com/nihei9/farkle/tester"
)

func TestDFATable_Next_MatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 4; i++ {
		stateCount := 5 + rng.Intn(40)
		dfa := tester.RandomDFA(rng, stateCount, 0x3000, 10)
		var defaults *spec.DefaultTransitions
		ms := []spec.StateMachine{dfa}
		if i%2 == 1 {
			defaults = tester.RandomDefaultTransitions(rng, stateCount)
			ms = append(ms, defaults)
		}
		t.Run(fmt.Sprintf("#%v %v states, default transitions: %v", i, stateCount, defaults != nil), func(t *testing.T) {
			tab, err := NewDFATable(&spec.Grammar{
				StateMachines: ms,
			})
			if err != nil {
				t.Fatal(err)
			}
			for j := 0; j < 10000; j++ {
				state := spec.DFAStateID(rng.Intn(stateCount))
				var c rune
				if j%2 == 0 {
					c = rune(rng.Intn(128))
				} else {
					c = rune(rng.Intn(0x3100))
				}
				wantState, wantOK := tester.NaiveNext(dfa, defaults, state, c)
				gotState, gotOK := tab.Next(state, c)
				if gotOK != wantOK || gotState != wantState {
					t.Fatalf("unexpected transition from %v on %U; want: %v, %v, got: %v, %v", state, c, wantState, wantOK, gotState, gotOK)
				}
			}
		})
	}
}

func TestDFATable_Next(t *testing.T) {
	dfa := &spec.DFA{
		States: []spec.DFAState{
			{
				Edges: []spec.DFAEdge{
					{From: 'a', To: 'a', Stop: true},
					{From: 'b', To: 'c', Target: 1},
					{From: 0x3042, To: 0x3042, Stop: true},
					{From: 0x3044, To: 0x10ffff, Target: 0},
				},
			},
			{
				Accept: []spec.TokenSymbolID{1},
			},
		},
	}
	defaults := &spec.DefaultTransitions{
		Targets: []spec.DFATarget{
			{State: 1, Valid: true},
			{},
		},
	}

	tests := []struct {
		defaults bool
		state    spec.DFAStateID
		c        rune
		next     spec.DFAStateID
		ok       bool
	}{
		// A stop edge wins over a default transition.
		{defaults: false, state: 0, c: 'a', ok: false},
		{defaults: true, state: 0, c: 'a', ok: false},
		{defaults: true, state: 0, c: 0x3042, ok: false},
		{defaults: false, state: 0, c: 'c', next: 1, ok: true},
		{defaults: false, state: 0, c: 0x10ffff, next: 0, ok: true},
		{defaults: false, state: 0, c: 'd', ok: false},
		{defaults: true, state: 0, c: 'd', next: 1, ok: true},
		{defaults: false, state: 0, c: 0x3043, ok: false},
		{defaults: true, state: 0, c: 0x3043, next: 1, ok: true},
		{defaults: true, state: 1, c: 'a', ok: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("defaults: %v, %v on %U", tt.defaults, tt.state, tt.c), func(t *testing.T) {
			g := &spec.Grammar{
				StateMachines: []spec.StateMachine{dfa},
			}
			if tt.defaults {
				g.StateMachines = append(g.StateMachines, defaults)
			}
			tab, err := NewDFATable(g)
			if err != nil {
				t.Fatal(err)
			}
			next, ok := tab.Next(tt.state, tt.c)
			if ok != tt.ok || (ok && next != tt.next) {
				t.Fatalf("unexpected transition; want: %v, %v, got: %v, %v", tt.next, tt.ok, next, ok)
			}
		})
	}
}

func TestDFATable_Accept(t *testing.T) {
	tab, err := NewDFATable(tester.ExprGrammar())
	if err != nil {
		t.Fatal(err)
	}
	if tab.StateCount() != 8 {
		t.Fatalf("unexpected state count: %v", tab.StateCount())
	}

	state := spec.DFAStateIDInitial
	for _, c := range "123" {
		var ok bool
		state, ok = tab.Next(state, c)
		if !ok {
			t.Fatalf("no transition on %q", c)
		}
	}
	sym, ok := tab.Accept(state)
	if !ok || sym != tester.ExprNumber {
		t.Fatalf("the state %v must accept NUMBER; got: %v, %v", state, sym, ok)
	}
	if _, ok := tab.Accept(spec.DFAStateIDInitial); ok {
		t.Fatalf("the initial state must not accept anything")
	}
	if len(tab.Accepts(spec.DFAStateIDInitial)) != 0 {
		t.Fatalf("the initial state must not accept anything")
	}
}

func TestDFATable_UndefinedState(t *testing.T) {
	tab, err := NewDFATable(tester.ExprGrammar())
	if err != nil {
		t.Fatal(err)
	}
	for _, state := range []spec.DFAStateID{8, 9, 1 << 20} {
		for _, c := range []rune{'0', 0x3000} {
			if next, ok := tab.Next(state, c); ok {
				t.Fatalf("an undefined state %v must have no transition on %U; got: %v", state, c, next)
			}
		}
		if _, ok := tab.Accept(state); ok {
			t.Fatalf("an undefined state %v must not accept anything", state)
		}
		if as := tab.Accepts(state); as != nil {
			t.Fatalf("an undefined state %v must not accept anything; got: %v", state, as)
		}
	}
}

func TestNewDFATable_Error(t *testing.T) {
	tests := []struct {
		caption string
		g       *spec.Grammar
		cause   error
	}{
		{
			caption: "no DFA",
			g: &spec.Grammar{
				StateMachines: []spec.StateMachine{
					&spec.LR{States: []spec.LRState{{}}},
				},
			},
			cause: verr.ErrUnusableGrammar,
		},
		{
			caption: "too few default transitions",
			g: &spec.Grammar{
				StateMachines: []spec.StateMachine{
					&spec.DFA{States: []spec.DFAState{{}, {}}},
					&spec.DefaultTransitions{Targets: []spec.DFATarget{{}}},
				},
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "an undefined target",
			g: &spec.Grammar{
				StateMachines: []spec.StateMachine{
					&spec.DFA{
						States: []spec.DFAState{
							{Edges: []spec.DFAEdge{{From: 'a', To: 'a', Target: 1}}},
						},
					},
				},
			},
			cause: verr.ErrInconsistentGrammar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, err := NewDFATable(tt.g)
			if !verr.Is(err, tt.cause) {
				t.Fatalf("unexpected error; want: %v, got: %v", tt.cause, err)
			}
		})
	}
}
