package driver

import (
	"fmt"

	"github.com/nihei9/farkle/compressor"
	verr "github.com/nihei9/farkle/error"
	spec "github.com/nihei9/farkle/spec/grammar"
)

type tableConfig struct {
	level compressor.Level
}

type TableOption func(c *tableConfig) error

// Compression selects how the action and goto tables are stored. See compressor.Level. The default is
// compressor.LevelMax.
func Compression(level compressor.Level) TableOption {
	return func(c *tableConfig) error {
		if level < compressor.LevelMin || level > compressor.LevelMax {
			return fmt.Errorf("compression level must be %v..%v; got: %v", compressor.LevelMin, compressor.LevelMax, level)
		}
		c.level = level
		return nil
	}
}

// Entries of the dense action table: 0 is an error, a positive value s+1 shifts to the state s, and a negative
// value -p reduces by the production p.
const actionError = 0

func encodeAction(a spec.Action) int {
	if a.Kind == spec.ActionKindReduce {
		return -int(a.Production)
	}
	return int(a.State) + 1
}

func decodeAction(v int) spec.Action {
	if v < 0 {
		return spec.Reduce(spec.ProductionID(-v))
	}
	return spec.Shift(spec.LRStateID(v - 1))
}

// Entries of the dense goto table: 0 means no transition and s+1 moves to the state s.
const gotoNone = 0

// LRTable answers LALR action and goto queries by indexing dense tables:
// actions by `state*terminalCount + terminal-1`, and gotos by `state*nonterminalCount + nonterminal-1`.
type LRTable struct {
	stateCount       int
	terminalCount    int
	nonterminalCount int
	actions          compressor.Compressor
	gotos            compressor.Compressor
	eofActions       []spec.Action
	level            compressor.Level
}

func NewLRTable(g *spec.Grammar, opts ...TableOption) (*LRTable, error) {
	c := &tableConfig{
		level: compressor.LevelMax,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	lr, err := g.LALR()
	if err != nil {
		return nil, err
	}

	stateCount := len(lr.States)
	if stateCount == 0 {
		return nil, verr.Errorf(verr.ErrInconsistentGrammar, "the LALR table has no states")
	}
	termCount := g.TerminalCount()
	ntCount := len(g.Nonterminals)
	t := &LRTable{
		stateCount:       stateCount,
		terminalCount:    termCount,
		nonterminalCount: ntCount,
		eofActions:       make([]spec.Action, stateCount),
		level:            c.level,
	}

	// A column for grammars without terminals or nonterminals keeps the tables well-formed.
	actionCols := termCount
	if actionCols == 0 {
		actionCols = 1
	}
	gotoCols := ntCount
	if gotoCols == 0 {
		gotoCols = 1
	}
	actions := make([]int, stateCount*actionCols)
	gotos := make([]int, stateCount*gotoCols)
	for s, st := range lr.States {
		for _, a := range st.Actions {
			if a.Terminal.IsNil() || a.Terminal.Int() > termCount {
				return nil, verr.Errorf(verr.ErrInconsistentGrammar, "state %v has an action on %v, which is not a terminal", s, a.Terminal)
			}
			i := s*actionCols + a.Terminal.Int() - 1
			if actions[i] != actionError {
				return nil, verr.Errorf(verr.ErrInconsistentGrammar, "state %v has more than one action on %v", s, a.Terminal)
			}
			actions[i] = encodeAction(a.Action)
		}
		for _, gt := range st.Gotos {
			if gt.Nonterminal.IsNil() || gt.Nonterminal.Int() > ntCount {
				return nil, verr.Errorf(verr.ErrInconsistentGrammar, "state %v has a goto on the undefined nonterminal %v", s, gt.Nonterminal)
			}
			gotos[s*gotoCols+gt.Nonterminal.Int()-1] = int(gt.State) + 1
		}
		if len(st.EOFActions) > 0 {
			t.eofActions[s] = st.EOFActions[0]
		}
	}

	t.actions, err = compressor.Compress(actions, actionCols, c.level, actionError)
	if err != nil {
		return nil, err
	}
	t.gotos, err = compressor.Compress(gotos, gotoCols, c.level, gotoNone)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (t *LRTable) StateCount() int {
	return t.stateCount
}

func (t *LRTable) TerminalCount() int {
	return t.terminalCount
}

// Action returns the action of a state on a terminal. The second result is false for an error.
func (t *LRTable) Action(state spec.LRStateID, terminal spec.TokenSymbolID) (spec.Action, bool) {
	if state.Int() >= t.stateCount || terminal.IsNil() || terminal.Int() > t.terminalCount {
		return spec.Action{}, false
	}
	v, err := t.actions.Lookup(state.Int(), terminal.Int()-1)
	if err != nil || v == actionError {
		return spec.Action{}, false
	}
	return decodeAction(v), true
}

// EOFAction returns the action of a state at the end of the input: an accept or a reduction.
func (t *LRTable) EOFAction(state spec.LRStateID) (spec.Action, bool) {
	if state.Int() >= t.stateCount {
		return spec.Action{}, false
	}
	a := t.eofActions[state]
	return a, a.Kind != spec.ActionKindError
}

func (t *LRTable) Goto(state spec.LRStateID, nt spec.NonterminalID) (spec.LRStateID, bool) {
	if state.Int() >= t.stateCount || nt.IsNil() || nt.Int() > t.nonterminalCount {
		return 0, false
	}
	v, err := t.gotos.Lookup(state.Int(), nt.Int()-1)
	if err != nil || v == gotoNone {
		return 0, false
	}
	return spec.LRStateID(v - 1), true
}

// Footprint returns the number of integers held by the action and goto tables.
func (t *LRTable) Footprint() (actions, gotos int) {
	return t.actions.Footprint(), t.gotos.Footprint()
}

func (t *LRTable) CompressionLevel() compressor.Level {
	return t.level
}
