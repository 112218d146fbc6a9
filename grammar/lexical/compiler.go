// Package lexical builds tokenizer DFAs from regular expressions and inspects them.
package lexical

import (
	"fmt"
	"io"
	"strings"

	"github.com/nihei9/farkle/log"
	spec "github.com/nihei9/farkle/spec/grammar"
	mlcompiler "github.com/nihei9/maleeni/compiler"
	mlspec "github.com/nihei9/maleeni/spec"
)

type compileConfig struct {
	name   string
	logger log.Logger
}

type CompileOption func(c *compileConfig) error

// Name sets the name of the grammar Compile returns. The default is "lexgen".
func Name(name string) CompileOption {
	return func(c *compileConfig) error {
		c.name = name
		return nil
	}
}

func EnableLogging(w io.Writer) CompileOption {
	return func(c *compileConfig) error {
		logger, err := log.NewLogger(w)
		if err != nil {
			return err
		}
		c.logger = logger
		return nil
	}
}

// Compile builds a tokenizer-only grammar from entries. The resulting DFA reads the input byte by byte, so its
// edges lie in 0 through 255 and a non-ASCII character is matched as its UTF-8 sequence. When more than one entry
// matches the longest input, the earlier entry wins.
//
// The token symbols keep the order of the entries, except that noise symbols follow all terminals. The grammar
// has no productions and is flagged as unparsable.
func Compile(entries []*Entry, opts ...CompileOption) (*spec.Grammar, error) {
	c := &compileConfig{
		name:   "lexgen",
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	// maleeni only accepts snake_case kind names, so each entry gets a generated kind named after its position.
	lexSpec := &mlspec.LexSpec{
		Name: lexSpecName,
	}
	kind2Entry := map[mlspec.LexKindName]*Entry{}
	for i, e := range entries {
		kind := kindName(i)
		kind2Entry[kind] = e
		lexSpec.Entries = append(lexSpec.Entries, &mlspec.LexEntry{
			Kind:    kind,
			Pattern: mlspec.LexPattern(e.pattern()),
		})
	}
	compiled, err, cErrs := mlcompiler.Compile(lexSpec, mlcompiler.CompressionLevel(0)) // 0 keeps UncompressedTransition
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			writeCompileError(&b, cErrs[0], kind2Entry)
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n")
				writeCompileError(&b, cerr, kind2Entry)
			}
			return nil, fmt.Errorf("%v", b.String())
		}
		return nil, err
	}

	g := &spec.Grammar{
		Name:       c.name,
		Unparsable: true,
	}
	kind2ID := map[mlspec.LexKindName]spec.TokenSymbolID{}
	for _, noise := range []bool{false, true} {
		for i, e := range entries {
			if e.Noise != noise {
				continue
			}
			flags := spec.TokenSymbolTerminal
			if noise {
				flags = spec.TokenSymbolNoise
			}
			g.TokenSymbols = append(g.TokenSymbols, &spec.TokenSymbol{
				Name:  e.Name,
				Flags: flags,
			})
			kind2ID[kindName(i)] = spec.TokenSymbolID(len(g.TokenSymbols))
		}
	}

	dfa, err := convertTransitionTable(compiled, kind2ID)
	if err != nil {
		return nil, err
	}
	g.StateMachines = []spec.StateMachine{dfa}

	var lines []string
	for i, s := range g.TokenSymbols {
		lines = append(lines, fmt.Sprintf("%v: %v (%v)", i+1, s.Name, s.Flags))
	}
	lines = append(lines, fmt.Sprintf("%v DFA states", len(dfa.States)))
	log.Section(c.logger, "Token symbols:", lines...)

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}

// lexSpecName names the specification passed to maleeni. It must be a maleeni identifier.
const lexSpecName = "lexgen"

func kindName(i int) mlspec.LexKindName {
	return mlspec.LexKindName(fmt.Sprintf("k%v", i+1))
}

func writeCompileError(w io.Writer, cErr *mlcompiler.CompileError, kind2Entry map[mlspec.LexKindName]*Entry) {
	name := cErr.Kind.String()
	if e, ok := kind2Entry[cErr.Kind]; ok {
		name = e.Name
	}
	if cErr.Fragment {
		fmt.Fprintf(w, "fragment ")
	}
	fmt.Fprintf(w, "%v: %v", name, cErr.Cause)
	if cErr.Detail != "" {
		fmt.Fprintf(w, ": %v", cErr.Detail)
	}
}

// convertTransitionTable turns the uncompressed byte transition table of the default mode into a DFA. States are
// renumbered in breadth-first order from the initial state, so the initial state becomes 0 and unreachable states
// are dropped.
func convertTransitionTable(compiled *mlspec.CompiledLexSpec, kind2ID map[mlspec.LexKindName]spec.TokenSymbolID) (*spec.DFA, error) {
	if int(compiled.InitialModeID) >= len(compiled.Specs) || compiled.Specs[compiled.InitialModeID] == nil {
		return nil, fmt.Errorf("maleeni returned no initial mode")
	}
	modeSpec := compiled.Specs[compiled.InitialModeID]
	tab := modeSpec.DFA
	if tab == nil || tab.UncompressedTransition == nil {
		return nil, fmt.Errorf("maleeni returned no uncompressed transition table")
	}
	if tab.ColCount != 256 || len(tab.UncompressedTransition) != tab.RowCount*tab.ColCount {
		return nil, fmt.Errorf("unexpected transition table size: %v entries in %vx%v", len(tab.UncompressedTransition), tab.RowCount, tab.ColCount)
	}

	row := func(s mlspec.StateID) []mlspec.StateID {
		return tab.UncompressedTransition[s.Int()*tab.ColCount : (s.Int()+1)*tab.ColCount]
	}

	newID := map[mlspec.StateID]spec.DFAStateID{
		tab.InitialStateID: spec.DFAStateIDInitial,
	}
	queue := []mlspec.StateID{tab.InitialStateID}
	for i := 0; i < len(queue); i++ {
		for _, next := range row(queue[i]) {
			if next == mlspec.StateIDNil {
				continue
			}
			if _, ok := newID[next]; ok {
				continue
			}
			newID[next] = spec.DFAStateID(len(queue))
			queue = append(queue, next)
		}
	}

	dfa := &spec.DFA{
		States: make([]spec.DFAState, len(queue)),
	}
	for i, s := range queue {
		st := &dfa.States[i]
		r := row(s)
		for b := 0; b < len(r); {
			next := r[b]
			if next == mlspec.StateIDNil {
				b++
				continue
			}
			to := b
			for to+1 < len(r) && r[to+1] == next {
				to++
			}
			st.Edges = append(st.Edges, spec.DFAEdge{
				From:   rune(b),
				To:     rune(to),
				Target: newID[next],
			})
			b = to + 1
		}

		if s.Int() >= len(tab.AcceptingStates) {
			continue
		}
		kind := tab.AcceptingStates[s]
		if kind == mlspec.LexModeKindIDNil {
			continue
		}
		if kind.Int() >= len(modeSpec.KindNames) {
			return nil, fmt.Errorf("state %v accepts the undefined kind %v", s, kind)
		}
		id, ok := kind2ID[modeSpec.KindNames[kind]]
		if !ok {
			return nil, fmt.Errorf("kind `%v` has no token symbol", modeSpec.KindNames[kind])
		}
		st.Accept = []spec.TokenSymbolID{id}
	}

	return dfa, nil
}
