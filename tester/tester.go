package tester

import (
	"bytes"
	"fmt"
	"strings"

	spec "github.com/nihei9/farkle/spec/grammar"
)

// GrammarDiff is one difference found by Compare.
type GrammarDiff struct {
	Path    string
	Message string
}

func (d *GrammarDiff) String() string {
	return fmt.Sprintf("%v: %v", d.Path, d.Message)
}

type TestResult struct {
	Path  string
	Error error
	Diffs []*GrammarDiff
}

func (r *TestResult) String() string {
	if r.Error == nil && len(r.Diffs) == 0 {
		return fmt.Sprintf("Passed %v", r.Path)
	}

	const indent1 = "    "
	const indent2 = indent1 + indent1

	var b strings.Builder
	fmt.Fprintf(&b, "Failed %v:", r.Path)
	if r.Error != nil {
		msgLines := strings.Split(r.Error.Error(), "\n")
		fmt.Fprintf(&b, "\n%v%v", indent1, strings.Join(msgLines, "\n"+indent1))
	}
	if len(r.Diffs) > 0 {
		fmt.Fprintf(&b, "\n%vthe grammar changed in a save and load cycle:", indent1)
		for _, diff := range r.Diffs {
			fmt.Fprintf(&b, "\n%v%v", indent2, diff)
		}
	}
	return b.String()
}

type SaveFunc func(g *spec.Grammar) ([]byte, error)

type LoadFunc func(b []byte) (*spec.Grammar, error)

// CheckRoundTrip saves g, loads the result, and compares it with g. It also saves the loaded grammar once more
// and requires the same bytes, so that the encoding is a fixed point.
func CheckRoundTrip(path string, g *spec.Grammar, save SaveFunc, load LoadFunc) *TestResult {
	b1, err := save(g)
	if err != nil {
		return &TestResult{
			Path:  path,
			Error: fmt.Errorf("cannot save the grammar: %w", err),
		}
	}
	reloaded, err := load(b1)
	if err != nil {
		return &TestResult{
			Path:  path,
			Error: fmt.Errorf("cannot load the saved grammar: %w", err),
		}
	}
	if diffs := Compare(g, reloaded); len(diffs) > 0 {
		return &TestResult{
			Path:  path,
			Diffs: diffs,
		}
	}
	b2, err := save(reloaded)
	if err != nil {
		return &TestResult{
			Path:  path,
			Error: fmt.Errorf("cannot save the reloaded grammar: %w", err),
		}
	}
	if !bytes.Equal(b1, b2) {
		return &TestResult{
			Path:  path,
			Error: fmt.Errorf("saving the reloaded grammar produced different bytes (%v and %v bytes)", len(b1), len(b2)),
		}
	}
	return &TestResult{
		Path: path,
	}
}

// Compare lists the differences between two valid grammars. Nil and empty slices are treated as equal, and so
// are stop edges with different targets, because the format can't tell them apart. HasUnknownData is ignored.
func Compare(want, got *spec.Grammar) []*GrammarDiff {
	c := &comparer{}
	c.grammar(want, got)
	return c.diffs
}

type comparer struct {
	diffs []*GrammarDiff
}

func (c *comparer) report(path string, format string, a ...interface{}) {
	c.diffs = append(c.diffs, &GrammarDiff{
		Path:    path,
		Message: fmt.Sprintf(format, a...),
	})
}

func (c *comparer) value(path string, want, got interface{}) {
	if want != got {
		c.report(path, "want %v, got %v", want, got)
	}
}

func compareSlices[T any](c *comparer, path string, base int, want, got []T, elem func(path string, want, got T)) {
	if len(want) != len(got) {
		c.report(path, "want %v entries, got %v", len(want), len(got))
		return
	}
	for i := range want {
		elem(fmt.Sprintf("%v[%v]", path, i+base), want[i], got[i])
	}
}

func equal[T comparable](c *comparer) func(path string, want, got T) {
	return func(path string, want, got T) {
		c.value(path, want, got)
	}
}

func (c *comparer) grammar(w, g *spec.Grammar) {
	c.value("Name", w.Name, g.Name)
	c.value("StartSymbol", w.StartSymbol, g.StartSymbol)
	c.value("Unparsable", w.Unparsable, g.Unparsable)

	compareSlices(c, "TokenSymbols", 1, w.TokenSymbols, g.TokenSymbols, func(p string, w, g *spec.TokenSymbol) {
		c.value(p+".Name", w.Name, g.Name)
		c.value(p+".Flags", w.Flags, g.Flags)
	})
	compareSlices(c, "Nonterminals", 1, w.Nonterminals, g.Nonterminals, func(p string, w, g *spec.Nonterminal) {
		c.value(p+".Name", w.Name, g.Name)
		c.value(p+".Flags", w.Flags, g.Flags)
	})
	compareSlices(c, "Groups", 1, w.Groups, g.Groups, func(p string, w, g *spec.Group) {
		c.value(p+".Name", w.Name, g.Name)
		c.value(p+".Container", w.Container, g.Container)
		c.value(p+".Start", w.Start, g.Start)
		c.value(p+".End", w.End, g.End)
		c.value(p+".Flags", w.Flags, g.Flags)
		compareSlices(c, p+".Nesting", 0, w.Nesting, g.Nesting, equal[spec.GroupID](c))
	})
	compareSlices(c, "Productions", 1, w.Productions, g.Productions, func(p string, w, g *spec.Production) {
		c.value(p+".Head", w.Head, g.Head)
		compareSlices(c, p+".Members", 0, w.Members, g.Members, equal[spec.Symbol](c))
	})
	compareSlices(c, "SpecialNames", 1, w.SpecialNames, g.SpecialNames, func(p string, w, g *spec.SpecialName) {
		c.value(p+".Name", w.Name, g.Name)
		c.value(p+".Symbol", w.Symbol, g.Symbol)
	})
	compareSlices(c, "StateMachines", 1, w.StateMachines, g.StateMachines, c.stateMachine)
}

func (c *comparer) stateMachine(path string, want, got spec.StateMachine) {
	if want.Kind() != got.Kind() {
		c.report(path, "want kind %v, got %v", want.Kind(), got.Kind())
		return
	}
	switch w := want.(type) {
	case *spec.DFA:
		g, ok := got.(*spec.DFA)
		if !ok {
			c.report(path, "want %T, got %T", want, got)
			return
		}
		compareSlices(c, path+".States", 0, w.States, g.States, func(p string, w, g spec.DFAState) {
			compareSlices(c, p+".Edges", 0, w.Edges, g.Edges, c.edge)
			compareSlices(c, p+".Accept", 0, w.Accept, g.Accept, equal[spec.TokenSymbolID](c))
		})
	case *spec.DefaultTransitions:
		g, ok := got.(*spec.DefaultTransitions)
		if !ok {
			c.report(path, "want %T, got %T", want, got)
			return
		}
		compareSlices(c, path+".Targets", 0, w.Targets, g.Targets, func(p string, w, g spec.DFATarget) {
			c.value(p+".Valid", w.Valid, g.Valid)
			if w.Valid && g.Valid {
				c.value(p+".State", w.State, g.State)
			}
		})
	case *spec.LR:
		g, ok := got.(*spec.LR)
		if !ok {
			c.report(path, "want %T, got %T", want, got)
			return
		}
		compareSlices(c, path+".States", 0, w.States, g.States, func(p string, w, g spec.LRState) {
			compareSlices(c, p+".Actions", 0, w.Actions, g.Actions, equal[spec.TerminalAction](c))
			compareSlices(c, p+".EOFActions", 0, w.EOFActions, g.EOFActions, equal[spec.Action](c))
			compareSlices(c, p+".Gotos", 0, w.Gotos, g.Gotos, equal[spec.Goto](c))
		})
	case *spec.UnknownStateMachine:
		g, ok := got.(*spec.UnknownStateMachine)
		if !ok {
			c.report(path, "want %T, got %T", want, got)
			return
		}
		if !bytes.Equal(w.Data, g.Data) {
			c.report(path+".Data", "want %v bytes %x, got %v bytes %x", len(w.Data), w.Data, len(g.Data), g.Data)
		}
	}
}

func (c *comparer) edge(path string, want, got spec.DFAEdge) {
	c.value(path+".From", want.From, got.From)
	c.value(path+".To", want.To, got.To)
	c.value(path+".Stop", want.Stop, got.Stop)
	if !want.Stop && !got.Stop {
		c.value(path+".Target", want.Target, got.Target)
	}
}
