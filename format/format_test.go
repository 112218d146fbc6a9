package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"strings"
	"testing"

	verr "github.com/nihei9/farkle/error"
	"github.com/nihei9/farkle/log"
	spec "github.com/nihei9/farkle/spec/grammar"
	"github.com/nihei9/farkle/tester"
)

func saveFunc(g *spec.Grammar) ([]byte, error) {
	return Save(g)
}

func loadFunc(b []byte) (*spec.Grammar, error) {
	return Load(b, StrictStringHeap())
}

// richGrammar extends the expression grammar with every kind of state machine and the edge cases of each table.
func richGrammar() *spec.Grammar {
	g := tester.ExprGrammar()
	g.TokenSymbols = append(g.TokenSymbols,
		&spec.TokenSymbol{Name: "String", Flags: spec.TokenSymbolNoise | spec.TokenSymbolHasSpecialName | spec.TokenSymbolGenerated},
		&spec.TokenSymbol{Name: `"`, Flags: spec.TokenSymbolGroupStart | spec.TokenSymbolHidden},
	)
	g.Groups = append(g.Groups, &spec.Group{
		Name:      "String",
		Container: 7,
		Start:     8,
		Flags:     spec.GroupEndsOnEndOfInput | spec.GroupKeepEndToken,
	})
	g.Groups[0].Nesting = []spec.GroupID{1, 2}
	g.Nonterminals = append(g.Nonterminals,
		&spec.Nonterminal{Name: "Unused"},
		&spec.Nonterminal{Name: "Empty", Flags: spec.NonterminalGenerated},
	)
	g.Productions = append(g.Productions, &spec.Production{
		Head: 3,
	})
	g.SpecialNames = append(g.SpecialNames, &spec.SpecialName{
		Name:   "string",
		Symbol: spec.TerminalSymbol(7),
	})
	g.StateMachines = append(g.StateMachines,
		&spec.DFA{
			Conflicts: true,
			States: []spec.DFAState{
				{
					Edges: []spec.DFAEdge{
						{From: 'a', To: 'a', Target: 1},
						{From: 'b', To: 'b', Stop: true},
						{From: 0x10000, To: 0x10ffff, Target: 0},
					},
				},
				{
					Accept: []spec.TokenSymbolID{1, 2},
				},
			},
		},
		&spec.DefaultTransitions{
			Targets: []spec.DFATarget{
				{State: 4, Valid: true},
				{},
				{},
				{State: 0, Valid: true},
				{},
				{},
				{},
				{State: 7, Valid: true},
			},
		},
		&spec.LR{
			GLR: true,
			States: []spec.LRState{
				{
					Actions: []spec.TerminalAction{
						{Terminal: 1, Action: spec.Shift(1)},
						{Terminal: 1, Action: spec.Reduce(2)},
						{Terminal: 2, Action: spec.Reduce(3)},
					},
					Gotos: []spec.Goto{
						{Nonterminal: 1, State: 1},
						{Nonterminal: 3, State: 0},
					},
				},
				{
					EOFActions: []spec.Action{spec.Accept(), spec.Reduce(1)},
				},
			},
		},
		&spec.UnknownStateMachine{
			MachineKind: -3,
			Data:        []byte{1, 2, 3},
		},
	)
	return g
}

// largeGrammar needs 2-byte table indices, 4-byte string indices, and 4-byte characters.
func largeGrammar() *spec.Grammar {
	g := &spec.Grammar{
		Name: "large",
	}
	for i := 0; i < 300; i++ {
		g.TokenSymbols = append(g.TokenSymbols, &spec.TokenSymbol{
			Name:  fmt.Sprintf("%04d%v", i, strings.Repeat("x", 250)),
			Flags: spec.TokenSymbolTerminal,
		})
	}
	dfa := &spec.DFA{}
	for i := 0; i < 300; i++ {
		st := spec.DFAState{
			Edges: []spec.DFAEdge{
				{From: rune(i), To: rune(i), Target: spec.DFAStateID((i + 1) % 300)},
				{From: 0x10ffff, To: 0x10ffff, Stop: true},
			},
		}
		if i%2 == 0 {
			st.Accept = []spec.TokenSymbolID{spec.TokenSymbolID(i + 1)}
		}
		dfa.States = append(dfa.States, st)
	}
	g.StateMachines = []spec.StateMachine{dfa}
	return g
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		caption string
		grammar *spec.Grammar
	}{
		{
			caption: "an empty grammar",
			grammar: &spec.Grammar{},
		},
		{
			caption: "the expression grammar",
			grammar: tester.ExprGrammar(),
		},
		{
			caption: "a grammar using every table and state machine",
			grammar: richGrammar(),
		},
		{
			caption: "a grammar needing wide indices",
			grammar: largeGrammar(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			r := tester.CheckRoundTrip(tt.caption, tt.grammar, saveFunc, loadFunc)
			if r.Error != nil || len(r.Diffs) > 0 {
				t.Fatal(r)
			}
		})
	}
}

func TestLoad_Expr(t *testing.T) {
	b, err := Save(tester.ExprGrammar())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte(Magic)) {
		t.Fatalf("a file must start with the magic")
	}

	g, err := Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if g.HasUnknownData() {
		t.Fatalf("a file written by this package has no unknown data")
	}
	if g.StartSymbol != tester.ExprExpr {
		t.Fatalf("unexpected start symbol: %v", g.StartSymbol)
	}
	if nt, _ := g.Nonterminal(g.StartSymbol); nt.Name != "EXPR" {
		t.Fatalf("unexpected start symbol name: %v", nt.Name)
	}
	var names []string
	for _, m := range g.Productions[0].Members {
		names = append(names, g.SymbolName(m))
	}
	if strings.Join(names, " ") != "NUMBER PLUS NUMBER" {
		t.Fatalf("unexpected members: %v", names)
	}
	if sym, ok := g.SymbolBySpecialName("expr"); !ok || sym != spec.NonterminalSymbol(tester.ExprExpr) {
		t.Fatalf("unexpected special name lookup: %v, %v", sym, ok)
	}
	lalr, err := g.LALR()
	if err != nil {
		t.Fatal(err)
	}
	if a := lalr.States[2].EOFActions; len(a) != 1 || a[0] != spec.Reduce(tester.ExprProdNumber) {
		t.Fatalf("unexpected EOF actions: %v", a)
	}
}

func TestLoad_Options(t *testing.T) {
	b, err := Save(tester.ExprGrammar())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := Read(bytes.NewReader(b), EnableLogging(&buf)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `stream "#~"`) {
		t.Fatalf("the log must describe the table stream:\n%v", buf.String())
	}
	if _, err := Load(b, EnableLogging(nil)); err == nil {
		t.Fatalf("logging to a nil writer must fail")
	}

	var out bytes.Buffer
	if err := Write(&out, tester.ExprGrammar()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Bytes(), b) {
		t.Fatalf("Write and Save must produce the same bytes")
	}
}

// cell returns the bytes of a table cell of an encoded grammar. They alias b.
func cell(t *testing.T, b []byte, id tableID, row, col int) []byte {
	t.Helper()
	c, err := readContainer(b, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	ts, err := readTableStream(c.tables, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	tab := ts.tables[id]
	if tab == nil {
		t.Fatalf("%v is missing", id)
	}
	off := row*tab.rowSize + tab.offsets[col]
	return tab.data[off : off+tab.widths[col]]
}

func putCell(c []byte, v uint64) {
	for i := range c {
		c[i] = byte(v)
		v >>= 8
	}
}

func cellValue(c []byte) uint64 {
	var v uint64
	for i := len(c) - 1; i >= 0; i-- {
		v = v<<8 | uint64(c[i])
	}
	return v
}

// patchTables replaces the table stream, which the writer always places last.
func patchTables(t *testing.T, b []byte, patch func(ts []byte) []byte) []byte {
	t.Helper()
	streamCount := int(binary.LittleEndian.Uint32(b[12:]))
	for i := 0; i < streamCount; i++ {
		h := b[fileHeaderSize+i*streamHeaderSize:]
		if string(h[:8]) != streamIDTables {
			continue
		}
		off := int(binary.LittleEndian.Uint32(h[8:]))
		length := int(binary.LittleEndian.Uint32(h[12:]))
		if off+length != len(b) {
			t.Fatalf("the table stream must be the last one")
		}
		ts := patch(append([]byte{}, b[off:]...))
		out := append(append([]byte{}, b[:off]...), ts...)
		binary.LittleEndian.PutUint32(out[fileHeaderSize+i*streamHeaderSize+12:], uint32(len(ts)))
		return out
	}
	t.Fatalf("the table stream is missing")
	return nil
}

// addStream appends a stream to the directory and moves the existing streams to make room.
func addStream(t *testing.T, b []byte, id string, data []byte) []byte {
	t.Helper()
	type stream struct {
		id   string
		data []byte
	}
	count := int(binary.LittleEndian.Uint32(b[12:]))
	var streams []stream
	for i := 0; i < count; i++ {
		h := b[fileHeaderSize+i*streamHeaderSize:]
		off := binary.LittleEndian.Uint32(h[8:])
		length := binary.LittleEndian.Uint32(h[12:])
		streams = append(streams, stream{string(h[:8]), b[off : off+length]})
	}
	streams = append(streams, stream{id, data})

	w := &byteWriter{}
	w.bytes(b[:12])
	w.u32(uint32(len(streams)))
	off := fileHeaderSize + streamHeaderSize*len(streams)
	for _, s := range streams {
		off = alignUp(off, streamAlignment)
		w.bytes([]byte(s.id))
		w.u32(uint32(off))
		w.u32(uint32(len(s.data)))
		off += len(s.data)
	}
	for _, s := range streams {
		w.pad(streamAlignment)
		w.bytes(s.data)
	}
	return w.b
}

func TestSave_EmptyFinalProduction(t *testing.T) {
	g := richGrammar()
	b, err := Save(g)
	if err != nil {
		t.Fatal(err)
	}

	memberCount := 0
	for _, p := range g.Productions {
		memberCount += len(p.Members)
	}
	last := len(g.Productions) - 1
	if len(g.Productions[last].Members) != 0 {
		t.Fatalf("the last production must be empty")
	}
	first := cellValue(cell(t, b, tableProduction, last, colProductionFirstMember))
	if first != uint64(memberCount)+1 {
		t.Fatalf("an empty final production must point one past the last member; want: %v, got: %v", memberCount+1, first)
	}

	// Unused owns no productions and points at the first production of the next nonterminal.
	first = cellValue(cell(t, b, tableNonterminal, 1, colNonterminalFirstProduction))
	if first != uint64(last)+1 {
		t.Fatalf("unexpected first production of a nonterminal without productions; want: %v, got: %v", last+1, first)
	}

	loaded, err := Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if _, ps := loaded.ProductionsOf(2); len(ps) != 0 {
		t.Fatalf("Unused must own no productions; got: %v", len(ps))
	}
	if _, ps := loaded.ProductionsOf(3); len(ps) != 1 || len(ps[0].Members) != 0 {
		t.Fatalf("Empty must own one empty production")
	}
}

func TestLoad_UnknownData(t *testing.T) {
	tests := []struct {
		caption string
		grammar func() *spec.Grammar
		patch   func(t *testing.T, b []byte) []byte
		check   func(t *testing.T, g *spec.Grammar)
	}{
		{
			caption: "a newer minor version",
			patch: func(t *testing.T, b []byte) []byte {
				binary.LittleEndian.PutUint16(b[10:], MinorVersion+1)
				return b
			},
		},
		{
			caption: "an unknown stream",
			patch: func(t *testing.T, b []byte) []byte {
				return addStream(t, b, "$custom\x00", []byte("vendor data"))
			},
		},
		{
			caption: "an unknown state machine kind",
			grammar: func() *spec.Grammar {
				g := tester.ExprGrammar()
				g.StateMachines = append(g.StateMachines, &spec.UnknownStateMachine{
					MachineKind: 1000,
					Data:        []byte("opaque"),
				})
				return g
			},
			check: func(t *testing.T, g *spec.Grammar) {
				m, ok := g.StateMachine(1000)
				if !ok || string(m.(*spec.UnknownStateMachine).Data) != "opaque" {
					t.Fatalf("an unknown state machine must be kept as is")
				}
			},
		},
		{
			caption: "unknown flag bits",
			grammar: func() *spec.Grammar {
				g := tester.ExprGrammar()
				g.TokenSymbols[2].Flags |= 1 << 20
				return g
			},
			check: func(t *testing.T, g *spec.Grammar) {
				if g.TokenSymbols[2].Flags != spec.TokenSymbolNoise {
					t.Fatalf("unknown flag bits must be dropped; got: %v", g.TokenSymbols[2].Flags)
				}
			},
		},
		{
			caption: "an unknown table",
			patch: func(t *testing.T, b []byte) []byte {
				return patchTables(t, b, func(ts []byte) []byte {
					mask := binary.LittleEndian.Uint64(ts)
					n := bits.OnesCount64(mask)
					binary.LittleEndian.PutUint64(ts, mask|1<<20)
					var out []byte
					out = append(out, ts[:8+4*n]...)
					out = binary.LittleEndian.AppendUint32(out, 1)
					out = append(out, ts[8+4*n:8+8*n]...)
					out = binary.LittleEndian.AppendUint32(out, 4)
					out = append(out, ts[8+8*n:]...)
					return append(out, 0xde, 0xad, 0xbe, 0xef)
				})
			},
		},
		{
			caption: "extra columns",
			patch: func(t *testing.T, b []byte) []byte {
				// SpecialName is the last table and has one row.
				return patchTables(t, b, func(ts []byte) []byte {
					n := bits.OnesCount64(binary.LittleEndian.Uint64(ts))
					sizeOff := 8 + 4*n + 4*(n-1)
					size := binary.LittleEndian.Uint32(ts[sizeOff:])
					binary.LittleEndian.PutUint32(ts[sizeOff:], size+2)
					return append(ts, 0, 0)
				})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			orig := tester.ExprGrammar()
			if tt.grammar != nil {
				orig = tt.grammar()
			}
			b, err := Save(orig)
			if err != nil {
				t.Fatal(err)
			}
			if tt.patch != nil {
				b = tt.patch(t, b)
			}
			g, err := Load(b)
			if err != nil {
				t.Fatal(err)
			}
			if !g.HasUnknownData() {
				t.Fatalf("the grammar must report unknown data")
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}

func TestLoad_Error(t *testing.T) {
	valid, err := Save(tester.ExprGrammar())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		caption string
		patch   func(t *testing.T, b []byte) []byte
		cause   error
	}{
		{
			caption: "an altered magic",
			patch: func(t *testing.T, b []byte) []byte {
				copy(b, "Farkel\x00\x00")
				return b
			},
			cause: verr.ErrMalformedHeader,
		},
		{
			caption: "an empty file",
			patch: func(t *testing.T, b []byte) []byte {
				return nil
			},
			cause: verr.ErrMalformedHeader,
		},
		{
			caption: "an older major version",
			patch: func(t *testing.T, b []byte) []byte {
				binary.LittleEndian.PutUint16(b[8:], MajorVersion-1)
				return b
			},
			cause: verr.ErrMalformedHeader,
		},
		{
			caption: "a newer major version",
			patch: func(t *testing.T, b []byte) []byte {
				binary.LittleEndian.PutUint16(b[8:], MajorVersion+1)
				return b
			},
			cause: verr.ErrMalformedHeader,
		},
		{
			caption: "a missing last byte",
			patch: func(t *testing.T, b []byte) []byte {
				return b[:len(b)-1]
			},
			cause: verr.ErrTruncatedStream,
		},
		{
			caption: "too many stream headers",
			patch: func(t *testing.T, b []byte) []byte {
				binary.LittleEndian.PutUint32(b[12:], 1000)
				return b
			},
			cause: verr.ErrTruncatedStream,
		},
		{
			caption: "a duplicated stream",
			patch: func(t *testing.T, b []byte) []byte {
				copy(b[fileHeaderSize:], streamIDTables)
				return b
			},
			cause: verr.ErrMalformedHeader,
		},
		{
			caption: "the withheld table bit",
			patch: func(t *testing.T, b []byte) []byte {
				return patchTables(t, b, func(ts []byte) []byte {
					binary.LittleEndian.PutUint64(ts, binary.LittleEndian.Uint64(ts)|1<<tableWithheld)
					return ts
				})
			},
			cause: verr.ErrMalformedHeader,
		},
		{
			caption: "rows smaller than their columns",
			patch: func(t *testing.T, b []byte) []byte {
				return patchTables(t, b, func(ts []byte) []byte {
					n := bits.OnesCount64(binary.LittleEndian.Uint64(ts))
					sizeOff := 8 + 4*n + 4*(n-1)
					size := binary.LittleEndian.Uint32(ts[sizeOff:])
					binary.LittleEndian.PutUint32(ts[sizeOff:], size-1)
					return ts[:len(ts)-1]
				})
			},
			cause: verr.ErrMalformedIndex,
		},
		{
			caption: "a start symbol out of range",
			patch: func(t *testing.T, b []byte) []byte {
				putCell(cell(t, b, tableGrammar, 0, colGrammarStartSymbol), 2)
				return b
			},
			cause: verr.ErrMalformedIndex,
		},
		{
			caption: "a string offset past the heap",
			patch: func(t *testing.T, b []byte) []byte {
				putCell(cell(t, b, tableTokenSymbol, 0, colTokenSymbolName), 0xfff0)
				return b
			},
			cause: verr.ErrMalformedIndex,
		},
		{
			caption: "a member symbol out of range",
			patch: func(t *testing.T, b []byte) []byte {
				putCell(cell(t, b, tableProductionMember, 0, colProductionMemberMember), 100<<symbolTagBits)
				return b
			},
			cause: verr.ErrMalformedIndex,
		},
		{
			caption: "a first member past the end",
			patch: func(t *testing.T, b []byte) []byte {
				putCell(cell(t, b, tableProduction, 1, colProductionFirstMember), 100)
				return b
			},
			cause: verr.ErrMalformedIndex,
		},
		{
			caption: "decreasing first members",
			patch: func(t *testing.T, b []byte) []byte {
				putCell(cell(t, b, tableProduction, 0, colProductionFirstMember), 2)
				putCell(cell(t, b, tableProduction, 1, colProductionFirstMember), 1)
				return b
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "a terminal after a noise symbol",
			patch: func(t *testing.T, b []byte) []byte {
				c := cell(t, b, tableTokenSymbol, 4, colTokenSymbolFlags)
				putCell(c, uint64(spec.TokenSymbolGroupStart|spec.TokenSymbolTerminal))
				return b
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "a group without an end that doesn't end on the end of the input",
			patch: func(t *testing.T, b []byte) []byte {
				putCell(cell(t, b, tableGroup, 0, colGroupEnd), 0)
				return b
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "duplicated state machine kinds",
			patch: func(t *testing.T, b []byte) []byte {
				data := cellValue(cell(t, b, tableStateMachine, 0, colStateMachineData))
				putCell(cell(t, b, tableStateMachine, 1, colStateMachineData), data)
				putCell(cell(t, b, tableStateMachine, 1, colStateMachineKind), uint64(spec.StateMachineKindDFA))
				return b
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "a blob offset past the heap",
			patch: func(t *testing.T, b []byte) []byte {
				putCell(cell(t, b, tableStateMachine, 0, colStateMachineData), 0xfff0)
				return b
			},
			cause: verr.ErrMalformedIndex,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			b := tt.patch(t, append([]byte{}, valid...))
			g, err := Load(b)
			if g != nil {
				t.Fatalf("no grammar may be returned on error")
			}
			if !verr.Is(err, tt.cause) {
				t.Fatalf("unexpected error; want: %v, got: %v", tt.cause, err)
			}
			if !IsFormatError(err) {
				t.Fatalf("the error must be a *FormatError: %T", err)
			}
		})
	}
}

func TestLoad_EveryPrefixFails(t *testing.T) {
	b, err := Save(tester.ExprGrammar())
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(b); n++ {
		g, err := Load(b[:n])
		if err == nil || g != nil {
			t.Fatalf("a %v-byte prefix of a %v-byte file must fail", n, len(b))
		}
		if !IsFormatError(err) {
			t.Fatalf("%v bytes: unexpected error type %T: %v", n, err, err)
		}
	}
}

func TestSave_Error(t *testing.T) {
	tests := []struct {
		caption string
		modify  func(g *spec.Grammar)
		cause   error
	}{
		{
			caption: "a terminal after a noise symbol",
			modify: func(g *spec.Grammar) {
				g.TokenSymbols[3].Flags |= spec.TokenSymbolTerminal
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "productions not grouped by head",
			modify: func(g *spec.Grammar) {
				g.Nonterminals = append(g.Nonterminals, &spec.Nonterminal{Name: "Other"})
				g.Productions = append([]*spec.Production{{Head: 2}}, g.Productions...)
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "a group end of nil without ending on the end of the input",
			modify: func(g *spec.Grammar) {
				g.Groups[0].End = spec.TokenSymbolIDNil
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "a noise symbol in a production",
			modify: func(g *spec.Grammar) {
				g.Productions[1].Members = append(g.Productions[1].Members, spec.TerminalSymbol(tester.ExprWhitespace))
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "a start symbol out of range",
			modify: func(g *spec.Grammar) {
				g.StartSymbol = 5
			},
			cause: verr.ErrMalformedIndex,
		},
		{
			caption: "a special name on an unflagged symbol",
			modify: func(g *spec.Grammar) {
				g.Nonterminals[0].Flags = 0
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "a name with a NUL character",
			modify: func(g *spec.Grammar) {
				g.TokenSymbols[0].Name = "NUM\x00BER"
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "an LALR table with two actions on one terminal",
			modify: func(g *spec.Grammar) {
				lr := g.StateMachines[1].(*spec.LR)
				lr.States[0].Actions = append(lr.States[0].Actions, spec.TerminalAction{
					Terminal: tester.ExprNumber,
					Action:   spec.Reduce(1),
				})
			},
			cause: verr.ErrInconsistentGrammar,
		},
		{
			caption: "default transitions that don't match the DFA",
			modify: func(g *spec.Grammar) {
				g.StateMachines = append(g.StateMachines, &spec.DefaultTransitions{
					Targets: make([]spec.DFATarget, 3),
				})
			},
			cause: verr.ErrInconsistentGrammar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			g := tester.ExprGrammar()
			tt.modify(g)
			b, err := Save(g)
			if b != nil {
				t.Fatalf("no output may be produced on error")
			}
			if !verr.Is(err, tt.cause) {
				t.Fatalf("unexpected error; want: %v, got: %v", tt.cause, err)
			}
		})
	}

	if _, err := Save(nil); !verr.Is(err, verr.ErrInconsistentGrammar) {
		t.Fatalf("saving nil must fail; got: %v", err)
	}
}

func TestLoad_MutatedBytesDontPanic(t *testing.T) {
	orig, err := Save(tester.ExprGrammar())
	if err != nil {
		t.Fatal(err)
	}
	load := func(b []byte) {
		t.Helper()
		g, err := Load(b)
		if err != nil && g != nil {
			t.Fatalf("no grammar must be returned on error: %v", err)
		}
	}

	b := make([]byte, len(orig))
	for i := range orig {
		for _, v := range []byte{0x00, 0x01, 0x7f, 0x80, 0xff, orig[i] ^ 0xff, orig[i] + 1} {
			copy(b, orig)
			b[i] = v
			load(b)
		}
	}
	for i := 0; i+8 <= len(orig); i++ {
		copy(b, orig)
		binary.LittleEndian.PutUint32(b[i:], 3355443201)
		binary.LittleEndian.PutUint32(b[i+4:], 3741319173)
		load(b)

		copy(b, orig)
		binary.LittleEndian.PutUint64(b[i:], 0xffffffffffffffff)
		load(b)
	}
}

func TestLoadFile_Error(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.egtn")
	if err := os.WriteFile(broken, []byte("Farkle"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{broken, filepath.Join(dir, "missing.egtn")} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			g, err := LoadFile(path)
			if err == nil || g != nil {
				t.Fatalf("loading %v must fail", path)
			}
			if n := strings.Count(err.Error(), path); n != 1 {
				t.Fatalf("the error must name the path once; got %v times: %v", n, err)
			}
		})
	}
}
