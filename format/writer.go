package format

import (
	verr "github.com/nihei9/farkle/error"
	"github.com/nihei9/farkle/log"
	spec "github.com/nihei9/farkle/spec/grammar"
)

// encoder writes a grammar in two passes. The first pass fills the heaps and fixes every row count, so that all
// column widths are known before the second pass emits the first row.
type encoder struct {
	g      *spec.Grammar
	logger log.Logger

	strs   *stringHeapBuilder
	blob   *blobHeapBuilder
	layout *layout

	grammarName      uint32
	tokenSymbolNames []uint32
	groupNames       []uint32
	nonterminalNames []uint32
	specialNames     []uint32
	machineBlobs     []uint32
}

func newEncoder(g *spec.Grammar, logger log.Logger) *encoder {
	return &encoder{
		g:      g,
		logger: logger,
		strs:   newStringHeapBuilder(),
		blob:   newBlobHeapBuilder(),
	}
}

func (e *encoder) encode() ([]byte, error) {
	if err := e.g.Validate(); err != nil {
		return nil, err
	}
	if err := e.fillHeaps(); err != nil {
		return nil, err
	}
	e.computeLayout()
	tables := e.writeTables()
	return writeContainer(e.strs.bytes(), e.blob.bytes(), tables, e.logger)
}

func (e *encoder) addStrings(names []string) ([]uint32, error) {
	offs := make([]uint32, len(names))
	for i, s := range names {
		off, err := e.strs.add(s)
		if err != nil {
			return nil, err
		}
		offs[i] = off
	}
	return offs, nil
}

func (e *encoder) fillHeaps() error {
	g := e.g
	var err error
	e.grammarName, err = e.strs.add(g.Name)
	if err != nil {
		return err
	}

	names := make([]string, len(g.TokenSymbols))
	for i, s := range g.TokenSymbols {
		names[i] = s.Name
	}
	if e.tokenSymbolNames, err = e.addStrings(names); err != nil {
		return err
	}

	names = make([]string, len(g.Groups))
	for i, gr := range g.Groups {
		names[i] = gr.Name
	}
	if e.groupNames, err = e.addStrings(names); err != nil {
		return err
	}

	names = make([]string, len(g.Nonterminals))
	for i, nt := range g.Nonterminals {
		names[i] = nt.Name
	}
	if e.nonterminalNames, err = e.addStrings(names); err != nil {
		return err
	}

	names = make([]string, len(g.SpecialNames))
	for i, sn := range g.SpecialNames {
		names[i] = sn.Name
	}
	if e.specialNames, err = e.addStrings(names); err != nil {
		return err
	}

	ctx := &machineContext{
		tokenSymbolCount: len(g.TokenSymbols),
		nonterminalCount: len(g.Nonterminals),
		productionCount:  len(g.Productions),
	}
	e.machineBlobs = make([]uint32, len(g.StateMachines))
	for i, m := range g.StateMachines {
		data, err := encodeStateMachine(m, ctx)
		if err != nil {
			return err
		}
		off, err := e.blob.add(data)
		if err != nil {
			return err
		}
		e.machineBlobs[i] = off
		e.logger.Log("%v[%v]: %v (%v bytes)", tableStateMachine, i+1, m.Kind(), len(data))
	}

	return nil
}

func (e *encoder) computeLayout() {
	g := e.g
	l := &layout{
		stringIndexWidth: heapIndexWidth(len(e.strs.bytes())),
		blobIndexWidth:   heapIndexWidth(len(e.blob.bytes())),
	}
	l.rowCounts[tableGrammar] = 1
	l.rowCounts[tableTokenSymbol] = len(g.TokenSymbols)
	l.rowCounts[tableGroup] = len(g.Groups)
	for _, gr := range g.Groups {
		l.rowCounts[tableGroupNesting] += len(gr.Nesting)
	}
	l.rowCounts[tableNonterminal] = len(g.Nonterminals)
	l.rowCounts[tableProduction] = len(g.Productions)
	for _, p := range g.Productions {
		l.rowCounts[tableProductionMember] += len(p.Members)
	}
	l.rowCounts[tableStateMachine] = len(g.StateMachines)
	l.rowCounts[tableSpecialName] = len(g.SpecialNames)
	e.layout = l
}

func (e *encoder) writeCell(w *byteWriter, c columnDef, v uint64) {
	width := e.layout.columnWidth(c)
	if width == 8 {
		w.u64(v)
		return
	}
	w.uint(width, uint32(v))
}

func (e *encoder) writeRow(w *byteWriter, t tableID, values ...uint64) {
	for i, c := range tableSchemas[t] {
		e.writeCell(w, c, values[i])
	}
}

func encodeSymbol(sym spec.Symbol) uint64 {
	tag := uint64(symbolTagTokenSymbol)
	if sym.Kind == spec.SymbolKindNonterminal {
		tag = symbolTagNonterminal
	}
	return uint64(sym.ID)<<symbolTagBits | tag
}

func (e *encoder) writeTables() []byte {
	g := e.g
	l := e.layout

	var present uint64
	var ids []tableID
	for t := tableID(0); t < knownTableCount; t++ {
		if l.rowCounts[t] > 0 {
			present |= 1 << t
			ids = append(ids, t)
		}
	}

	var heapSizes uint8
	if l.stringIndexWidth == 4 {
		heapSizes |= heapSizeWideStrings
	}
	if l.blobIndexWidth == 4 {
		heapSizes |= heapSizeWideBlob
	}

	size := 8 + 8*len(ids) + 1
	for _, t := range ids {
		size += l.rowCounts[t] * l.rowSize(t)
	}
	w := &byteWriter{}
	w.grow(alignUp(size, 8))

	w.u64(present)
	for _, t := range ids {
		w.u32(uint32(l.rowCounts[t]))
	}
	for _, t := range ids {
		w.u32(uint32(l.rowSize(t)))
	}
	w.u8(heapSizes)
	w.pad(8)
	for _, t := range ids {
		e.logger.Log("%v: %v rows of %v bytes", t, l.rowCounts[t], l.rowSize(t))
	}

	var grammarFlags uint16
	if g.Unparsable {
		grammarFlags |= grammarFlagUnparsable
	}
	e.writeRow(w, tableGrammar, uint64(e.grammarName), uint64(g.StartSymbol), uint64(grammarFlags))

	for i, s := range g.TokenSymbols {
		e.writeRow(w, tableTokenSymbol, uint64(e.tokenSymbolNames[i]), uint64(s.Flags))
	}

	firstNesting := uint64(1)
	for i, gr := range g.Groups {
		e.writeRow(w, tableGroup, uint64(e.groupNames[i]), uint64(gr.Container), uint64(gr.Flags),
			uint64(gr.Start), uint64(gr.End), firstNesting)
		firstNesting += uint64(len(gr.Nesting))
	}
	for _, gr := range g.Groups {
		for _, n := range gr.Nesting {
			e.writeRow(w, tableGroupNesting, uint64(n))
		}
	}

	firstProduction := 1
	for i, nt := range g.Nonterminals {
		head := spec.NonterminalID(i + 1)
		for firstProduction <= len(g.Productions) && g.Productions[firstProduction-1].Head < head {
			firstProduction++
		}
		e.writeRow(w, tableNonterminal, uint64(e.nonterminalNames[i]), uint64(nt.Flags), uint64(firstProduction))
	}

	firstMember := uint64(1)
	for _, p := range g.Productions {
		e.writeRow(w, tableProduction, firstMember)
		firstMember += uint64(len(p.Members))
	}
	for _, p := range g.Productions {
		for _, m := range p.Members {
			e.writeRow(w, tableProductionMember, encodeSymbol(m))
		}
	}

	for i, m := range g.StateMachines {
		e.writeRow(w, tableStateMachine, uint64(m.Kind()), uint64(e.machineBlobs[i]))
	}

	for i, sn := range g.SpecialNames {
		e.writeRow(w, tableSpecialName, uint64(e.specialNames[i]), encodeSymbol(sn.Symbol))
	}

	return w.b
}

func checkWritable(g *spec.Grammar) error {
	if g == nil {
		return verr.Errorf(verr.ErrInconsistentGrammar, "the grammar is nil")
	}
	return nil
}
