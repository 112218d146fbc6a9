package format

import (
	"fmt"

	verr "github.com/nihei9/farkle/error"
	"github.com/nihei9/farkle/log"
	spec "github.com/nihei9/farkle/spec/grammar"
)

type tableStream struct {
	tables      [knownTableCount]*table
	layout      *layout
	unknownData bool
}

func tableStreamError(cause error, format string, a ...interface{}) error {
	return &verr.FormatError{
		Cause:  cause,
		Stream: streamNameTables,
		Detail: fmt.Sprintf(format, a...),
	}
}

func rowError(cause error, t tableID, row int, format string, a ...interface{}) error {
	return &verr.FormatError{
		Cause:  cause,
		Stream: streamNameTables,
		Table:  t.String(),
		Row:    row + 1,
		Detail: fmt.Sprintf(format, a...),
	}
}

// readTableStream parses the table stream header and slices out every table. Unknown tables are skipped.
func readTableStream(b []byte, logger log.Logger) (*tableStream, error) {
	r := newByteReader(b, streamNameTables)
	present := r.u64()
	if r.err != nil {
		return nil, r.err
	}
	if present&(1<<tableWithheld) != 0 {
		return nil, tableStreamError(verr.ErrMalformedHeader, "bit %v of the table mask is withheld", tableWithheld)
	}
	ids := presentTables(present)

	rowCounts := make([]int, len(ids))
	for i, id := range ids {
		n := r.u32()
		if r.err != nil {
			return nil, r.err
		}
		if n == 0 {
			return nil, tableStreamError(verr.ErrMalformedHeader, "%v is marked present but has no rows", tableID(id))
		}
		rowCounts[i] = int(n)
	}
	rowSizes := make([]int, len(ids))
	for i, id := range ids {
		n := r.u32()
		if r.err != nil {
			return nil, r.err
		}
		if n == 0 {
			return nil, tableStreamError(verr.ErrMalformedHeader, "%v has rows of zero bytes", tableID(id))
		}
		rowSizes[i] = int(n)
	}
	heapSizes := r.u8()
	r.align(8)
	if r.err != nil {
		return nil, r.err
	}

	ts := &tableStream{
		layout: &layout{
			stringIndexWidth: 2,
			blobIndexWidth:   2,
		},
	}
	if heapSizes&heapSizeWideStrings != 0 {
		ts.layout.stringIndexWidth = 4
	}
	if heapSizes&heapSizeWideBlob != 0 {
		ts.layout.blobIndexWidth = 4
	}
	if heapSizes&^heapSizeKnown != 0 {
		logger.Log("unknown heap size flags %#02x", heapSizes&^heapSizeKnown)
		ts.unknownData = true
	}
	for i, id := range ids {
		if id < knownTableCount {
			ts.layout.rowCounts[id] = rowCounts[i]
		}
	}

	for i, id := range ids {
		if rowSizes[i] > 0 && rowCounts[i] > r.remaining()/rowSizes[i] {
			return nil, &verr.FormatError{
				Cause:  verr.ErrTruncatedStream,
				Stream: streamNameTables,
				Table:  tableID(id).String(),
				Offset: r.pos,
				Detail: fmt.Sprintf("%v rows of %v bytes don't fit in the remaining %v bytes", rowCounts[i], rowSizes[i], r.remaining()),
			}
		}
		data := r.take(rowCounts[i] * rowSizes[i])
		if r.err != nil {
			return nil, r.err
		}
		if id >= knownTableCount {
			logger.Log("skipping unknown %v: %v rows of %v bytes", tableID(id), rowCounts[i], rowSizes[i])
			ts.unknownData = true
			continue
		}

		tid := tableID(id)
		want := ts.layout.rowSize(tid)
		if rowSizes[i] < want {
			return nil, &verr.FormatError{
				Cause:  verr.ErrMalformedIndex,
				Stream: streamNameTables,
				Table:  tid.String(),
				Detail: fmt.Sprintf("rows take %v bytes, but the columns need %v", rowSizes[i], want),
			}
		}
		if rowSizes[i] > want {
			logger.Log("%v rows have %v bytes of unknown columns", tid, rowSizes[i]-want)
			ts.unknownData = true
		}
		ts.tables[tid] = newTable(tid, rowCounts[i], rowSizes[i], data, ts.layout)
		logger.Log("%v: %v rows of %v bytes", tid, rowCounts[i], rowSizes[i])
	}

	return ts, nil
}

func (ts *tableStream) rowCount(t tableID) int {
	return ts.layout.rowCounts[t]
}

// decoder turns the tables into a grammar. Every method reports the first violation it finds and leaves the
// grammar under construction for the garbage collector.
type decoder struct {
	ts      *tableStream
	strs    *stringHeap
	blob    *blobHeap
	g       *spec.Grammar
	logger  log.Logger
	unknown bool
}

func (d *decoder) markUnknown(format string, a ...interface{}) {
	d.logger.Log(format, a...)
	d.unknown = true
}

func (d *decoder) str(t *table, row, col int) (string, error) {
	s, err := d.strs.at(uint32(t.cell(row, col)))
	if err != nil {
		if fe, ok := err.(*verr.FormatError); ok {
			fe.Table = t.id.String()
			fe.Row = row + 1
		}
		return "", err
	}
	return s, nil
}

// index reads a 1-based index column, checking it against the row count of the referenced table.
func (d *decoder) index(t *table, row, col int, nullable bool) (uint32, error) {
	target := tableSchemas[t.id][col].target
	v := t.cell(row, col)
	if v == 0 {
		if !nullable {
			return 0, rowError(verr.ErrMalformedIndex, t.id, row, "a reference to %v must not be nil", target)
		}
		return 0, nil
	}
	if v > uint64(d.ts.rowCount(target)) {
		return 0, rowError(verr.ErrMalformedIndex, t.id, row, "%v %v is out of range; %v has %v rows", target, v, target, d.ts.rowCount(target))
	}
	return uint32(v), nil
}

func (d *decoder) symbol(t *table, row, col int) (spec.Symbol, error) {
	v := t.cell(row, col)
	tag := v & (1<<symbolTagBits - 1)
	idx := v >> symbolTagBits
	var target tableID
	var kind spec.SymbolKind
	switch tag {
	case symbolTagTokenSymbol:
		target = tableTokenSymbol
		kind = spec.SymbolKindTerminal
	default:
		target = tableNonterminal
		kind = spec.SymbolKindNonterminal
	}
	if idx == 0 || idx > uint64(d.ts.rowCount(target)) {
		return spec.Symbol{}, rowError(verr.ErrMalformedIndex, t.id, row, "symbol %v of %v is out of range", idx, target)
	}
	return spec.Symbol{
		Kind: kind,
		ID:   uint32(idx),
	}, nil
}

// runs splits a child table into the runs owned by each row of a parent table, given the 1-based "first child"
// column of the parent. A run ends where the next row's run starts; the last one ends after the last child.
func (d *decoder) runs(parent *table, col int, child tableID) ([][2]int, error) {
	childCount := d.ts.rowCount(child)
	if parent == nil {
		if childCount > 0 {
			return nil, tableStreamError(verr.ErrInconsistentGrammar, "%v has rows but no table owns them", child)
		}
		return nil, nil
	}
	rs := make([][2]int, parent.rowCount)
	prev := uint64(1)
	for row := 0; row < parent.rowCount; row++ {
		first := parent.cell(row, col)
		if first == 0 || first > uint64(childCount)+1 {
			return nil, rowError(verr.ErrMalformedIndex, parent.id, row, "first %v %v is out of range", child, first)
		}
		if row == 0 && first != 1 {
			return nil, rowError(verr.ErrInconsistentGrammar, parent.id, row, "the first run of %v must start at 1, not %v", child, first)
		}
		if first < prev {
			return nil, rowError(verr.ErrInconsistentGrammar, parent.id, row, "first %v %v precedes %v of the previous row", child, first, prev)
		}
		rs[row][0] = int(first) - 1
		if row > 0 {
			rs[row-1][1] = int(first) - 1
		}
		prev = first
	}
	rs[len(rs)-1][1] = childCount
	return rs, nil
}

func (d *decoder) decode() (*spec.Grammar, error) {
	d.g = &spec.Grammar{}
	steps := []func() error{
		d.decodeTokenSymbols,
		d.decodeNonterminals,
		d.decodeGrammar,
		d.decodeGroups,
		d.decodeProductions,
		d.decodeSpecialNames,
		d.decodeStateMachines,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	if err := d.g.Validate(); err != nil {
		if fe, ok := err.(*verr.FormatError); ok && fe.Stream == "" {
			fe.Stream = streamNameTables
		}
		return nil, err
	}
	if d.unknown || d.ts.unknownData {
		d.g.MarkUnknownData()
	}
	return d.g, nil
}

func (d *decoder) decodeGrammar() error {
	t := d.ts.tables[tableGrammar]
	if t == nil || t.rowCount != 1 {
		return tableStreamError(verr.ErrInconsistentGrammar, "the %v table must have exactly one row", tableGrammar)
	}
	name, err := d.str(t, 0, colGrammarName)
	if err != nil {
		return err
	}
	start, err := d.index(t, 0, colGrammarStartSymbol, true)
	if err != nil {
		return err
	}
	flags := uint16(t.cell(0, colGrammarFlags))
	if flags&^grammarFlagUnparsable != 0 {
		d.markUnknown("unknown grammar flags %#04x", flags&^grammarFlagUnparsable)
	}
	d.g.Name = name
	d.g.StartSymbol = spec.NonterminalID(start)
	d.g.Unparsable = flags&grammarFlagUnparsable != 0
	return nil
}

func (d *decoder) decodeTokenSymbols() error {
	t := d.ts.tables[tableTokenSymbol]
	if t == nil {
		return nil
	}
	d.g.TokenSymbols = make([]*spec.TokenSymbol, t.rowCount)
	for row := 0; row < t.rowCount; row++ {
		name, err := d.str(t, row, colTokenSymbolName)
		if err != nil {
			return err
		}
		flags, unknown := spec.TokenSymbolFlags(t.cell(row, colTokenSymbolFlags)).Known()
		if unknown {
			d.markUnknown("%v[%v] has unknown flags", tableTokenSymbol, row+1)
		}
		d.g.TokenSymbols[row] = &spec.TokenSymbol{
			Name:  name,
			Flags: flags,
		}
	}
	return nil
}

func (d *decoder) decodeNonterminals() error {
	t := d.ts.tables[tableNonterminal]
	if t == nil {
		return nil
	}
	d.g.Nonterminals = make([]*spec.Nonterminal, t.rowCount)
	for row := 0; row < t.rowCount; row++ {
		name, err := d.str(t, row, colNonterminalName)
		if err != nil {
			return err
		}
		flags, unknown := spec.NonterminalFlags(t.cell(row, colNonterminalFlags)).Known()
		if unknown {
			d.markUnknown("%v[%v] has unknown flags", tableNonterminal, row+1)
		}
		d.g.Nonterminals[row] = &spec.Nonterminal{
			Name:  name,
			Flags: flags,
		}
	}
	return nil
}

func (d *decoder) decodeGroups() error {
	t := d.ts.tables[tableGroup]
	nestingRuns, err := d.runs(t, colGroupFirstNesting, tableGroupNesting)
	if err != nil {
		return err
	}
	if t == nil {
		return nil
	}

	var nesting []spec.GroupID
	if nt := d.ts.tables[tableGroupNesting]; nt != nil {
		nesting = make([]spec.GroupID, nt.rowCount)
		for row := 0; row < nt.rowCount; row++ {
			gr, err := d.index(nt, row, colGroupNestingGroup, false)
			if err != nil {
				return err
			}
			nesting[row] = spec.GroupID(gr)
		}
	}

	d.g.Groups = make([]*spec.Group, t.rowCount)
	for row := 0; row < t.rowCount; row++ {
		name, err := d.str(t, row, colGroupName)
		if err != nil {
			return err
		}
		container, err := d.index(t, row, colGroupContainer, false)
		if err != nil {
			return err
		}
		start, err := d.index(t, row, colGroupStart, false)
		if err != nil {
			return err
		}
		end, err := d.index(t, row, colGroupEnd, true)
		if err != nil {
			return err
		}
		flags, unknown := spec.GroupFlags(t.cell(row, colGroupFlags)).Known()
		if unknown {
			d.markUnknown("%v[%v] has unknown flags", tableGroup, row+1)
		}
		gr := &spec.Group{
			Name:      name,
			Container: spec.TokenSymbolID(container),
			Start:     spec.TokenSymbolID(start),
			End:       spec.TokenSymbolID(end),
			Flags:     flags,
		}
		if r := nestingRuns[row]; r[1] > r[0] {
			gr.Nesting = append([]spec.GroupID{}, nesting[r[0]:r[1]]...)
		}
		d.g.Groups[row] = gr
	}
	return nil
}

func (d *decoder) decodeProductions() error {
	prodRuns, err := d.runs(d.ts.tables[tableNonterminal], colNonterminalFirstProduction, tableProduction)
	if err != nil {
		return err
	}
	pt := d.ts.tables[tableProduction]
	memberRuns, err := d.runs(pt, colProductionFirstMember, tableProductionMember)
	if err != nil {
		return err
	}
	if pt == nil {
		return nil
	}

	var members []spec.Symbol
	if mt := d.ts.tables[tableProductionMember]; mt != nil {
		members = make([]spec.Symbol, mt.rowCount)
		for row := 0; row < mt.rowCount; row++ {
			members[row], err = d.symbol(mt, row, colProductionMemberMember)
			if err != nil {
				return err
			}
		}
	}

	d.g.Productions = make([]*spec.Production, pt.rowCount)
	for nt, r := range prodRuns {
		for row := r[0]; row < r[1]; row++ {
			p := &spec.Production{
				Head: spec.NonterminalID(nt + 1),
			}
			if mr := memberRuns[row]; mr[1] > mr[0] {
				p.Members = append([]spec.Symbol{}, members[mr[0]:mr[1]]...)
			}
			d.g.Productions[row] = p
		}
	}
	return nil
}

func (d *decoder) decodeSpecialNames() error {
	t := d.ts.tables[tableSpecialName]
	if t == nil {
		return nil
	}
	d.g.SpecialNames = make([]*spec.SpecialName, t.rowCount)
	for row := 0; row < t.rowCount; row++ {
		name, err := d.str(t, row, colSpecialNameName)
		if err != nil {
			return err
		}
		sym, err := d.symbol(t, row, colSpecialNameSymbol)
		if err != nil {
			return err
		}
		d.g.SpecialNames[row] = &spec.SpecialName{
			Name:   name,
			Symbol: sym,
		}
	}
	return nil
}

func (d *decoder) decodeStateMachines() error {
	t := d.ts.tables[tableStateMachine]
	if t == nil {
		return nil
	}
	ctx := &machineContext{
		tokenSymbolCount: d.ts.rowCount(tableTokenSymbol),
		nonterminalCount: d.ts.rowCount(tableNonterminal),
		productionCount:  d.ts.rowCount(tableProduction),
	}
	d.g.StateMachines = make([]spec.StateMachine, 0, t.rowCount)
	for row := 0; row < t.rowCount; row++ {
		kind := spec.StateMachineKind(int64(t.cell(row, colStateMachineKind)))
		data, err := d.blob.at(uint32(t.cell(row, colStateMachineData)))
		if err != nil {
			if fe, ok := err.(*verr.FormatError); ok {
				fe.Table = tableStateMachine.String()
				fe.Row = row + 1
			}
			return err
		}
		m, known, err := decodeStateMachine(kind, data, ctx)
		if err != nil {
			if fe, ok := err.(*verr.FormatError); ok {
				fe.Table = tableStateMachine.String()
				fe.Row = row + 1
			}
			return err
		}
		if !known {
			d.markUnknown("%v[%v] has the unknown kind %v", tableStateMachine, row+1, kind)
		} else {
			d.logger.Log("%v[%v]: %v (%v bytes)", tableStateMachine, row+1, kind, len(data))
		}
		d.g.StateMachines = append(d.g.StateMachines, m)
	}
	return nil
}
