package format

import (
	"fmt"
	"math/bits"

	spec "github.com/nihei9/farkle/spec/grammar"
)

type tableID int

// Bit indices of the TablesPresent mask. The order is also the order tables are stored in.
const (
	tableGrammar tableID = iota
	tableTokenSymbol
	tableGroup
	tableGroupNesting
	tableNonterminal
	tableProduction
	tableProductionMember
	tableStateMachine
	tableSpecialName

	knownTableCount = iota
)

// tableWithheld must never be set; bits 9-58 and 60-63 are reserved for future tables.
const tableWithheld = 59

var tableNames = [knownTableCount]string{
	spec.TableNameGrammar,
	spec.TableNameTokenSymbol,
	spec.TableNameGroup,
	spec.TableNameGroupNesting,
	spec.TableNameNonterminal,
	spec.TableNameProduction,
	spec.TableNameProductionMember,
	spec.TableNameStateMachine,
	spec.TableNameSpecialName,
}

func (t tableID) String() string {
	if t >= 0 && t < knownTableCount {
		return tableNames[t]
	}
	return fmt.Sprintf("table#%d", int(t))
}

type columnKind int

const (
	columnU16 columnKind = iota
	columnU32
	columnU64
	columnString
	columnBlob
	// columnIndex holds a 1-based row number of columnDef.target, 0 meaning nil.
	columnIndex
	// columnSymbol is a coded index into TokenSymbol (tag 0) or Nonterminal (tag 1).
	columnSymbol
)

const symbolTagBits = 1

const (
	symbolTagTokenSymbol = 0
	symbolTagNonterminal = 1
)

type columnDef struct {
	kind   columnKind
	target tableID
}

func u16Column() columnDef { return columnDef{kind: columnU16} }
func u32Column() columnDef { return columnDef{kind: columnU32} }
func u64Column() columnDef { return columnDef{kind: columnU64} }
func stringColumn() columnDef { return columnDef{kind: columnString} }
func blobColumn() columnDef { return columnDef{kind: columnBlob} }
func indexColumn(t tableID) columnDef { return columnDef{kind: columnIndex, target: t} }
func symbolColumn() columnDef { return columnDef{kind: columnSymbol} }

// Column positions within each table.
const (
	colGrammarName = iota
	colGrammarStartSymbol
	colGrammarFlags
)

const (
	colTokenSymbolName = iota
	colTokenSymbolFlags
)

const (
	colGroupName = iota
	colGroupContainer
	colGroupFlags
	colGroupStart
	colGroupEnd
	colGroupFirstNesting
)

const (
	colGroupNestingGroup = iota
)

const (
	colNonterminalName = iota
	colNonterminalFlags
	colNonterminalFirstProduction
)

const (
	colProductionFirstMember = iota
)

const (
	colProductionMemberMember = iota
)

const (
	colStateMachineKind = iota
	colStateMachineData
)

const (
	colSpecialNameName = iota
	colSpecialNameSymbol
)

var tableSchemas = [knownTableCount][]columnDef{
	tableGrammar: {
		stringColumn(),
		indexColumn(tableNonterminal),
		u16Column(),
	},
	tableTokenSymbol: {
		stringColumn(),
		u32Column(),
	},
	tableGroup: {
		stringColumn(),
		indexColumn(tableTokenSymbol),
		u16Column(),
		indexColumn(tableTokenSymbol),
		indexColumn(tableTokenSymbol),
		indexColumn(tableGroupNesting),
	},
	tableGroupNesting: {
		indexColumn(tableGroup),
	},
	tableNonterminal: {
		stringColumn(),
		u16Column(),
		indexColumn(tableProduction),
	},
	tableProduction: {
		indexColumn(tableProductionMember),
	},
	tableProductionMember: {
		symbolColumn(),
	},
	tableStateMachine: {
		u64Column(),
		blobColumn(),
	},
	tableSpecialName: {
		stringColumn(),
		symbolColumn(),
	},
}

const grammarFlagUnparsable = uint16(1)

// heapSizes flags of the table stream header.
const (
	heapSizeWideStrings = uint8(1 << 0)
	heapSizeWideBlob    = uint8(1 << 1)
	heapSizeKnown       = heapSizeWideStrings | heapSizeWideBlob
)

// layout fixes the byte width of every column. It depends only on row counts and heap sizes, so a reader can
// derive it from the table stream header alone.
type layout struct {
	rowCounts        [knownTableCount]int
	stringIndexWidth int
	blobIndexWidth   int
}

func (l *layout) columnWidth(c columnDef) int {
	switch c.kind {
	case columnU16:
		return 2
	case columnU32:
		return 4
	case columnU64:
		return 8
	case columnString:
		return l.stringIndexWidth
	case columnBlob:
		return l.blobIndexWidth
	case columnIndex:
		return TableIndexWidth(l.rowCounts[c.target])
	case columnSymbol:
		return CodedIndexWidth(symbolTagBits, max(l.rowCounts[tableTokenSymbol], l.rowCounts[tableNonterminal]))
	}
	panic(fmt.Sprintf("unknown column kind %v", c.kind))
}

func (l *layout) rowSize(t tableID) int {
	size := 0
	for _, c := range tableSchemas[t] {
		size += l.columnWidth(c)
	}
	return size
}

// table is a view over the rows of one table as stored in the table stream.
type table struct {
	id       tableID
	rowCount int
	rowSize  int
	data     []byte
	offsets  []int
	widths   []int
}

func newTable(id tableID, rowCount, rowSize int, data []byte, l *layout) *table {
	schema := tableSchemas[id]
	t := &table{
		id:       id,
		rowCount: rowCount,
		rowSize:  rowSize,
		data:     data,
		offsets:  make([]int, len(schema)),
		widths:   make([]int, len(schema)),
	}
	off := 0
	for i, c := range schema {
		t.offsets[i] = off
		t.widths[i] = l.columnWidth(c)
		off += t.widths[i]
	}
	return t
}

// cell returns a column of a 0-based row.
func (t *table) cell(row, col int) uint64 {
	b := t.data[row*t.rowSize+t.offsets[col]:]
	var v uint64
	for i := t.widths[col] - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func presentTables(mask uint64) []int {
	var ts []int
	for mask != 0 {
		t := bits.TrailingZeros64(mask)
		ts = append(ts, t)
		mask &^= 1 << t
	}
	return ts
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
