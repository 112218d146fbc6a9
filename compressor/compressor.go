// Package compressor shrinks the dense two-dimensional tables the driver builds from a grammar.
//
// Parse tables are mostly empty and many rows repeat, so three representations are offered: PlainTable stores
// every entry, UniqueRowTable stores each distinct row once, and RowDisplacementTable overlays the non-empty
// entries of all rows in one array.
package compressor

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Table is a dense table stored row by row.
type Table struct {
	entries  []int
	rowCount int
	colCount int
}

func NewTable(entries []int, colCount int) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("a table needs at least one entry")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("a table needs at least one column; got: %v", colCount)
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("%v entries don't form rows of %v columns", len(entries), colCount)
	}

	return &Table{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

func (t *Table) row(r int) []int {
	return t.entries[r*t.colCount : (r+1)*t.colCount]
}

type Compressor interface {
	Compress(orig *Table) error
	Lookup(row, col int) (int, error)
	OriginalTableSize() (int, int)

	// Footprint returns the number of integers the compressed form holds.
	Footprint() int
}

var (
	_ Compressor = &PlainTable{}
	_ Compressor = &UniqueRowTable{}
	_ Compressor = &RowDisplacementTable{}
)

func outOfRange(row, col, rowCount, colCount int) error {
	return fmt.Errorf("[%v, %v] is outside a %vx%v table", row, col, rowCount, colCount)
}

// PlainTable keeps the table as it is.
type PlainTable struct {
	Entries          []int
	OriginalRowCount int
	OriginalColCount int
}

func NewPlainTable() *PlainTable {
	return &PlainTable{}
}

func (tab *PlainTable) Compress(orig *Table) error {
	tab.Entries = append([]int{}, orig.entries...)
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	return nil
}

func (tab *PlainTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return 0, outOfRange(row, col, tab.OriginalRowCount, tab.OriginalColCount)
	}
	return tab.Entries[row*tab.OriginalColCount+col], nil
}

func (tab *PlainTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

func (tab *PlainTable) Footprint() int {
	return len(tab.Entries)
}

// UniqueRowTable stores every distinct row once. RowNums maps an original row to its distinct row.
type UniqueRowTable struct {
	UniqueEntries    []int
	RowNums          []int
	OriginalRowCount int
	OriginalColCount int
}

func NewUniqueRowTable() *UniqueRowTable {
	return &UniqueRowTable{}
}

func (tab *UniqueRowTable) Compress(orig *Table) error {
	var unique []int
	rowNums := make([]int, orig.rowCount)
	seen := map[string]int{}
	key := make([]byte, 0, orig.colCount*binary.MaxVarintLen64)
	for r := 0; r < orig.rowCount; r++ {
		row := orig.row(r)
		key = key[:0]
		for _, v := range row {
			key = binary.AppendVarint(key, int64(v))
		}
		n, ok := seen[string(key)]
		if !ok {
			n = len(seen)
			seen[string(key)] = n
			unique = append(unique, row...)
		}
		rowNums[r] = n
	}

	tab.UniqueEntries = unique
	tab.RowNums = rowNums
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount

	return nil
}

func (tab *UniqueRowTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return 0, outOfRange(row, col, tab.OriginalRowCount, tab.OriginalColCount)
	}
	return tab.UniqueEntries[tab.RowNums[row]*tab.OriginalColCount+col], nil
}

func (tab *UniqueRowTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

func (tab *UniqueRowTable) Footprint() int {
	return len(tab.UniqueEntries) + len(tab.RowNums)
}

// noOwner marks a slot of a RowDisplacementTable that no row occupies.
const noOwner = -1

// RowDisplacementTable places the non-empty entries of each row at Displacement[row] + col of one shared array.
// Owners records which row a slot belongs to, so a lookup that lands on another row's entry yields EmptyValue.
type RowDisplacementTable struct {
	OriginalRowCount int
	OriginalColCount int
	EmptyValue       int
	Entries          []int
	Owners           []int
	Displacement     []int
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
	}
}

func (tab *RowDisplacementTable) Compress(orig *Table) error {
	type rowCols struct {
		row  int
		cols []int
	}
	rows := make([]rowCols, orig.rowCount)
	for r := range rows {
		rows[r].row = r
		for c, v := range orig.row(r) {
			if v != tab.EmptyValue {
				rows[r].cols = append(rows[r].cols, c)
			}
		}
	}
	// Placing dense rows first leaves the gaps for the sparse ones.
	sort.SliceStable(rows, func(i, j int) bool {
		return len(rows[i].cols) > len(rows[j].cols)
	})

	var entries, owners []int
	disp := make([]int, orig.rowCount)
	size := orig.colCount
	grow := func(n int) {
		for len(entries) < n {
			entries = append(entries, tab.EmptyValue)
			owners = append(owners, noOwner)
		}
	}
	grow(size)
	for _, rc := range rows {
		if len(rc.cols) == 0 {
			continue
		}
		d := 0
		for ; ; d++ {
			grow(d + orig.colCount)
			fit := true
			for _, c := range rc.cols {
				if owners[d+c] != noOwner {
					fit = false
					break
				}
			}
			if fit {
				break
			}
		}
		disp[rc.row] = d
		for _, c := range rc.cols {
			entries[d+c] = orig.entries[rc.row*orig.colCount+c]
			owners[d+c] = rc.row
		}
		if d+orig.colCount > size {
			size = d + orig.colCount
		}
	}

	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	tab.Entries = entries[:size]
	tab.Owners = owners[:size]
	tab.Displacement = disp

	return nil
}

func (tab *RowDisplacementTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, outOfRange(row, col, tab.OriginalRowCount, tab.OriginalColCount)
	}
	i := tab.Displacement[row] + col
	if tab.Owners[i] != row {
		return tab.EmptyValue, nil
	}
	return tab.Entries[i], nil
}

func (tab *RowDisplacementTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

func (tab *RowDisplacementTable) Footprint() int {
	return len(tab.Entries) + len(tab.Owners) + len(tab.Displacement)
}

// Level selects a representation: 0 plain, 1 unique rows, 2 row displacement.
type Level int

const (
	LevelNone Level = iota
	LevelUniqueRows
	LevelRowDisplacement

	LevelMin = LevelNone
	LevelMax = LevelRowDisplacement
)

// New returns an empty compressor of a level. emptyValue matters only for row displacement.
func New(level Level, emptyValue int) (Compressor, error) {
	switch level {
	case LevelNone:
		return NewPlainTable(), nil
	case LevelUniqueRows:
		return NewUniqueRowTable(), nil
	case LevelRowDisplacement:
		return NewRowDisplacementTable(emptyValue), nil
	}
	return nil, fmt.Errorf("compression level must be %v..%v; got: %v", LevelMin, LevelMax, level)
}

// Compress builds a compressed form of a dense table.
func Compress(entries []int, colCount int, level Level, emptyValue int) (Compressor, error) {
	orig, err := NewTable(entries, colCount)
	if err != nil {
		return nil, err
	}
	c, err := New(level, emptyValue)
	if err != nil {
		return nil, err
	}
	if err := c.Compress(orig); err != nil {
		return nil, err
	}
	return c, nil
}
