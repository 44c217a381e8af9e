// Package engine implements the spreadsheet core: a fixed grid of
// integer cells with packed formula records, a dependents graph kept
// in per-cell ordered key sets, pre-commit cycle detection and
// incremental topological recomputation of affected cells.
package engine

import (
	"fmt"
	"strconv"

	"tally/cellref"
	"tally/formula"
	"tally/keyset"
)

// Cell is one packed grid record. Op1 and Op2 hold a cell key, a
// literal or range corners depending on Op; dependents lists the keys
// of cells that read this one.
type Cell struct {
	Value int32
	Error bool
	Op    formula.Opcode
	Op1   int32
	Op2   int32

	dependents keyset.Set
}

// Sheet is a fixed-size spreadsheet. All cells exist from construction
// as zero-valued literals and are reassigned in place. A Sheet is not
// safe for concurrent use; callers serialize commands.
type Sheet struct {
	rows, cols int
	cells      []Cell

	viewRow, viewCol int
	outputEnabled    bool
}

// New allocates a sheet. Dimensions must satisfy 1 <= rows <= 999 and
// 1 <= cols <= 18278.
func New(rows, cols int) (*Sheet, error) {
	if rows < 1 || rows > cellref.MaxRows || cols < 1 || cols > cellref.MaxCols {
		return nil, fmt.Errorf("engine: invalid dimensions %dx%d", rows, cols)
	}
	s := &Sheet{
		rows:          rows,
		cols:          cols,
		cells:         make([]Cell, rows*cols),
		outputEnabled: true,
	}
	for i := range s.cells {
		s.cells[i].Op = formula.OpLiteral
	}
	return s, nil
}

// Rows returns the grid height.
func (s *Sheet) Rows() int { return s.rows }

// Cols returns the grid width.
func (s *Sheet) Cols() int { return s.cols }

// key encodes a 0-based coordinate as a dense cell key.
func (s *Sheet) key(row, col int) int32 {
	return int32(row*s.cols + col)
}

func (s *Sheet) refKey(r cellref.Ref) int32 {
	return s.key(r.Row, r.Col)
}

func (s *Sheet) keyRef(k int32) cellref.Ref {
	return cellref.Ref{Row: int(k) / s.cols, Col: int(k) % s.cols}
}

func (s *Sheet) cell(k int32) *Cell {
	return &s.cells[k]
}

// InBounds reports whether the 0-based coordinate lies on the grid.
func (s *Sheet) InBounds(row, col int) bool {
	return row >= 0 && row < s.rows && col >= 0 && col < s.cols
}

func (s *Sheet) refInBounds(r cellref.Ref) bool {
	return s.InBounds(r.Row, r.Col)
}

// Get returns a cell's current value and error flag. The value is
// unspecified while the error flag is set.
func (s *Sheet) Get(row, col int) (value int32, errored bool, err error) {
	if !s.InBounds(row, col) {
		return 0, false, cellref.ErrInvalidCell
	}
	c := s.cell(s.key(row, col))
	return c.Value, c.Error, nil
}

// Display renders a cell for output: "ERR" when errored, the decimal
// value otherwise. Out-of-grid coordinates render as the empty string.
func (s *Sheet) Display(row, col int) string {
	if !s.InBounds(row, col) {
		return ""
	}
	c := s.cell(s.key(row, col))
	if c.Error {
		return "ERR"
	}
	return strconv.FormatInt(int64(c.Value), 10)
}
