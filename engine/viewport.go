package engine

import (
	"fmt"
	"io"

	"tally/cellref"
)

// ViewportSize is the square window rendered by Render.
const ViewportSize = 10

// Scroll moves the viewport by 10 cells: 'w' up, 's' down, 'a' left,
// 'd' right, clamped so the window never leaves the grid.
func (s *Sheet) Scroll(direction byte) {
	switch direction {
	case 'w':
		if s.viewRow > 10 {
			s.viewRow -= 10
		} else {
			s.viewRow = 0
		}
	case 's':
		if s.viewRow+ViewportSize < s.rows {
			if s.viewRow+10+ViewportSize <= s.rows {
				s.viewRow += 10
			} else {
				s.viewRow = s.rows - ViewportSize
			}
		}
	case 'a':
		if s.viewCol > 10 {
			s.viewCol -= 10
		} else {
			s.viewCol = 0
		}
	case 'd':
		if s.viewCol+ViewportSize < s.cols {
			if s.viewCol+10+ViewportSize <= s.cols {
				s.viewCol += 10
			} else {
				s.viewCol = s.cols - ViewportSize
			}
		}
	}
}

// ScrollTo anchors the viewport at the given cell.
func (s *Sheet) ScrollTo(ref cellref.Ref) Status {
	if !s.refInBounds(ref) {
		return StatusInvalidCell
	}
	s.viewRow, s.viewCol = ref.Row, ref.Col
	return StatusOK
}

// Viewport returns the window's top-left 0-based coordinate.
func (s *Sheet) Viewport() (row, col int) {
	return s.viewRow, s.viewCol
}

// SetOutput toggles rendering; Render is a no-op while disabled.
func (s *Sheet) SetOutput(enabled bool) { s.outputEnabled = enabled }

// OutputEnabled reports whether rendering is on.
func (s *Sheet) OutputEnabled() bool { return s.outputEnabled }

// Render writes the current viewport: a column-name header, then one
// line per row with a 4-wide row label and 8-wide left-justified cell
// fields, ERR for errored cells.
func (s *Sheet) Render(w io.Writer) {
	if !s.outputEnabled {
		return
	}
	displayRows := min(ViewportSize, s.rows-s.viewRow)
	displayCols := min(ViewportSize, s.cols-s.viewCol)

	fmt.Fprint(w, "    ")
	for j := s.viewCol; j < s.viewCol+displayCols; j++ {
		fmt.Fprintf(w, "%-8s", cellref.ColumnName(j))
	}
	fmt.Fprintln(w)
	for i := s.viewRow; i < s.viewRow+displayRows; i++ {
		fmt.Fprintf(w, "%-4d", i+1)
		for j := s.viewCol; j < s.viewCol+displayCols; j++ {
			fmt.Fprintf(w, "%-8s", s.Display(i, j))
		}
		fmt.Fprintln(w)
	}
}
