// Package cellref converts between A1-style cell references and grid
// coordinates. Columns are base-26 with 1-based letter digits (A=1,
// Z=26, AA=27), at most three letters; rows are 1-based decimals.
// Coordinates returned by this package are 0-based.
package cellref

import (
	"errors"
	"strconv"
)

// Grid limits. A column name of three letters tops out at ZZZ = 18278.
const (
	MaxRows = 999
	MaxCols = 18278

	maxColLetters = 3
)

// Sentinel errors for reference parsing.
var (
	// ErrInvalidCell indicates a malformed cell reference.
	ErrInvalidCell = errors.New("cellref: invalid cell reference")

	// ErrInvalidRange indicates a malformed or inverted range.
	ErrInvalidRange = errors.New("cellref: invalid range")
)

// Ref is a 0-based (row, column) grid coordinate.
type Ref struct {
	Row int
	Col int
}

// Parse decodes an A1-style reference: a run of 1-3 uppercase letters
// followed by a 1-based decimal row, with nothing left over. It does
// not check grid bounds; callers compare against their own dimensions.
func Parse(s string) (Ref, error) {
	i := 0
	col := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		if i >= maxColLetters {
			return Ref{}, ErrInvalidCell
		}
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(s) {
		return Ref{}, ErrInvalidCell
	}
	row := 0
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Ref{}, ErrInvalidCell
		}
		row = row*10 + int(s[i]-'0')
		if row > MaxRows {
			row = MaxRows + 1 // saturate; long digit runs must not overflow
		}
	}
	if row == 0 {
		return Ref{}, ErrInvalidCell
	}
	return Ref{Row: row - 1, Col: col - 1}, nil
}

// String formats the reference back to A1 form.
func (r Ref) String() string {
	return ColumnName(r.Col) + strconv.Itoa(r.Row+1)
}

// ColumnName converts a 0-based column index to its letter name:
// 0->A, 25->Z, 26->AA, 702->AAA.
func ColumnName(col int) string {
	n := col + 1
	buf := make([]byte, 0, maxColLetters)
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// Range is a rectangle of cells from Start to End, inclusive.
type Range struct {
	Start Ref
	End   Ref
}

// ParseRange decodes "<ref>:<ref>". A missing or empty side yields
// ErrInvalidRange, an unparsable endpoint ErrInvalidCell, and an
// inverted rectangle (start past end on either axis) ErrInvalidRange.
func ParseRange(s string) (Range, error) {
	colon := -1
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			colon = i
			break
		}
	}
	if colon <= 0 || colon == len(s)-1 {
		return Range{}, ErrInvalidRange
	}
	start, err := Parse(s[:colon])
	if err != nil {
		return Range{}, err
	}
	end, err := Parse(s[colon+1:])
	if err != nil {
		return Range{}, err
	}
	if start.Row > end.Row || start.Col > end.Col {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: start, End: end}, nil
}

// Contains reports whether r lies inside the rectangle.
func (rg Range) Contains(r Ref) bool {
	return r.Row >= rg.Start.Row && r.Row <= rg.End.Row &&
		r.Col >= rg.Start.Col && r.Col <= rg.End.Col
}

// Area is the number of cells in the rectangle.
func (rg Range) Area() int {
	return (rg.End.Row - rg.Start.Row + 1) * (rg.End.Col - rg.Start.Col + 1)
}
