// Package formula classifies spreadsheet expression strings. The
// grammar is deliberately small: an integer literal, a single cell
// reference, one binary arithmetic operation, a range aggregate
// (SUM, AVG, MIN, MAX, STDEV) or a SLEEP call. There is no operator
// precedence and no parentheses in arithmetic; a leading minus belongs
// to the left operand.
package formula

import (
	"errors"
	"strconv"
	"strings"

	"tally/cellref"
)

// ErrUnrecognized indicates an expression matching none of the
// grammar's shapes. Reference and range failures surface as the
// cellref sentinels so callers can distinguish the three.
var ErrUnrecognized = errors.New("formula: unrecognized expression")

// Kind discriminates the Expr variant.
type Kind uint8

const (
	KindLiteral Kind = iota
	KindRef
	KindBinary
	KindRange
	KindSleepLit
	KindSleepRef
)

// Operand is one side of a binary operation: a cell or a literal.
type Operand struct {
	Cell bool
	Ref  cellref.Ref
	Lit  int32
}

// Expr is a classified expression. Only the fields of the active Kind
// are meaningful.
type Expr struct {
	Kind Kind

	Lit int32       // KindLiteral, KindSleepLit
	Ref cellref.Ref // KindRef, KindSleepRef

	Operator byte // KindBinary: '+', '-', '*', '/'
	Left     Operand
	Right    Operand

	Agg Opcode        // KindRange: OpSum..OpStdev
	Rng cellref.Range // KindRange
}

var rangeFuncs = []struct {
	prefix string
	agg    Opcode
}{
	{"SUM(", OpSum},
	{"AVG(", OpAvg},
	{"MIN(", OpMin},
	{"MAX(", OpMax},
	{"STDEV(", OpStdev},
}

// Classify parses an expression string into its variant. Errors are
// ErrUnrecognized, cellref.ErrInvalidCell or cellref.ErrInvalidRange;
// grid bounds are not checked here.
func Classify(expr string) (Expr, error) {
	if expr == "" {
		return Expr{}, ErrUnrecognized
	}

	for _, fn := range rangeFuncs {
		if strings.HasPrefix(expr, fn.prefix) {
			return classifyRange(expr, fn.prefix, fn.agg)
		}
	}
	if strings.HasPrefix(expr, "SLEEP(") {
		return classifySleep(expr)
	}

	if n, ok := parseInt(expr); ok {
		return Expr{Kind: KindLiteral, Lit: n}, nil
	}

	if allAlnum(expr) {
		ref, err := cellref.Parse(expr)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: KindRef, Ref: ref}, nil
	}

	return classifyBinary(expr)
}

func classifyRange(expr, prefix string, agg Opcode) (Expr, error) {
	if expr[len(expr)-1] != ')' {
		return Expr{}, ErrUnrecognized
	}
	rng, err := cellref.ParseRange(expr[len(prefix) : len(expr)-1])
	if err != nil {
		return Expr{}, err
	}
	return Expr{Kind: KindRange, Agg: agg, Rng: rng}, nil
}

func classifySleep(expr string) (Expr, error) {
	if len(expr) < len("SLEEP(x)") || expr[len(expr)-1] != ')' {
		return Expr{}, ErrUnrecognized
	}
	arg := expr[len("SLEEP(") : len(expr)-1]
	if arg[0] >= 'A' && arg[0] <= 'Z' {
		ref, err := cellref.Parse(arg)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Kind: KindSleepRef, Ref: ref}, nil
	}
	n, ok := parseInt(arg)
	if !ok {
		return Expr{}, ErrUnrecognized
	}
	return Expr{Kind: KindSleepLit, Lit: n}, nil
}

func classifyBinary(expr string) (Expr, error) {
	// Operator search starts at index 1: a minus at index 0 is the
	// left operand's sign.
	opIndex := -1
	for i := 1; i < len(expr) && opIndex < 0; i++ {
		switch expr[i] {
		case '+', '-', '*', '/':
			opIndex = i
		}
	}
	if opIndex < 0 {
		return Expr{}, ErrUnrecognized
	}

	left, err := classifyOperand(expr[:opIndex])
	if err != nil {
		return Expr{}, err
	}
	right, err := classifyOperand(expr[opIndex+1:])
	if err != nil {
		return Expr{}, err
	}
	return Expr{
		Kind:     KindBinary,
		Operator: expr[opIndex],
		Left:     left,
		Right:    right,
	}, nil
}

func classifyOperand(s string) (Operand, error) {
	if s == "" {
		return Operand{}, ErrUnrecognized
	}
	if n, ok := parseInt(s); ok {
		return Operand{Lit: n}, nil
	}
	ref, err := cellref.Parse(s)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Cell: true, Ref: ref}, nil
}

// Parents calls fn for every cell the expression reads. Range parents
// enumerate the full rectangle.
func (e Expr) Parents(fn func(cellref.Ref)) {
	switch e.Kind {
	case KindRef, KindSleepRef:
		fn(e.Ref)
	case KindBinary:
		if e.Left.Cell {
			fn(e.Left.Ref)
		}
		if e.Right.Cell {
			fn(e.Right.Ref)
		}
	case KindRange:
		for r := e.Rng.Start.Row; r <= e.Rng.End.Row; r++ {
			for c := e.Rng.Start.Col; c <= e.Rng.End.Col; c++ {
				fn(cellref.Ref{Row: r, Col: c})
			}
		}
	}
}

func parseInt(s string) (int32, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func allAlnum(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' {
			continue
		}
		return false
	}
	return true
}
