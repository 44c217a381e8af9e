package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/cellref"
)

func ref(row, col int) cellref.Ref {
	return cellref.Ref{Row: row, Col: col}
}

func classify(t *testing.T, expr string) Expr {
	t.Helper()
	e, err := Classify(expr)
	require.NoError(t, err, "expr %q", expr)
	return e
}

func TestClassifyLiteral(t *testing.T) {
	assert.Equal(t, Expr{Kind: KindLiteral, Lit: 42}, classify(t, "42"))
	assert.Equal(t, Expr{Kind: KindLiteral, Lit: -7}, classify(t, "-7"))
	assert.Equal(t, Expr{Kind: KindLiteral, Lit: 0}, classify(t, "0"))
}

func TestClassifyRef(t *testing.T) {
	e := classify(t, "B3")
	assert.Equal(t, KindRef, e.Kind)
	assert.Equal(t, ref(2, 1), e.Ref)
}

func TestClassifyBinary(t *testing.T) {
	tests := []struct {
		expr     string
		operator byte
		left     Operand
		right    Operand
	}{
		{"A1+B1", '+', Operand{Cell: true, Ref: ref(0, 0)}, Operand{Cell: true, Ref: ref(0, 1)}},
		{"A1-1", '-', Operand{Cell: true, Ref: ref(0, 0)}, Operand{Lit: 1}},
		{"3*C2", '*', Operand{Lit: 3}, Operand{Cell: true, Ref: ref(1, 2)}},
		{"10/2", '/', Operand{Lit: 10}, Operand{Lit: 2}},
		// Leading minus is the left operand's sign, not an operator.
		{"-5+A1", '+', Operand{Lit: -5}, Operand{Cell: true, Ref: ref(0, 0)}},
		{"-5--3", '-', Operand{Lit: -5}, Operand{Lit: -3}},
	}
	for _, tt := range tests {
		e := classify(t, tt.expr)
		require.Equal(t, KindBinary, e.Kind, tt.expr)
		assert.Equal(t, tt.operator, e.Operator, tt.expr)
		assert.Equal(t, tt.left, e.Left, tt.expr)
		assert.Equal(t, tt.right, e.Right, tt.expr)
	}
}

func TestClassifyRange(t *testing.T) {
	tests := []struct {
		expr string
		agg  Opcode
	}{
		{"SUM(A1:B2)", OpSum},
		{"AVG(A1:A4)", OpAvg},
		{"MIN(C1:D9)", OpMin},
		{"MAX(A1:A1)", OpMax},
		{"STDEV(B2:C3)", OpStdev},
	}
	for _, tt := range tests {
		e := classify(t, tt.expr)
		require.Equal(t, KindRange, e.Kind, tt.expr)
		assert.Equal(t, tt.agg, e.Agg, tt.expr)
	}

	e := classify(t, "SUM(A1:B2)")
	assert.Equal(t, cellref.Range{Start: ref(0, 0), End: ref(1, 1)}, e.Rng)
}

func TestClassifySleep(t *testing.T) {
	e := classify(t, "SLEEP(5)")
	assert.Equal(t, Expr{Kind: KindSleepLit, Lit: 5}, e)

	e = classify(t, "SLEEP(-3)")
	assert.Equal(t, Expr{Kind: KindSleepLit, Lit: -3}, e)

	e = classify(t, "SLEEP(B2)")
	assert.Equal(t, KindSleepRef, e.Kind)
	assert.Equal(t, ref(1, 1), e.Ref)
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"", ErrUnrecognized},
		{"hello!", ErrUnrecognized},
		{"A1 + B1", cellref.ErrInvalidCell}, // spaces poison the operand refs
		{"-A1", ErrUnrecognized},            // sign only applies to literals
		{"A1+", ErrUnrecognized},
		{"SLEEP()", ErrUnrecognized},
		{"SLEEP(1", ErrUnrecognized},
		{"SUM(A1:B2", ErrUnrecognized},
		{"SUM A1:B2)", ErrUnrecognized},
		{"abc", cellref.ErrInvalidCell},
		{"A1B+1", cellref.ErrInvalidCell},
		{"SLEEP(XYZ)", cellref.ErrInvalidCell},
		{"SUM(A1)", cellref.ErrInvalidRange},
		{"MAX(B1:A1)", cellref.ErrInvalidRange},
	}
	for _, tt := range tests {
		_, err := Classify(tt.expr)
		assert.ErrorIs(t, err, tt.want, "expr %q", tt.expr)
	}
}

func TestParents(t *testing.T) {
	collect := func(e Expr) []cellref.Ref {
		var out []cellref.Ref
		e.Parents(func(r cellref.Ref) { out = append(out, r) })
		return out
	}

	assert.Empty(t, collect(classify(t, "7")))
	assert.Equal(t, []cellref.Ref{ref(0, 0)}, collect(classify(t, "A1")))
	assert.Equal(t, []cellref.Ref{ref(0, 0), ref(1, 0)}, collect(classify(t, "A1+A2")))
	assert.Equal(t, []cellref.Ref{ref(0, 1)}, collect(classify(t, "3*B1")))
	assert.Len(t, collect(classify(t, "SUM(A1:B2)")), 4)
	assert.Equal(t, []cellref.Ref{ref(2, 0)}, collect(classify(t, "SLEEP(A3)")))
}

func TestOpcodeTable(t *testing.T) {
	assert.Equal(t, Opcode(10), BinaryOpcode('+', true, true))
	assert.Equal(t, Opcode(22), BinaryOpcode('-', true, false))
	assert.Equal(t, Opcode(33), BinaryOpcode('/', false, true))
	assert.Equal(t, Opcode(40), BinaryOpcode('*', true, true))

	assert.True(t, OpSum.IsRange())
	assert.True(t, OpStdev.IsRange())
	assert.False(t, OpRef.IsRange())

	assert.True(t, OpAddCC.IsBinary())
	assert.True(t, OpMulLC.IsBinary())
	assert.False(t, OpRef.IsBinary())
	assert.False(t, OpLiteral.IsBinary())

	assert.Equal(t, byte('+'), OpAddCL.BinaryOperator())
	assert.Equal(t, byte('/'), OpDivCC.BinaryOperator())
	assert.True(t, OpAddCL.LeftIsCell())
	assert.False(t, OpAddCL.RightIsCell())
	assert.False(t, OpAddLC.LeftIsCell())
	assert.True(t, OpAddLC.RightIsCell())
}
