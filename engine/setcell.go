package engine

import (
	"errors"

	"tally/cellref"
	"tally/formula"
)

// SetCell assigns an expression to the cell at the 0-based (row, col)
// and propagates the change. The returned status distinguishes
// rejections (sheet untouched) from evaluation-time errors (assignment
// committed, cell errored); Effects carries requested sleep seconds
// and the keys of every re-evaluated dependent.
func (s *Sheet) SetCell(row, col int, expr string) (Status, Effects) {
	var fx Effects
	if !s.InBounds(row, col) {
		return StatusInvalidCell, fx
	}

	parsed, err := formula.Classify(expr)
	if err != nil {
		return classifyStatus(err), fx
	}
	if st := s.checkBounds(parsed); st != StatusOK {
		return st, fx
	}

	// The opcode table has no literal-literal binop variant: fold it
	// to a literal now. Division by a literal zero still errors the
	// cell after commit.
	foldStatus := StatusOK
	if parsed.Kind == formula.KindBinary && !parsed.Left.Cell && !parsed.Right.Cell {
		v, st := applyOperator(parsed.Operator, parsed.Left.Lit, parsed.Right.Lit)
		parsed = formula.Expr{Kind: formula.KindLiteral, Lit: v}
		foldStatus = st
	}

	key := s.key(row, col)
	if s.wouldCycle(key, parsed) {
		return StatusCircularRef, fx
	}

	// Commit: swap the dependency edges, then write the new record.
	s.detachFromParents(key)
	c := s.cell(key)
	c.Op, c.Op1, c.Op2 = s.pack(parsed)
	s.attachToParents(key)

	status := s.evaluate(c, &fx)
	if foldStatus != StatusOK {
		c.Error = true
		status = foldStatus
	}
	s.recomputeDescendants(key, &fx)
	return status, fx
}

// SetCellRef is SetCell addressed by an A1-style reference.
func (s *Sheet) SetCellRef(ref cellref.Ref, expr string) (Status, Effects) {
	return s.SetCell(ref.Row, ref.Col, expr)
}

func classifyStatus(err error) Status {
	switch {
	case errors.Is(err, cellref.ErrInvalidCell):
		return StatusInvalidCell
	case errors.Is(err, cellref.ErrInvalidRange):
		return StatusInvalidRange
	}
	return StatusUnrecognized
}

// checkBounds validates every reference the expression reads against
// the grid dimensions.
func (s *Sheet) checkBounds(expr formula.Expr) Status {
	switch expr.Kind {
	case formula.KindRef, formula.KindSleepRef:
		if !s.refInBounds(expr.Ref) {
			return StatusInvalidCell
		}
	case formula.KindBinary:
		if expr.Left.Cell && !s.refInBounds(expr.Left.Ref) {
			return StatusInvalidCell
		}
		if expr.Right.Cell && !s.refInBounds(expr.Right.Ref) {
			return StatusInvalidCell
		}
	case formula.KindRange:
		if !s.refInBounds(expr.Rng.Start) || !s.refInBounds(expr.Rng.End) {
			return StatusInvalidCell
		}
	}
	return StatusOK
}

// pack serializes a classified expression into the two-slot record.
// Literal-literal binops have been folded away before this point.
func (s *Sheet) pack(expr formula.Expr) (formula.Opcode, int32, int32) {
	switch expr.Kind {
	case formula.KindLiteral:
		return formula.OpLiteral, expr.Lit, 0
	case formula.KindRef:
		return formula.OpRef, s.refKey(expr.Ref), 0
	case formula.KindSleepLit:
		return formula.OpSleepLit, expr.Lit, 0
	case formula.KindSleepRef:
		return formula.OpSleepRef, s.refKey(expr.Ref), 0
	case formula.KindBinary:
		op := formula.BinaryOpcode(expr.Operator, expr.Left.Cell, expr.Right.Cell)
		op1, op2 := expr.Left.Lit, expr.Right.Lit
		if expr.Left.Cell {
			op1 = s.refKey(expr.Left.Ref)
		}
		if expr.Right.Cell {
			op2 = s.refKey(expr.Right.Ref)
		}
		return op, op1, op2
	case formula.KindRange:
		return expr.Agg, s.refKey(expr.Rng.Start), s.refKey(expr.Rng.End)
	}
	return formula.OpLiteral, 0, 0
}
