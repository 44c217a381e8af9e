package engine

import "tally/formula"

// eachParent calls fn with the key of every cell the record reads,
// derived from the packed opcode and operand slots. A binary op that
// reads the same cell on both sides yields that key twice; callers
// needing set semantics dedupe themselves.
func (s *Sheet) eachParent(c *Cell, fn func(parent int32)) {
	switch {
	case c.Op == formula.OpRef || c.Op == formula.OpSleepRef:
		fn(c.Op1)
	case c.Op.IsBinary():
		if c.Op.LeftIsCell() {
			fn(c.Op1)
		}
		if c.Op.RightIsCell() {
			fn(c.Op2)
		}
	case c.Op.IsRange():
		start, end := s.keyRef(c.Op1), s.keyRef(c.Op2)
		for r := start.Row; r <= end.Row; r++ {
			for col := start.Col; col <= end.Col; col++ {
				fn(s.key(r, col))
			}
		}
	}
}

// detachFromParents removes key from the dependents set of every cell
// its current record reads.
func (s *Sheet) detachFromParents(key int32) {
	c := s.cell(key)
	s.eachParent(c, func(parent int32) {
		s.cell(parent).dependents.Delete(key)
	})
}

// attachToParents inserts key into the dependents set of every cell
// its current record reads. The ordered set dedupes a duplicate
// operand on its own.
func (s *Sheet) attachToParents(key int32) {
	c := s.cell(key)
	s.eachParent(c, func(parent int32) {
		s.cell(parent).dependents.Insert(key)
	})
}

// Dependents returns the keys of the cells reading c, in key order.
func (c *Cell) Dependents() []int32 { return c.dependents.Keys() }
