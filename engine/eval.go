package engine

import (
	"math"

	"tally/formula"
)

// evaluate computes a cell's value and error flag from its packed
// record and the current values of its parents. Arithmetic is int32
// with two's-complement wrap; division truncates toward zero. Errors
// are monotone: an errored input always taints the result.
func (s *Sheet) evaluate(c *Cell, fx *Effects) Status {
	switch {
	case c.Op == formula.OpLiteral:
		c.Value = c.Op1
		c.Error = false
		return StatusOK

	case c.Op == formula.OpRef:
		p := s.cell(c.Op1)
		if p.Error {
			c.Error = true
			return StatusRangeError
		}
		c.Value = p.Value
		c.Error = false
		return StatusOK

	case c.Op == formula.OpSleepLit:
		c.Value = c.Op1
		c.Error = false
		fx.sleep(c.Value)
		return StatusOK

	case c.Op == formula.OpSleepRef:
		p := s.cell(c.Op1)
		if p.Error {
			c.Error = true
			return StatusRangeError
		}
		c.Value = p.Value
		c.Error = false
		fx.sleep(c.Value)
		return StatusOK

	case c.Op.IsBinary():
		return s.evalBinary(c)

	case c.Op.IsRange():
		return s.evalRange(c)
	}
	return StatusOK
}

func (s *Sheet) evalBinary(c *Cell) Status {
	left, right := c.Op1, c.Op2
	if c.Op.LeftIsCell() {
		p := s.cell(c.Op1)
		if p.Error {
			c.Error = true
			return StatusRangeError
		}
		left = p.Value
	}
	if c.Op.RightIsCell() {
		p := s.cell(c.Op2)
		if p.Error {
			c.Error = true
			return StatusRangeError
		}
		right = p.Value
	}

	v, st := applyOperator(c.Op.BinaryOperator(), left, right)
	if st != StatusOK {
		c.Error = true
		return st
	}
	c.Value = v
	c.Error = false
	return StatusOK
}

// applyOperator computes left <op> right. Division by zero reports
// StatusDivByZero; MinInt32 / -1 wraps to MinInt32.
func applyOperator(operator byte, left, right int32) (int32, Status) {
	switch operator {
	case '+':
		return left + right, StatusOK
	case '-':
		return left - right, StatusOK
	case '*':
		return left * right, StatusOK
	case '/':
		if right == 0 {
			return 0, StatusDivByZero
		}
		if left == math.MinInt32 && right == -1 {
			return math.MinInt32, StatusOK
		}
		return left / right, StatusOK
	}
	return 0, StatusUnrecognized
}

// evalRange computes a SUM/AVG/MIN/MAX/STDEV aggregate over the
// rectangle stored in the operand slots.
func (s *Sheet) evalRange(c *Cell) Status {
	start, end := s.keyRef(c.Op1), s.keyRef(c.Op2)
	count := int32((end.Row - start.Row + 1) * (end.Col - start.Col + 1))

	var sum int32
	minV := int32(math.MaxInt32)
	maxV := int32(math.MinInt32)
	for r := start.Row; r <= end.Row; r++ {
		for col := start.Col; col <= end.Col; col++ {
			p := s.cell(s.key(r, col))
			if p.Error {
				c.Error = true
				return StatusRangeError
			}
			sum += p.Value
			if p.Value < minV {
				minV = p.Value
			}
			if p.Value > maxV {
				maxV = p.Value
			}
		}
	}

	switch c.Op {
	case formula.OpSum:
		c.Value = sum
	case formula.OpAvg:
		c.Value = sum / count
	case formula.OpMin:
		c.Value = minV
	case formula.OpMax:
		c.Value = maxV
	case formula.OpStdev:
		// Population deviation around the truncated integer mean.
		mean := sum / count
		variance := 0.0
		for r := start.Row; r <= end.Row; r++ {
			for col := start.Col; col <= end.Col; col++ {
				d := float64(s.cell(s.key(r, col)).Value) - float64(mean)
				variance += d * d
			}
		}
		variance /= float64(count)
		c.Value = int32(int64(math.Round(math.Sqrt(variance))))
	}
	c.Error = false
	return StatusOK
}
