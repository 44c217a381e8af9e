package engine

import (
	"tally/cellref"
	"tally/formula"
)

// wouldCycle reports whether giving the cell at target the parents
// described by expr would close a cycle. A cycle exists iff some
// proposed parent already depends, transitively, on the target; the
// walk therefore starts at the target and follows dependents edges,
// testing each visited cell against the proposed parent set. It runs
// before any mutation, so a rejection leaves the graph untouched.
func (s *Sheet) wouldCycle(target int32, expr formula.Expr) bool {
	isParent := parentPredicate(s, expr)
	if isParent == nil {
		return false
	}

	visited := make([]bool, len(s.cells))
	stack := []int32{target}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if isParent(cur) {
			return true
		}
		s.cell(cur).dependents.Each(func(child int32) bool {
			if !visited[child] {
				stack = append(stack, child)
			}
			return true
		})
	}
	return false
}

// parentPredicate builds a membership test for the cells expr reads,
// or nil when expr reads none.
func parentPredicate(s *Sheet, expr formula.Expr) func(int32) bool {
	switch expr.Kind {
	case formula.KindRef, formula.KindSleepRef:
		k := s.refKey(expr.Ref)
		return func(key int32) bool { return key == k }
	case formula.KindBinary:
		var keys [2]int32
		n := 0
		if expr.Left.Cell {
			keys[n] = s.refKey(expr.Left.Ref)
			n++
		}
		if expr.Right.Cell {
			keys[n] = s.refKey(expr.Right.Ref)
			n++
		}
		if n == 0 {
			return nil
		}
		ks := keys[:n]
		return func(key int32) bool {
			for _, k := range ks {
				if k == key {
					return true
				}
			}
			return false
		}
	case formula.KindRange:
		rng := expr.Rng
		return func(key int32) bool {
			return rng.Contains(cellref.Ref{Row: int(key) / s.cols, Col: int(key) % s.cols})
		}
	}
	return nil
}
