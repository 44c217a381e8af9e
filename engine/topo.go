package engine

// recomputeDescendants re-evaluates every transitive dependent of the
// just-assigned cell exactly once, in dependency order (Kahn's
// algorithm restricted to the affected subgraph). The assigned cell
// itself is not re-evaluated.
func (s *Sheet) recomputeDescendants(modified int32, fx *Effects) {
	// Affected set: DFS from the modified cell's dependents.
	inAffected := make([]bool, len(s.cells))
	var affected []int32
	var stack []int32
	s.cell(modified).dependents.Each(func(child int32) bool {
		stack = append(stack, child)
		return true
	})
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if inAffected[cur] {
			continue
		}
		inAffected[cur] = true
		affected = append(affected, cur)
		s.cell(cur).dependents.Each(func(child int32) bool {
			if !inAffected[child] {
				stack = append(stack, child)
			}
			return true
		})
	}
	if len(affected) == 0 {
		return
	}

	// Restricted in-degree: distinct in-affected parents per cell. A
	// binop reading the same cell on both sides is one edge, matching
	// the single dependents-set entry that will decrement it.
	inDegree := make(map[int32]int, len(affected))
	for _, key := range affected {
		c := s.cell(key)
		n := 0
		var prev int32 = -1
		seen := false
		s.eachParent(c, func(parent int32) {
			if seen && parent == prev {
				return
			}
			if inAffected[parent] {
				n++
			}
			prev, seen = parent, true
		})
		inDegree[key] = n
	}

	queue := make([]int32, 0, len(affected))
	for _, key := range affected {
		if inDegree[key] == 0 {
			queue = append(queue, key)
		}
	}

	for head := 0; head < len(queue); head++ {
		key := queue[head]
		s.evaluate(s.cell(key), fx)
		fx.Recomputed = append(fx.Recomputed, key)
		s.cell(key).dependents.Each(func(child int32) bool {
			if inAffected[child] {
				inDegree[child]--
				if inDegree[child] == 0 {
					queue = append(queue, child)
				}
			}
			return true
		})
	}
}
