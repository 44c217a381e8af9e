// Package keyset provides an ordered set of int32 keys backed by an
// AVL tree. Insert, Delete and Contains run in O(log n); Each walks
// the keys in ascending order. The zero value is an empty set ready
// for use.
package keyset

// Set is an ordered set of int32 keys.
type Set struct {
	root *node
	size int
}

type node struct {
	key    int32
	left   *node
	right  *node
	height int
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func balance(n *node) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func fix(n *node) *node {
	n.height = 1 + max(height(n.left), height(n.right))
	return n
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	return fix(x)
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	return fix(y)
}

// Len reports the number of keys in the set.
func (s *Set) Len() int { return s.size }

// Empty reports whether the set has no keys.
func (s *Set) Empty() bool { return s.size == 0 }

// Contains reports whether key is in the set.
func (s *Set) Contains(key int32) bool {
	n := s.root
	for n != nil {
		switch {
		case key < n.key:
			n = n.left
		case key > n.key:
			n = n.right
		default:
			return true
		}
	}
	return false
}

// Insert adds key to the set. Inserting a present key is a no-op.
func (s *Set) Insert(key int32) {
	var added bool
	s.root, added = insert(s.root, key)
	if added {
		s.size++
	}
}

func insert(n *node, key int32) (*node, bool) {
	if n == nil {
		return &node{key: key, height: 1}, true
	}
	var added bool
	switch {
	case key < n.key:
		n.left, added = insert(n.left, key)
	case key > n.key:
		n.right, added = insert(n.right, key)
	default:
		return n, false
	}
	fix(n)
	switch b := balance(n); {
	case b > 1 && key < n.left.key:
		return rotateRight(n), added
	case b < -1 && key > n.right.key:
		return rotateLeft(n), added
	case b > 1 && key > n.left.key:
		n.left = rotateLeft(n.left)
		return rotateRight(n), added
	case b < -1 && key < n.right.key:
		n.right = rotateRight(n.right)
		return rotateLeft(n), added
	}
	return n, added
}

// Delete removes key from the set. Deleting an absent key is a no-op.
func (s *Set) Delete(key int32) {
	var removed bool
	s.root, removed = remove(s.root, key)
	if removed {
		s.size--
	}
}

func remove(n *node, key int32) (*node, bool) {
	if n == nil {
		return nil, false
	}
	var removed bool
	switch {
	case key < n.key:
		n.left, removed = remove(n.left, key)
	case key > n.key:
		n.right, removed = remove(n.right, key)
	default:
		removed = true
		if n.left == nil {
			return n.right, true
		}
		if n.right == nil {
			return n.left, true
		}
		m := n.right
		for m.left != nil {
			m = m.left
		}
		n.key = m.key
		n.right, _ = remove(n.right, m.key)
	}
	fix(n)
	switch b := balance(n); {
	case b > 1 && balance(n.left) >= 0:
		return rotateRight(n), removed
	case b > 1:
		n.left = rotateLeft(n.left)
		return rotateRight(n), removed
	case b < -1 && balance(n.right) <= 0:
		return rotateLeft(n), removed
	case b < -1:
		n.right = rotateRight(n.right)
		return rotateLeft(n), removed
	}
	return n, removed
}

// Each calls fn for every key in ascending order until fn returns
// false or the keys are exhausted.
func (s *Set) Each(fn func(key int32) bool) {
	each(s.root, fn)
}

func each(n *node, fn func(key int32) bool) bool {
	if n == nil {
		return true
	}
	if !each(n.left, fn) {
		return false
	}
	if !fn(n.key) {
		return false
	}
	return each(n.right, fn)
}

// Keys returns the set's contents in ascending order.
func (s *Set) Keys() []int32 {
	out := make([]int32, 0, s.size)
	s.Each(func(k int32) bool {
		out = append(out, k)
		return true
	})
	return out
}
