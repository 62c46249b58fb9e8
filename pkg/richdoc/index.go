package richdoc

import "math/bits"

// offsetIndex is a Fenwick tree over paragraph widths (length + 1, counting
// the separator that follows each paragraph). prefix(i) is the absolute
// offset at which paragraph i starts.
type offsetIndex struct {
	tree  []int // 1-based
	n     int
	valid bool
}

func (x *offsetIndex) invalidate() {
	x.valid = false
}

// build fills the tree in O(n).
func (x *offsetIndex) build(widths func(i int) int, n int) {
	if cap(x.tree) >= n+1 {
		x.tree = x.tree[:n+1]
		clear(x.tree)
	} else {
		x.tree = make([]int, n+1)
	}
	x.n = n
	for i := 1; i <= n; i++ {
		x.tree[i] += widths(i - 1)
		if j := i + (i & -i); j <= n {
			x.tree[j] += x.tree[i]
		}
	}
	x.valid = true
}

// add changes the width of paragraph i by delta.
func (x *offsetIndex) add(i, delta int) {
	if delta == 0 {
		return
	}
	for j := i + 1; j <= x.n; j += j & -j {
		x.tree[j] += delta
	}
}

// prefix returns the sum of the widths of paragraphs [0, i).
func (x *offsetIndex) prefix(i int) int {
	sum := 0
	for j := i; j > 0; j -= j & -j {
		sum += x.tree[j]
	}
	return sum
}

// search returns the largest k such that prefix(k) <= target. Widths are
// always >= 1, so prefix sums are strictly increasing.
func (x *offsetIndex) search(target int) int {
	if x.n == 0 {
		return 0
	}
	pos := 0
	for step := 1 << (bits.Len(uint(x.n)) - 1); step > 0; step >>= 1 {
		if next := pos + step; next <= x.n && x.tree[next] <= target {
			pos = next
			target -= x.tree[next]
		}
	}
	return pos
}
