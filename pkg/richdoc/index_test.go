package richdoc

import (
	"math/rand/v2"
	"testing"
)

func TestOffsetIndexMatchesNaivePrefixSums(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, n := range []int{1, 2, 3, 7, 8, 9, 100, 257} {
		widths := make([]int, n)
		for i := range widths {
			widths[i] = 1 + rng.IntN(20)
		}
		var x offsetIndex
		x.build(func(i int) int { return widths[i] }, n)

		check := func() {
			t.Helper()
			sum := 0
			for i := 0; i <= n; i++ {
				if got := x.prefix(i); got != sum {
					t.Fatalf("n=%d prefix(%d) = %d, want %d", n, i, got, sum)
				}
				if i < n {
					for off := sum; off < sum+widths[i]; off++ {
						if got := x.search(off); got != i {
							t.Fatalf("n=%d search(%d) = %d, want %d", n, off, got, i)
						}
					}
					sum += widths[i]
				}
			}
		}
		check()

		for k := 0; k < 20; k++ {
			i := rng.IntN(n)
			delta := rng.IntN(10) - widths[i] + 1
			widths[i] += delta
			x.add(i, delta)
		}
		check()
	}
}

func TestOffsetIndexReusesStorage(t *testing.T) {
	var x offsetIndex
	x.build(func(int) int { return 5 }, 10)
	x.invalidate()
	if x.valid {
		t.Fatalf("index still valid after invalidate")
	}
	x.build(func(int) int { return 1 }, 4)
	if got := x.prefix(4); got != 4 {
		t.Fatalf("prefix(4) = %d, want 4", got)
	}
}
