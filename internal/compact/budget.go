package compact

// HeaderLines is the number of fixed lines at the top of every document.
const HeaderLines = 4

// sectionOverhead is what the allocator reserves per active section for
// the heading and its separator.
const sectionOverhead = 2

// Available returns the bullet lines left for content once the header and
// per-section overhead are paid for. Every active section is guaranteed at
// least one line, even when that overshoots the budget.
func Available(budget, active int) int {
	available := budget - HeaderLines - sectionOverhead*active
	if available < active {
		available = active
	}
	return available
}

// Allocate splits available lines across sections proportionally to their
// item counts, flooring each share and never going below one. When the
// floors still overshoot, the largest share (first in order on ties) is
// reduced one line at a time until the total fits or every share is one.
func Allocate(counts []int, available int) []int {
	shares := make([]int, len(counts))
	total := 0
	for _, c := range counts {
		total += c
	}

	for i, c := range counts {
		share := 1
		if total > 0 {
			share = available * c / total
		}
		if share < 1 {
			share = 1
		}
		shares[i] = share
	}

	for sum(shares) > available && anyAbove(shares, 1) {
		shares[largest(shares)]--
	}

	return shares
}

func sum(xs []int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func anyAbove(xs []int, floor int) bool {
	for _, x := range xs {
		if x > floor {
			return true
		}
	}
	return false
}

func largest(xs []int) int {
	idx := 0
	for i, x := range xs {
		if x > xs[idx] {
			idx = i
		}
	}
	return idx
}
