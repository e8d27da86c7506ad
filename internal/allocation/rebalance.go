package allocation

import "math"

// Rebalance sets the share at changedIdx to newPercent and moves every other
// share proportionally to absorb the difference.
//
// Shares that would go negative are floored at zero and the rest are not
// renormalized, so edits near the floor can leave the sum below 100. The
// result's Validate reports that drift. The input is not modified, and an
// out-of-range changedIdx returns the input unchanged. Callers keep
// newPercent within [0, 100].
func Rebalance(a Allocation, changedIdx int, newPercent float64) Allocation {
	n := len(a.shares)
	if changedIdx < 0 || changedIdx >= n {
		return a
	}

	shares := a.Shares()

	// A lone role always owns the whole pool.
	if n == 1 {
		shares[0].Percent = 100
		return Allocation{shares: shares}
	}

	delta := newPercent - shares[changedIdx].Percent
	var total float64
	for i, s := range shares {
		if i != changedIdx {
			total += s.Percent
		}
	}

	if total == 0 {
		even := (100 - newPercent) / float64(n-1)
		for i := range shares {
			if i != changedIdx {
				shares[i].Percent = even
			}
		}
	} else {
		for i, s := range shares {
			if i == changedIdx {
				continue
			}
			prop := s.Percent / total
			shares[i].Percent = math.Max(0, s.Percent-prop*delta)
		}
	}

	shares[changedIdx].Percent = newPercent
	return Allocation{shares: shares}
}
