package allocation

import "math"

// Epsilon is the tolerance within which an allocation's sum counts as 100.
const Epsilon = 0.01

// Share is one named entry of an allocation.
type Share struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

// Validation reports whether an allocation sums to 100.
// Deficit is 100 minus the sum; negative when over-allocated.
type Validation struct {
	Valid   bool    `json:"valid"`
	Deficit float64 `json:"deficit"`
}

// Allocation is an ordered set of shares. Values are immutable: every
// operation that changes shares returns a new Allocation, so one value may
// be shared freely between the editor and its history.
type Allocation struct {
	shares []Share
}

// New builds an allocation from shares in the given order. Sums other than
// 100 are accepted and reported by Validate.
func New(shares ...Share) Allocation {
	return Allocation{shares: append([]Share(nil), shares...)}
}

// Len returns the number of shares.
func (a Allocation) Len() int { return len(a.shares) }

// At returns the share at position i.
func (a Allocation) At(i int) Share { return a.shares[i] }

// IndexOf returns the position of the share with the given id, or -1.
func (a Allocation) IndexOf(id string) int {
	for i, s := range a.shares {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Percent returns the percent held by id and whether id is present.
func (a Allocation) Percent(id string) (float64, bool) {
	i := a.IndexOf(id)
	if i < 0 {
		return 0, false
	}
	return a.shares[i].Percent, true
}

// Shares returns a copy of the shares in order.
func (a Allocation) Shares() []Share {
	return append([]Share(nil), a.shares...)
}

// Sum returns the total of all percents.
func (a Allocation) Sum() float64 {
	var sum float64
	for _, s := range a.shares {
		sum += s.Percent
	}
	return sum
}

// Validate reports whether the shares sum to 100 within Epsilon.
func (a Allocation) Validate() Validation {
	deficit := 100 - a.Sum()
	return Validation{
		Valid:   math.Abs(deficit) <= Epsilon,
		Deficit: deficit,
	}
}

// Append returns a copy with s added at the end.
func (a Allocation) Append(s Share) Allocation {
	shares := make([]Share, 0, len(a.shares)+1)
	shares = append(shares, a.shares...)
	return Allocation{shares: append(shares, s)}
}

// Remove returns a copy without the share at position i.
func (a Allocation) Remove(i int) Allocation {
	if i < 0 || i >= len(a.shares) {
		return a
	}
	shares := make([]Share, 0, len(a.shares)-1)
	shares = append(shares, a.shares[:i]...)
	return Allocation{shares: append(shares, a.shares[i+1:]...)}
}

// Rename returns a copy with the share at position i renamed.
func (a Allocation) Rename(i int, name string) Allocation {
	if i < 0 || i >= len(a.shares) {
		return a
	}
	shares := a.Shares()
	shares[i].Name = name
	return Allocation{shares: shares}
}
