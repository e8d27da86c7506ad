package funding

import (
	"math"

	"ShareFlow/internal/model"
)

// Progress is the display state derived from a FundingState.
type Progress struct {
	PercentFunded float64 `json:"percent_funded"`
	IsFullyFunded bool    `json:"is_fully_funded"`
	Remaining     float64 `json:"remaining"`
}

// Compute derives progress from totals. Without a target a project is
// reported as 0% funded regardless of what it has received.
func Compute(s model.FundingState) Progress {
	if s.FundingTarget <= 0 {
		return Progress{}
	}
	pct := math.Min(s.FundingTotal/s.FundingTarget*100, 100)
	return Progress{
		PercentFunded: pct,
		IsFullyFunded: pct >= 100,
		Remaining:     math.Max(s.FundingTarget-s.FundingTotal, 0),
	}
}
