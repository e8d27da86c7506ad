package model

// FundingState tracks money received against a goal. A zero target means no
// target has been set.
type FundingState struct {
	FundingTotal  float64 `json:"funding_total"`
	FundingTarget float64 `json:"funding_target"`
}
