package project

import (
	"math/big"

	"github.com/shopspring/decimal"

	"ShareFlow/internal/allocation"
	"ShareFlow/internal/flowrate"
	"ShareFlow/internal/funding"
	"ShareFlow/internal/model"
)

// Dashboard is the read-side view of a saved project for a given inflow.
type Dashboard struct {
	ProjectID  string                `json:"project_id"`
	Name       string                `json:"name"`
	Allocation allocation.Validation `json:"allocation"`
	Funding    model.FundingState    `json:"funding"`
	Progress   funding.Progress      `json:"progress"`
	Expenses   ExpenseTotals         `json:"expenses"`

	// Inflow and Distributable are base-unit integer strings; Distributable
	// is the inflow left after the royalty.
	Inflow         string       `json:"inflow"`
	RoyaltyBps     int64        `json:"royalty_bps"`
	Distributable  string       `json:"distributable"`
	RatesAvailable bool         `json:"rates_available"`
	Roles          []RoleStatus `json:"roles"`
}

// RoleStatus is one role's line on the dashboard.
type RoleStatus struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Percent        float64             `json:"percent"`
	WalletAddress  string              `json:"wallet_address,omitempty"`
	StreamActive   bool                `json:"stream_active"`
	StreamFlowRate decimal.NullDecimal `json:"stream_flow_rate"`
	// RatePerSecond is empty when the allocation is invalid.
	RatePerSecond string `json:"rate_per_second,omitempty"`
	RateDisplay   string `json:"rate_display,omitempty"`
	// StreamOutdated marks an active stream whose rate differs from
	// RatePerSecond. Saving a new split does not re-rate running streams.
	StreamOutdated bool `json:"stream_outdated"`
}

// ExpenseTotals sums a project's expenses by payout type.
type ExpenseTotals struct {
	OneTime   decimal.Decimal `json:"one_time"`
	Recurring decimal.Decimal `json:"recurring"`
	Total     decimal.Decimal `json:"total"`
}

func sumExpenses(expenses []model.Expense) ExpenseTotals {
	var t ExpenseTotals
	for _, e := range expenses {
		if e.PayoutType == model.PayoutRecurring {
			t.Recurring = t.Recurring.Add(e.AmountUSDC)
		} else {
			t.OneTime = t.OneTime.Add(e.AmountUSDC)
		}
	}
	t.Total = t.OneTime.Add(t.Recurring)
	return t
}

// distributable removes the royalty from inflow. The royalty is truncated so
// rounding never takes more than the stated rate.
func distributable(inflow *big.Int, royaltyBps int64) *big.Int {
	royalty := new(big.Int).Mul(inflow, big.NewInt(royaltyBps))
	royalty.Quo(royalty, big.NewInt(10000))
	return new(big.Int).Sub(inflow, royalty)
}

func buildDashboard(p *model.Project, inflow *big.Int, royaltyBps int64, decimals int32) Dashboard {
	a := allocationOf(p)
	net := distributable(inflow, royaltyBps)
	d := Dashboard{
		ProjectID:     p.ID,
		Name:          p.Name,
		Allocation:    a.Validate(),
		Funding:       p.FundingState,
		Progress:      funding.Compute(p.FundingState),
		Expenses:      sumExpenses(p.Expenses),
		Inflow:        inflow.String(),
		RoyaltyBps:    royaltyBps,
		Distributable: net.String(),
		Roles:         make([]RoleStatus, len(p.Roles)),
	}

	rates, err := flowrate.Allocate(net, a)
	d.RatesAvailable = err == nil
	for i, r := range p.Roles {
		line := RoleStatus{
			ID:             r.ID,
			Name:           r.Name,
			Percent:        r.Percent,
			WalletAddress:  r.WalletAddress,
			StreamActive:   r.StreamActive,
			StreamFlowRate: r.FlowRate,
		}
		if d.RatesAvailable {
			line.RatePerSecond = flowrate.FixedPoint(rates[i].Rate)
			line.RateDisplay = flowrate.FormatUnits(rates[i].Rate, decimals)
			line.StreamOutdated = r.StreamActive && r.FlowRate.Valid &&
				r.FlowRate.Decimal.BigInt().Cmp(rates[i].Rate) != 0
		}
		d.Roles[i] = line
	}
	return d
}
