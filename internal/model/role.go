package model

import "github.com/shopspring/decimal"

// PayoutType distinguishes one-off expenses from repeating ones.
type PayoutType string

const (
	PayoutOneTime   PayoutType = "one_time"
	PayoutRecurring PayoutType = "recurring"
)

// Role is one revenue-share participant of a project.
type Role struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Percent       float64             `json:"percent"`
	WalletAddress string              `json:"wallet_address,omitempty"`
	StreamActive  bool                `json:"stream_active"`
	FlowRate      decimal.NullDecimal `json:"stream_flow_rate"` // per-second rate, null until a stream exists
}

// Expense is a fixed-cost budget line outside the percentage pool.
type Expense struct {
	Name         string          `json:"name"`
	AmountUSDC   decimal.Decimal `json:"amount_usdc"`
	VendorWallet string          `json:"vendor_wallet,omitempty"`
	PayoutType   PayoutType      `json:"payout_type,omitempty"`
}
