package flowrate

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"ShareFlow/internal/allocation"
)

// PeriodSeconds is the 30-day reference period a lump amount is streamed over.
const PeriodSeconds = 30 * 24 * 3600

// percentScale quantizes percents to six decimal digits, the precision used
// by the streaming contracts.
const percentScale = 6

var (
	ErrNegativeAmount    = errors.New("flowrate: amount must not be negative")
	ErrPercentOutOfRange = errors.New("flowrate: percent must be within [0, 100]")
	ErrInvalidAllocation = errors.New("flowrate: allocation does not sum to 100")
)

var (
	periodDivisor        = big.NewInt(PeriodSeconds)
	hundredScaledDivisor = new(big.Int).Exp(big.NewInt(10), big.NewInt(percentScale+2), nil)
	hundredDecimal       = decimal.NewFromInt(100)
)

// quantizePercent returns floor(percent * 1e6) computed in exact decimal.
func quantizePercent(percent float64) *big.Int {
	return decimal.NewFromFloat(percent).Shift(percentScale).Floor().BigInt()
}

// RatePerSecond converts a lump amount into the per-second rate that pays
// percent of it over PeriodSeconds. Division truncates at every step so a
// stream never commits more than the amount over the full period.
func RatePerSecond(totalAmount *big.Int, percent float64) (*big.Int, error) {
	if totalAmount == nil || totalAmount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return nil, ErrPercentOutOfRange
	}
	p := decimal.NewFromFloat(percent)
	if p.IsNegative() || p.GreaterThan(hundredDecimal) {
		return nil, ErrPercentOutOfRange
	}

	share := new(big.Int).Mul(totalAmount, quantizePercent(percent))
	share.Quo(share, hundredScaledDivisor)
	return share.Quo(share, periodDivisor), nil
}

// FixedPoint renders a rate as the integer string submitted to the stream
// protocol.
func FixedPoint(rate *big.Int) string {
	if rate == nil {
		return "0"
	}
	return rate.String()
}

// FormatUnits renders a base-unit integer as a decimal value with the given
// number of token decimals, e.g. 1500000 with 6 decimals is "1.5".
func FormatUnits(amount *big.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ParseAmount parses a non-negative base-unit integer string.
func ParseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("flowrate: amount is not an integer")
	}
	if n.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	return n, nil
}

// RoleRate is the per-second rate owed to one share.
type RoleRate struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Percent float64  `json:"percent"`
	Rate    *big.Int `json:"rate"`
}

// Allocate computes the rate of every share in a. Rates are only defined for
// valid allocations.
func Allocate(totalAmount *big.Int, a allocation.Allocation) ([]RoleRate, error) {
	if !a.Validate().Valid {
		return nil, ErrInvalidAllocation
	}
	out := make([]RoleRate, 0, a.Len())
	for _, s := range a.Shares() {
		rate, err := RatePerSecond(totalAmount, s.Percent)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleRate{ID: s.ID, Name: s.Name, Percent: s.Percent, Rate: rate})
	}
	return out, nil
}
