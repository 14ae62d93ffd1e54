// Package tier is the single authoritative source of membership tier
// benefits. Both fee initiation and payment verification consult it, so
// the amount charged and the amount expected can never drift apart.
package tier

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var ErrUnknownTier = errors.New("unknown membership tier")

// Benefits are minor units (kobo). SecurityFee is what the applicant pays:
// the refundable portion is locked in the wallet at activation, the admin
// fee is not returned.
type Benefits struct {
	Name            string
	SecurityFee     int64
	RefundableFee   int64
	AdminFee        int64
	LoanLimit       int64
	InvestmentLimit int64
	CommissionRate  decimal.Decimal
}

var tiers = map[string]Benefits{
	"basic": {
		Name:            "basic",
		SecurityFee:     1000000,
		RefundableFee:   800000,
		AdminFee:        200000,
		LoanLimit:       5000000,
		InvestmentLimit: 10000000,
		CommissionRate:  decimal.RequireFromString("0.05"),
	},
	"silver": {
		Name:            "silver",
		SecurityFee:     2500000,
		RefundableFee:   2000000,
		AdminFee:        500000,
		LoanLimit:       15000000,
		InvestmentLimit: 30000000,
		CommissionRate:  decimal.RequireFromString("0.07"),
	},
	"gold": {
		Name:            "gold",
		SecurityFee:     5000000,
		RefundableFee:   4000000,
		AdminFee:        1000000,
		LoanLimit:       40000000,
		InvestmentLimit: 80000000,
		CommissionRate:  decimal.RequireFromString("0.10"),
	},
	"platinum": {
		Name:            "platinum",
		SecurityFee:     10000000,
		RefundableFee:   8000000,
		AdminFee:        2000000,
		LoanLimit:       100000000,
		InvestmentLimit: 200000000,
		CommissionRate:  decimal.RequireFromString("0.12"),
	},
}

func Lookup(name string) (Benefits, error) {
	benefits, ok := tiers[name]
	if !ok {
		return Benefits{}, ErrUnknownTier
	}
	return benefits, nil
}

func Names() []string {
	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Commission computes the referrer's cut of a security fee, rounded to a
// whole minor unit with bank rounding.
func Commission(benefits Benefits, feeMinor int64) int64 {
	return benefits.CommissionRate.Mul(decimal.NewFromInt(feeMinor)).RoundBank(0).IntPart()
}

// UpgradeFee is the difference in security fees between two tiers. A
// non-positive difference means the move is not an upgrade.
func UpgradeFee(from, to Benefits) int64 {
	return to.SecurityFee - from.SecurityFee
}
