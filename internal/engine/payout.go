package engine

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PayoutBase converts a fractional multiplier into base units of payout for
// the given stake. The product is computed in exact decimal arithmetic and
// truncated toward zero, so the house never pays a rounded-up remainder.
func PayoutBase(stake *big.Int, multiplier float64) *big.Int {
	if stake == nil || stake.Sign() <= 0 || multiplier <= 0 {
		return new(big.Int)
	}
	s := decimal.NewFromBigInt(stake, 0)
	m := decimal.NewFromFloat(multiplier)
	return s.Mul(m).Floor().BigInt()
}
