package amm

import (
	"math"
	"math/big"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// Reserve and payout arithmetic. Pools are uint64 collateral units; the
// constant product of two reserves needs up to 128 bits, so k lives in a
// big.Int. Rounding always favors the pool: reserve recomputation rounds up,
// payouts round down.

var maxUint64 = new(big.Int).SetUint64(math.MaxUint64)

// product returns a*b as a big.Int.
func product(a, b uint64) *big.Int {
	x := new(big.Int).SetUint64(a)
	y := new(big.Int).SetUint64(b)
	return x.Mul(x, y)
}

// mulDiv returns floor(a*b/den). den must be non-zero; the result is capped
// by construction in every call site (b <= den or a*b/den <= pool).
func mulDiv(a, b, den uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	n := product(a, b)
	n.Quo(n, new(big.Int).SetUint64(den))
	return n.Uint64()
}

// ceilDiv returns ceil(k/den) as a uint64 reserve, or ErrInvalidAmount when
// the quotient does not fit (the counter-reserve would be drained below the
// representable range going the other way).
func ceilDiv(k *big.Int, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrInvalidAmount
	}
	d := new(big.Int).SetUint64(den)
	q, r := new(big.Int).QuoRem(k, d, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	if q.Cmp(maxUint64) > 0 {
		return 0, domain.ErrInvalidAmount
	}
	return q.Uint64(), nil
}

// addChecked returns a+b or ErrInvalidAmount on uint64 overflow.
func addChecked(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, domain.ErrInvalidAmount
	}
	return a + b, nil
}
