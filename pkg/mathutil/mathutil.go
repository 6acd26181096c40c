package mathutil

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	// ErrArithmeticOverflow is returned when an operand or a result exceeds
	// the 256-bit amount width supported by the ledger.
	ErrArithmeticOverflow = errors.New("amount exceeds maximum width")
	// ErrDivisionByZero is returned when a computation would divide by zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrNegativeAmount is returned when an operand is negative. Amounts are
	// unsigned quantities.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

var (
	// MaxAmount is the largest representable amount (2^256 - 1).
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	oneHundred = big.NewInt(100)
)

func init() {
	decimal.DivisionPrecision = 8
}

// ProportionalSourceAmount returns the source amount owed for a partial fill
// of requestedCounter against an offer trading sourceTotal for counterTotal,
// ie. floor(requestedCounter * sourceTotal / counterTotal).
//
// The multiplication always happens before the division so no precision is
// lost ahead of the final floor. When requestedCounter equals counterTotal
// the result is sourceTotal exactly, bypassing the formula so that a full
// fill never loses dust to floor rounding.
func ProportionalSourceAmount(
	requestedCounter, sourceTotal, counterTotal *big.Int,
) (*big.Int, error) {
	for _, v := range []*big.Int{requestedCounter, sourceTotal, counterTotal} {
		if v == nil || v.Sign() < 0 {
			return nil, ErrNegativeAmount
		}
		if v.Cmp(MaxAmount) > 0 {
			return nil, ErrArithmeticOverflow
		}
	}
	if counterTotal.Sign() == 0 {
		return nil, ErrDivisionByZero
	}

	if requestedCounter.Cmp(counterTotal) == 0 {
		return new(big.Int).Set(sourceTotal), nil
	}

	product := new(big.Int).Mul(requestedCounter, sourceTotal)
	return product.Quo(product, counterTotal), nil
}

// PercentFilled returns floor(filled * 100 / total) as an integer in [0, 100].
func PercentFilled(filled, total *big.Int) (int, error) {
	if filled == nil || total == nil || filled.Sign() < 0 || total.Sign() < 0 {
		return 0, ErrNegativeAmount
	}
	if total.Sign() == 0 {
		return 0, ErrDivisionByZero
	}

	pct := new(big.Int).Mul(filled, oneHundred)
	pct.Quo(pct, total)
	if !pct.IsInt64() || pct.Int64() > 100 {
		return 100, nil
	}
	return int(pct.Int64()), nil
}

// ExchangeRate returns the counter/source price of an offer truncated to 8
// decimal digits. This is a display helper only, settlement paths must never
// depend on it.
func ExchangeRate(sourceTotal, counterTotal *big.Int) decimal.Decimal {
	if sourceTotal == nil || counterTotal == nil || sourceTotal.Sign() == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(counterTotal, 0).
		Div(decimal.NewFromBigInt(sourceTotal, 0)).
		Truncate(8)
}
