package lotledger

import (
	"math"

	"github.com/shopspring/decimal"
)

// Scale is the fixed-point factor of Money and Shares: one unit is 10^-8.
const Scale int64 = 100_000_000

// scaleExp is the decimal exponent matching Scale.
const scaleExp = 8

// mulDiv returns a×b/c rounded half away from zero. The product is computed
// without intermediate overflow; only a result outside int64 is an error.
func mulDiv(a, b, c int64, op string) (int64, error) {
	if c == 0 {
		return 0, arithmeticErr(Unrepresentable, op, "division by zero")
	}
	q := decimal.NewFromInt(a).Mul(decimal.NewFromInt(b)).DivRound(decimal.NewFromInt(c), 0)
	return toInt64(q, op)
}

// mulDivExact is like mulDiv but fails when a×b is not a multiple of c.
func mulDivExact(a, b, c int64, op string) (int64, error) {
	if c == 0 {
		return 0, arithmeticErr(Unrepresentable, op, "division by zero")
	}
	q, r := decimal.NewFromInt(a).Mul(decimal.NewFromInt(b)).QuoRem(decimal.NewFromInt(c), 0)
	if !r.IsZero() {
		return 0, arithmeticErr(Unrepresentable, op, "%d×%d/%d has no exact representation", a, b, c)
	}
	return toInt64(q, op)
}

func toInt64(d decimal.Decimal, op string) (int64, error) {
	bi := d.BigInt()
	if !bi.IsInt64() {
		return 0, arithmeticErr(Overflow, op, "%s does not fit in 64 bits", d.String())
	}
	return bi.Int64(), nil
}

func addInt64(a, b int64, op string) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, arithmeticErr(Overflow, op, "%d + %d", a, b)
	}
	return a + b, nil
}

func subInt64(a, b int64, op string) (int64, error) {
	if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
		return 0, arithmeticErr(Overflow, op, "%d - %d", a, b)
	}
	return a - b, nil
}

// fromDecimal converts an exact decimal into units of 10^-exp.
func fromDecimal(d decimal.Decimal, exp int32, op string) (int64, error) {
	shifted := d.Shift(exp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, arithmeticErr(Unrepresentable, op, "%s has more than %d decimals", d.String(), exp)
	}
	return toInt64(shifted, op)
}
