package lotledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// RateScale is the fixed-point factor of Rate: one unit is 10^-12.
const RateScale int64 = 1_000_000_000_000

const rateExp = 12

// Rate is an exchange rate. A rate for the pair BASE/QUOTE converts an amount in
// BASE into QUOTE: quote = base × rate.
type Rate struct {
	units int64
}

// One is the identity rate.
var One = Rate{units: RateScale}

// RateUnits returns the rate holding exactly units×10^-12.
func RateUnits(units int64) Rate { return Rate{units: units} }

// ParseRate parses a positive decimal rate such as "1.0845".
func ParseRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Rate{}, validationErr(InvalidValue, s, "not a decimal rate: %w", err)
	}
	return RateFromDecimal(d)
}

// RateFromDecimal converts an exact decimal into a Rate. The rate must be
// positive and representable at 10^-12.
func RateFromDecimal(d decimal.Decimal) (Rate, error) {
	if !d.IsPositive() {
		return Rate{}, validationErr(InvalidValue, d.String(), "exchange rate must be positive")
	}
	u, err := fromDecimal(d, rateExp, "RateFromDecimal")
	if err != nil {
		return Rate{}, err
	}
	return Rate{units: u}, nil
}

func (r Rate) Units() int64             { return r.units }
func (r Rate) IsValid() bool            { return r.units > 0 }
func (r Rate) Decimal() decimal.Decimal { return decimal.New(r.units, -rateExp) }
func (r Rate) String() string           { return r.Decimal().String() }

// Inverse returns the rate of the reversed pair.
func (r Rate) Inverse() (Rate, error) {
	u, err := mulDiv(RateScale, RateScale, r.units, "Rate.Inverse")
	if err != nil {
		return Rate{}, err
	}
	if u == 0 {
		return Rate{}, arithmeticErr(Unrepresentable, "Rate.Inverse", "inverse of %s rounds to zero", r)
	}
	return Rate{units: u}, nil
}

// Ratio is a split ratio: Old shares become New shares.
type Ratio struct {
	New, Old int64
}

// ParseRatio parses "new:old", e.g. "2:1" for a 2-for-1 split.
func ParseRatio(s string) (Ratio, error) {
	n, o, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Ratio{}, fmt.Errorf("split ratio %q: want \"new:old\"", s)
	}
	num, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	if err != nil {
		return Ratio{}, fmt.Errorf("split ratio %q: %w", s, err)
	}
	den, err := strconv.ParseInt(strings.TrimSpace(o), 10, 64)
	if err != nil {
		return Ratio{}, fmt.Errorf("split ratio %q: %w", s, err)
	}
	r := Ratio{New: num, Old: den}
	if !r.IsValid() {
		return Ratio{}, fmt.Errorf("split ratio %q: terms must be positive", s)
	}
	return r, nil
}

func (r Ratio) IsValid() bool  { return r.New > 0 && r.Old > 0 }
func (r Ratio) String() string { return fmt.Sprintf("%d:%d", r.New, r.Old) }
