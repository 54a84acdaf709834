package lotledger

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an exact amount in a currency, stored as an integer count of 10^-8 units.
//
// The zero Money has no currency and acts as a neutral element: adding it to
// any amount keeps the other currency.
type Money struct {
	units int64
	cur   string
}

// M returns whole amount major in currency. It panics if major×10^8 overflows,
// so it is meant for constants.
func M(major int64, currency string) Money {
	units, err := mulDiv(major, Scale, 1, "M")
	if err != nil {
		panic(err)
	}
	return Money{units: units, cur: currency}
}

// MoneyUnits returns the Money holding exactly units×10^-8 of currency.
func MoneyUnits(units int64, currency string) Money { return Money{units: units, cur: currency} }

// ParseMoney parses a decimal string such as "1234.56".
func ParseMoney(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, validationErr(InvalidValue, s, "not a decimal amount: %w", err)
	}
	units, err := fromDecimal(d, scaleExp, "ParseMoney")
	if err != nil {
		return Money{}, err
	}
	return Money{units: units, cur: currency}, nil
}

func (m Money) Currency() string   { return m.cur }
func (m Money) Units() int64       { return m.units }
func (m Money) IsZero() bool       { return m.units == 0 }
func (m Money) IsPositive() bool   { return m.units > 0 }
func (m Money) IsNegative() bool   { return m.units < 0 }
func (m Money) Equal(n Money) bool { return m.units == n.units && m.cur == n.cur }
func (m Money) Neg() Money         { return Money{units: -m.units, cur: m.cur} }

// Decimal returns the exact amount in major units.
func (m Money) Decimal() decimal.Decimal { return decimal.New(m.units, -scaleExp) }

// Add returns m+n. Both must share a currency (or one be the zero Money).
func (m Money) Add(n Money) (Money, error) {
	c, err := cur(m, n, "Money.Add")
	if err != nil {
		return Money{}, err
	}
	u, err := addInt64(m.units, n.units, "Money.Add")
	return Money{units: u, cur: c}, err
}

// Sub returns m-n. Both must share a currency (or one be the zero Money).
func (m Money) Sub(n Money) (Money, error) {
	c, err := cur(m, n, "Money.Sub")
	if err != nil {
		return Money{}, err
	}
	u, err := subInt64(m.units, n.units, "Money.Sub")
	return Money{units: u, cur: c}, err
}

// Prorate returns m×num/den rounded half away from zero.
func (m Money) Prorate(num, den Shares) (Money, error) {
	u, err := mulDiv(m.units, num.units, den.units, "Money.Prorate")
	return Money{units: u, cur: m.cur}, err
}

// Convert returns m expressed in currency to with rate (to = m × rate).
func (m Money) Convert(rate Rate, to string) (Money, error) {
	u, err := mulDiv(m.units, rate.units, RateScale, "Money.Convert")
	return Money{units: u, cur: to}, err
}

// rescale converts an integer count of 10^-exp units into Money.
func rescale(v int64, exp int32, currency string) (Money, error) {
	u, err := fromDecimal(decimal.New(v, -exp), scaleExp, "rescale")
	return Money{units: u, cur: currency}, err
}

// makes the "" currency totally weak.
func cur(a, b Money, op string) (string, error) {
	if a.cur == "" {
		return b.cur, nil
	}
	if b.cur == "" {
		return a.cur, nil
	}
	if a.cur != b.cur {
		return "", arithmeticErr(CurrencyMismatch, op, "%s != %s", a.cur, b.cur)
	}
	return a.cur, nil
}

// currency returns the money's currency metadata.
func (m Money) currency() money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, m.cur).Currency()
}

// String formats the amount for display, rounded to the currency's minor unit.
func (m Money) String() string {
	c := m.currency()
	dec := m.Decimal().Shift(int32(c.Fraction)).Round(0)
	return c.Formatter().Format(dec.IntPart())
}

// MarshalJSON writes the exact amount, never rounded.
func (m Money) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("currency", m.cur)
	w.Append("amount", m.Decimal())
	return w.MarshalJSON()
}
