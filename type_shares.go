package lotledger

import (
	"github.com/shopspring/decimal"
)

// Shares is an exact share quantity, stored as an integer count of 10^-8 shares.
type Shares struct {
	units int64
}

// Q returns whole shares. It panics if whole×10^8 overflows, so it is meant for constants.
func Q(whole int64) Shares {
	units, err := mulDiv(whole, Scale, 1, "Q")
	if err != nil {
		panic(err)
	}
	return Shares{units: units}
}

// SharesUnits returns the quantity holding exactly units×10^-8 shares.
func SharesUnits(units int64) Shares { return Shares{units: units} }

func (s Shares) Units() int64              { return s.units }
func (s Shares) IsZero() bool              { return s.units == 0 }
func (s Shares) IsPositive() bool          { return s.units > 0 }
func (s Shares) IsNegative() bool          { return s.units < 0 }
func (s Shares) Equal(t Shares) bool       { return s.units == t.units }
func (s Shares) LessThan(t Shares) bool    { return s.units < t.units }
func (s Shares) GreaterThan(t Shares) bool { return s.units > t.units }
func (s Shares) Decimal() decimal.Decimal  { return decimal.New(s.units, -scaleExp) }
func (s Shares) String() string            { return s.Decimal().String() }

// MarshalJSON writes the exact quantity as a decimal string.
func (s Shares) MarshalJSON() ([]byte, error) { return s.Decimal().MarshalJSON() }

// Add returns s+t.
func (s Shares) Add(t Shares) (Shares, error) {
	u, err := addInt64(s.units, t.units, "Shares.Add")
	return Shares{units: u}, err
}

// Sub returns s-t.
func (s Shares) Sub(t Shares) (Shares, error) {
	u, err := subInt64(s.units, t.units, "Shares.Sub")
	return Shares{units: u}, err
}

// Split returns s scaled by r. The result must be exact at 10^-8.
func (s Shares) Split(r Ratio) (Shares, error) {
	u, err := mulDivExact(s.units, r.New, r.Old, "Shares.Split")
	return Shares{units: u}, err
}

// Min returns the smaller of s and t.
func (s Shares) Min(t Shares) Shares {
	if t.units < s.units {
		return t
	}
	return s
}
