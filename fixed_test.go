package lotledger

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDiv(t *testing.T) {
	tests := []struct {
		a, b, c int64
		want    int64
	}{
		{6_000, 30, 50, 3_600},
		{10, 1, 4, 3},   // 2.5 rounds away from zero
		{-10, 1, 4, -3}, // -2.5 too
		{10, 1, 3, 3},
		// the product overflows int64 but the result does not
		{math.MaxInt64, 3, 3, math.MaxInt64},
	}
	for _, tt := range tests {
		got, err := mulDiv(tt.a, tt.b, tt.c, "test")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%d×%d/%d", tt.a, tt.b, tt.c)
	}

	_, err := mulDiv(math.MaxInt64, 2, 1, "test")
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = mulDiv(1, 1, 0, "test")
	assert.ErrorIs(t, err, ErrUnrepresentable)
}

func TestMoney_Add(t *testing.T) {
	got, err := EUR(10).Add(EUR(5))
	require.NoError(t, err)
	assert.Equal(t, EUR(15), got)

	// the zero Money is neutral
	got, err = Money{}.Add(USD(3))
	require.NoError(t, err)
	assert.Equal(t, USD(3), got)

	_, err = EUR(1).Add(USD(1))
	var aerr *ArithmeticError
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, CurrencyMismatch, aerr.Kind)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = MoneyUnits(math.MaxInt64, "EUR").Add(MoneyUnits(1, "EUR"))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMoney_Prorate(t *testing.T) {
	got, err := EUR(6_000).Prorate(Q(30), Q(50))
	require.NoError(t, err)
	assert.Equal(t, EUR(3_600), got)

	// 100/3 rounds half away from zero at 10^-8
	got, err = EUR(100).Prorate(Q(1), Q(3))
	require.NoError(t, err)
	assert.Equal(t, int64(33_33333333), got.Units())
}

func TestMoney_Convert(t *testing.T) {
	r, err := ParseRate("0.92")
	require.NoError(t, err)
	got, err := USD(100).Convert(r, "EUR")
	require.NoError(t, err)
	assert.Equal(t, EUR(92), got)
}

func TestRescale(t *testing.T) {
	got, err := rescale(123_45, 2, "EUR")
	require.NoError(t, err)
	assert.Equal(t, int64(123_45000000), got.Units())

	_, err = rescale(math.MaxInt64/10, 2, "EUR")
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestParseMoney(t *testing.T) {
	got, err := ParseMoney("1.23456789", "EUR")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), got.Units())

	_, err = ParseMoney("1.123456789", "EUR")
	assert.ErrorIs(t, err, ErrUnrepresentable)

	_, err = ParseMoney("abc", "EUR")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "$1,234.56", MoneyUnits(1234_56000000, "USD").String())
	// display rounds to the currency fraction
	assert.Equal(t, "$0.01", MoneyUnits(500000, "USD").String())
}

func TestShares_Split(t *testing.T) {
	got, err := Q(30).Split(Ratio{New: 2, Old: 1})
	require.NoError(t, err)
	assert.Equal(t, Q(60), got)

	got, err = Q(30).Split(Ratio{New: 1, Old: 3})
	require.NoError(t, err)
	assert.Equal(t, Q(10), got)

	// 10^-8 shares cannot be split 1:3
	_, err = SharesUnits(1).Split(Ratio{New: 1, Old: 3})
	assert.ErrorIs(t, err, ErrUnrepresentable)
}

func TestRate_Inverse(t *testing.T) {
	r, err := ParseRate("0.8")
	require.NoError(t, err)
	inv, err := r.Inverse()
	require.NoError(t, err)
	assert.Equal(t, "1.25", inv.String())

	_, err = ParseRate("-1")
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = ParseRate("0")
	assert.ErrorIs(t, err, ErrInvalidValue)

	// 13 decimals are not rounded away
	_, err = ParseRate("1.0000000000004")
	assert.ErrorIs(t, err, ErrUnrepresentable)
	_, err = ParseRate("0.0000000000001")
	assert.ErrorIs(t, err, ErrUnrepresentable)
	r, err = ParseRate("1.000000000001")
	require.NoError(t, err)
	assert.Equal(t, RateScale+1, r.Units())
}

func TestParseRatio(t *testing.T) {
	r, err := ParseRatio("2:1")
	require.NoError(t, err)
	assert.Equal(t, Ratio{New: 2, Old: 1}, r)
	assert.Equal(t, "2:1", r.String())

	for _, s := range []string{"", "2", "0:1", "1:-1", "a:b"} {
		_, err := ParseRatio(s)
		assert.Error(t, err, s)
	}
}
