package lotledger

import (
	"testing"

	"github.com/etnz/lotledger/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateTable(t *testing.T) {
	rates := NewRateTable()
	rates.Set("USD", "EUR", date.MustParse("2024-01-01"), RateUnits(RateScale/2))
	rates.Set("USD", "EUR", date.MustParse("2024-02-01"), RateUnits(RateScale/4))

	tests := []struct {
		from, to string
		on       string
		want     string
	}{
		{"USD", "EUR", "2024-01-01", "0.5"},
		{"USD", "EUR", "2024-01-31", "0.5"},
		{"USD", "EUR", "2024-03-01", "0.25"},
		{"EUR", "USD", "2024-01-15", "2"}, // inverse
		{"EUR", "EUR", "1970-01-01", "1"},
	}
	for _, tt := range tests {
		got, err := rates.Rate(tt.from, tt.to, date.MustParse(tt.on))
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "%s%s on %s", tt.from, tt.to, tt.on)
	}

	_, err := rates.Rate("USD", "EUR", date.MustParse("2023-12-31"))
	assert.ErrorIs(t, err, ErrRateUnavailable)
	_, err = rates.Rate("USD", "CHF", date.MustParse("2024-01-01"))
	assert.ErrorIs(t, err, ErrRateUnavailable)

	assert.Equal(t, 2, rates.Len())
	assert.Equal(t, [][2]string{{"USD", "EUR"}}, rates.Currencies())
}

func TestRateTable_Clone(t *testing.T) {
	rates := NewRateTable()
	rates.Set("USD", "EUR", date.MustParse("2024-01-01"), RateUnits(RateScale/2))
	c := rates.Clone()
	rates.Set("USD", "EUR", date.MustParse("2024-02-01"), RateUnits(RateScale/4))
	rates.Set("CHF", "EUR", date.MustParse("2024-02-01"), RateUnits(RateScale))

	assert.Equal(t, 1, c.Len())
	got, err := c.Rate("USD", "EUR", date.MustParse("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "0.5", got.String())
}

func TestChainRates(t *testing.T) {
	day := date.MustParse("2024-01-01")
	embedded := NewRateTable()
	embedded.Set("USD", "EUR", day, RateUnits(RateScale/2))
	external := NewRateTable()
	external.Set("USD", "EUR", day, RateUnits(RateScale))
	external.Set("CHF", "EUR", day, RateUnits(RateScale))

	chain := ChainRates{embedded, nil, external}
	got, err := chain.Rate("USD", "EUR", day)
	require.NoError(t, err)
	assert.Equal(t, "0.5", got.String(), "the first provider wins")

	got, err = chain.Rate("CHF", "EUR", day)
	require.NoError(t, err)
	assert.Equal(t, "1", got.String())

	_, err = chain.Rate("JPY", "EUR", day)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestConvert(t *testing.T) {
	rates := NewRateTable()
	day := date.MustParse("2024-01-01")
	rates.Set("USD", "EUR", day, RateUnits(RateScale/2))

	got, err := convert(rates, USD(10), "EUR", day)
	require.NoError(t, err)
	assert.Equal(t, EUR(5), got)

	// zero amounts need no rate
	got, err = convert(rates, Money{}, "JPY", day)
	require.NoError(t, err)
	assert.Equal(t, "JPY", got.Currency())
}
