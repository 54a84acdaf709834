package lotledger

import (
	"testing"

	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_Pairs(t *testing.T) {
	f := newFixture().
		buy("2024-01-10", GOOG, 1, 100).
		buy("2024-01-11", ACME, 2, 200).
		buy("2024-01-12", ACME, 1, 100)
	f.tx(RawTransaction{
		Type:      WirePurchase,
		Portfolio: otherPortfolio,
		Account:   eurAccount,
		Security:  ACME,
		Date:      ts("2024-01-12"),
		Currency:  "EUR",
		Amount:    5000,
		Shares:    Scale,
	})
	l := f.ledger(t)

	want := []PairKey{
		pair(mainPortfolio, ACME),
		pair(mainPortfolio, GOOG),
		pair(otherPortfolio, ACME),
	}
	assert.Equal(t, want, l.Pairs())
	assert.Len(t, l.PairTransactions(pair(mainPortfolio, ACME)), 2)
	assert.Empty(t, l.PairTransactions(pair(otherPortfolio, GOOG)))
}

func TestLedger_Lookups(t *testing.T) {
	l := newFixture().ledger(t)

	require.NotNil(t, l.Security(uuid.MustParse(ACME)))
	assert.Equal(t, "ACME", l.Security(uuid.MustParse(ACME)).Label())
	assert.Equal(t, "Main", l.Portfolio(uuid.MustParse(mainPortfolio)).Name)
	assert.Equal(t, "USD", l.Account(uuid.MustParse(usdAccount)).Currency)

	assert.Nil(t, l.Security(uuid.MustParse(mainPortfolio)))
	assert.Nil(t, l.Portfolio(uuid.Nil))
	assert.Nil(t, l.Account(uuid.MustParse(ACME)))
}

func TestLedger_Splits(t *testing.T) {
	l := newFixture().
		split(ACME, "2024-06-01", "3:1").
		split(ACME, "2024-03-01", "2:1").
		ledger(t)

	splits := l.Splits(uuid.MustParse(ACME))
	require.Len(t, splits, 2)
	assert.Equal(t, date.MustParse("2024-03-01"), splits[0].Date)
	assert.Equal(t, Ratio{New: 2, Old: 1}, splits[0].Ratio)
	assert.Equal(t, Ratio{New: 3, Old: 1}, splits[1].Ratio)

	assert.Empty(t, l.Splits(uuid.MustParse(GOOG)))
	assert.Empty(t, l.Splits(uuid.Nil))
}

func TestLedger_Stats(t *testing.T) {
	f := newFixture().
		buy("2024-01-10", ACME, 2, 200).
		sell("2024-02-10", ACME, 1, 150)
	f.raw.Securities[1].Retired = true
	s := f.ledger(t).Stats()

	assert.Equal(t, 2, s.Securities)
	assert.Equal(t, 2, s.Accounts)
	assert.Equal(t, 2, s.Portfolios)
	assert.Equal(t, 1, s.RetiredSecurities)
	assert.Equal(t, 2, s.PortfolioTransactions)
	assert.Equal(t, 2, s.AccountTransactions)
	assert.Equal(t, 1, s.Pairs)
}
