package lotledger

import (
	"fmt"
	"testing"

	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	mainPortfolio  = "a0000000-0000-0000-0000-000000000001"
	otherPortfolio = "a0000000-0000-0000-0000-000000000002"
	eurAccount     = "b0000000-0000-0000-0000-000000000001"
	usdAccount     = "b0000000-0000-0000-0000-000000000002"
	ACME           = "c0000000-0000-0000-0000-000000000001"
	GOOG           = "c0000000-0000-0000-0000-000000000002"
)

// EUR is a helper for test to create euro money from const
func EUR(v int64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v int64) Money { return M(v, "USD") }

func pair(portfolio, security string) PairKey {
	return PairKey{Portfolio: uuid.MustParse(portfolio), Security: uuid.MustParse(security)}
}

// ts returns the timestamp of midday on day.
func ts(day string) RawTimestamp {
	return RawTimestamp{Seconds: date.MustParse(day).Start().Unix() + 12*3600}
}

// fixture builds raw clients: one EUR and one USD account, two portfolios on
// the EUR account, ACME in EUR and GOOG in USD.
type fixture struct {
	raw RawClient
	n   int
}

func newFixture() *fixture {
	return &fixture{raw: RawClient{
		Version:      CurrentVersion,
		BaseCurrency: "EUR",
		Securities: []RawSecurity{
			{UUID: ACME, Name: "Acme Corp", Currency: "EUR", Ticker: "ACME"},
			{UUID: GOOG, Name: "Alphabet", Currency: "USD", Ticker: "GOOG"},
		},
		Accounts: []RawAccount{
			{UUID: eurAccount, Name: "Cash", Currency: "EUR"},
			{UUID: usdAccount, Name: "Dollars", Currency: "USD"},
		},
		Portfolios: []RawPortfolio{
			{UUID: mainPortfolio, Name: "Main", ReferenceAccount: eurAccount},
			{UUID: otherPortfolio, Name: "Other", ReferenceAccount: eurAccount},
		},
	}}
}

// id returns a fresh transaction uuid.
func (f *fixture) id() string {
	f.n++
	return fmt.Sprintf("d0000000-0000-0000-0000-%012d", f.n)
}

// tx appends t, giving it an id when it has none.
func (f *fixture) tx(t RawTransaction) *fixture {
	if t.UUID == "" {
		t.UUID = f.id()
	}
	f.raw.Transactions = append(f.raw.Transactions, t)
	return f
}

// trade appends a purchase or sale of whole shares in the main portfolio
// settled on the EUR account, amount in major units.
func (f *fixture) trade(typ WireTxType, day, security string, shares, amount int64, units ...RawUnit) *fixture {
	return f.tx(RawTransaction{
		Type:      typ,
		Portfolio: mainPortfolio,
		Account:   eurAccount,
		Security:  security,
		Date:      ts(day),
		Currency:  "EUR",
		Amount:    amount * 100,
		Shares:    shares * Scale,
		Units:     units,
	})
}

func (f *fixture) buy(day, security string, shares, amount int64, units ...RawUnit) *fixture {
	return f.trade(WirePurchase, day, security, shares, amount, units...)
}

func (f *fixture) sell(day, security string, shares, amount int64, units ...RawUnit) *fixture {
	return f.trade(WireSale, day, security, shares, amount, units...)
}

func (f *fixture) split(security, day, ratio string) *fixture {
	for i := range f.raw.Securities {
		if f.raw.Securities[i].UUID == security {
			f.raw.Securities[i].Events = append(f.raw.Securities[i].Events, RawSecurityEvent{
				Type:     WireSplit,
				EpochDay: date.MustParse(day).EpochDay(),
				Details:  ratio,
			})
		}
	}
	return f
}

func fee(major int64) RawUnit { return RawUnit{Type: WireUnitFee, Amount: major * 100, Currency: "EUR"} }

func (f *fixture) archive(t *testing.T) []byte {
	t.Helper()
	data, err := EncodeArchive(&f.raw)
	require.NoError(t, err)
	return data
}

func (f *fixture) ledger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Decode(f.archive(t))
	require.NoError(t, err)
	return l
}

// replay decodes the fixture and replays one pair with the default options.
func (f *fixture) replay(t *testing.T, p PairKey) (*PairResult, error) {
	t.Helper()
	return Replay(f.ledger(t), p, ReplayOptions{})
}
