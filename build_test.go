package lotledger

import (
	"errors"
	"testing"
	"time"

	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validationKind decodes f and returns the kind and entity of the ValidationError.
func validationKind(t *testing.T, f *fixture) (ValidationErrorKind, string) {
	t.Helper()
	_, err := Decode(f.archive(t))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	return verr.Kind, verr.Entity
}

func TestBuild_BuySell(t *testing.T) {
	f := newFixture().buy("2024-01-02", ACME, 10, 1_005, fee(5))
	l := f.ledger(t)

	p := l.Portfolio(uuid.MustParse(mainPortfolio))
	require.Len(t, p.Transactions, 1)
	pt := p.Transactions[0]
	assert.Equal(t, Purchase, pt.Type)
	assert.Equal(t, Q(10), pt.Shares)
	assert.Equal(t, EUR(1_000), pt.Gross)
	assert.Equal(t, EUR(5), pt.Fees)
	assert.Equal(t, date.MustParse("2024-01-02"), pt.Day())

	a := l.Account(uuid.MustParse(eurAccount))
	require.Len(t, a.Transactions, 1)
	at := a.Transactions[0]
	assert.Equal(t, Buy, at.Type)
	assert.Equal(t, EUR(1_005), at.Amount)

	require.NotNil(t, pt.Cross)
	assert.Same(t, pt.Cross, at.Cross)
	assert.Equal(t, CrossBuySell, pt.Cross.Kind)
	peer, ok := pt.Cross.Peer(pt.ID)
	require.True(t, ok)
	assert.Equal(t, at.ID, peer.Transaction)
	assert.Less(t, pt.Seq, at.Seq)

	assert.Equal(t, []PairKey{pair(mainPortfolio, ACME)}, l.Pairs())
	assert.Equal(t, "EUR", l.BaseCurrency)
}

func TestBuild_SaleGross(t *testing.T) {
	tax := RawUnit{Type: WireUnitTax, Amount: 2_00}
	l := newFixture().
		buy("2024-01-02", ACME, 10, 1_000).
		sell("2024-02-02", ACME, 10, 1_193, fee(5), tax).
		ledger(t)

	sale := l.PairTransactions(pair(mainPortfolio, ACME))[1]
	// disposals: gross = amount + fees + taxes
	assert.Equal(t, EUR(1_200), sale.Gross)
	proceeds, err := sale.Value()
	require.NoError(t, err)
	assert.Equal(t, EUR(1_195), proceeds)
}

func TestBuild_DanglingSecurity(t *testing.T) {
	missing := "c0000000-0000-0000-0000-0000000000ff"
	f := newFixture().
		buy("2024-01-02", ACME, 10, 1_000).
		buy("2024-01-03", missing, 10, 1_000)

	kind, entity := validationKind(t, f)
	assert.Equal(t, DanglingReference, kind)
	assert.Equal(t, missing, entity)
}

func TestBuild_DanglingReferences(t *testing.T) {
	missing := "e0000000-0000-0000-0000-000000000001"
	tests := map[string]func(*fixture){
		"account": func(f *fixture) {
			f.tx(RawTransaction{Type: WireDeposit, Account: missing, Amount: 100})
		},
		"other account": func(f *fixture) {
			f.tx(RawTransaction{Type: WireCashTransfer, Account: eurAccount, OtherAccount: missing, Amount: 100})
		},
		"other portfolio": func(f *fixture) {
			f.tx(RawTransaction{Type: WireSecurityTransfer, Portfolio: mainPortfolio, OtherPortfolio: missing, Security: ACME, Shares: Scale})
		},
		"reference account": func(f *fixture) {
			f.raw.Portfolios[0].ReferenceAccount = missing
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			mutate(f)
			kind, entity := validationKind(t, f)
			assert.Equal(t, DanglingReference, kind)
			assert.Equal(t, missing, entity)
		})
	}
}

func TestBuild_Duplicates(t *testing.T) {
	f := newFixture()
	f.raw.Securities = append(f.raw.Securities, f.raw.Securities[0])
	kind, entity := validationKind(t, f)
	assert.Equal(t, DuplicateIdentity, kind)
	assert.Equal(t, ACME, entity)

	f = newFixture()
	f.tx(RawTransaction{UUID: "d0000000-0000-0000-0000-000000000001", Type: WireDeposit, Account: eurAccount, Amount: 100})
	f.tx(RawTransaction{UUID: "d0000000-0000-0000-0000-000000000001", Type: WireRemoval, Account: eurAccount, Amount: 100})
	kind, _ = validationKind(t, f)
	assert.Equal(t, DuplicateIdentity, kind)
}

func TestBuild_InvalidValues(t *testing.T) {
	tests := map[string]func(*fixture){
		"bad uuid": func(f *fixture) {
			f.raw.Accounts[0].UUID = "not-a-uuid"
		},
		"zero shares": func(f *fixture) {
			f.buy("2024-01-02", ACME, 0, 100)
		},
		"bad split": func(f *fixture) {
			f.split(ACME, "2024-01-02", "2-1")
		},
		"fees above amount": func(f *fixture) {
			f.buy("2024-01-02", ACME, 1, 10, fee(20))
		},
		"unknown type": func(f *fixture) {
			f.tx(RawTransaction{Type: 42, Account: eurAccount})
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			mutate(f)
			kind, _ := validationKind(t, f)
			assert.Equal(t, InvalidValue, kind)
		})
	}
}

func TestBuild_CashTransferAcrossCurrencies(t *testing.T) {
	rate := RawDecimal{Scale: 2, Value: []byte{0x5c}} // 0.92
	transfer := RawTransaction{
		Type:         WireCashTransfer,
		Account:      usdAccount,
		OtherAccount: eurAccount,
		Date:         ts("2024-01-31"),
		Currency:     "USD",
		Amount:       100_00,
		Units: []RawUnit{{
			Type:       WireGrossValue,
			Amount:     100_00,
			Currency:   "USD",
			FXAmount:   92_00,
			FXCurrency: "EUR",
			FXRate:     &rate,
		}},
	}
	// fxAmount × rate must give the amount: 92 EUR at 0.92 is not 100 USD
	f := newFixture().tx(transfer)
	kind, _ := validationKind(t, f)
	assert.Equal(t, InconsistentCrossEntry, kind)

	// 92 EUR at 1/0.92
	inverse := RawDecimal{Scale: 6, Value: []byte{0x10, 0x95, 0xed}} // 1.086957
	transfer.Units[0].FXRate = &inverse
	transfer.UUID = ""
	l := newFixture().tx(transfer).ledger(t)

	in := l.Account(uuid.MustParse(eurAccount)).Transactions[0]
	out := l.Account(uuid.MustParse(usdAccount)).Transactions[0]
	assert.Equal(t, CashTransferIn, in.Type)
	assert.Equal(t, EUR(92), in.Amount)
	assert.Equal(t, USD(100), out.Amount)
	assert.Equal(t, CrossAccountTransfer, in.Cross.Kind)

	// the unit rate is embedded in the ledger
	r, err := l.Rates.Rate("EUR", "USD", date.MustParse("2024-02-15"))
	require.NoError(t, err)
	assert.Equal(t, "1.086957", r.String())
}

func TestBuild_CashTransferWithoutFX(t *testing.T) {
	f := newFixture().tx(RawTransaction{
		Type:         WireCashTransfer,
		Account:      usdAccount,
		OtherAccount: eurAccount,
		Amount:       100_00,
	})
	kind, _ := validationKind(t, f)
	assert.Equal(t, InconsistentCrossEntry, kind)
}

func TestBuild_SecurityTransfer(t *testing.T) {
	other := "d0000000-0000-0000-0000-0000000000aa"
	l := newFixture().
		buy("2024-01-02", ACME, 10, 1_000).
		tx(RawTransaction{
			Type:           WireSecurityTransfer,
			Portfolio:      mainPortfolio,
			OtherPortfolio: otherPortfolio,
			OtherUUID:      other,
			Security:       ACME,
			Date:           ts("2024-02-01"),
			Amount:         1_100_00,
			Shares:         4 * Scale,
		}).
		ledger(t)

	out := l.PairTransactions(pair(mainPortfolio, ACME))[1]
	in := l.PairTransactions(pair(otherPortfolio, ACME))[0]
	assert.Equal(t, TransferOut, out.Type)
	assert.Equal(t, TransferIn, in.Type)
	assert.Equal(t, uuid.MustParse(other), in.ID)
	assert.Equal(t, Q(4), in.Shares)
	assert.Equal(t, EUR(1_100), in.Gross)
	assert.Same(t, out.Cross, in.Cross)
	assert.Len(t, l.Pairs(), 2)
}

func TestBuild_RetiredEntitiesAreKept(t *testing.T) {
	f := newFixture().buy("2024-01-02", ACME, 10, 1_000)
	f.raw.Securities[0].Retired = true
	f.raw.Accounts[0].Retired = true
	f.raw.Portfolios[0].Retired = true
	l := f.ledger(t)

	s := l.Stats()
	assert.Equal(t, 1, s.RetiredSecurities)
	assert.Equal(t, 1, s.RetiredAccounts)
	assert.Equal(t, 1, s.RetiredPortfolios)
	assert.Equal(t, 1, s.PortfolioTransactions)
	assert.Equal(t, 1, s.AccountTransactions)
	assert.Len(t, l.PairTransactions(pair(mainPortfolio, ACME)), 1)
}

func TestBuild_Defaults(t *testing.T) {
	f := newFixture()
	f.raw.BaseCurrency = ""
	f.raw.Portfolios[1].ReferenceAccount = ""
	f.raw.Securities[0].Attributes = []RawKeyValue{{Key: "type", Value: "ETF"}}
	f.raw.Securities[0].Events = []RawSecurityEvent{
		{Type: WireNote, EpochDay: 20_000, Details: "renamed"},
		{Type: WireSplit, EpochDay: 19_000, Details: "3:1"},
		{Type: 9, EpochDay: 19_500},
	}
	f.tx(RawTransaction{Type: WireDeposit, Account: eurAccount, Amount: 100, Date: RawTimestamp{Seconds: 1, Nanos: 5}})
	l := f.ledger(t)

	assert.Equal(t, DefaultBaseCurrency, l.BaseCurrency)
	assert.Equal(t, DefaultBaseCurrency, l.Portfolio(uuid.MustParse(otherPortfolio)).Currency)
	acme := l.Security(uuid.MustParse(ACME))
	assert.Equal(t, KindETF, acme.Kind)
	// unknown event types are skipped, events are sorted
	require.Len(t, acme.Events, 2)
	assert.Equal(t, EventSplit, acme.Events[0].Kind)
	assert.Equal(t, Ratio{New: 3, Old: 1}, acme.Events[0].Ratio)
	assert.Len(t, l.Splits(acme.ID), 1)

	dep := l.Account(uuid.MustParse(eurAccount)).Transactions[0]
	assert.Equal(t, time.Unix(1, 5).UTC(), dep.Time)
	assert.Equal(t, MoneyUnits(Scale, "EUR"), dep.Amount)
}
