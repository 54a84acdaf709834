package lotledger

import (
	"time"

	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
)

// PortfolioTxType enumerates security movements in a portfolio.
type PortfolioTxType int

const (
	Purchase PortfolioTxType = iota + 1
	Sale
	TransferIn
	TransferOut
	DeliveryInbound
	DeliveryOutbound
)

func (t PortfolioTxType) String() string {
	switch t {
	case Purchase:
		return "purchase"
	case Sale:
		return "sale"
	case TransferIn:
		return "transfer-in"
	case TransferOut:
		return "transfer-out"
	case DeliveryInbound:
		return "delivery-inbound"
	case DeliveryOutbound:
		return "delivery-outbound"
	}
	return "unknown"
}

// IsAcquisition reports whether the type brings shares into the portfolio.
func (t PortfolioTxType) IsAcquisition() bool {
	return t == Purchase || t == TransferIn || t == DeliveryInbound
}

// AccountTxType enumerates cash movements on an account.
type AccountTxType int

const (
	Deposit AccountTxType = iota + 1
	Removal
	Interest
	InterestCharge
	Dividend
	Fee
	FeeRefund
	Tax
	TaxRefund
	Buy
	Sell
	CashTransferIn
	CashTransferOut
)

var accountTxTypes = [...]string{
	Deposit:         "deposit",
	Removal:         "removal",
	Interest:        "interest",
	InterestCharge:  "interest-charge",
	Dividend:        "dividend",
	Fee:             "fee",
	FeeRefund:       "fee-refund",
	Tax:             "tax",
	TaxRefund:       "tax-refund",
	Buy:             "buy",
	Sell:            "sell",
	CashTransferIn:  "transfer-in",
	CashTransferOut: "transfer-out",
}

func (t AccountTxType) String() string {
	if t > 0 && int(t) < len(accountTxTypes) {
		return accountTxTypes[t]
	}
	return "unknown"
}

// PortfolioTransaction moves shares of a security in or out of a portfolio.
// Amounts are in the transaction currency.
type PortfolioTransaction struct {
	ID        uuid.UUID
	Seq       int // position in the original ledger
	Portfolio *Portfolio
	Security  *Security
	Type      PortfolioTxType
	Time      time.Time
	Shares    Shares
	Gross     Money
	Fees      Money
	Taxes     Money
	Note      string
	Cross     *CrossEntry
	FX        *FXAmount // recorded exchange into the security currency, if any
}

// FXAmount is a gross value recorded in two currencies: Local, in the
// transaction currency, is worth Foreign.
type FXAmount struct {
	Local   Money
	Foreign Money
}

// convert expresses m, in the local currency, in the foreign currency at the
// exchange this amount records.
func (x *FXAmount) convert(m Money) (Money, error) {
	if m.cur != x.Local.cur {
		return Money{}, arithmeticErr(CurrencyMismatch, "FXAmount.convert", "%s != %s", m.cur, x.Local.cur)
	}
	u, err := mulDiv(m.units, x.Foreign.units, x.Local.units, "FXAmount.convert")
	return Money{units: u, cur: x.Foreign.cur}, err
}

// Day returns the UTC day of the transaction.
func (t *PortfolioTransaction) Day() date.Date { return date.Of(t.Time) }

// Value is what the lot engine books: gross plus fees for acquisitions (the
// cost), gross minus fees for disposals (the proceeds). Taxes are excluded.
func (t *PortfolioTransaction) Value() (Money, error) {
	if t.Type.IsAcquisition() {
		return t.Gross.Add(t.Fees)
	}
	return t.Gross.Sub(t.Fees)
}

// AccountTransaction moves cash on an account.
type AccountTransaction struct {
	ID       uuid.UUID
	Seq      int
	Account  *Account
	Security *Security // dividends, buys and sells
	Type     AccountTxType
	Time     time.Time
	Amount   Money
	Note     string
	Cross    *CrossEntry
}

// CrossKind enumerates the kinds of paired transactions.
type CrossKind int

const (
	CrossBuySell CrossKind = iota + 1
	CrossAccountTransfer
	CrossPortfolioTransfer
)

func (k CrossKind) String() string {
	switch k {
	case CrossBuySell:
		return "buy-sell"
	case CrossAccountTransfer:
		return "account-transfer"
	case CrossPortfolioTransfer:
		return "portfolio-transfer"
	}
	return "unknown"
}

// CrossLeg is one side of a CrossEntry, its amount in the owner's currency.
type CrossLeg struct {
	Owner       uuid.UUID // account or portfolio
	Transaction uuid.UUID
	Amount      Money
}

// CrossEntry links the two legs of a transfer or of a buy/sell.
type CrossEntry struct {
	Kind CrossKind
	Time time.Time
	Legs [2]CrossLeg
}

// Peer returns the leg opposite to transaction id.
func (c *CrossEntry) Peer(id uuid.UUID) (CrossLeg, bool) {
	switch id {
	case c.Legs[0].Transaction:
		return c.Legs[1], true
	case c.Legs[1].Transaction:
		return c.Legs[0], true
	}
	return CrossLeg{}, false
}
