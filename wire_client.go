package lotledger

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// CurrentVersion is the newest client schema version this decoder understands.
const CurrentVersion = 66

// RawClient mirrors the encoded client snapshot. It carries wire values as-is:
// amounts in hundredths, shares in 10^-8, references as UUID strings.
type RawClient struct {
	Version      int32
	BaseCurrency string
	Securities   []RawSecurity
	Accounts     []RawAccount
	Portfolios   []RawPortfolio
	Transactions []RawTransaction
}

type RawSecurity struct {
	UUID       string
	Name       string
	Currency   string
	ISIN       string
	Ticker     string
	Attributes []RawKeyValue
	Events     []RawSecurityEvent
	Retired    bool
}

type RawKeyValue struct {
	Key   string
	Value string
}

// WireEventType enumerates security event kinds.
type WireEventType int32

const (
	WireSplit    WireEventType = 0
	WireNote     WireEventType = 1
	WireDividend WireEventType = 2
)

type RawSecurityEvent struct {
	Type     WireEventType
	EpochDay int64
	Details  string
	Amount   int64
	Currency string
}

type RawAccount struct {
	UUID     string
	Name     string
	Currency string
	Retired  bool
}

type RawPortfolio struct {
	UUID             string
	Name             string
	ReferenceAccount string
	Retired          bool
}

// WireTxType enumerates transaction kinds as encoded.
type WireTxType int32

const (
	WirePurchase WireTxType = iota
	WireSale
	WireInboundDelivery
	WireOutboundDelivery
	WireSecurityTransfer
	WireCashTransfer
	WireDeposit
	WireRemoval
	WireDividendPayment
	WireInterest
	WireInterestCharge
	WireTax
	WireTaxRefund
	WireFee
	WireFeeRefund
)

type RawTransaction struct {
	UUID           string
	Type           WireTxType
	Account        string
	Portfolio      string
	OtherAccount   string
	OtherPortfolio string
	OtherUUID      string
	Date           RawTimestamp
	Currency       string
	Amount         int64
	Shares         int64
	Note           string
	Security       string
	Units          []RawUnit
}

type RawTimestamp struct {
	Seconds int64
	Nanos   int32
}

// WireUnitType enumerates transaction unit kinds.
type WireUnitType int32

const (
	WireGrossValue WireUnitType = 0
	WireUnitTax    WireUnitType = 1
	WireUnitFee    WireUnitType = 2
)

type RawUnit struct {
	Type       WireUnitType
	Amount     int64
	Currency   string
	FXAmount   int64
	FXCurrency string
	FXRate     *RawDecimal
}

// RawDecimal is an arbitrary precision decimal: Value is the big-endian two's
// complement unscaled integer, the number is Value×10^-Scale.
type RawDecimal struct {
	Scale     uint32
	Precision uint32
	Value     []byte
}

// Decimal returns the exact value of d.
func (d RawDecimal) Decimal() decimal.Decimal {
	unscaled := new(big.Int).SetBytes(d.Value)
	if len(d.Value) > 0 && d.Value[0]&0x80 != 0 {
		// two's complement: subtract 2^(8·len)
		unscaled.Sub(unscaled, new(big.Int).Lsh(big.NewInt(1), uint(8*len(d.Value))))
	}
	return decimal.NewFromBigInt(unscaled, -int32(d.Scale))
}

// DecodeRaw validates the archive and decodes its client message into a raw tree.
func DecodeRaw(data []byte) (*RawClient, error) {
	entry, err := OpenArchive(data)
	if err != nil {
		return nil, err
	}
	return decodeClient(entry)
}

// decodeClient decodes a payload entry (magic included).
func decodeClient(entry []byte) (*RawClient, error) {
	body := &message{buf: entry[len(Magic):], base: len(Magic)}

	// The version is checked before anything else: a future epoch may not
	// parse as this schema at all.
	version, err := scanVersion(*body)
	if version > CurrentVersion || (err == nil && version < 1) {
		return nil, formatErr(UnsupportedVersion, -1, "client version %d, supported 1 to %d", version, CurrentVersion)
	}
	if err != nil {
		return nil, err
	}

	c := &RawClient{}
	err = decodeEach(body, func(f field) (err error) {
		switch f.num {
		case 1:
			c.Version, err = f.int32()
		case 2:
			var s RawSecurity
			if s, err = decodeSecurity(f); err == nil {
				c.Securities = append(c.Securities, s)
			}
		case 3:
			var a RawAccount
			if a, err = decodeAccount(f); err == nil {
				c.Accounts = append(c.Accounts, a)
			}
		case 4:
			var p RawPortfolio
			if p, err = decodePortfolio(f); err == nil {
				c.Portfolios = append(c.Portfolios, p)
			}
		case 5:
			var t RawTransaction
			if t, err = decodeTransaction(f); err == nil {
				c.Transactions = append(c.Transactions, t)
			}
		case 12:
			c.BaseCurrency, err = f.string()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// scanVersion walks the top-level fields only, looking for the version.
func scanVersion(m message) (int32, error) {
	var version int32
	err := decodeEach(&m, func(f field) (err error) {
		if f.num == 1 {
			version, err = f.int32()
		}
		return err
	})
	return version, err
}

func decodeSecurity(f field) (s RawSecurity, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			s.UUID, err = f.string()
		case 3:
			s.Name, err = f.string()
		case 4:
			s.Currency, err = f.string()
		case 7:
			s.ISIN, err = f.string()
		case 8:
			s.Ticker, err = f.string()
		case 17:
			var kv RawKeyValue
			if kv, err = decodeKeyValue(f); err == nil {
				s.Attributes = append(s.Attributes, kv)
			}
		case 18:
			var e RawSecurityEvent
			if e, err = decodeSecurityEvent(f); err == nil {
				s.Events = append(s.Events, e)
			}
		case 20:
			s.Retired, err = f.bool()
		}
		return err
	})
	return s, err
}

func decodeKeyValue(f field) (kv RawKeyValue, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			kv.Key, err = f.string()
		case 2:
			// AnyValue: only the string alternative is meaningful here.
			err = decodeNested(f, func(f field) (err error) {
				if f.num == 2 {
					kv.Value, err = f.string()
				}
				return err
			})
		}
		return err
	})
	return kv, err
}

func decodeSecurityEvent(f field) (e RawSecurityEvent, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			e.Type = WireEventType(v)
		case 2:
			e.EpochDay, err = f.int64()
		case 4:
			e.Details, err = f.string()
		case 6:
			e.Amount, err = f.int64()
		case 7:
			e.Currency, err = f.string()
		}
		return err
	})
	return e, err
}

func decodeAccount(f field) (a RawAccount, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			a.UUID, err = f.string()
		case 2:
			a.Name, err = f.string()
		case 3:
			a.Currency, err = f.string()
		case 5:
			a.Retired, err = f.bool()
		}
		return err
	})
	return a, err
}

func decodePortfolio(f field) (p RawPortfolio, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			p.UUID, err = f.string()
		case 2:
			p.Name, err = f.string()
		case 4:
			p.ReferenceAccount, err = f.string()
		case 5:
			p.Retired, err = f.bool()
		}
		return err
	})
	return p, err
}

func decodeTransaction(f field) (t RawTransaction, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			t.UUID, err = f.string()
		case 2:
			var v int32
			v, err = f.int32()
			t.Type = WireTxType(v)
		case 3:
			t.Account, err = f.string()
		case 4:
			t.Portfolio, err = f.string()
		case 5:
			t.OtherAccount, err = f.string()
		case 6:
			t.OtherPortfolio, err = f.string()
		case 7:
			t.OtherUUID, err = f.string()
		case 9:
			t.Date, err = decodeTimestamp(f)
		case 10:
			t.Currency, err = f.string()
		case 11:
			t.Amount, err = f.int64()
		case 12:
			t.Shares, err = f.int64()
		case 13:
			t.Note, err = f.string()
		case 14:
			t.Security, err = f.string()
		case 15:
			var u RawUnit
			if u, err = decodeUnit(f); err == nil {
				t.Units = append(t.Units, u)
			}
		}
		return err
	})
	return t, err
}

func decodeTimestamp(f field) (ts RawTimestamp, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			ts.Seconds, err = f.int64()
		case 2:
			ts.Nanos, err = f.int32()
		}
		return err
	})
	return ts, err
}

func decodeUnit(f field) (u RawUnit, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			var v int32
			v, err = f.int32()
			u.Type = WireUnitType(v)
		case 2:
			u.Amount, err = f.int64()
		case 3:
			u.Currency, err = f.string()
		case 4:
			u.FXAmount, err = f.int64()
		case 5:
			u.FXCurrency, err = f.string()
		case 6:
			var d RawDecimal
			if d, err = decodeDecimal(f); err == nil {
				u.FXRate = &d
			}
		}
		return err
	})
	return u, err
}

func decodeDecimal(f field) (d RawDecimal, err error) {
	err = decodeNested(f, func(f field) (err error) {
		switch f.num {
		case 1:
			d.Scale, err = f.uint32()
		case 2:
			d.Precision, err = f.uint32()
		case 3:
			d.Value, err = f.raw()
		}
		return err
	})
	return d, err
}
