package lotledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
)

// crossTolerance is the largest difference accepted between a recorded
// foreign-exchange amount and the amount it converts to: one hundredth, the
// wire precision.
const crossTolerance = Scale / 100

// Build resolves a raw tree into a Ledger.
//
// Every reference must resolve and every identity must be unique; amounts are
// rescaled to 10^-8 and each wire transaction is expanded into its legs. The
// first inconsistency aborts the build.
func Build(raw *RawClient) (*Ledger, error) {
	b := &builder{raw: raw, l: newLedger(), ids: make(map[uuid.UUID]struct{})}
	b.l.Version = raw.Version
	b.l.BaseCurrency = raw.BaseCurrency
	if b.l.BaseCurrency == "" {
		b.l.BaseCurrency = DefaultBaseCurrency
	}
	for _, step := range []func() error{b.securities, b.accounts, b.portfolios, b.transactions} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return b.l, nil
}

type builder struct {
	raw *RawClient
	l   *Ledger
	ids map[uuid.UUID]struct{} // transaction legs
	seq int
}

func parseID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, validationErr(InvalidValue, what, "missing uuid")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, validationErr(InvalidValue, s, "%s uuid: %w", what, err)
	}
	return id, nil
}

func (b *builder) securities() error {
	for _, rs := range b.raw.Securities {
		id, err := parseID(rs.UUID, "security")
		if err != nil {
			return err
		}
		if _, dup := b.l.securities[id]; dup {
			return validationErr(DuplicateIdentity, id.String(), "security declared twice")
		}
		s := &Security{
			ID:       id,
			Name:     rs.Name,
			Currency: rs.Currency,
			ISIN:     rs.ISIN,
			Ticker:   rs.Ticker,
			Retired:  rs.Retired,
		}
		for _, kv := range rs.Attributes {
			if kv.Key == "type" {
				s.Kind = parseSecurityKind(kv.Value)
			}
		}
		for _, re := range rs.Events {
			e, ok, err := buildEvent(s, re)
			if err != nil {
				return err
			}
			if ok {
				s.Events = append(s.Events, e)
			}
		}
		slices.SortStableFunc(s.Events, func(x, y SecurityEvent) int { return x.Date.Compare(y.Date) })
		b.l.securities[id] = s
		b.l.Securities = append(b.l.Securities, s)
	}
	return nil
}

// buildEvent converts a wire event. Event types this schema does not know are
// skipped, like unknown fields.
func buildEvent(s *Security, re RawSecurityEvent) (SecurityEvent, bool, error) {
	e := SecurityEvent{Date: date.FromEpochDay(re.EpochDay), Details: re.Details}
	switch re.Type {
	case WireSplit:
		r, err := ParseRatio(re.Details)
		if err != nil {
			return e, false, &ValidationError{Kind: InvalidValue, Entity: s.ID.String(), Err: err}
		}
		e.Kind, e.Ratio = EventSplit, r
	case WireDividend:
		cur := re.Currency
		if cur == "" {
			cur = s.Currency
		}
		m, err := rescale(re.Amount, 2, cur)
		if err != nil {
			return e, false, fmt.Errorf("security %s dividend: %w", s.ID, err)
		}
		e.Kind, e.Amount = EventDividend, m
	case WireNote:
		e.Kind = EventNote
	default:
		return e, false, nil
	}
	return e, true, nil
}

func (b *builder) accounts() error {
	for _, ra := range b.raw.Accounts {
		id, err := parseID(ra.UUID, "account")
		if err != nil {
			return err
		}
		if _, dup := b.l.accounts[id]; dup {
			return validationErr(DuplicateIdentity, id.String(), "account declared twice")
		}
		if ra.Currency == "" {
			return validationErr(InvalidValue, id.String(), "account without currency")
		}
		a := &Account{ID: id, Name: ra.Name, Currency: ra.Currency, Retired: ra.Retired}
		b.l.accounts[id] = a
		b.l.Accounts = append(b.l.Accounts, a)
	}
	return nil
}

func (b *builder) portfolios() error {
	for _, rp := range b.raw.Portfolios {
		id, err := parseID(rp.UUID, "portfolio")
		if err != nil {
			return err
		}
		if _, dup := b.l.portfolios[id]; dup {
			return validationErr(DuplicateIdentity, id.String(), "portfolio declared twice")
		}
		p := &Portfolio{ID: id, Name: rp.Name, Currency: b.l.BaseCurrency, Retired: rp.Retired}
		if rp.ReferenceAccount != "" {
			a, err := b.account(rp.ReferenceAccount, "reference account")
			if err != nil {
				return err
			}
			p.ReferenceAccount = a
			p.Currency = a.Currency
		}
		b.l.portfolios[id] = p
		b.l.Portfolios = append(b.l.Portfolios, p)
	}
	return nil
}

func (b *builder) account(ref, what string) (*Account, error) {
	id, err := parseID(ref, what)
	if err != nil {
		return nil, err
	}
	a, ok := b.l.accounts[id]
	if !ok {
		return nil, validationErr(DanglingReference, id.String(), "%s not found", what)
	}
	return a, nil
}

func (b *builder) portfolio(ref, what string) (*Portfolio, error) {
	id, err := parseID(ref, what)
	if err != nil {
		return nil, err
	}
	p, ok := b.l.portfolios[id]
	if !ok {
		return nil, validationErr(DanglingReference, id.String(), "%s not found", what)
	}
	return p, nil
}

func (b *builder) security(ref string) (*Security, error) {
	id, err := parseID(ref, "security")
	if err != nil {
		return nil, err
	}
	s, ok := b.l.securities[id]
	if !ok {
		return nil, validationErr(DanglingReference, id.String(), "security not found")
	}
	return s, nil
}

// claim registers a leg identity.
func (b *builder) claim(id uuid.UUID) error {
	if _, dup := b.ids[id]; dup {
		return validationErr(DuplicateIdentity, id.String(), "transaction declared twice")
	}
	b.ids[id] = struct{}{}
	return nil
}

// otherLeg returns the identity of the second leg of a paired transaction. When
// the archive does not record one, it is derived from the first leg.
func (b *builder) otherLeg(rt *RawTransaction, id uuid.UUID) (uuid.UUID, error) {
	other := uuid.NewSHA1(id, []byte("leg"))
	if rt.OtherUUID != "" {
		var err error
		if other, err = parseID(rt.OtherUUID, "other transaction"); err != nil {
			return uuid.Nil, err
		}
	}
	return other, b.claim(other)
}

func (b *builder) transactions() error {
	for i := range b.raw.Transactions {
		if err := b.transaction(&b.raw.Transactions[i]); err != nil {
			return err
		}
	}
	return nil
}

// txContext holds the values shared by the legs of one wire transaction.
type txContext struct {
	raw    *RawTransaction
	id     uuid.UUID
	at     time.Time
	day    date.Date
	cur    string
	amount Money
	fees   Money
	taxes  Money
	fx     []FXAmount // recorded foreign-exchange gross amounts
}

func (b *builder) transaction(rt *RawTransaction) error {
	id, err := parseID(rt.UUID, "transaction")
	if err != nil {
		return err
	}
	if err := b.claim(id); err != nil {
		return err
	}
	if rt.Date.Nanos < 0 || rt.Date.Nanos >= 1e9 {
		return validationErr(InvalidValue, id.String(), "timestamp nanos %d out of range", rt.Date.Nanos)
	}
	if rt.Amount < 0 || rt.Shares < 0 {
		return validationErr(InvalidValue, id.String(), "negative amount or shares")
	}
	at := time.Unix(rt.Date.Seconds, int64(rt.Date.Nanos)).UTC()
	c := &txContext{raw: rt, id: id, at: at, day: date.Of(at)}

	switch rt.Type {
	case WirePurchase, WireSale:
		return b.buySell(c)
	case WireInboundDelivery, WireOutboundDelivery:
		return b.delivery(c)
	case WireSecurityTransfer:
		return b.securityTransfer(c)
	case WireCashTransfer:
		return b.cashTransfer(c)
	case WireDeposit, WireRemoval, WireDividendPayment, WireInterest, WireInterestCharge,
		WireTax, WireTaxRefund, WireFee, WireFeeRefund:
		return b.cash(c)
	}
	return validationErr(InvalidValue, id.String(), "unknown transaction type %d", rt.Type)
}

// init sets the transaction currency, falling back to the owner's, then
// converts the amount and the units.
func (b *builder) init(c *txContext, fallback string) error {
	c.cur = c.raw.Currency
	if c.cur == "" {
		c.cur = fallback
	}
	var err error
	if c.amount, err = rescale(c.raw.Amount, 2, c.cur); err != nil {
		return fmt.Errorf("transaction %s: %w", c.id, err)
	}
	c.fees, c.taxes = Money{cur: c.cur}, Money{cur: c.cur}
	for _, u := range c.raw.Units {
		ucur := u.Currency
		if ucur == "" {
			ucur = c.cur
		}
		amount, err := rescale(u.Amount, 2, ucur)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", c.id, err)
		}
		switch u.Type {
		case WireUnitFee, WireUnitTax:
			if ucur != c.cur {
				return validationErr(InvalidValue, c.id.String(), "unit in %s, transaction in %s", ucur, c.cur)
			}
			if u.Type == WireUnitFee {
				c.fees, err = c.fees.Add(amount)
			} else {
				c.taxes, err = c.taxes.Add(amount)
			}
			if err != nil {
				return fmt.Errorf("transaction %s: %w", c.id, err)
			}
		case WireGrossValue:
			if u.FXCurrency == "" {
				continue
			}
			if err := b.grossValue(c, u, amount); err != nil {
				return err
			}
		}
	}
	return nil
}

// grossValue records the foreign amount of a unit and its rate.
// The rate converts the foreign currency into the unit currency.
func (b *builder) grossValue(c *txContext, u RawUnit, amount Money) error {
	fx, err := rescale(u.FXAmount, 2, u.FXCurrency)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", c.id, err)
	}
	c.fx = append(c.fx, FXAmount{Local: amount, Foreign: fx})
	// without a rate the two amounts are the only record of the exchange
	if u.FXRate == nil {
		return nil
	}
	r, err := RateFromDecimal(u.FXRate.Decimal())
	if err != nil {
		return fmt.Errorf("transaction %s: fx rate: %w", c.id, err)
	}
	converted, err := fx.Convert(r, amount.cur)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", c.id, err)
	}
	if d := converted.units - amount.units; d > crossTolerance || d < -crossTolerance {
		return validationErr(InconsistentCrossEntry, c.id.String(), "%s at %s is %s, recorded %s", fx, r, converted, amount)
	}
	b.l.Rates.Set(u.FXCurrency, amount.cur, c.day, r)
	return nil
}

// legAmount returns the transaction amount in currency cur: the amount itself,
// or the recorded foreign-exchange amount in that currency.
func (c *txContext) legAmount(cur string) (Money, error) {
	if cur == c.cur {
		return c.amount, nil
	}
	if fx := c.recorded(cur); fx != nil {
		return fx.Foreign, nil
	}
	return Money{}, validationErr(InconsistentCrossEntry, c.id.String(), "transaction in %s has no %s amount", c.cur, cur)
}

// recorded returns the recorded foreign-exchange amount in currency cur, or nil.
func (c *txContext) recorded(cur string) *FXAmount {
	for i := range c.fx {
		if c.fx[i].Foreign.cur == cur {
			return &c.fx[i]
		}
	}
	return nil
}

// gross derives the gross value from the amount: acquisitions pay fees and
// taxes on top of it, disposals have them deducted.
func (c *txContext) gross(acquisition bool) (Money, error) {
	op := Money.Add
	if acquisition {
		op = Money.Sub
	}
	g, err := op(c.amount, c.fees)
	if err == nil {
		g, err = op(g, c.taxes)
	}
	if err != nil {
		return Money{}, fmt.Errorf("transaction %s: %w", c.id, err)
	}
	if g.IsNegative() {
		return Money{}, validationErr(InvalidValue, c.id.String(), "fees and taxes exceed the amount")
	}
	return g, nil
}

// portfolioLeg appends a security movement. Without units, the leg carries
// the bare amount.
func (b *builder) portfolioLeg(c *txContext, id uuid.UUID, p *Portfolio, s *Security, typ PortfolioTxType, units bool) (*PortfolioTransaction, error) {
	if c.raw.Shares <= 0 {
		return nil, validationErr(InvalidValue, id.String(), "shares must be positive")
	}
	if s.Currency == "" {
		return nil, validationErr(InvalidValue, s.ID.String(), "security without currency held in portfolio %s", p.ID)
	}
	b.seq++
	t := &PortfolioTransaction{
		ID:        id,
		Seq:       b.seq,
		Portfolio: p,
		Security:  s,
		Type:      typ,
		Time:      c.at,
		Shares:    SharesUnits(c.raw.Shares),
		Gross:     c.amount,
		Fees:      Money{cur: c.cur},
		Taxes:     Money{cur: c.cur},
		Note:      c.raw.Note,
	}
	if units {
		g, err := c.gross(typ.IsAcquisition())
		if err != nil {
			return nil, err
		}
		t.Gross, t.Fees, t.Taxes = g, c.fees, c.taxes
	}
	if s.Currency != c.cur {
		t.FX = c.recorded(s.Currency)
	}
	p.Transactions = append(p.Transactions, t)
	k := PairKey{Portfolio: p.ID, Security: s.ID}
	b.l.pairs[k] = append(b.l.pairs[k], t)
	return t, nil
}

func (b *builder) accountLeg(c *txContext, id uuid.UUID, a *Account, s *Security, typ AccountTxType) (*AccountTransaction, error) {
	amount, err := c.legAmount(a.Currency)
	if err != nil {
		return nil, err
	}
	b.seq++
	t := &AccountTransaction{
		ID:       id,
		Seq:      b.seq,
		Account:  a,
		Security: s,
		Type:     typ,
		Time:     c.at,
		Amount:   amount,
		Note:     c.raw.Note,
	}
	a.Transactions = append(a.Transactions, t)
	return t, nil
}

func (b *builder) buySell(c *txContext) error {
	rt := c.raw
	p, err := b.portfolio(rt.Portfolio, "portfolio")
	if err != nil {
		return err
	}
	s, err := b.security(rt.Security)
	if err != nil {
		return err
	}
	a, err := b.account(rt.Account, "account")
	if err != nil {
		return err
	}
	if err := b.init(c, a.Currency); err != nil {
		return err
	}
	otherID, err := b.otherLeg(rt, c.id)
	if err != nil {
		return err
	}
	ptype, atype := Purchase, Buy
	if rt.Type == WireSale {
		ptype, atype = Sale, Sell
	}
	pt, err := b.portfolioLeg(c, c.id, p, s, ptype, true)
	if err != nil {
		return err
	}
	at, err := b.accountLeg(c, otherID, a, s, atype)
	if err != nil {
		return err
	}
	cross := &CrossEntry{Kind: CrossBuySell, Time: c.at, Legs: [2]CrossLeg{
		{Owner: p.ID, Transaction: pt.ID, Amount: c.amount},
		{Owner: a.ID, Transaction: at.ID, Amount: at.Amount},
	}}
	pt.Cross, at.Cross = cross, cross
	return nil
}

func (b *builder) delivery(c *txContext) error {
	rt := c.raw
	p, err := b.portfolio(rt.Portfolio, "portfolio")
	if err != nil {
		return err
	}
	s, err := b.security(rt.Security)
	if err != nil {
		return err
	}
	if err := b.init(c, p.Currency); err != nil {
		return err
	}
	typ := DeliveryInbound
	if rt.Type == WireOutboundDelivery {
		typ = DeliveryOutbound
	}
	_, err = b.portfolioLeg(c, c.id, p, s, typ, true)
	return err
}

// securityTransfer moves shares from portfolio to otherPortfolio. The units
// belong to the receiving side.
func (b *builder) securityTransfer(c *txContext) error {
	rt := c.raw
	from, err := b.portfolio(rt.Portfolio, "portfolio")
	if err != nil {
		return err
	}
	to, err := b.portfolio(rt.OtherPortfolio, "other portfolio")
	if err != nil {
		return err
	}
	s, err := b.security(rt.Security)
	if err != nil {
		return err
	}
	if err := b.init(c, from.Currency); err != nil {
		return err
	}
	otherID, err := b.otherLeg(rt, c.id)
	if err != nil {
		return err
	}
	out, err := b.portfolioLeg(c, c.id, from, s, TransferOut, false)
	if err != nil {
		return err
	}
	in, err := b.portfolioLeg(c, otherID, to, s, TransferIn, true)
	if err != nil {
		return err
	}
	cross := &CrossEntry{Kind: CrossPortfolioTransfer, Time: c.at, Legs: [2]CrossLeg{
		{Owner: from.ID, Transaction: out.ID, Amount: c.amount},
		{Owner: to.ID, Transaction: in.ID, Amount: c.amount},
	}}
	out.Cross, in.Cross = cross, cross
	return nil
}

func (b *builder) cashTransfer(c *txContext) error {
	rt := c.raw
	from, err := b.account(rt.Account, "account")
	if err != nil {
		return err
	}
	to, err := b.account(rt.OtherAccount, "other account")
	if err != nil {
		return err
	}
	if err := b.init(c, from.Currency); err != nil {
		return err
	}
	otherID, err := b.otherLeg(rt, c.id)
	if err != nil {
		return err
	}
	out, err := b.accountLeg(c, c.id, from, nil, CashTransferOut)
	if err != nil {
		return err
	}
	in, err := b.accountLeg(c, otherID, to, nil, CashTransferIn)
	if err != nil {
		return err
	}
	cross := &CrossEntry{Kind: CrossAccountTransfer, Time: c.at, Legs: [2]CrossLeg{
		{Owner: from.ID, Transaction: out.ID, Amount: out.Amount},
		{Owner: to.ID, Transaction: in.ID, Amount: in.Amount},
	}}
	out.Cross, in.Cross = cross, cross
	return nil
}

var cashTypes = map[WireTxType]AccountTxType{
	WireDeposit:         Deposit,
	WireRemoval:         Removal,
	WireDividendPayment: Dividend,
	WireInterest:        Interest,
	WireInterestCharge:  InterestCharge,
	WireTax:             Tax,
	WireTaxRefund:       TaxRefund,
	WireFee:             Fee,
	WireFeeRefund:       FeeRefund,
}

func (b *builder) cash(c *txContext) error {
	rt := c.raw
	a, err := b.account(rt.Account, "account")
	if err != nil {
		return err
	}
	var s *Security
	if rt.Security != "" {
		if s, err = b.security(rt.Security); err != nil {
			return err
		}
	}
	if err := b.init(c, a.Currency); err != nil {
		return err
	}
	_, err = b.accountLeg(c, c.id, a, s, cashTypes[rt.Type])
	return err
}
