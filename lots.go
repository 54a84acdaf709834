package lotledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lot is a parcel of shares acquired by one transaction, still (partly) held.
// Costs are in the security currency and in the base currency.
type Lot struct {
	ID               uuid.UUID // originating transaction
	Pair             PairKey
	Opened           time.Time
	OriginalShares   Shares
	Shares           Shares
	OriginalCost     Money
	Cost             Money
	OriginalCostBase Money
	CostBase         Money
}

// MarshalJSON writes the lot with a stable field order.
func (l Lot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", l.ID)
	w.EmbedFrom(l.Pair)
	w.Append("opened", l.Opened)
	w.Append("originalShares", l.OriginalShares)
	w.Append("shares", l.Shares)
	w.Append("originalCost", l.OriginalCost)
	w.Append("cost", l.Cost)
	w.Append("originalCostBase", l.OriginalCostBase)
	w.Append("costBase", l.CostBase)
	return w.MarshalJSON()
}

// RealizedGain is the outcome of closing (part of) one lot.
type RealizedGain struct {
	Transaction  uuid.UUID // closing transaction
	Lot          uuid.UUID
	Pair         PairKey
	Closed       time.Time
	Shares       Shares
	Proceeds     Money
	Cost         Money
	Gain         Money
	ProceedsBase Money
	CostBase     Money
	GainBase     Money
}

// MarshalJSON writes the gain with a stable field order.
func (g RealizedGain) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("transaction", g.Transaction)
	w.Append("lot", g.Lot)
	w.EmbedFrom(g.Pair)
	w.Append("closed", g.Closed)
	w.Append("shares", g.Shares)
	w.Append("proceeds", g.Proceeds)
	w.Append("cost", g.Cost)
	w.Append("gain", g.Gain)
	w.Append("proceedsBase", g.ProceedsBase)
	w.Append("costBase", g.CostBase)
	w.Append("gainBase", g.GainBase)
	return w.MarshalJSON()
}

// lotBook is the replay state of one pair: the open lots in acquisition
// order and the gains realized so far.
type lotBook struct {
	pair     PairKey
	currency string // security currency
	base     string
	rates    RateProvider
	lots     []Lot
	gains    []RealizedGain
}

// open returns the total of open shares.
func (b *lotBook) open() (Shares, error) {
	var total Shares
	for _, l := range b.lots {
		var err error
		if total, err = total.Add(l.Shares); err != nil {
			return Shares{}, err
		}
	}
	return total, nil
}

// value converts a transaction value into the security and base currencies.
// An exchange recorded on the transaction wins over the rate provider.
func (b *lotBook) value(tx *PortfolioTransaction) (sec, base Money, err error) {
	v, err := tx.Value()
	if err != nil {
		return
	}
	day := tx.Day()
	if fx := tx.FX; fx != nil && fx.Foreign.cur == b.currency && fx.Local.cur == v.cur && !fx.Local.IsZero() {
		sec, err = fx.convert(v)
	} else {
		sec, err = convert(b.rates, v, b.currency, day)
	}
	if err != nil {
		return
	}
	if v.cur == b.base {
		return sec, v, nil
	}
	base, err = convert(b.rates, sec, b.base, day)
	return
}

func (e acquireLot) apply(b *lotBook) error {
	cost, costBase, err := b.value(e.tx)
	if err != nil {
		return err
	}
	b.lots = append(b.lots, Lot{
		ID:               e.tx.ID,
		Pair:             b.pair,
		Opened:           e.tx.Time,
		OriginalShares:   e.tx.Shares,
		Shares:           e.tx.Shares,
		OriginalCost:     cost,
		Cost:             cost,
		OriginalCostBase: costBase,
		CostBase:         costBase,
	})
	return nil
}

// apply consumes lots oldest first. The new state is computed aside and only
// committed when every step succeeded.
func (e disposeLot) apply(b *lotBook) error {
	tx := e.tx
	open, err := b.open()
	if err != nil {
		return err
	}
	if tx.Shares.GreaterThan(open) {
		return &ValidationError{
			Kind:   InsufficientShares,
			Entity: tx.ID.String(),
			Pair:   b.pair,
			Err:    fmt.Errorf("%s %s shares, %s open", tx.Type, tx.Shares, open),
		}
	}
	proceeds, proceedsBase, err := b.value(tx)
	if err != nil {
		return err
	}

	lots := make([]Lot, 0, len(b.lots))
	var gains []RealizedGain
	remaining := tx.Shares
	allocated, allocatedBase := Money{cur: proceeds.cur}, Money{cur: proceedsBase.cur}
	for i, lot := range b.lots {
		if remaining.IsZero() {
			lots = append(lots, b.lots[i:]...)
			break
		}
		take := lot.Shares.Min(remaining)
		if remaining, err = remaining.Sub(take); err != nil {
			return err
		}
		next, err := lot.consume(take)
		if err != nil {
			return err
		}
		g := RealizedGain{
			Transaction: tx.ID,
			Lot:         lot.ID,
			Pair:        b.pair,
			Closed:      tx.Time,
			Shares:      take,
		}
		if g.Cost, err = lot.Cost.Sub(next.Cost); err != nil {
			return err
		}
		if g.CostBase, err = lot.CostBase.Sub(next.CostBase); err != nil {
			return err
		}
		// the last step takes the remainder so that steps sum to the proceeds
		if remaining.IsZero() {
			g.Proceeds, err = proceeds.Sub(allocated)
			if err == nil {
				g.ProceedsBase, err = proceedsBase.Sub(allocatedBase)
			}
		} else {
			g.Proceeds, err = proceeds.Prorate(take, tx.Shares)
			if err == nil {
				g.ProceedsBase, err = proceedsBase.Prorate(take, tx.Shares)
			}
			if err == nil {
				allocated, err = allocated.Add(g.Proceeds)
			}
			if err == nil {
				allocatedBase, err = allocatedBase.Add(g.ProceedsBase)
			}
		}
		if err != nil {
			return err
		}
		if g.Gain, err = g.Proceeds.Sub(g.Cost); err != nil {
			return err
		}
		if g.GainBase, err = g.ProceedsBase.Sub(g.CostBase); err != nil {
			return err
		}
		gains = append(gains, g)
		if !next.Shares.IsZero() {
			lots = append(lots, next)
		}
	}
	b.lots = lots
	b.gains = append(b.gains, gains...)
	return nil
}

// consume returns the lot left after taking shares from it. The remaining
// cost is always derived from the original cost, so that rounding does not
// accumulate over partial disposals.
func (l Lot) consume(shares Shares) (Lot, error) {
	var err error
	next := l
	if next.Shares, err = l.Shares.Sub(shares); err != nil {
		return Lot{}, err
	}
	if next.Shares.IsZero() {
		next.Cost = Money{cur: l.Cost.cur}
		next.CostBase = Money{cur: l.CostBase.cur}
		return next, nil
	}
	if next.Cost, err = l.OriginalCost.Prorate(next.Shares, l.OriginalShares); err != nil {
		return Lot{}, err
	}
	if next.CostBase, err = l.OriginalCostBase.Prorate(next.Shares, l.OriginalShares); err != nil {
		return Lot{}, err
	}
	return next, nil
}

func (e splitShare) apply(b *lotBook) error {
	lots := make([]Lot, len(b.lots))
	for i, l := range b.lots {
		var err error
		if l.Shares, err = l.Shares.Split(e.ratio); err != nil {
			return fmt.Errorf("split %s on %s, lot %s: %w", e.ratio, e.on, l.ID, err)
		}
		if l.OriginalShares, err = l.OriginalShares.Split(e.ratio); err != nil {
			return fmt.Errorf("split %s on %s, lot %s: %w", e.ratio, e.on, l.ID, err)
		}
		lots[i] = l
	}
	b.lots = lots
	return nil
}

// ReplayOptions tunes a pair replay.
type ReplayOptions struct {
	// BaseCurrency overrides the ledger's base currency.
	BaseCurrency string
	// Rates is consulted after the rates embedded in the ledger.
	Rates    RateProvider
	TieBreak TieBreak
}

// PairResult holds the open lots and realized gains of one pair.
type PairResult struct {
	Pair  PairKey
	Lots  []Lot
	Gains []RealizedGain
}

// Replay recomputes the lots of a pair from scratch. It reads the ledger only
// and can run concurrently for distinct pairs.
func Replay(l *Ledger, pair PairKey, opts ReplayOptions) (*PairResult, error) {
	sec := l.Security(pair.Security)
	if sec == nil {
		return nil, &ValidationError{Kind: DanglingReference, Entity: pair.Security.String(), Pair: pair, Err: fmt.Errorf("security not in ledger")}
	}
	book := &lotBook{
		pair:     pair,
		currency: sec.Currency,
		base:     l.BaseCurrency,
		rates:    l.Rates,
	}
	if opts.BaseCurrency != "" {
		book.base = opts.BaseCurrency
	}
	if opts.Rates != nil {
		book.rates = ChainRates{l.Rates, opts.Rates}
	}
	for _, e := range journal(l.PairTransactions(pair), sec.Splits(), opts.TieBreak) {
		if err := e.apply(book); err != nil {
			return nil, pairErr(pair, e, err)
		}
	}
	return &PairResult{Pair: pair, Lots: book.lots, Gains: book.gains}, nil
}

// pairErr attaches the pair, and the transaction when there is one, to err.
func pairErr(pair PairKey, e lotEvent, err error) error {
	if v, ok := err.(*ValidationError); ok {
		v.Pair = pair
		return v
	}
	switch e := e.(type) {
	case acquireLot:
		return fmt.Errorf("pair %s: transaction %s: %w", pair, e.tx.ID, err)
	case disposeLot:
		return fmt.Errorf("pair %s: transaction %s: %w", pair, e.tx.ID, err)
	}
	return fmt.Errorf("pair %s: %w", pair, err)
}
