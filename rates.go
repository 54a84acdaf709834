package lotledger

import (
	"errors"
	"sort"

	"github.com/etnz/lotledger/date"
)

// RateProvider gives the exchange rate in effect on a day.
//
// Rate returns an *ArithmeticError of kind RateUnavailable (matching
// ErrRateUnavailable) when it does not know the pair at that date.
type RateProvider interface {
	Rate(from, to string, day date.Date) (Rate, error)
}

// RateTable is an in-memory RateProvider: dated rates per currency pair.
// The rate in effect on a day is the latest one recorded on or before it.
// A missing pair is derived from its inverse.
//
// A RateTable is safe for concurrent reads, not for concurrent Set.
type RateTable struct {
	pairs map[[2]string]*date.History[int64]
}

// NewRateTable returns an empty table.
func NewRateTable() *RateTable {
	return &RateTable{pairs: make(map[[2]string]*date.History[int64])}
}

// Set records the rate converting from into to, effective on day.
func (t *RateTable) Set(from, to string, day date.Date, r Rate) {
	k := [2]string{from, to}
	h, ok := t.pairs[k]
	if !ok {
		h = new(date.History[int64])
		t.pairs[k] = h
	}
	h.Append(day, r.units)
}

// Clone returns an independent copy of the table.
func (t *RateTable) Clone() *RateTable {
	c := NewRateTable()
	for k, h := range t.pairs {
		ch := new(date.History[int64])
		for day, v := range h.Values() {
			ch.Append(day, v)
		}
		c.pairs[k] = ch
	}
	return c
}

// Len returns the number of recorded rates.
func (t *RateTable) Len() int {
	n := 0
	for _, h := range t.pairs {
		n += h.Len()
	}
	return n
}

// Currencies returns the recorded pairs as [from, to], sorted.
func (t *RateTable) Currencies() [][2]string {
	keys := make([][2]string, 0, len(t.pairs))
	for k := range t.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	return keys
}

// Rate implements RateProvider.
func (t *RateTable) Rate(from, to string, day date.Date) (Rate, error) {
	if from == to {
		return One, nil
	}
	if h, ok := t.pairs[[2]string{from, to}]; ok {
		if u, ok := h.ValueAsOf(day); ok {
			return Rate{units: u}, nil
		}
	}
	if h, ok := t.pairs[[2]string{to, from}]; ok {
		if u, ok := h.ValueAsOf(day); ok {
			return Rate{units: u}.Inverse()
		}
	}
	return Rate{}, arithmeticErr(RateUnavailable, "RateTable.Rate", "no %s%s rate on or before %s", from, to, day)
}

// ChainRates asks each provider in turn; the first one that knows the pair wins.
type ChainRates []RateProvider

// Rate implements RateProvider.
func (c ChainRates) Rate(from, to string, day date.Date) (Rate, error) {
	if from == to {
		return One, nil
	}
	for _, p := range c {
		if p == nil {
			continue
		}
		r, err := p.Rate(from, to, day)
		if err == nil || !errors.Is(err, ErrRateUnavailable) {
			return r, err
		}
	}
	return Rate{}, arithmeticErr(RateUnavailable, "ChainRates.Rate", "no %s%s rate on or before %s", from, to, day)
}

// convert expresses m in currency to, at the rate in effect on day.
func convert(rates RateProvider, m Money, to string, day date.Date) (Money, error) {
	if m.cur == to {
		return m, nil
	}
	if m.IsZero() {
		return Money{cur: to}, nil
	}
	r, err := rates.Rate(m.cur, to, day)
	if err != nil {
		return Money{}, err
	}
	return m.Convert(r, to)
}
