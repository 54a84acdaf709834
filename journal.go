package lotledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/etnz/lotledger/date"
)

// TieBreak orders transactions of a pair that share a timestamp.
type TieBreak int

const (
	// TieBreakInsertion keeps the ledger order.
	TieBreakInsertion TieBreak = iota
	// TieBreakAcquisitionsFirst replays acquisitions before disposals, then ledger order.
	TieBreakAcquisitionsFirst
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakInsertion:
		return "insertion"
	case TieBreakAcquisitionsFirst:
		return "acquisitions-first"
	}
	return fmt.Sprintf("TieBreak(%d)", int(t))
}

// ParseTieBreak parses "insertion" or "acquisitions-first".
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insertion":
		return TieBreakInsertion, nil
	case "acquisitions-first":
		return TieBreakAcquisitionsFirst, nil
	}
	return 0, fmt.Errorf("unknown tie-break %q, want insertion or acquisitions-first", s)
}

// lotEvent is one step of a pair replay. Implementations are closed to this
// package; each one carries its own transition.
type lotEvent interface {
	at() time.Time
	// class orders events at the same instant: splits first.
	class() int
	// rank orders same-instant transactions under TieBreakAcquisitionsFirst.
	rank() int
	seq() int
	apply(b *lotBook) error
}

// acquireLot opens a lot.
type acquireLot struct{ tx *PortfolioTransaction }

// disposeLot consumes lots, oldest first.
type disposeLot struct{ tx *PortfolioTransaction }

// splitShare scales every open lot.
type splitShare struct {
	on    date.Date
	ratio Ratio
}

func (e acquireLot) at() time.Time { return e.tx.Time }
func (e acquireLot) class() int    { return 1 }
func (e acquireLot) rank() int     { return 0 }
func (e acquireLot) seq() int      { return e.tx.Seq }

func (e disposeLot) at() time.Time { return e.tx.Time }
func (e disposeLot) class() int    { return 1 }
func (e disposeLot) rank() int     { return 1 }
func (e disposeLot) seq() int      { return e.tx.Seq }

func (e splitShare) at() time.Time { return e.on.Start() }
func (e splitShare) class() int    { return 0 }
func (e splitShare) rank() int     { return 0 }
func (e splitShare) seq() int      { return 0 }

// journal merges a pair's transactions with the security splits, in replay order.
func journal(txs []*PortfolioTransaction, splits []SecurityEvent, tb TieBreak) []lotEvent {
	events := make([]lotEvent, 0, len(txs)+len(splits))
	for _, s := range splits {
		events = append(events, splitShare{on: s.Date, ratio: s.Ratio})
	}
	for _, tx := range txs {
		if tx.Type.IsAcquisition() {
			events = append(events, acquireLot{tx})
		} else {
			events = append(events, disposeLot{tx})
		}
	}
	slices.SortStableFunc(events, func(a, b lotEvent) int {
		if c := a.at().Compare(b.at()); c != 0 {
			return c
		}
		if c := a.class() - b.class(); c != 0 {
			return c
		}
		if tb == TieBreakAcquisitionsFirst {
			if c := a.rank() - b.rank(); c != 0 {
				return c
			}
		}
		return a.seq() - b.seq()
	})
	return events
}
