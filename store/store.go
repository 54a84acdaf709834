// Package store persists lots, realized gains and exchange rates.
//
// MemoryStore and SQLiteStore both implement lotledger.Store: Begin grants an
// exclusive write scope held until Commit or Rollback.
package store

import (
	"bytes"
	"slices"

	"github.com/etnz/lotledger"
	"github.com/google/uuid"
)

// Filter selects stored records. Zero fields match everything.
type Filter struct {
	Portfolio uuid.UUID
	Security  uuid.UUID
}

func (f Filter) match(p lotledger.PairKey) bool {
	return (f.Portfolio == uuid.Nil || f.Portfolio == p.Portfolio) &&
		(f.Security == uuid.Nil || f.Security == p.Security)
}

// Snapshot is the full stored state, in a canonical order: two stores holding
// the same records have equal snapshots.
type Snapshot struct {
	Lots  []lotledger.Lot
	Gains []lotledger.RealizedGain
}

func (s *Snapshot) sort() {
	slices.SortFunc(s.Lots, func(a, b lotledger.Lot) int {
		if c := a.Pair.Compare(b.Pair); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	slices.SortFunc(s.Gains, func(a, b lotledger.RealizedGain) int {
		if c := a.Pair.Compare(b.Pair); c != 0 {
			return c
		}
		if c := a.Closed.Compare(b.Closed); c != 0 {
			return c
		}
		if c := compareIDs(a.Transaction, b.Transaction); c != 0 {
			return c
		}
		return compareIDs(a.Lot, b.Lot)
	})
}

func compareIDs(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }
