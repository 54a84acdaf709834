package store

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/etnz/lotledger"
	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
)

type gainKey struct {
	lot, tx uuid.UUID
}

type pairRecords struct {
	lots  map[uuid.UUID]lotledger.Lot
	gains map[gainKey]lotledger.RealizedGain
}

func (r pairRecords) clone() pairRecords {
	return pairRecords{lots: maps.Clone(r.lots), gains: maps.Clone(r.gains)}
}

// MemoryStore keeps everything in memory. A transaction holds the write lock
// from Begin until Commit or Rollback; readers see the last committed state.
type MemoryStore struct {
	write sync.Mutex // held by the open transaction
	mu    sync.RWMutex
	pairs map[lotledger.PairKey]pairRecords
	rates *lotledger.RateTable
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pairs: make(map[lotledger.PairKey]pairRecords),
		rates: lotledger.NewRateTable(),
	}
}

// Begin implements lotledger.Store.
func (s *MemoryStore) Begin(ctx context.Context) (lotledger.StoreTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.write.Lock()
	s.mu.RLock()
	work := make(map[lotledger.PairKey]pairRecords, len(s.pairs))
	for k, v := range s.pairs {
		work[k] = v.clone()
	}
	s.mu.RUnlock()
	return &memoryTx{s: s, work: work}, nil
}

// PutRate records an exchange rate.
func (s *MemoryStore) PutRate(ctx context.Context, from, to string, day date.Date, r lotledger.Rate) error {
	if !r.IsValid() {
		return errors.New("exchange rate must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates.Set(from, to, day, r)
	return nil
}

// Rates returns a copy of the recorded exchange rates.
func (s *MemoryStore) Rates(ctx context.Context) (*lotledger.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates.Clone(), nil
}

// Lots returns the open lots matching f.
func (s *MemoryStore) Lots(ctx context.Context, f Filter) ([]lotledger.Lot, error) {
	snap, err := s.filter(f)
	return snap.Lots, err
}

// Gains returns the realized gains matching f.
func (s *MemoryStore) Gains(ctx context.Context, f Filter) ([]lotledger.RealizedGain, error) {
	snap, err := s.filter(f)
	return snap.Gains, err
}

// Snapshot returns every stored lot and gain.
func (s *MemoryStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	return s.filter(Filter{})
}

func (s *MemoryStore) filter(f Filter) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &Snapshot{}
	for k, r := range s.pairs {
		if !f.match(k) {
			continue
		}
		for _, l := range r.lots {
			snap.Lots = append(snap.Lots, l)
		}
		for _, g := range r.gains {
			snap.Gains = append(snap.Gains, g)
		}
	}
	snap.sort()
	return snap, nil
}

type memoryTx struct {
	s    *MemoryStore
	work map[lotledger.PairKey]pairRecords
	done bool
}

var errTxDone = errors.New("transaction already committed or rolled back")

func (tx *memoryTx) Pairs(ctx context.Context) ([]lotledger.PairKey, error) {
	if tx.done {
		return nil, errTxDone
	}
	keys := make([]lotledger.PairKey, 0, len(tx.work))
	for k := range tx.work {
		keys = append(keys, k)
	}
	return keys, nil
}

func (tx *memoryTx) DeletePair(ctx context.Context, pair lotledger.PairKey) error {
	if tx.done {
		return errTxDone
	}
	delete(tx.work, pair)
	return nil
}

func (tx *memoryTx) records(pair lotledger.PairKey) pairRecords {
	r, ok := tx.work[pair]
	if !ok {
		r = pairRecords{lots: map[uuid.UUID]lotledger.Lot{}, gains: map[gainKey]lotledger.RealizedGain{}}
		tx.work[pair] = r
	}
	return r
}

func (tx *memoryTx) PutLot(ctx context.Context, lot lotledger.Lot) error {
	if tx.done {
		return errTxDone
	}
	tx.records(lot.Pair).lots[lot.ID] = lot
	return nil
}

func (tx *memoryTx) PutGain(ctx context.Context, g lotledger.RealizedGain) error {
	if tx.done {
		return errTxDone
	}
	tx.records(g.Pair).gains[gainKey{lot: g.Lot, tx: g.Transaction}] = g
	return nil
}

func (tx *memoryTx) Commit() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	tx.s.mu.Lock()
	tx.s.pairs = tx.work
	tx.s.mu.Unlock()
	tx.s.write.Unlock()
	return nil
}

func (tx *memoryTx) Rollback() error {
	if tx.done {
		return errTxDone
	}
	tx.done = true
	tx.work = nil
	tx.s.write.Unlock()
	return nil
}
