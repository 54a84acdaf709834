package lotledger

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pairState is the stored content of one pair.
type pairState struct {
	lots  map[uuid.UUID]Lot
	gains map[[2]uuid.UUID]RealizedGain
}

// fakeStore keeps committed state in maps. Transactions work on a copy.
type fakeStore struct {
	mu      sync.Mutex
	state   map[PairKey]pairState
	begins  int
	failPut bool
}

func newFakeStore() *fakeStore { return &fakeStore{state: map[PairKey]pairState{}} }

func (s *fakeStore) Begin(ctx context.Context) (StoreTx, error) {
	s.mu.Lock()
	s.begins++
	work := make(map[PairKey]pairState, len(s.state))
	for k, v := range s.state {
		work[k] = pairState{lots: maps.Clone(v.lots), gains: maps.Clone(v.gains)}
	}
	return &fakeTx{s: s, work: work}, nil
}

// snapshot returns a copy of the committed state.
func (s *fakeStore) snapshot() map[PairKey]pairState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state)
}

type fakeTx struct {
	s    *fakeStore
	work map[PairKey]pairState
	done bool
}

func (tx *fakeTx) Pairs(ctx context.Context) ([]PairKey, error) {
	var keys []PairKey
	for k := range tx.work {
		keys = append(keys, k)
	}
	return keys, nil
}

func (tx *fakeTx) DeletePair(ctx context.Context, pair PairKey) error {
	delete(tx.work, pair)
	return nil
}

func (tx *fakeTx) state(pair PairKey) pairState {
	st, ok := tx.work[pair]
	if !ok {
		st = pairState{lots: map[uuid.UUID]Lot{}, gains: map[[2]uuid.UUID]RealizedGain{}}
		tx.work[pair] = st
	}
	return st
}

func (tx *fakeTx) PutLot(ctx context.Context, lot Lot) error {
	if tx.s.failPut {
		return errors.New("disk full")
	}
	tx.state(lot.Pair).lots[lot.ID] = lot
	return nil
}

func (tx *fakeTx) PutGain(ctx context.Context, g RealizedGain) error {
	tx.state(g.Pair).gains[[2]uuid.UUID{g.Lot, g.Transaction}] = g
	return nil
}

func (tx *fakeTx) Commit() error {
	if !tx.done {
		tx.s.state = tx.work
		tx.done = true
		tx.s.mu.Unlock()
	}
	return nil
}

func (tx *fakeTx) Rollback() error {
	if !tx.done {
		tx.done = true
		tx.s.mu.Unlock()
	}
	return nil
}

// twoPairs holds ACME in both portfolios.
func twoPairs() *fixture {
	f := newFixture().
		buy("2024-01-01", ACME, 100, 10_000).
		sell("2024-01-10", ACME, 40, 5_000)
	f.tx(RawTransaction{Type: WirePurchase, Portfolio: otherPortfolio, Account: eurAccount, Security: ACME, Date: ts("2024-01-02"), Amount: 500_00, Shares: 5 * Scale})
	return f
}

func TestRebuild(t *testing.T) {
	s := newFakeStore()
	l := twoPairs().ledger(t)

	report, err := Rebuild(context.Background(), l, s, RebuildOptions{Workers: 2, Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, report.Err())
	require.Len(t, report.Pairs, 2)
	lots, gains := report.Totals()
	assert.Equal(t, 2, lots)
	assert.Equal(t, 1, gains)

	held := s.snapshot()[pair(mainPortfolio, ACME)]
	require.Len(t, held.lots, 1)
	for _, lot := range held.lots {
		assert.Equal(t, Q(60), lot.Shares)
		assert.Equal(t, EUR(6_000), lot.Cost)
	}
}

func TestRebuild_Idempotent(t *testing.T) {
	s := newFakeStore()
	l := twoPairs().ledger(t)

	_, err := Rebuild(context.Background(), l, s, RebuildOptions{})
	require.NoError(t, err)
	first := s.snapshot()
	report, err := Rebuild(context.Background(), l, s, RebuildOptions{Workers: 1})
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	assert.Equal(t, first, s.snapshot())
}

func TestRebuild_FailedPairKeepsStoredState(t *testing.T) {
	s := newFakeStore()
	_, err := Rebuild(context.Background(), twoPairs().ledger(t), s, RebuildOptions{})
	require.NoError(t, err)
	before := s.snapshot()

	// the other portfolio now sells more than it holds; main buys more
	f := twoPairs().buy("2024-02-01", ACME, 1, 100)
	f.tx(RawTransaction{Type: WireSale, Portfolio: otherPortfolio, Account: eurAccount, Security: ACME, Date: ts("2024-02-01"), Amount: 100_00, Shares: 6 * Scale})
	report, err := Rebuild(context.Background(), f.ledger(t), s, RebuildOptions{})
	require.NoError(t, err)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, pair(otherPortfolio, ACME), failed[0].Pair)
	assert.ErrorIs(t, report.Err(), ErrInsufficientShares)

	after := s.snapshot()
	assert.Equal(t, before[pair(otherPortfolio, ACME)], after[pair(otherPortfolio, ACME)])
	assert.Len(t, after[pair(mainPortfolio, ACME)].lots, 2)
}

func TestRebuild_RemovesStalePairs(t *testing.T) {
	s := newFakeStore()
	_, err := Rebuild(context.Background(), twoPairs().ledger(t), s, RebuildOptions{})
	require.NoError(t, err)

	l := newFixture().buy("2024-01-01", ACME, 100, 10_000).ledger(t)
	report, err := Rebuild(context.Background(), l, s, RebuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, []PairKey{pair(otherPortfolio, ACME)}, report.Removed)
	assert.NotContains(t, s.snapshot(), pair(otherPortfolio, ACME))
}

func TestRebuild_Cancelled(t *testing.T) {
	s := newFakeStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Rebuild(ctx, twoPairs().ledger(t), s, RebuildOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.snapshot())
}

func TestRebuild_StoreErrorRollsBack(t *testing.T) {
	s := newFakeStore()
	_, err := Rebuild(context.Background(), twoPairs().ledger(t), s, RebuildOptions{})
	require.NoError(t, err)
	before := s.snapshot()

	s.failPut = true
	l := newFixture().buy("2024-01-01", ACME, 1, 1).ledger(t)
	_, err = Rebuild(context.Background(), l, s, RebuildOptions{})
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, before, s.snapshot())
}

func TestRebuildArchive_DecodeFailureLeavesStore(t *testing.T) {
	s := newFakeStore()
	_, err := RebuildArchive(context.Background(), []byte("NOTANARCHIVE"), s, RebuildOptions{})
	assert.ErrorIs(t, err, ErrBadMagic)

	missing := newFixture().buy("2024-01-01", "c0000000-0000-0000-0000-0000000000ff", 1, 1)
	_, err = RebuildArchive(context.Background(), missing.archive(t), s, RebuildOptions{})
	assert.ErrorIs(t, err, ErrDanglingReference)
	assert.Zero(t, s.begins)

	report, err := RebuildArchive(context.Background(), twoPairs().archive(t), s, RebuildOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Pairs, 2)
}
