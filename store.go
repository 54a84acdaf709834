package lotledger

import (
	"context"
	"fmt"
)

// Store persists the lots and gains of every pair.
type Store interface {
	// Begin opens a transaction holding the store's exclusive write scope
	// until Commit or Rollback.
	Begin(ctx context.Context) (StoreTx, error)
}

// StoreTx is a store transaction. Lots are keyed by (pair, lot id); gains by
// (pair, lot id, closing transaction id).
type StoreTx interface {
	// Pairs lists the pairs holding any lot or gain.
	Pairs(ctx context.Context) ([]PairKey, error)
	// DeletePair removes every lot and gain of the pair.
	DeletePair(ctx context.Context, pair PairKey) error
	PutLot(ctx context.Context, lot Lot) error
	PutGain(ctx context.Context, gain RealizedGain) error
	Commit() error
	Rollback() error
}

// withStoreTx runs fn in a store transaction: committed when fn succeeds,
// rolled back when it fails or panics.
func withStoreTx(ctx context.Context, s Store, fn func(StoreTx) error) (err error) {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	tx, err := s.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin store transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in store transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rollbackErr)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit store transaction: %w", commitErr)
		}
	}()
	return fn(tx)
}
