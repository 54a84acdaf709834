package lotledger

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RebuildOptions tunes Rebuild.
type RebuildOptions struct {
	// Workers bounds the pairs computed in parallel; 0 means GOMAXPROCS.
	Workers int
	// BaseCurrency overrides the ledger's base currency.
	BaseCurrency string
	// Rates is consulted after the rates embedded in the ledger.
	Rates    RateProvider
	TieBreak TieBreak
	Logger   zerolog.Logger
}

// PairOutcome is the result of one pair in a rebuild.
type PairOutcome struct {
	Pair  PairKey
	Lots  int // written
	Gains int // written
	Err   error
}

// RebuildReport summarizes a rebuild.
type RebuildReport struct {
	Pairs    []PairOutcome // sorted by pair
	Removed  []PairKey     // stored pairs no longer in the ledger
	Duration time.Duration
}

// Failed returns the outcomes of the pairs that could not be replayed.
func (r *RebuildReport) Failed() []PairOutcome {
	var failed []PairOutcome
	for _, p := range r.Pairs {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}

// Err joins the errors of the failed pairs, nil if every pair succeeded.
func (r *RebuildReport) Err() error {
	var errs []error
	for _, p := range r.Failed() {
		errs = append(errs, p.Err)
	}
	return errors.Join(errs...)
}

// Totals returns the number of lots and gains written.
func (r *RebuildReport) Totals() (lots, gains int) {
	for _, p := range r.Pairs {
		lots += p.Lots
		gains += p.Gains
	}
	return lots, gains
}

// Rebuild recomputes every pair of the ledger from scratch and replaces the
// stored lots and gains in a single store transaction.
//
// A pair that fails to replay keeps its stored state and is reported in the
// RebuildReport; it does not fail the rebuild. Store errors and cancellation
// roll the whole transaction back and are returned.
func Rebuild(ctx context.Context, l *Ledger, s Store, opts RebuildOptions) (*RebuildReport, error) {
	start := time.Now()
	log := opts.Logger.With().Str("component", "rebuild").Logger()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	ropts := ReplayOptions{BaseCurrency: opts.BaseCurrency, Rates: opts.Rates, TieBreak: opts.TieBreak}

	pairs := l.Pairs()
	log.Info().Int("pairs", len(pairs)).Int("workers", workers).Str("tie_break", opts.TieBreak.String()).Msg("Rebuild started")

	results := make([]*PairResult, len(pairs))
	errs := make([]error, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pair := range pairs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = Replay(l, pair, ropts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &RebuildReport{Pairs: make([]PairOutcome, 0, len(pairs))}
	err := withStoreTx(ctx, s, func(tx StoreTx) error {
		stored, err := tx.Pairs(ctx)
		if err != nil {
			return fmt.Errorf("failed to list stored pairs: %w", err)
		}
		for i, pair := range pairs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if errs[i] != nil {
				log.Warn().
					Str("portfolio", pair.Portfolio.String()).
					Str("security", pair.Security.String()).
					Err(errs[i]).
					Msg("Pair replay failed, keeping stored state")
				report.Pairs = append(report.Pairs, PairOutcome{Pair: pair, Err: errs[i]})
				continue
			}
			if err := writePair(ctx, tx, results[i]); err != nil {
				return fmt.Errorf("pair %s: %w", pair, err)
			}
			report.Pairs = append(report.Pairs, PairOutcome{Pair: pair, Lots: len(results[i].Lots), Gains: len(results[i].Gains)})
		}

		live := make(map[PairKey]bool, len(pairs))
		for _, pair := range pairs {
			live[pair] = true
		}
		for _, pair := range stored {
			if live[pair] {
				continue
			}
			if err := tx.DeletePair(ctx, pair); err != nil {
				return fmt.Errorf("failed to delete stale pair %s: %w", pair, err)
			}
			report.Removed = append(report.Removed, pair)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("Rebuild rolled back")
		return nil, err
	}

	report.Duration = time.Since(start)
	lots, gains := report.Totals()
	log.Info().
		Int("pairs", len(report.Pairs)).
		Int("lots", lots).
		Int("gains", gains).
		Int("failed", len(report.Failed())).
		Int("removed", len(report.Removed)).
		Dur("duration", report.Duration).
		Msg("Rebuild finished")
	return report, nil
}

// writePair replaces the stored state of a pair with r.
func writePair(ctx context.Context, tx StoreTx, r *PairResult) error {
	if err := tx.DeletePair(ctx, r.Pair); err != nil {
		return err
	}
	for _, lot := range r.Lots {
		if err := tx.PutLot(ctx, lot); err != nil {
			return err
		}
	}
	for _, g := range r.Gains {
		if err := tx.PutGain(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// RebuildArchive decodes data and rebuilds the store from it. A decode failure
// aborts before the store is touched.
func RebuildArchive(ctx context.Context, data []byte, s Store, opts RebuildOptions) (*RebuildReport, error) {
	l, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return Rebuild(ctx, l, s, opts)
}
