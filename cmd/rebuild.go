package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/lotledger"
	"github.com/etnz/lotledger/renderer"
	"github.com/google/subcommands"
)

type rebuildCmd struct {
	isolate  bool
	workers  int
	tieBreak string
	base     string
}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "recompute every lot and realized gain from an archive" }
func (*rebuildCmd) Usage() string {
	return `ledger rebuild [-isolate] [-workers <n>] [-tiebreak <t>] [-c <currency>] <archive>

  Decodes the archive, replays every (portfolio, security) holding in FIFO
  order and replaces the lots and gains of the store in one transaction.
  A holding that cannot be replayed keeps its previous state and is reported;
  the command then exits with a failure status.

  Exchange rates recorded with 'ledger rate' complete the rates found in the
  archive.
`
}

func (c *rebuildCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.isolate, "isolate", false, "Decode the archive in a separate worker process.")
	f.IntVar(&c.workers, "workers", -1, "Holdings replayed in parallel. Defaults to LEDGER_WORKERS.")
	f.StringVar(&c.tieBreak, "tiebreak", "", "Order of same-instant transactions (insertion, acquisitions-first). Defaults to LEDGER_TIE_BREAK.")
	f.StringVar(&c.base, "c", "", "Base currency of the cost basis. Defaults to LEDGER_BASE_CURRENCY, then to the archive's.")
}

func (c *rebuildCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "rebuild takes exactly one archive")
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	opts := lotledger.RebuildOptions{
		Workers:      a.cfg.Workers,
		BaseCurrency: a.cfg.BaseCurrency,
		TieBreak:     a.cfg.Tie(),
		Logger:       a.log,
	}
	if c.workers >= 0 {
		opts.Workers = c.workers
	}
	if c.base != "" {
		opts.BaseCurrency = c.base
	}
	if c.tieBreak != "" {
		if opts.TieBreak, err = lotledger.ParseTieBreak(c.tieBreak); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing tie-break: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	data, err := a.readArchive(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading archive: %v\n", err)
		return subcommands.ExitFailure
	}
	l, err := a.decode(ctx, data, c.isolate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}

	s, err := a.openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	rates, err := s.Rates(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading exchange rates: %v\n", err)
		return subcommands.ExitFailure
	}
	if rates.Len() > 0 {
		opts.Rates = rates
	}

	report, err := lotledger.Rebuild(ctx, l, s, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rebuilding %s: %v\n", s.Path(), err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderReport(renderer.NewReport(report, renderer.NamesOf(l))))
	if len(report.Failed()) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
