package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/lotledger"
	"github.com/etnz/lotledger/renderer"
	"github.com/etnz/lotledger/store"
	"github.com/google/subcommands"
	"github.com/google/uuid"
)

// listFlags are the flags shared by the commands listing stored records.
type listFlags struct {
	portfolio string
	security  string
	archive   string
	json      bool
}

func (l *listFlags) set(f *flag.FlagSet) {
	f.StringVar(&l.portfolio, "portfolio", "", "Only list this portfolio (uuid).")
	f.StringVar(&l.security, "security", "", "Only list this security (uuid).")
	f.StringVar(&l.archive, "archive", "", "Archive used to label portfolios and securities by name.")
	f.BoolVar(&l.json, "json", false, "Print JSON instead of a table.")
}

func (l *listFlags) filter() (store.Filter, error) {
	var f store.Filter
	var err error
	if l.portfolio != "" {
		if f.Portfolio, err = uuid.Parse(l.portfolio); err != nil {
			return f, fmt.Errorf("invalid portfolio %q: %w", l.portfolio, err)
		}
	}
	if l.security != "" {
		if f.Security, err = uuid.Parse(l.security); err != nil {
			return f, fmt.Errorf("invalid security %q: %w", l.security, err)
		}
	}
	return f, nil
}

// names labels ids from the archive, when one is given.
func (l *listFlags) names(ctx context.Context, a *app) (renderer.Names, error) {
	if l.archive == "" {
		return nil, nil
	}
	data, err := a.readArchive(l.archive)
	if err != nil {
		return nil, err
	}
	ledger, err := a.decode(ctx, data, false)
	if err != nil {
		return nil, err
	}
	return renderer.NamesOf(ledger), nil
}

// list runs a listing command: fetch reads the records, md renders them.
func (l *listFlags) list(ctx context.Context, fetch func(*store.SQLiteStore, store.Filter) (any, error), md func(any, renderer.Names) string) subcommands.ExitStatus {
	filter, err := l.filter()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	s, err := a.openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer s.Close()

	records, err := fetch(s, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", s.Path(), err)
		return subcommands.ExitFailure
	}
	if l.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	names, err := l.names(ctx, a)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading names from %q: %v\n", l.archive, err)
		return subcommands.ExitFailure
	}
	printMarkdown(md(records, names))
	return subcommands.ExitSuccess
}

type lotsCmd struct{ listFlags }

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list the open lots of the store" }
func (*lotsCmd) Usage() string {
	return `ledger lots [-portfolio <uuid>] [-security <uuid>] [-archive <archive>] [-json]

  Lists the open lots computed by the last rebuild, oldest first within each
  holding.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *lotsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.list(ctx,
		func(s *store.SQLiteStore, filter store.Filter) (any, error) { return s.Lots(ctx, filter) },
		func(records any, names renderer.Names) string {
			return renderer.RenderLots(renderer.NewLots(records.([]lotledger.Lot), names))
		})
}

type gainsCmd struct{ listFlags }

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "list the realized gains of the store" }
func (*gainsCmd) Usage() string {
	return `ledger gains [-portfolio <uuid>] [-security <uuid>] [-archive <archive>] [-json]

  Lists the realized gains computed by the last rebuild, one row per lot
  consumed by a disposal.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) { c.set(f) }

func (c *gainsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.list(ctx,
		func(s *store.SQLiteStore, filter store.Filter) (any, error) { return s.Gains(ctx, filter) },
		func(records any, names renderer.Names) string {
			return renderer.RenderGains(renderer.NewGains(records.([]lotledger.RealizedGain), names))
		})
}
