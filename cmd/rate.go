package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/etnz/lotledger"
	"github.com/etnz/lotledger/date"
	"github.com/google/subcommands"
)

type rateCmd struct {
	pair string
	day  string
	rate string
}

func (*rateCmd) Name() string     { return "rate" }
func (*rateCmd) Synopsis() string { return "record an exchange rate in the store" }
func (*rateCmd) Usage() string {
	return `ledger rate -pair <BASEQUOTE> -date <YYYY-MM-DD> -rate <rate>

  Records the rate of one unit of BASE in QUOTE, in effect from the given day
  until the next recorded rate. Rebuilds use it when the archive carries no
  rate for a conversion.

Usage Examples:
$ ledger rate -pair USDEUR -date 2024-01-31 -rate 0.92
`
}

func (c *rateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.pair, "pair", "", "Currency pair, base then quote (e.g. USDEUR).")
	f.StringVar(&c.day, "date", "", "Day the rate takes effect.")
	f.StringVar(&c.rate, "rate", "", "Price of one unit of base in quote.")
}

// parsePair splits "USDEUR" into its two known currency codes.
func parsePair(s string) (from, to string, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 6 {
		return "", "", fmt.Errorf("currency pair %q must be two 3-letter codes", s)
	}
	from, to = s[:3], s[3:]
	for _, code := range []string{from, to} {
		if money.GetCurrency(code) == nil {
			return "", "", fmt.Errorf("unknown currency %q", code)
		}
	}
	if from == to {
		return "", "", fmt.Errorf("currency pair %q converts a currency into itself", s)
	}
	return from, to, nil
}

func (c *rateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	from, to, err := parsePair(c.pair)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -pair: %v\n", err)
		return subcommands.ExitUsageError
	}
	day, err := date.Parse(c.day)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -date: %v\n", err)
		return subcommands.ExitUsageError
	}
	r, err := lotledger.ParseRate(c.rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -rate: %v\n", err)
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

	if err := s.PutRate(ctx, from, to, day, r); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording rate: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Recorded %s%s %s on %s\n", from, to, r, day)
	return subcommands.ExitSuccess
}
