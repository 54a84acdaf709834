package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/lotledger/renderer"
	"github.com/google/subcommands"
)

type decodeCmd struct {
	isolate bool
}

func (*decodeCmd) Name() string     { return "decode" }
func (*decodeCmd) Synopsis() string { return "decode and validate a portfolio archive" }
func (*decodeCmd) Usage() string {
	return `ledger decode [-isolate] <archive>

  Decodes the archive, validates every reference and prints a summary of its
  content. Nothing is written to the store.
`
}

func (c *decodeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.isolate, "isolate", false, "Decode the archive in a separate worker process.")
}

func (c *decodeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "decode takes exactly one archive")
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
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
	printMarkdown(renderer.RenderSummary(renderer.NewSummary(l)))
	return subcommands.ExitSuccess
}
