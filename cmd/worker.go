package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/lotledger/config"
	"github.com/etnz/lotledger/sandbox"
	"github.com/google/subcommands"
)

type workerCmd struct{}

func (*workerCmd) Name() string     { return sandbox.WorkerCommand }
func (*workerCmd) Synopsis() string { return "decode an archive read on stdin (used by -isolate)" }
func (*workerCmd) Usage() string {
	return `ledger decode-worker < archive

  Decodes the archive read on stdin and writes the result on stdout in the
  worker protocol. It is started by 'decode -isolate' and 'rebuild -isolate'.
`
}

func (*workerCmd) SetFlags(f *flag.FlagSet) {}

func (*workerCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	limit := config.DefaultMaxArchiveBytes
	if cfg, err := config.Load(); err == nil {
		limit = cfg.MaxArchiveBytes
	}
	if err := sandbox.Serve(os.Stdin, os.Stdout, limit); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
