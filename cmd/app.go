// Package cmd implements the CLI application to decode portfolio archives and
// maintain the lot store.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/lotledger"
	"github.com/etnz/lotledger/config"
	"github.com/etnz/lotledger/sandbox"
	"github.com/etnz/lotledger/store"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&decodeCmd{}, "archive")
	c.Register(&rebuildCmd{}, "archive")

	c.Register(&lotsCmd{}, "store")
	c.Register(&gainsCmd{}, "store")
	c.Register(&rateCmd{}, "store")

	c.Register(&topicCmd{}, "help")
	c.Register(&workerCmd{}, "internal")
}

// app bundles what every command needs: the configuration and a logger.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

// newApp loads the configuration and builds the console logger.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(cfg.Level()).
		With().
		Timestamp().
		Logger()
	return &app{cfg: cfg, log: log}, nil
}

// readArchive reads the archive at path, refusing files over the configured limit.
func (a *app) readArchive(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	limit := a.cfg.MaxArchiveBytes
	if info, err := f.Stat(); err == nil && info.Size() > limit {
		return nil, fmt.Errorf("archive %q is %d bytes, the limit is %d", path, info.Size(), limit)
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %q: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("archive %q exceeds %d bytes", path, limit)
	}
	return data, nil
}

// decode decodes archive bytes, in a worker process when isolate is set.
func (a *app) decode(ctx context.Context, data []byte, isolate bool) (*lotledger.Ledger, error) {
	start := time.Now()
	var (
		l   *lotledger.Ledger
		err error
	)
	if isolate || a.cfg.IsolateDecoder {
		d := &sandbox.Decoder{Logger: a.log}
		l, err = d.Decode(ctx, data)
	} else {
		l, err = lotledger.Decode(data)
	}
	if err != nil {
		return nil, err
	}
	a.log.Debug().Int("bytes", len(data)).Dur("duration", time.Since(start)).Msg("Archive decoded")
	return l, nil
}

func (a *app) openStore() (*store.SQLiteStore, error) {
	return store.OpenSQLite(a.cfg.DBPath, a.log)
}

// printMarkdown renders md for the terminal, falling back to plain text.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
