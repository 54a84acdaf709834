// Package sandbox runs the archive decoder in a separate worker process.
//
// Archives come from outside and the decoder is the component most exposed
// to hostile input. The worker reads the archive bytes on stdin and replies on
// stdout with a msgpack message holding either the raw client tree or the
// decode error. The parent rebuilds the error value, so that callers see the
// same *lotledger.FormatError they would get in-process, and runs the builder
// itself.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/etnz/lotledger"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// WorkerCommand is the subcommand that runs Serve in the ledger binary.
const WorkerCommand = "decode-worker"

// error classes on the wire
const (
	classFormat     = "format"
	classValidation = "validation"
	classArithmetic = "arithmetic"
	classOther      = "other"
)

// reply is the worker's only message.
type reply struct {
	Client *lotledger.RawClient `msgpack:"client,omitempty"`
	Err    *wireError           `msgpack:"error,omitempty"`
}

// wireError carries a typed decode error across the process boundary.
type wireError struct {
	Class   string `msgpack:"class"`
	Kind    int    `msgpack:"kind"`
	Offset  int    `msgpack:"offset"`
	Entry   string `msgpack:"entry,omitempty"`
	Entity  string `msgpack:"entity,omitempty"`
	Op      string `msgpack:"op,omitempty"`
	Message string `msgpack:"message,omitempty"`
}

func detail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func toWire(err error) *wireError {
	var (
		fe *lotledger.FormatError
		ve *lotledger.ValidationError
		ae *lotledger.ArithmeticError
	)
	switch {
	case errors.As(err, &fe):
		return &wireError{Class: classFormat, Kind: int(fe.Kind), Offset: fe.Offset, Entry: fe.Entry, Message: detail(fe.Err)}
	case errors.As(err, &ve):
		return &wireError{Class: classValidation, Kind: int(ve.Kind), Offset: -1, Entity: ve.Entity, Message: detail(ve.Err)}
	case errors.As(err, &ae):
		return &wireError{Class: classArithmetic, Kind: int(ae.Kind), Offset: -1, Op: ae.Op, Message: detail(ae.Err)}
	}
	return &wireError{Class: classOther, Offset: -1, Message: err.Error()}
}

func (w *wireError) error() error {
	var inner error
	if w.Message != "" {
		inner = errors.New(w.Message)
	}
	switch w.Class {
	case classFormat:
		return &lotledger.FormatError{Kind: lotledger.FormatErrorKind(w.Kind), Offset: w.Offset, Entry: w.Entry, Err: inner}
	case classValidation:
		return &lotledger.ValidationError{Kind: lotledger.ValidationErrorKind(w.Kind), Entity: w.Entity, Err: inner}
	case classArithmetic:
		return &lotledger.ArithmeticError{Kind: lotledger.ArithmeticErrorKind(w.Kind), Op: w.Op, Err: inner}
	}
	return fmt.Errorf("decode worker: %s", w.Message)
}

// Serve is the worker side: it decodes the archive read from r and writes the
// reply to w. A decode failure is part of the reply, not an error of Serve.
// Input longer than limit bytes is refused; limit <= 0 means no limit.
func Serve(r io.Reader, w io.Writer, limit int64) error {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	var rep reply
	if limit > 0 && int64(len(data)) > limit {
		rep.Err = &wireError{Class: classOther, Offset: -1, Message: fmt.Sprintf("archive exceeds %d bytes", limit)}
	} else if client, err := lotledger.DecodeRaw(data); err != nil {
		rep.Err = toWire(err)
	} else {
		rep.Client = client
	}
	if err := msgpack.NewEncoder(w).Encode(&rep); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	return nil
}

// Decoder runs the worker process. The zero value runs the current
// executable with WorkerCommand.
type Decoder struct {
	// Path of the worker binary; empty means os.Executable.
	Path string
	// Args passed to the worker; nil means []string{WorkerCommand}.
	Args []string
	// Env of the worker; nil means the parent's environment.
	Env    []string
	Logger zerolog.Logger
}

// DecodeRaw decodes data in a worker process.
func (d *Decoder) DecodeRaw(ctx context.Context, data []byte) (*lotledger.RawClient, error) {
	path := d.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate decode worker: %w", err)
		}
		path = exe
	}
	args := d.Args
	if args == nil {
		args = []string{WorkerCommand}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = d.Env

	d.Logger.Debug().Str("worker", path).Int("bytes", len(data)).Msg("Starting decode worker")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("decode worker failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	var rep reply
	if err := msgpack.NewDecoder(&stdout).Decode(&rep); err != nil {
		return nil, fmt.Errorf("failed to read decode worker reply: %w", err)
	}
	if rep.Err != nil {
		return nil, rep.Err.error()
	}
	if rep.Client == nil {
		return nil, errors.New("decode worker replied without a client")
	}
	return rep.Client, nil
}

// Decode decodes data in a worker process and builds the ledger in this one.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*lotledger.Ledger, error) {
	raw, err := d.DecodeRaw(ctx, data)
	if err != nil {
		return nil, err
	}
	return lotledger.Build(raw)
}
