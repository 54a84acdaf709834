package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/etnz/lotledger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const workerEnv = "LOTLEDGER_SANDBOX_WORKER"

// TestMain turns the test binary into a decode worker when workerEnv is set.
func TestMain(m *testing.M) {
	if os.Getenv(workerEnv) == "1" {
		if err := Serve(os.Stdin, os.Stdout, 0); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func helperDecoder() *Decoder {
	return &Decoder{
		Path:   os.Args[0],
		Args:   []string{},
		Env:    append(os.Environ(), workerEnv+"=1"),
		Logger: zerolog.Nop(),
	}
}

func sample(t *testing.T) []byte {
	t.Helper()
	raw := &lotledger.RawClient{
		Version:      lotledger.CurrentVersion,
		BaseCurrency: "EUR",
		Securities:   []lotledger.RawSecurity{{UUID: "c0000000-0000-0000-0000-000000000001", Name: "Acme Corp", Currency: "EUR"}},
		Accounts:     []lotledger.RawAccount{{UUID: "b0000000-0000-0000-0000-000000000001", Name: "Cash", Currency: "EUR"}},
		Portfolios: []lotledger.RawPortfolio{{
			UUID:             "a0000000-0000-0000-0000-000000000001",
			Name:             "Main",
			ReferenceAccount: "b0000000-0000-0000-0000-000000000001",
		}},
		Transactions: []lotledger.RawTransaction{{
			UUID:      "d0000000-0000-0000-0000-000000000001",
			Type:      lotledger.WirePurchase,
			Portfolio: "a0000000-0000-0000-0000-000000000001",
			Account:   "b0000000-0000-0000-0000-000000000001",
			Security:  "c0000000-0000-0000-0000-000000000001",
			Date:      lotledger.RawTimestamp{Seconds: 1704196800},
			Currency:  "EUR",
			Amount:    1000_00,
			Shares:    10 * lotledger.Scale,
		}},
	}
	data, err := lotledger.EncodeArchive(raw)
	require.NoError(t, err)
	return data
}

func TestDecoder_Decode(t *testing.T) {
	data := sample(t)
	want, err := lotledger.Decode(data)
	require.NoError(t, err)

	got, err := helperDecoder().Decode(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, want.Stats(), got.Stats())
	assert.Equal(t, want.Pairs(), got.Pairs())
	assert.Equal(t, want.BaseCurrency, got.BaseCurrency)
}

func TestDecoder_FormatError(t *testing.T) {
	_, err := helperDecoder().Decode(context.Background(), []byte("definitely not an archive"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, lotledger.ErrBadMagic))
	var fe *lotledger.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, lotledger.BadMagic, fe.Kind)
}

func TestDecoder_WorkerFailure(t *testing.T) {
	d := &Decoder{Path: "/nonexistent/ledger", Logger: zerolog.Nop()}
	_, err := d.Decode(context.Background(), sample(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode worker failed")
}

func TestDecoder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := helperDecoder().Decode(ctx, sample(t))
	assert.Error(t, err)
}

func TestServe_Limit(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Serve(bytes.NewReader(sample(t)), &out, 16))
	var rep reply
	require.NoError(t, msgpack.NewDecoder(&out).Decode(&rep))
	require.NotNil(t, rep.Err)
	assert.Nil(t, rep.Client)
	assert.Contains(t, rep.Err.error().Error(), "exceeds 16 bytes")
}

func TestWireError_RoundTrip(t *testing.T) {
	for _, err := range []error{
		&lotledger.FormatError{Kind: lotledger.MalformedMessage, Offset: 42, Err: errors.New("truncated varint")},
		&lotledger.ValidationError{Kind: lotledger.DanglingReference, Entity: "c0000000-0000-0000-0000-000000000009", Err: errors.New("security not found")},
		&lotledger.ArithmeticError{Kind: lotledger.Overflow, Op: "Money.Add"},
	} {
		t.Run(err.Error(), func(t *testing.T) {
			b, merr := msgpack.Marshal(toWire(err))
			require.NoError(t, merr)
			var w wireError
			require.NoError(t, msgpack.Unmarshal(b, &w))
			got := w.error()
			assert.Equal(t, err.Error(), got.Error())
			assert.IsType(t, err, got)
		})
	}
}
