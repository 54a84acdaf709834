package lotledger

import (
	"bytes"

	"github.com/klauspost/compress/zip"
	"google.golang.org/protobuf/encoding/protowire"
)

// EncodeArchive writes c as a ZIP container holding a single PayloadEntry.
// It is the inverse of DecodeRaw.
func EncodeArchive(c *RawClient) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(PayloadEntry)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(EncodePayload(c)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodePayload returns the payload entry of c: the magic header followed by the client message.
func EncodePayload(c *RawClient) []byte {
	b := []byte(Magic)
	b = appendVarint(b, 1, uint64(int64(c.Version)))
	for _, s := range c.Securities {
		b = appendMessage(b, 2, encodeSecurity(s))
	}
	for _, a := range c.Accounts {
		b = appendMessage(b, 3, encodeAccount(a))
	}
	for _, p := range c.Portfolios {
		b = appendMessage(b, 4, encodePortfolio(p))
	}
	for _, t := range c.Transactions {
		b = appendMessage(b, 5, encodeTransaction(t))
	}
	b = appendString(b, 12, c.BaseCurrency)
	return b
}

func encodeSecurity(s RawSecurity) (b []byte) {
	b = appendString(b, 1, s.UUID)
	b = appendString(b, 3, s.Name)
	b = appendString(b, 4, s.Currency)
	b = appendString(b, 7, s.ISIN)
	b = appendString(b, 8, s.Ticker)
	for _, kv := range s.Attributes {
		var value []byte
		value = appendString(value, 2, kv.Value)
		var m []byte
		m = appendString(m, 1, kv.Key)
		m = appendMessage(m, 2, value)
		b = appendMessage(b, 17, m)
	}
	for _, e := range s.Events {
		var m []byte
		m = appendVarint(m, 1, uint64(int64(e.Type)))
		m = appendVarint(m, 2, uint64(e.EpochDay))
		m = appendString(m, 4, e.Details)
		m = appendVarint(m, 6, uint64(e.Amount))
		m = appendString(m, 7, e.Currency)
		b = appendMessage(b, 18, m)
	}
	return appendBool(b, 20, s.Retired)
}

func encodeAccount(a RawAccount) (b []byte) {
	b = appendString(b, 1, a.UUID)
	b = appendString(b, 2, a.Name)
	b = appendString(b, 3, a.Currency)
	return appendBool(b, 5, a.Retired)
}

func encodePortfolio(p RawPortfolio) (b []byte) {
	b = appendString(b, 1, p.UUID)
	b = appendString(b, 2, p.Name)
	b = appendString(b, 4, p.ReferenceAccount)
	return appendBool(b, 5, p.Retired)
}

func encodeTransaction(t RawTransaction) (b []byte) {
	b = appendString(b, 1, t.UUID)
	b = appendVarint(b, 2, uint64(int64(t.Type)))
	b = appendString(b, 3, t.Account)
	b = appendString(b, 4, t.Portfolio)
	b = appendString(b, 5, t.OtherAccount)
	b = appendString(b, 6, t.OtherPortfolio)
	b = appendString(b, 7, t.OtherUUID)
	var ts []byte
	ts = appendVarint(ts, 1, uint64(t.Date.Seconds))
	ts = appendVarint(ts, 2, uint64(int64(t.Date.Nanos)))
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendBytes(b, ts)
	b = appendString(b, 10, t.Currency)
	b = appendVarint(b, 11, uint64(t.Amount))
	b = appendVarint(b, 12, uint64(t.Shares))
	b = appendString(b, 13, t.Note)
	b = appendString(b, 14, t.Security)
	for _, u := range t.Units {
		var m []byte
		m = appendVarint(m, 1, uint64(int64(u.Type)))
		m = appendVarint(m, 2, uint64(u.Amount))
		m = appendString(m, 3, u.Currency)
		m = appendVarint(m, 4, uint64(u.FXAmount))
		m = appendString(m, 5, u.FXCurrency)
		if u.FXRate != nil {
			var d []byte
			d = appendVarint(d, 1, uint64(u.FXRate.Scale))
			d = appendVarint(d, 2, uint64(u.FXRate.Precision))
			d = protowire.AppendTag(d, 3, protowire.BytesType)
			d = protowire.AppendBytes(d, u.FXRate.Value)
			m = appendMessage(m, 6, d)
		}
		b = appendMessage(b, 15, m)
	}
	return b
}

// proto3 scalars are omitted when zero.

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}
