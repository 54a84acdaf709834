package lotledger

import (
	"math"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// message walks the fields of one encoded message. Offsets are absolute
// within the payload entry so that errors point at the faulty byte.
type message struct {
	buf  []byte
	base int
	pos  int
}

// field is one decoded tag and its raw value.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	offset int // offset of the tag
	varint uint64
	bytes  []byte
	at     int // offset of bytes[0]
}

func malformed(offset int, format string, args ...any) *FormatError {
	return formatErr(MalformedMessage, offset, format, args...)
}

// next returns the next field, or false at the end of the message.
// Fields of any wire type are consumed so that unknown ones can be skipped.
func (m *message) next() (field, bool, error) {
	if m.pos >= len(m.buf) {
		return field{}, false, nil
	}
	start := m.pos
	num, typ, n := protowire.ConsumeTag(m.buf[m.pos:])
	if n < 0 {
		return field{}, false, malformed(m.base+start, "invalid tag: %v", protowire.ParseError(n))
	}
	m.pos += n
	f := field{num: num, typ: typ, offset: m.base + start}
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(m.buf[m.pos:])
		if n < 0 {
			return field{}, false, malformed(m.base+m.pos, "field %d: %v", num, protowire.ParseError(n))
		}
		f.varint = v
		m.pos += n
	case protowire.BytesType:
		v, n := protowire.ConsumeBytes(m.buf[m.pos:])
		if n < 0 {
			return field{}, false, malformed(m.base+m.pos, "field %d: %v", num, protowire.ParseError(n))
		}
		f.bytes = v
		f.at = m.base + m.pos + n - len(v)
		m.pos += n
	default:
		n := protowire.ConsumeFieldValue(num, typ, m.buf[m.pos:])
		if n < 0 {
			return field{}, false, malformed(m.base+m.pos, "field %d: %v", num, protowire.ParseError(n))
		}
		m.pos += n
	}
	return f, true, nil
}

func (f field) want(typ protowire.Type) error {
	if f.typ != typ {
		return malformed(f.offset, "field %d: wire type %d, want %d", f.num, f.typ, typ)
	}
	return nil
}

func (f field) int64() (int64, error) {
	if err := f.want(protowire.VarintType); err != nil {
		return 0, err
	}
	return int64(f.varint), nil
}

// int32 follows protobuf rules: negative values are sign-extended to 64 bits on the wire.
// Anything else outside the int32 range is malformed.
func (f field) int32() (int32, error) {
	v, err := f.int64()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, malformed(f.offset, "field %d: %d overflows int32", f.num, f.varint)
	}
	return int32(v), nil
}

func (f field) uint32() (uint32, error) {
	if err := f.want(protowire.VarintType); err != nil {
		return 0, err
	}
	if f.varint > math.MaxUint32 {
		return 0, malformed(f.offset, "field %d: %d overflows uint32", f.num, f.varint)
	}
	return uint32(f.varint), nil
}

func (f field) bool() (bool, error) {
	v, err := f.int64()
	return v != 0, err
}

func (f field) string() (string, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return "", err
	}
	if !utf8.Valid(f.bytes) {
		return "", malformed(f.at, "field %d: invalid UTF-8", f.num)
	}
	return string(f.bytes), nil
}

func (f field) raw() ([]byte, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return nil, err
	}
	return append([]byte(nil), f.bytes...), nil
}

func (f field) message() (*message, error) {
	if err := f.want(protowire.BytesType); err != nil {
		return nil, err
	}
	return &message{buf: f.bytes, base: f.at}, nil
}

// decodeEach walks m and hands every field to fn.
func decodeEach(m *message, fn func(f field) error) error {
	for {
		f, ok, err := m.next()
		if err != nil || !ok {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}

// decodeNested decodes field f as a sub-message with fn.
func decodeNested(f field, fn func(f field) error) error {
	m, err := f.message()
	if err != nil {
		return err
	}
	return decodeEach(m, fn)
}
