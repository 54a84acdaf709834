package lotledger

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is against FormatError, ValidationError and ArithmeticError.
var (
	ErrBadMagic           = errors.New("bad magic")
	ErrMissingPayload     = errors.New("missing payload")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrMalformedMessage   = errors.New("malformed message")

	ErrDanglingReference      = errors.New("dangling reference")
	ErrDuplicateIdentity      = errors.New("duplicate identity")
	ErrInsufficientShares     = errors.New("insufficient shares")
	ErrInconsistentCrossEntry = errors.New("inconsistent cross entry")
	ErrInvalidValue           = errors.New("invalid value")

	ErrOverflow         = errors.New("overflow")
	ErrUnrepresentable  = errors.New("unrepresentable value")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrRateUnavailable  = errors.New("exchange rate unavailable")
)

// FormatErrorKind classifies archive format failures.
type FormatErrorKind int

const (
	BadMagic FormatErrorKind = iota + 1
	MissingPayload
	UnsupportedVersion
	MalformedMessage
)

func (k FormatErrorKind) sentinel() error {
	switch k {
	case BadMagic:
		return ErrBadMagic
	case MissingPayload:
		return ErrMissingPayload
	case UnsupportedVersion:
		return ErrUnsupportedVersion
	case MalformedMessage:
		return ErrMalformedMessage
	}
	return nil
}

func (k FormatErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("FormatErrorKind(%d)", int(k))
}

// FormatError reports an archive that cannot be decoded. It is always fatal to the decode.
type FormatError struct {
	Kind   FormatErrorKind
	Offset int    // byte offset within the payload entry, -1 when unknown
	Entry  string // container entry name, if any
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("format error: ")
	b.WriteString(e.Kind.String())
	if e.Entry != "" {
		fmt.Fprintf(&b, " in %q", e.Entry)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FormatError) Unwrap() []error { return unwrapKind(e.Kind.sentinel(), e.Err) }

// ValidationErrorKind classifies ledger integrity failures.
type ValidationErrorKind int

const (
	DanglingReference ValidationErrorKind = iota + 1
	DuplicateIdentity
	InsufficientShares
	InconsistentCrossEntry
	InvalidValue
)

func (k ValidationErrorKind) sentinel() error {
	switch k {
	case DanglingReference:
		return ErrDanglingReference
	case DuplicateIdentity:
		return ErrDuplicateIdentity
	case InsufficientShares:
		return ErrInsufficientShares
	case InconsistentCrossEntry:
		return ErrInconsistentCrossEntry
	case InvalidValue:
		return ErrInvalidValue
	}
	return nil
}

func (k ValidationErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("ValidationErrorKind(%d)", int(k))
}

// ValidationError reports a ledger that decodes but cannot be trusted.
// Entity names the offending (or missing) identity.
type ValidationError struct {
	Kind   ValidationErrorKind
	Entity string
	Pair   PairKey // set when raised by the lot engine
	Err    error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation error: ")
	b.WriteString(e.Kind.String())
	if e.Entity != "" {
		fmt.Fprintf(&b, " %s", e.Entity)
	}
	if e.Pair != (PairKey{}) {
		fmt.Fprintf(&b, " (pair %s)", e.Pair)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error { return unwrapKind(e.Kind.sentinel(), e.Err) }

// ArithmeticErrorKind classifies fixed-point failures.
type ArithmeticErrorKind int

const (
	Overflow ArithmeticErrorKind = iota + 1
	Unrepresentable
	CurrencyMismatch
	RateUnavailable
)

func (k ArithmeticErrorKind) sentinel() error {
	switch k {
	case Overflow:
		return ErrOverflow
	case Unrepresentable:
		return ErrUnrepresentable
	case CurrencyMismatch:
		return ErrCurrencyMismatch
	case RateUnavailable:
		return ErrRateUnavailable
	}
	return nil
}

func (k ArithmeticErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("ArithmeticErrorKind(%d)", int(k))
}

// ArithmeticError reports a computation whose exact result cannot be produced.
// Values are never clamped, so this error is always fatal to the computation.
type ArithmeticError struct {
	Kind ArithmeticErrorKind
	Op   string
	Err  error
}

func (e *ArithmeticError) Error() string {
	msg := "arithmetic error: " + e.Kind.String()
	if e.Op != "" {
		msg += " in " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ArithmeticError) Unwrap() []error { return unwrapKind(e.Kind.sentinel(), e.Err) }

func unwrapKind(sentinel, err error) []error {
	errs := make([]error, 0, 2)
	if sentinel != nil {
		errs = append(errs, sentinel)
	}
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func formatErr(kind FormatErrorKind, offset int, format string, args ...any) *FormatError {
	return &FormatError{Kind: kind, Offset: offset, Err: fmt.Errorf(format, args...)}
}

func validationErr(kind ValidationErrorKind, entity string, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Entity: entity, Err: fmt.Errorf(format, args...)}
}

func arithmeticErr(kind ArithmeticErrorKind, op string, format string, args ...any) *ArithmeticError {
	return &ArithmeticError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}
