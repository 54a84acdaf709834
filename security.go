package lotledger

import (
	"strings"

	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
)

// SecurityKind classifies securities. It is informative only: every kind is
// replayed the same way.
type SecurityKind int

const (
	KindOther SecurityKind = iota
	KindEquity
	KindBond
	KindFund
	KindETF
	KindCrypto
	KindIndex
)

var securityKinds = map[SecurityKind]string{
	KindOther:  "other",
	KindEquity: "equity",
	KindBond:   "bond",
	KindFund:   "fund",
	KindETF:    "etf",
	KindCrypto: "crypto",
	KindIndex:  "index",
}

func (k SecurityKind) String() string { return securityKinds[k] }

// parseSecurityKind maps the "type" attribute of a security. Unknown values are KindOther.
func parseSecurityKind(s string) SecurityKind {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range securityKinds {
		if name == s {
			return k
		}
	}
	return KindOther
}

// EventKind enumerates security events.
type EventKind int

const (
	EventSplit EventKind = iota + 1
	EventDividend
	EventNote
)

func (k EventKind) String() string {
	switch k {
	case EventSplit:
		return "split"
	case EventDividend:
		return "dividend"
	case EventNote:
		return "note"
	}
	return "unknown"
}

// SecurityEvent is a dated event of a security.
// Only splits change lots; dividends are cash events recorded on accounts.
type SecurityEvent struct {
	Kind    EventKind
	Date    date.Date
	Ratio   Ratio // splits
	Amount  Money // dividends, per share
	Details string
}

// Security is a tradable instrument.
type Security struct {
	ID       uuid.UUID
	Name     string
	Currency string
	Kind     SecurityKind
	ISIN     string
	Ticker   string
	Retired  bool
	Events   []SecurityEvent // sorted by date
}

// Splits returns the split events, in chronological order.
func (s *Security) Splits() []SecurityEvent {
	var splits []SecurityEvent
	for _, e := range s.Events {
		if e.Kind == EventSplit {
			splits = append(splits, e)
		}
	}
	return splits
}

// Label returns the most readable identifier of the security.
func (s *Security) Label() string {
	switch {
	case s.Ticker != "":
		return s.Ticker
	case s.Name != "":
		return s.Name
	}
	return s.ID.String()
}
