package renderer

import (
	"github.com/etnz/lotledger"
	"github.com/google/uuid"
)

// Names labels portfolios and securities. Unknown ids render as their uuid.
type Names map[uuid.UUID]string

// NamesOf collects the labels of the portfolios and securities of a ledger.
// A nil ledger yields no names.
func NamesOf(l *lotledger.Ledger) Names {
	n := Names{}
	if l == nil {
		return n
	}
	for _, p := range l.Portfolios {
		if p.Name != "" {
			n[p.ID] = p.Name
		}
	}
	for _, s := range l.Securities {
		n[s.ID] = s.Label()
	}
	return n
}

// Of returns the label of id.
func (n Names) Of(id uuid.UUID) string {
	if name, ok := n[id]; ok {
		return cell(name)
	}
	return id.String()
}
