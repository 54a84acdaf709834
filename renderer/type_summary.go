package renderer

import "github.com/etnz/lotledger"

// Summary describes a decoded ledger.
type Summary struct {
	Version      int32           `json:"version"`
	BaseCurrency string          `json:"baseCurrency"`
	Stats        lotledger.Stats `json:"stats"`
}

// NewSummary creates a new Summary from a ledger.
func NewSummary(l *lotledger.Ledger) *Summary {
	return &Summary{
		Version:      l.Version,
		BaseCurrency: l.BaseCurrency,
		Stats:        l.Stats(),
	}
}
