package renderer

import (
	"github.com/etnz/lotledger"
	"github.com/etnz/lotledger/date"
)

// Lots is the rendered form of a list of open lots.
type Lots struct {
	Lots []LotRow `json:"lots"`
	// Total cost in the base currency, nil when lots mix base currencies.
	Total *lotledger.Money `json:"total,omitempty"`
}

// LotRow is one open lot.
type LotRow struct {
	Portfolio string           `json:"portfolio"`
	Security  string           `json:"security"`
	Opened    date.Date        `json:"opened"`
	Shares    lotledger.Shares `json:"shares"`
	Cost      lotledger.Money  `json:"cost"`
	CostBase  lotledger.Money  `json:"costBase"`
}

// NewLots creates a new Lots, labelling pairs with names.
func NewLots(lots []lotledger.Lot, names Names) *Lots {
	l := &Lots{Lots: make([]LotRow, 0, len(lots))}
	costs := make([]lotledger.Money, 0, len(lots))
	for _, lot := range lots {
		l.Lots = append(l.Lots, LotRow{
			Portfolio: names.Of(lot.Pair.Portfolio),
			Security:  names.Of(lot.Pair.Security),
			Opened:    date.Of(lot.Opened),
			Shares:    lot.Shares,
			Cost:      lot.Cost,
			CostBase:  lot.CostBase,
		})
		costs = append(costs, lot.CostBase)
	}
	l.Total = total(costs)
	return l
}

// Gains is the rendered form of a list of realized gains.
type Gains struct {
	Gains []GainRow `json:"gains"`
	// Total gain in the base currency, nil when gains mix base currencies.
	Total *lotledger.Money `json:"total,omitempty"`
}

// GainRow is one realized gain.
type GainRow struct {
	Portfolio string           `json:"portfolio"`
	Security  string           `json:"security"`
	Closed    date.Date        `json:"closed"`
	Shares    lotledger.Shares `json:"shares"`
	Proceeds  lotledger.Money  `json:"proceeds"`
	Cost      lotledger.Money  `json:"cost"`
	Gain      lotledger.Money  `json:"gain"`
	GainBase  lotledger.Money  `json:"gainBase"`
}

// NewGains creates a new Gains, labelling pairs with names.
func NewGains(gains []lotledger.RealizedGain, names Names) *Gains {
	g := &Gains{Gains: make([]GainRow, 0, len(gains))}
	values := make([]lotledger.Money, 0, len(gains))
	for _, gain := range gains {
		g.Gains = append(g.Gains, GainRow{
			Portfolio: names.Of(gain.Pair.Portfolio),
			Security:  names.Of(gain.Pair.Security),
			Closed:    date.Of(gain.Closed),
			Shares:    gain.Shares,
			Proceeds:  gain.Proceeds,
			Cost:      gain.Cost,
			Gain:      gain.Gain,
			GainBase:  gain.GainBase,
		})
		values = append(values, gain.GainBase)
	}
	g.Total = total(values)
	return g
}

// total sums values, nil if there are none or they cannot be summed.
func total(values []lotledger.Money) *lotledger.Money {
	if len(values) == 0 {
		return nil
	}
	var sum lotledger.Money
	for _, v := range values {
		var err error
		if sum, err = sum.Add(v); err != nil {
			return nil
		}
	}
	return &sum
}
