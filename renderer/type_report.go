package renderer

import (
	"time"

	"github.com/etnz/lotledger"
)

// Report is the rendered form of a rebuild report.
type Report struct {
	Duration time.Duration `json:"duration"`
	Lots     int           `json:"lots"`
	Gains    int           `json:"gains"`
	Failed   int           `json:"failed"`
	Pairs    []ReportPair  `json:"pairs"`
	Removed  []ReportPair  `json:"removed"`
}

// ReportPair is the outcome of one (portfolio, security) pair.
type ReportPair struct {
	Portfolio string `json:"portfolio"`
	Security  string `json:"security"`
	Lots      int    `json:"lots"`
	Gains     int    `json:"gains"`
	Error     string `json:"error,omitempty"`
}

// Status returns "ok" or the pair's error.
func (p ReportPair) Status() string {
	if p.Error == "" {
		return "ok"
	}
	return p.Error
}

// NewReport creates a new Report, labelling pairs with names.
func NewReport(r *lotledger.RebuildReport, names Names) *Report {
	rep := &Report{
		Duration: r.Duration.Round(time.Millisecond),
		Failed:   len(r.Failed()),
		Pairs:    make([]ReportPair, 0, len(r.Pairs)),
	}
	rep.Lots, rep.Gains = r.Totals()
	for _, p := range r.Pairs {
		row := ReportPair{
			Portfolio: names.Of(p.Pair.Portfolio),
			Security:  names.Of(p.Pair.Security),
			Lots:      p.Lots,
			Gains:     p.Gains,
		}
		if p.Err != nil {
			row.Error = cell(p.Err.Error())
		}
		rep.Pairs = append(rep.Pairs, row)
	}
	for _, k := range r.Removed {
		rep.Removed = append(rep.Removed, ReportPair{
			Portfolio: names.Of(k.Portfolio),
			Security:  names.Of(k.Security),
		})
	}
	return rep
}
