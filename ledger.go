package lotledger

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// DefaultBaseCurrency is used when the archive does not name one.
const DefaultBaseCurrency = "EUR"

// Account holds cash in a single currency.
type Account struct {
	ID           uuid.UUID
	Name         string
	Currency     string
	Retired      bool
	Transactions []*AccountTransaction // ledger order
}

// Portfolio holds securities. Its currency is the one of its reference account.
type Portfolio struct {
	ID               uuid.UUID
	Name             string
	Currency         string
	ReferenceAccount *Account
	Retired          bool
	Transactions     []*PortfolioTransaction // ledger order
}

// PairKey identifies the lots of one security held in one portfolio.
type PairKey struct {
	Portfolio uuid.UUID
	Security  uuid.UUID
}

func (k PairKey) String() string { return fmt.Sprintf("%s/%s", k.Portfolio, k.Security) }

// MarshalJSON writes the pair as an object with portfolio and security fields.
func (k PairKey) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("portfolio", k.Portfolio)
	w.Append("security", k.Security)
	return w.MarshalJSON()
}

// Compare orders pairs by portfolio then security.
func (k PairKey) Compare(o PairKey) int {
	if c := bytes.Compare(k.Portfolio[:], o.Portfolio[:]); c != 0 {
		return c
	}
	return bytes.Compare(k.Security[:], o.Security[:])
}

// Ledger is the normalized, cross-validated content of one archive.
// It is immutable once built and safe for concurrent reads.
type Ledger struct {
	Version      int32
	BaseCurrency string
	Securities   []*Security
	Accounts     []*Account
	Portfolios   []*Portfolio
	// Rates embedded in the archive transactions.
	Rates *RateTable

	securities map[uuid.UUID]*Security
	accounts   map[uuid.UUID]*Account
	portfolios map[uuid.UUID]*Portfolio
	pairs      map[PairKey][]*PortfolioTransaction
}

func newLedger() *Ledger {
	return &Ledger{
		Rates:      NewRateTable(),
		securities: make(map[uuid.UUID]*Security),
		accounts:   make(map[uuid.UUID]*Account),
		portfolios: make(map[uuid.UUID]*Portfolio),
		pairs:      make(map[PairKey][]*PortfolioTransaction),
	}
}

// Security returns the security with that id, or nil.
func (l *Ledger) Security(id uuid.UUID) *Security { return l.securities[id] }

// Account returns the account with that id, or nil.
func (l *Ledger) Account(id uuid.UUID) *Account { return l.accounts[id] }

// Portfolio returns the portfolio with that id, or nil.
func (l *Ledger) Portfolio(id uuid.UUID) *Portfolio { return l.portfolios[id] }

// Pairs returns every (portfolio, security) pair with at least one transaction, sorted.
func (l *Ledger) Pairs() []PairKey {
	keys := make([]PairKey, 0, len(l.pairs))
	for k := range l.pairs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, PairKey.Compare)
	return keys
}

// PairTransactions returns the pair's transactions in ledger order.
func (l *Ledger) PairTransactions(k PairKey) []*PortfolioTransaction { return l.pairs[k] }

// Splits returns the split events of the security, in chronological order.
func (l *Ledger) Splits(id uuid.UUID) []SecurityEvent {
	if s := l.securities[id]; s != nil {
		return s.Splits()
	}
	return nil
}

// Stats counts the content of a ledger.
type Stats struct {
	Securities            int
	Accounts              int
	Portfolios            int
	PortfolioTransactions int
	AccountTransactions   int
	RetiredSecurities     int
	RetiredAccounts       int
	RetiredPortfolios     int
	Pairs                 int
	Rates                 int
}

// Stats returns counts of the ledger content.
func (l *Ledger) Stats() Stats {
	s := Stats{
		Securities: len(l.Securities),
		Accounts:   len(l.Accounts),
		Portfolios: len(l.Portfolios),
		Pairs:      len(l.pairs),
		Rates:      l.Rates.Len(),
	}
	for _, sec := range l.Securities {
		if sec.Retired {
			s.RetiredSecurities++
		}
	}
	for _, a := range l.Accounts {
		s.AccountTransactions += len(a.Transactions)
		if a.Retired {
			s.RetiredAccounts++
		}
	}
	for _, p := range l.Portfolios {
		s.PortfolioTransactions += len(p.Transactions)
		if p.Retired {
			s.RetiredPortfolios++
		}
	}
	return s
}
