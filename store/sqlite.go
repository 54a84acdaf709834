package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/lotledger"
	"github.com/etnz/lotledger/date"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLiteStore persists records in a SQLite database.
//
// Transactions are opened with BEGIN IMMEDIATE on a single connection, so a
// rebuild holds the write lock of the database for its whole duration.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
// A path starting with "file:" is used as-is, which allows in-memory databases.
func OpenSQLite(path string, log zerolog.Logger) (*SQLiteStore, error) {
	if !strings.HasPrefix(path, "file:") {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = absPath
	}

	conn, err := sql.Open("sqlite", connectionString(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// one writer; it also keeps in-memory databases alive
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}

	s := &SQLiteStore{db: conn, path: path, log: log.With().Str("component", "store").Str("path", path).Logger()}
	s.log.Debug().Msg("Database opened")
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// connectionString adds the pragmas and the transaction mode to path.
func connectionString(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_txlock=immediate"
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	s.log.Debug().Msg("Schema applied")
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Begin implements lotledger.Store.
func (s *SQLiteStore) Begin(ctx context.Context) (lotledger.StoreTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx}, nil
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Pairs(ctx context.Context) ([]lotledger.PairKey, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT portfolio, security FROM lots
		UNION
		SELECT portfolio, security FROM gains
		ORDER BY 1, 2`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pairs []lotledger.PairKey
	for rows.Next() {
		var p, s string
		if err := rows.Scan(&p, &s); err != nil {
			return nil, err
		}
		k, err := pairKey(p, s)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, k)
	}
	return pairs, rows.Err()
}

func (t *sqliteTx) DeletePair(ctx context.Context, pair lotledger.PairKey) error {
	for _, table := range []string{"lots", "gains"} {
		q := "DELETE FROM " + table + " WHERE portfolio = ? AND security = ?"
		if _, err := t.tx.ExecContext(ctx, q, pair.Portfolio.String(), pair.Security.String()); err != nil {
			return fmt.Errorf("failed to delete %s of %s: %w", table, pair, err)
		}
	}
	return nil
}

func (t *sqliteTx) PutLot(ctx context.Context, l lotledger.Lot) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO lots (
			portfolio, security, lot, opened, original_shares, shares,
			currency, original_cost, cost, base_currency, original_cost_base, cost_base
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Pair.Portfolio.String(), l.Pair.Security.String(), l.ID.String(), l.Opened.UnixNano(),
		l.OriginalShares.Units(), l.Shares.Units(),
		l.Cost.Currency(), l.OriginalCost.Units(), l.Cost.Units(),
		l.CostBase.Currency(), l.OriginalCostBase.Units(), l.CostBase.Units(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lot %s: %w", l.ID, err)
	}
	return nil
}

func (t *sqliteTx) PutGain(ctx context.Context, g lotledger.RealizedGain) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO gains (
			portfolio, security, lot, tx, closed, shares,
			currency, proceeds, cost, gain, base_currency, proceeds_base, cost_base, gain_base
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Pair.Portfolio.String(), g.Pair.Security.String(), g.Lot.String(), g.Transaction.String(),
		g.Closed.UnixNano(), g.Shares.Units(),
		g.Proceeds.Currency(), g.Proceeds.Units(), g.Cost.Units(), g.Gain.Units(),
		g.ProceedsBase.Currency(), g.ProceedsBase.Units(), g.CostBase.Units(), g.GainBase.Units(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert gain %s/%s: %w", g.Transaction, g.Lot, err)
	}
	return nil
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

// PutRate records an exchange rate, replacing any rate of that pair on that day.
func (s *SQLiteStore) PutRate(ctx context.Context, from, to string, day date.Date, r lotledger.Rate) error {
	if !r.IsValid() {
		return fmt.Errorf("exchange rate %s%s must be positive", from, to)
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO rates (base, quote, day, rate) VALUES (?, ?, ?, ?)",
		from, to, day.String(), r.Units())
	if err != nil {
		return fmt.Errorf("failed to insert rate %s%s on %s: %w", from, to, day, err)
	}
	return nil
}

// Rates loads every recorded exchange rate into a table.
func (s *SQLiteStore) Rates(ctx context.Context) (*lotledger.RateTable, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT base, quote, day, rate FROM rates")
	if err != nil {
		return nil, fmt.Errorf("failed to query rates: %w", err)
	}
	defer rows.Close()
	table := lotledger.NewRateTable()
	for rows.Next() {
		var from, to, day string
		var units int64
		if err := rows.Scan(&from, &to, &day, &units); err != nil {
			return nil, err
		}
		on, err := date.Parse(day)
		if err != nil {
			return nil, fmt.Errorf("rate %s%s: %w", from, to, err)
		}
		table.Set(from, to, on, lotledger.RateUnits(units))
	}
	return table, rows.Err()
}

// Lots returns the open lots matching f.
func (s *SQLiteStore) Lots(ctx context.Context, f Filter) ([]lotledger.Lot, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT portfolio, security, lot, opened, original_shares, shares,
			currency, original_cost, cost, base_currency, original_cost_base, cost_base
		FROM lots`+where+` ORDER BY portfolio, security, opened, lot`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()
	var lots []lotledger.Lot
	for rows.Next() {
		var (
			p, sec, id, cur, base                  string
			opened, origShares, shares             int64
			origCost, cost, origCostBase, costBase int64
		)
		if err := rows.Scan(&p, &sec, &id, &opened, &origShares, &shares,
			&cur, &origCost, &cost, &base, &origCostBase, &costBase); err != nil {
			return nil, err
		}
		k, err := pairKey(p, sec)
		if err != nil {
			return nil, err
		}
		lotID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("lot id %q: %w", id, err)
		}
		lots = append(lots, lotledger.Lot{
			ID:               lotID,
			Pair:             k,
			Opened:           time.Unix(0, opened).UTC(),
			OriginalShares:   lotledger.SharesUnits(origShares),
			Shares:           lotledger.SharesUnits(shares),
			OriginalCost:     lotledger.MoneyUnits(origCost, cur),
			Cost:             lotledger.MoneyUnits(cost, cur),
			OriginalCostBase: lotledger.MoneyUnits(origCostBase, base),
			CostBase:         lotledger.MoneyUnits(costBase, base),
		})
	}
	return lots, rows.Err()
}

// Gains returns the realized gains matching f.
func (s *SQLiteStore) Gains(ctx context.Context, f Filter) ([]lotledger.RealizedGain, error) {
	where, args := f.where()
	rows, err := s.db.QueryContext(ctx, `
		SELECT portfolio, security, lot, tx, closed, shares,
			currency, proceeds, cost, gain, base_currency, proceeds_base, cost_base, gain_base
		FROM gains`+where+` ORDER BY portfolio, security, closed, tx, lot`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gains: %w", err)
	}
	defer rows.Close()
	var gains []lotledger.RealizedGain
	for rows.Next() {
		var (
			p, sec, lot, tx, cur, base       string
			closed, shares                   int64
			proceeds, cost, gain             int64
			proceedsBase, costBase, gainBase int64
		)
		if err := rows.Scan(&p, &sec, &lot, &tx, &closed, &shares,
			&cur, &proceeds, &cost, &gain, &base, &proceedsBase, &costBase, &gainBase); err != nil {
			return nil, err
		}
		k, err := pairKey(p, sec)
		if err != nil {
			return nil, err
		}
		lotID, err := uuid.Parse(lot)
		if err != nil {
			return nil, fmt.Errorf("lot id %q: %w", lot, err)
		}
		txID, err := uuid.Parse(tx)
		if err != nil {
			return nil, fmt.Errorf("transaction id %q: %w", tx, err)
		}
		gains = append(gains, lotledger.RealizedGain{
			Transaction:  txID,
			Lot:          lotID,
			Pair:         k,
			Closed:       time.Unix(0, closed).UTC(),
			Shares:       lotledger.SharesUnits(shares),
			Proceeds:     lotledger.MoneyUnits(proceeds, cur),
			Cost:         lotledger.MoneyUnits(cost, cur),
			Gain:         lotledger.MoneyUnits(gain, cur),
			ProceedsBase: lotledger.MoneyUnits(proceedsBase, base),
			CostBase:     lotledger.MoneyUnits(costBase, base),
			GainBase:     lotledger.MoneyUnits(gainBase, base),
		})
	}
	return gains, rows.Err()
}

// Snapshot returns every stored lot and gain.
func (s *SQLiteStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	lots, err := s.Lots(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	gains, err := s.Gains(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Lots: lots, Gains: gains}
	snap.sort()
	return snap, nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Portfolio != uuid.Nil {
		conds = append(conds, "portfolio = ?")
		args = append(args, f.Portfolio.String())
	}
	if f.Security != uuid.Nil {
		conds = append(conds, "security = ?")
		args = append(args, f.Security.String())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pairKey(portfolio, security string) (lotledger.PairKey, error) {
	p, err := uuid.Parse(portfolio)
	if err != nil {
		return lotledger.PairKey{}, fmt.Errorf("portfolio id %q: %w", portfolio, err)
	}
	s, err := uuid.Parse(security)
	if err != nil {
		return lotledger.PairKey{}, fmt.Errorf("security id %q: %w", security, err)
	}
	return lotledger.PairKey{Portfolio: p, Security: s}, nil
}
