package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/cryptobot/ledger"
)

// SQLiteJournal persists trades and equity snapshots to a SQLite database
// and serves the read queries behind the report command.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t ledger.TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, strategy_id, symbol, direction, units, notional,
		 entry_price, exit_price, entry_time, exit_time, realized_pl, fees, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.StrategyID, t.Symbol, int(t.Direction), t.Units, t.Notional,
		t.EntryPrice, t.ExitPrice, t.EntryTime, t.ExitTime, t.RealizedPL, t.Fees, t.Reason,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, total, available, allocated, unrealized_pl, equity, open_trades)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Time, e.Total, e.Available, e.Allocated, e.UnrealizedPL, e.Equity, e.OpenTrades,
	)
	return err
}

// ListTrades returns every trade record ordered by exit time.
func (j *SQLiteJournal) ListTrades() ([]ledger.TradeRecord, error) {
	return j.listTrades(`
		SELECT trade_id, strategy_id, symbol, direction, units, notional,
		       entry_price, exit_price, entry_time, exit_time, realized_pl, fees, reason
		FROM trades
		ORDER BY exit_time ASC`)
}

// ListTradesClosedBetween returns trades whose exit_time is within [start, end).
func (j *SQLiteJournal) ListTradesClosedBetween(start, end time.Time) ([]ledger.TradeRecord, error) {
	return j.listTrades(`
		SELECT trade_id, strategy_id, symbol, direction, units, notional,
		       entry_price, exit_price, entry_time, exit_time, realized_pl, fees, reason
		FROM trades
		WHERE exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
}

func (j *SQLiteJournal) listTrades(query string, args ...any) ([]ledger.TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.TradeRecord
	for rows.Next() {
		var rec ledger.TradeRecord
		var dir int
		if err := rows.Scan(
			&rec.TradeID,
			&rec.StrategyID,
			&rec.Symbol,
			&dir,
			&rec.Units,
			&rec.Notional,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.EntryTime,
			&rec.ExitTime,
			&rec.RealizedPL,
			&rec.Fees,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		rec.Direction = ledger.Direction(dir)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetTrade returns a single trade record by ID.
func (j *SQLiteJournal) GetTrade(tradeID string) (ledger.TradeRecord, error) {
	recs, err := j.listTrades(`
		SELECT trade_id, strategy_id, symbol, direction, units, notional,
		       entry_price, exit_price, entry_time, exit_time, realized_pl, fees, reason
		FROM trades
		WHERE trade_id = ?`, tradeID)
	if err != nil {
		return ledger.TradeRecord{}, err
	}
	if len(recs) == 0 {
		return ledger.TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
	}
	return recs[0], nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
