package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/cryptobot/ledger"
)

// CSVJournal writes trades and equity snapshots to two CSV files, one row
// per record, flushed immediately so a crash loses nothing.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write([]string{
		"trade_id", "strategy_id", "symbol", "direction", "units", "notional",
		"entry_price", "exit_price", "entry_time", "exit_time", "realized_pl", "fees", "reason",
	}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{
		"time", "total", "available", "allocated", "unrealized_pl", "equity", "open_trades",
	}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{trades: tw, equity: ew, tf: tf, ef: ef}, nil
}

func (j *CSVJournal) RecordTrade(t ledger.TradeRecord) error {
	if err := j.trades.Write([]string{
		t.TradeID,
		t.StrategyID,
		t.Symbol,
		t.Direction.String(),
		f(t.Units),
		f(t.Notional),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.EntryTime.Format(time.RFC3339),
		t.ExitTime.Format(time.RFC3339),
		f(t.RealizedPL),
		f(t.Fees),
		t.Reason,
	}); err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	if err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Total),
		f(e.Available),
		f(e.Allocated),
		f(e.UnrealizedPL),
		f(e.Equity),
		strconv.Itoa(e.OpenTrades),
	}); err != nil {
		return err
	}
	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
