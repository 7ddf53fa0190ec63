// Package journal is the append-only persistence sink for trade records and
// equity snapshots. The engine only ever writes; nothing in a live run reads
// the store back.
package journal

import (
	"time"

	"github.com/rustyeddy/cryptobot/ledger"
)

// EquitySnapshot captures the capital pool at the end of one tick.
type EquitySnapshot struct {
	Time         time.Time
	Total        float64 // pool size: seed capital plus realized P&L
	Available    float64
	Allocated    float64
	UnrealizedPL float64
	Equity       float64 // Total + UnrealizedPL
	OpenTrades   int
}

// Journal records trades and equity snapshots.
type Journal interface {
	RecordTrade(ledger.TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. Used when journaling is disabled and in tests.
type Nop struct{}

func (Nop) RecordTrade(ledger.TradeRecord) error { return nil }
func (Nop) RecordEquity(EquitySnapshot) error    { return nil }
func (Nop) Close() error                         { return nil }
