// Package ledger tracks open positions and the append-only record of closed
// trades. It is pure bookkeeping: exit decisions are made by the strategies,
// capital accounting by the allocator.
package ledger

import "time"

// Direction of a position. The sign doubles as the P&L multiplier.
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	if d == Short {
		return "short"
	}
	return "long"
}

// Position is one live trade owned by a single strategy. It is created on an
// entry fill and mutated only by the ledger's mark-to-market; everything the
// exit rules need (stop, target, high-water mark) lives here.
type Position struct {
	ID         string
	StrategyID string
	Symbol     string
	Direction  Direction

	EntryPrice float64
	EntryTime  time.Time
	Units      float64 // base-asset quantity
	Notional   float64 // capital allocated against this position
	Leverage   float64

	StopPrice   float64
	TargetPrice float64
	TrailingPct float64 // 0 disables the trailing stop

	// Updated by MarkToMarket on every tick.
	HighWater    float64 // highest close seen since entry
	MarkPrice    float64
	UnrealizedPL float64
}

// TrailingStop returns the current trailing stop price, or 0 when trailing
// is disabled or the position has not been marked yet.
func (p *Position) TrailingStop() float64 {
	if p.TrailingPct <= 0 || p.HighWater <= 0 {
		return 0
	}
	return p.HighWater * (1 - p.TrailingPct)
}

// TradeRecord is the immutable audit record of a closed position.
type TradeRecord struct {
	TradeID    string
	StrategyID string
	Symbol     string
	Direction  Direction
	Units      float64
	Notional   float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	RealizedPL float64 // net of fees
	Fees       float64
	Reason     string
}
