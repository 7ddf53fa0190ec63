package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/cryptobot/internal/id"
)

var (
	// ErrAlreadyOpen means a strategy tried to open a second position. This
	// is an invariant violation, not a market condition: callers should halt.
	ErrAlreadyOpen = errors.New("ledger: strategy already has an open position")

	// ErrNotOpen means a close or mark was requested for a strategy with no
	// open position. Also an invariant violation.
	ErrNotOpen = errors.New("ledger: no open position for strategy")
)

// Ledger enforces at most one open position per strategy and keeps the
// append-only history of closed trades.
type Ledger struct {
	mu      sync.Mutex
	feeRate float64 // per side, e.g. 0.001 for 0.1%
	open    map[string]*Position
	closed  []TradeRecord
}

// New creates a ledger that charges feeRate per executed side when
// computing realized P&L.
func New(feeRate float64) *Ledger {
	return &Ledger{
		feeRate: feeRate,
		open:    make(map[string]*Position),
	}
}

// Open registers a new position for pos.StrategyID. The ledger assigns the
// position ID and seeds the high-water mark at the entry price.
func (l *Ledger) Open(pos Position) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[pos.StrategyID]; ok {
		return Position{}, fmt.Errorf("open %s: %w", pos.StrategyID, ErrAlreadyOpen)
	}

	pos.ID = id.New()
	pos.HighWater = pos.EntryPrice
	pos.MarkPrice = pos.EntryPrice

	p := pos
	l.open[pos.StrategyID] = &p
	return p, nil
}

// Position returns a copy of the strategy's open position, if any. Copies
// keep mutation confined to the ledger.
func (l *Ledger) Position(strategyID string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.open[strategyID]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// MarkToMarket revalues the strategy's open position at the current price,
// updating unrealized P&L and the high-water mark. It never closes anything;
// exits are strategy decisions.
func (l *Ledger) MarkToMarket(strategyID string, price float64) (Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.open[strategyID]
	if !ok {
		return Position{}, fmt.Errorf("mark %s: %w", strategyID, ErrNotOpen)
	}

	p.MarkPrice = price
	if price > p.HighWater {
		p.HighWater = price
	}
	p.UnrealizedPL = (price - p.EntryPrice) * p.Units * float64(p.Direction)
	return *p, nil
}

// Close settles the strategy's open position at exitPrice, appends the trade
// record, and frees the strategy slot. Realized P&L is
// (exit-entry) x units x direction, minus the per-side fee on both the entry
// and exit notional.
func (l *Ledger) Close(strategyID string, exitPrice float64, at time.Time, reason string) (TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.open[strategyID]
	if !ok {
		return TradeRecord{}, fmt.Errorf("close %s: %w", strategyID, ErrNotOpen)
	}

	gross := (exitPrice - p.EntryPrice) * p.Units * float64(p.Direction)
	fees := l.feeRate * (p.EntryPrice + exitPrice) * p.Units

	rec := TradeRecord{
		TradeID:    p.ID,
		StrategyID: p.StrategyID,
		Symbol:     p.Symbol,
		Direction:  p.Direction,
		Units:      p.Units,
		Notional:   p.Notional,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		EntryTime:  p.EntryTime,
		ExitTime:   at,
		RealizedPL: gross - fees,
		Fees:       fees,
		Reason:     reason,
	}

	delete(l.open, strategyID)
	l.closed = append(l.closed, rec)
	return rec, nil
}

// OpenPositions returns copies of every open position.
func (l *Ledger) OpenPositions() []Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Position, 0, len(l.open))
	for _, p := range l.open {
		out = append(out, *p)
	}
	return out
}

// UnrealizedPL sums unrealized P&L across all open positions as of the last
// mark-to-market.
func (l *Ledger) UnrealizedPL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for _, p := range l.open {
		total += p.UnrealizedPL
	}
	return total
}

// Records returns a copy of the closed-trade history, oldest first.
func (l *Ledger) Records() []TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]TradeRecord, len(l.closed))
	copy(out, l.closed)
	return out
}

// RealizedPL sums net realized P&L across all closed trades.
func (l *Ledger) RealizedPL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for _, rec := range l.closed {
		total += rec.RealizedPL
	}
	return total
}
