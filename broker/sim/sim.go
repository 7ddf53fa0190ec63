// Package sim is an in-process paper broker. It serves scripted candle
// series as market data and fills market orders at the latest close with
// configurable slippage, which makes engine scenarios fully deterministic.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyeddy/cryptobot/broker"
	"github.com/rustyeddy/cryptobot/internal/id"
	"github.com/rustyeddy/cryptobot/market"
)

// Broker implements broker.MarketData and broker.Execution over preloaded
// candle series. The cursor starts at bar 0; Advance moves every symbol one
// bar forward, mimicking a new closed candle per tick.
type Broker struct {
	mu       sync.Mutex
	slippage float64
	series   map[string][]market.Candle
	cursor   map[string]int

	failFetch error // when set, RecentCandles fails once
	failOrder error // when set, PlaceMarketOrder fails once
}

// New creates a paper broker. Buys fill above the close and sells below it
// by the slippage fraction (e.g. 0.0005).
func New(slippage float64) *Broker {
	return &Broker{
		slippage: slippage,
		series:   make(map[string][]market.Candle),
		cursor:   make(map[string]int),
	}
}

// LoadSeries installs the full candle history for a symbol and rewinds its
// cursor to the first bar.
func (b *Broker) LoadSeries(symbol string, candles []market.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.series[symbol] = candles
	b.cursor[symbol] = 0
}

// Advance moves every symbol one bar forward. It returns false once any
// symbol has run out of candles.
func (b *Broker) Advance() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sym, cur := range b.cursor {
		if cur+1 >= len(b.series[sym]) {
			return false
		}
		b.cursor[sym] = cur + 1
	}
	return true
}

func (b *Broker) RecentCandles(ctx context.Context, symbol string, count int) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sim: %v: %w", err, broker.ErrDataUnavailable)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failFetch; err != nil {
		b.failFetch = nil
		return nil, err
	}

	series, ok := b.series[symbol]
	if !ok {
		return nil, fmt.Errorf("sim: no series loaded for %s: %w", symbol, broker.ErrDataUnavailable)
	}

	end := b.cursor[symbol] + 1
	start := end - count
	if start < 0 {
		start = 0
	}
	out := make([]market.Candle, end-start)
	copy(out, series[start:end])
	return out, nil
}

func (b *Broker) PlaceMarketOrder(ctx context.Context, symbol string, side broker.Side, units float64) (broker.Fill, error) {
	if err := ctx.Err(); err != nil {
		return broker.Fill{}, fmt.Errorf("sim: %v: %w", err, broker.ErrOrderTimeout)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.failOrder; err != nil {
		b.failOrder = nil
		return broker.Fill{}, err
	}

	if units <= 0 {
		return broker.Fill{}, &broker.OrderRejectedError{
			Symbol: symbol, Side: side, Units: units, Reason: "non-positive units",
		}
	}
	series, ok := b.series[symbol]
	if !ok {
		return broker.Fill{}, &broker.OrderRejectedError{
			Symbol: symbol, Side: side, Units: units, Reason: "unknown symbol",
		}
	}

	bar := series[b.cursor[symbol]]
	price := bar.Close
	if side == broker.Buy {
		price *= 1 + b.slippage
	} else {
		price *= 1 - b.slippage
	}

	return broker.Fill{
		OrderID: id.New(),
		Symbol:  symbol,
		Side:    side,
		Units:   units,
		Price:   price,
		Time:    bar.Time,
	}, nil
}

// FailNextFetch makes the next RecentCandles call return err. Test hook.
func (b *Broker) FailNextFetch(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failFetch = err
}

// FailNextOrder makes the next PlaceMarketOrder call return err. Test hook.
func (b *Broker) FailNextOrder(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOrder = err
}
