// Package broker defines the exchange collaborator interfaces the engine
// consumes, and the error taxonomy it isolates per strategy.
package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/cryptobot/market"
)

// Side of a market order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Fill is the exchange's confirmation of a placed market order.
type Fill struct {
	OrderID string
	Symbol  string
	Side    Side
	Units   float64
	Price   float64
	Time    time.Time
}

// MarketData supplies candle history for a symbol.
type MarketData interface {
	// RecentCandles returns up to count of the most recent closed candles in
	// ascending time order. Transient network or exchange failures wrap
	// ErrDataUnavailable.
	RecentCandles(ctx context.Context, symbol string, count int) ([]market.Candle, error)
}

// Execution places orders against the exchange.
type Execution interface {
	// PlaceMarketOrder submits a market order and returns its fill. Exchange
	// rejections surface as *OrderRejectedError; a call that times out with
	// the order state unknown wraps ErrOrderTimeout.
	PlaceMarketOrder(ctx context.Context, symbol string, side Side, units float64) (Fill, error)
}

// ErrDataUnavailable marks transient market-data failures; the caller should
// skip the tick and retry on the next interval.
var ErrDataUnavailable = errors.New("broker: market data unavailable")

// ErrOrderTimeout marks an order whose outcome is unknown: it must be treated
// as rejected for accounting but flagged for operator attention, because a
// fill may still have happened exchange-side.
var ErrOrderTimeout = errors.New("broker: order timed out")

// OrderRejectedError reports an exchange-side order rejection. Terminal for
// that attempt; the strategy stays flat.
type OrderRejectedError struct {
	Symbol string
	Side   Side
	Units  float64
	Reason string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("broker: order rejected (%s %s %.6f): %s",
		e.Side, e.Symbol, e.Units, e.Reason)
}
