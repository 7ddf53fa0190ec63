// Package indicators provides technical analysis indicators for trading.
//
// Every function is pure and deterministic: the same candle slice always
// produces the same value, which keeps live evaluation and test scenarios in
// parity. A second boolean return reports whether the input carried enough
// bars; false means "no signal yet", not an error.
package indicators

import (
	"math"

	"github.com/rustyeddy/cryptobot/market"
)

// trueRange calculates the True Range for a candle given the previous candle.
func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
