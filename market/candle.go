// Package market holds the price data types shared by the rest of the bot.
package market

import "time"

// Candle represents one OHLCV (Open, High, Low, Close, Volume) bar.
// Candles are treated as immutable once fetched.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes extracts the close prices from a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
