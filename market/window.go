package market

import "fmt"

// Window is a bounded, time-ascending sequence of candles for one symbol.
// The oldest bar is evicted once the lookback cap is reached. The engine owns
// the window and is the only writer; strategies receive it read-only.
type Window struct {
	symbol  string
	maxBars int
	candles []Candle
}

// NewWindow creates an empty window capped at maxBars candles.
func NewWindow(symbol string, maxBars int) *Window {
	if maxBars < 1 {
		maxBars = 1
	}
	return &Window{
		symbol:  symbol,
		maxBars: maxBars,
		candles: make([]Candle, 0, maxBars),
	}
}

func (w *Window) Symbol() string { return w.symbol }

func (w *Window) Len() int { return len(w.candles) }

// At returns the candle at index i; index 0 is the oldest bar.
func (w *Window) At(i int) Candle { return w.candles[i] }

// Last returns the most recent candle. Callers must check Len() first.
func (w *Window) Last() Candle { return w.candles[len(w.candles)-1] }

// Candles returns the underlying slice, oldest first. Callers must treat it
// as read-only; the engine is the only writer.
func (w *Window) Candles() []Candle { return w.candles }

// Push appends one candle, evicting the oldest bar on overflow. Bars with
// timestamps at or before the current last bar are rejected: the window is
// strictly ascending with no duplicates.
func (w *Window) Push(c Candle) error {
	if n := len(w.candles); n > 0 && !c.Time.After(w.candles[n-1].Time) {
		return fmt.Errorf("window %s: candle at %s is not after last bar %s",
			w.symbol, c.Time, w.candles[n-1].Time)
	}
	if len(w.candles) == w.maxBars {
		copy(w.candles, w.candles[1:])
		w.candles = w.candles[:w.maxBars-1]
	}
	w.candles = append(w.candles, c)
	return nil
}

// Replace refreshes the window from a full fetch. The input must be ascending
// with no duplicate timestamps; only the newest maxBars candles are kept.
func (w *Window) Replace(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Time.After(candles[i-1].Time) {
			return fmt.Errorf("window %s: candles out of order at index %d", w.symbol, i)
		}
	}
	if len(candles) > w.maxBars {
		candles = candles[len(candles)-w.maxBars:]
	}
	w.candles = w.candles[:0]
	w.candles = append(w.candles, candles...)
	return nil
}
