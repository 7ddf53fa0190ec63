package indicators

import "github.com/rustyeddy/cryptobot/market"

// RSI calculates Wilder's Relative Strength Index over the closes, ending at
// the most recent candle. The result is bounded to [0, 100].
//
// At least period+1 candles are required (the first delta needs a previous
// close); with fewer bars RSI reports not-ready rather than a partial value.
func RSI(candles []market.Candle, period int) (float64, bool) {
	if period < 1 || len(candles) < period+1 {
		return 0, false
	}

	closes := market.Closes(candles)

	// Seed the averages with the first `period` deltas.
	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d >= 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	// Wilder smoothing across the remaining bars.
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		var g, l float64
		if d >= 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			// Flat series: no strength either way.
			return 50, true
		}
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}
