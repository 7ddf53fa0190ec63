package indicators

import "github.com/rustyeddy/cryptobot/market"

// Stochastic calculates the stochastic oscillator ending at the most recent
// candle. %K compares the latest close to the high/low range of the last
// kPeriod bars; %D is a simple moving average of the last dPeriod %K values.
//
// Needs at least kPeriod+dPeriod-1 candles so every %K in the %D average has
// a full range behind it.
func Stochastic(candles []market.Candle, kPeriod, dPeriod int) (k, d float64, ok bool) {
	if kPeriod < 1 || dPeriod < 1 || len(candles) < kPeriod+dPeriod-1 {
		return 0, 0, false
	}

	sum := 0.0
	for j := 0; j < dPeriod; j++ {
		kv, kok := stochasticK(candles[:len(candles)-j], kPeriod)
		if !kok {
			return 0, 0, false
		}
		if j == 0 {
			k = kv
		}
		sum += kv
	}
	return k, sum / float64(dPeriod), true
}

// stochasticK computes %K for the slice's final candle.
func stochasticK(candles []market.Candle, period int) (float64, bool) {
	if len(candles) < period {
		return 0, false
	}

	window := candles[len(candles)-period:]
	lo, hi := window[0].Low, window[0].High
	for _, c := range window[1:] {
		if c.Low < lo {
			lo = c.Low
		}
		if c.High > hi {
			hi = c.High
		}
	}

	if hi == lo {
		// Zero range; close sits in the middle by convention.
		return 50, true
	}
	return 100 * (window[period-1].Close - lo) / (hi - lo), true
}
