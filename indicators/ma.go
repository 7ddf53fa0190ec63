package indicators

import "github.com/rustyeddy/cryptobot/market"

// SMA calculates the Simple Moving Average of the closes over the given
// period, ending at the most recent candle.
func SMA(candles []market.Candle, period int) (float64, bool) {
	if period < 1 || len(candles) < period {
		return 0, false
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period), true
}

// EMA calculates the Exponential Moving Average of the closes for the given
// period. The first value is seeded with an SMA, then smoothed across the
// rest of the slice.
func EMA(candles []market.Candle, period int) (float64, bool) {
	if period < 1 || len(candles) < period {
		return 0, false
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += candles[i].Close
	}
	ema := sma / float64(period)

	for i := period; i < len(candles); i++ {
		ema = (candles[i].Close-ema)*multiplier + ema
	}
	return ema, true
}

// VolumeSMA calculates the Simple Moving Average of volume over the given
// period, ending at the most recent candle.
func VolumeSMA(candles []market.Candle, period int) (float64, bool) {
	if period < 1 || len(candles) < period {
		return 0, false
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period), true
}
