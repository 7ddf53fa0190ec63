package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/cryptobot/market"
)

func risingCandles(n int) []market.Candle {
	// Each bar steps up by 1 with a 2-point range.
	out := make([]market.Candle, n)
	for i := range out {
		base := 100.0 + float64(i)
		out[i] = market.Candle{
			Open: base, High: base + 2, Low: base, Close: base + 1, Volume: 1000,
		}
	}
	return out
}

func closesToCandles(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out
}

func TestSMA(t *testing.T) {
	candles := closesToCandles([]float64{100, 102, 104, 106, 108, 110})

	sma, ok := SMA(candles, 3)
	assert.True(t, ok)
	// Last 3 closes: 106,108,110 => 324/3 = 108
	assert.InDelta(t, 108.0, sma, 1e-9)

	_, ok = SMA(candles, 7)
	assert.False(t, ok)
}

func TestEMA(t *testing.T) {
	candles := closesToCandles([]float64{100, 102, 104, 106, 108, 110})

	// period == len: EMA is just the seed SMA.
	ema, ok := EMA(candles, 6)
	assert.True(t, ok)
	assert.InDelta(t, 105.0, ema, 1e-9)

	ema, ok = EMA(candles, 3)
	assert.True(t, ok)
	// Seed = (100+102+104)/3 = 102, then smooth 106,108,110 with k=0.5:
	// 104, 106, 108.
	assert.InDelta(t, 108.0, ema, 1e-9)

	_, ok = EMA(candles, 0)
	assert.False(t, ok)
}

func TestVolumeSMA(t *testing.T) {
	candles := risingCandles(5)
	candles[3].Volume = 2000
	candles[4].Volume = 3000

	v, ok := VolumeSMA(candles, 2)
	assert.True(t, ok)
	assert.InDelta(t, 2500.0, v, 1e-9)
}

func TestRSIKnownValue(t *testing.T) {
	candles := closesToCandles([]float64{100, 101, 102, 101, 103})

	rsi, ok := RSI(candles, 3)
	assert.True(t, ok)
	// Seed: avgGain=2/3, avgLoss=1/3. Smooth +2: avgGain=10/9, avgLoss=2/9.
	// RS=5 => RSI=83.333.
	assert.InDelta(t, 83.3333, rsi, 0.001)
}

func TestRSIBounds(t *testing.T) {
	up := risingCandles(40)
	rsi, ok := RSI(up, 14)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, rsi, 1e-9)

	levels := make([]float64, 20)
	for i := range levels {
		levels[i] = 100
	}
	rsi, ok = RSI(closesToCandles(levels), 14)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, rsi, 1e-9)
}

func TestRSIInsufficientData(t *testing.T) {
	candles := risingCandles(14)
	_, ok := RSI(candles, 14) // needs 15 bars
	assert.False(t, ok)

	_, ok = RSI(risingCandles(15), 14)
	assert.True(t, ok)
}

func TestStochastic(t *testing.T) {
	candles := []market.Candle{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 12, Low: 10, Close: 11},
	}

	k, d, ok := Stochastic(candles, 3, 2)
	assert.True(t, ok)
	// %K over bars 2..4: lo=9, hi=12, close=11 => 66.667
	assert.InDelta(t, 66.667, k, 0.001)
	// Previous %K over bars 1..3: lo=8, hi=12, close=11 => 75. D = 70.833.
	assert.InDelta(t, 70.833, d, 0.001)
}

func TestStochasticZeroRange(t *testing.T) {
	flat := closesToCandles([]float64{100, 100, 100, 100, 100})
	k, d, ok := Stochastic(flat, 3, 2)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, k, 1e-9)
	assert.InDelta(t, 50.0, d, 1e-9)
}

func TestStochasticInsufficientData(t *testing.T) {
	_, _, ok := Stochastic(risingCandles(15), 14, 3) // needs 16 bars
	assert.False(t, ok)

	_, _, ok = Stochastic(risingCandles(16), 14, 3)
	assert.True(t, ok)
}

func TestADXStrongTrend(t *testing.T) {
	// One-directional movement: +DM every bar, -DM never, so DX=100 and the
	// smoothed ADX converges to 100.
	adx, ok := ADX(risingCandles(40), 14)
	assert.True(t, ok)
	assert.InDelta(t, 100.0, adx, 1e-6)
}

func TestADXInsufficientData(t *testing.T) {
	_, ok := ADX(risingCandles(28), 14) // needs 2*14+1 bars
	assert.False(t, ok)

	_, ok = ADX(risingCandles(29), 14)
	assert.True(t, ok)
}

func TestADXRange(t *testing.T) {
	// A choppy series still yields a bounded reading.
	candles := make([]market.Candle, 60)
	for i := range candles {
		base := 100.0
		if i%2 == 0 {
			base = 103
		}
		candles[i] = market.Candle{Open: base, High: base + 2, Low: base - 2, Close: base, Volume: 1000}
	}
	adx, ok := ADX(candles, 14)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, adx, 0.0)
	assert.LessOrEqual(t, adx, 100.0)
}
