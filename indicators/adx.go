package indicators

import (
	"math"

	"github.com/rustyeddy/cryptobot/market"
)

// ADX calculates Wilder's Average Directional Index (trend strength) ending
// at the most recent candle.
//
// Warmup has two phases:
//   - Period candles to seed the smoothed TR/+DM/-DM averages
//   - Period DX values to seed ADX itself
//
// so at least 2*period+1 candles are required.
func ADX(candles []market.Candle, period int) (float64, bool) {
	if period < 1 || len(candles) < 2*period+1 {
		return 0, false
	}

	p := float64(period)

	// Phase A: simple averages of the first `period` TR/DM samples.
	var tr14, pdm14, mdm14 float64
	for i := 1; i <= period; i++ {
		tr, pdm, mdm := dmSample(candles[i], candles[i-1])
		tr14 += tr
		pdm14 += pdm
		mdm14 += mdm
	}
	tr14 /= p
	pdm14 /= p
	mdm14 /= p

	var adx, dxSum float64
	dxCount := 0

	for i := period + 1; i < len(candles); i++ {
		tr, pdm, mdm := dmSample(candles[i], candles[i-1])

		tr14 = (tr14*(p-1) + tr) / p
		pdm14 = (pdm14*(p-1) + pdm) / p
		mdm14 = (mdm14*(p-1) + mdm) / p

		// Guard: pathological flat data yields no range.
		if tr14 == 0 {
			continue
		}

		pdi := 100 * pdm14 / tr14
		mdi := 100 * mdm14 / tr14
		den := pdi + mdi
		if den == 0 {
			continue
		}
		dx := 100 * math.Abs(pdi-mdi) / den

		// Phase B: seed ADX with the average of the first `period` DX values,
		// then switch to Wilder smoothing.
		if dxCount < period {
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / p
			}
			continue
		}
		adx = (adx*(p-1) + dx) / p
	}

	if dxCount < period {
		return 0, false
	}
	return adx, true
}

// dmSample returns the true range and directional movement between two
// consecutive candles.
func dmSample(current, previous market.Candle) (tr, pdm, mdm float64) {
	upMove := current.High - previous.High
	downMove := previous.Low - current.Low

	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}
	return trueRange(current, previous), pdm, mdm
}
