package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/rustyeddy/cryptobot/market"
)

// SeriesParams drives GenerateSeries.
type SeriesParams struct {
	Start      time.Time
	Interval   time.Duration
	Bars       int
	StartPrice float64
	Volatility float64 // per-bar stddev as a fraction of price, e.g. 0.02
	Drift      float64 // per-bar expected return, e.g. 0.0005
	Volume     float64 // mean bar volume
	Seed       int64
}

// GenerateSeries produces a seeded geometric random-walk candle series.
// The same seed always yields the same series, so simulations repeat.
func GenerateSeries(p SeriesParams) []market.Candle {
	rng := rand.New(rand.NewSource(p.Seed))

	if p.Interval <= 0 {
		p.Interval = time.Hour
	}
	if p.StartPrice <= 0 {
		p.StartPrice = 1
	}
	if p.Volume <= 0 {
		p.Volume = 1000
	}

	out := make([]market.Candle, 0, p.Bars)
	price := p.StartPrice
	ts := p.Start

	for i := 0; i < p.Bars; i++ {
		ret := p.Drift + p.Volatility*rng.NormFloat64()
		open := price
		close := open * math.Exp(ret)

		hi := math.Max(open, close) * (1 + 0.3*p.Volatility*rng.Float64())
		lo := math.Min(open, close) * (1 - 0.3*p.Volatility*rng.Float64())

		out = append(out, market.Candle{
			Time:   ts,
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  close,
			Volume: p.Volume * (0.5 + rng.Float64()),
		})

		price = close
		ts = ts.Add(p.Interval)
	}
	return out
}
