package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/cryptobot/broker"
	"github.com/rustyeddy/cryptobot/market"
)

func testSeries(n int) []market.Candle {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, n)
	for i := range out {
		c := 100.0 + float64(i)
		out[i] = market.Candle{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		}
	}
	return out
}

func TestRecentCandlesFollowsCursor(t *testing.T) {
	b := New(0)
	b.LoadSeries("ADA/USDT", testSeries(10))
	ctx := context.Background()

	// Cursor starts at the first bar.
	candles, err := b.RecentCandles(ctx, "ADA/USDT", 5)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.InDelta(t, 100.0, candles[0].Close, 1e-9)

	require.True(t, b.Advance())
	require.True(t, b.Advance())

	candles, err = b.RecentCandles(ctx, "ADA/USDT", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.InDelta(t, 101.0, candles[0].Close, 1e-9)
	assert.InDelta(t, 102.0, candles[1].Close, 1e-9)
}

func TestAdvanceStopsAtEnd(t *testing.T) {
	b := New(0)
	b.LoadSeries("ADA/USDT", testSeries(3))

	assert.True(t, b.Advance())
	assert.True(t, b.Advance())
	assert.False(t, b.Advance())
}

func TestRecentCandlesUnknownSymbol(t *testing.T) {
	b := New(0)
	_, err := b.RecentCandles(context.Background(), "DOGE/USDT", 5)
	assert.ErrorIs(t, err, broker.ErrDataUnavailable)
}

func TestPlaceMarketOrderSlippage(t *testing.T) {
	b := New(0.001)
	b.LoadSeries("ADA/USDT", testSeries(5))
	ctx := context.Background()

	fill, err := b.PlaceMarketOrder(ctx, "ADA/USDT", broker.Buy, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, fill.OrderID)
	assert.InDelta(t, 100*1.001, fill.Price, 1e-9)
	assert.InDelta(t, 10.0, fill.Units, 1e-9)

	fill, err = b.PlaceMarketOrder(ctx, "ADA/USDT", broker.Sell, 10)
	require.NoError(t, err)
	assert.InDelta(t, 100*0.999, fill.Price, 1e-9)
}

func TestPlaceMarketOrderRejections(t *testing.T) {
	b := New(0)
	b.LoadSeries("ADA/USDT", testSeries(5))
	ctx := context.Background()

	var rejected *broker.OrderRejectedError

	_, err := b.PlaceMarketOrder(ctx, "ADA/USDT", broker.Buy, 0)
	require.ErrorAs(t, err, &rejected)

	_, err = b.PlaceMarketOrder(ctx, "DOGE/USDT", broker.Buy, 1)
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "unknown symbol", rejected.Reason)
}

func TestFailHooksFireOnce(t *testing.T) {
	b := New(0)
	b.LoadSeries("ADA/USDT", testSeries(5))
	ctx := context.Background()

	b.FailNextFetch(broker.ErrDataUnavailable)
	_, err := b.RecentCandles(ctx, "ADA/USDT", 5)
	assert.ErrorIs(t, err, broker.ErrDataUnavailable)
	_, err = b.RecentCandles(ctx, "ADA/USDT", 5)
	assert.NoError(t, err)

	b.FailNextOrder(errors.New("boom"))
	_, err = b.PlaceMarketOrder(ctx, "ADA/USDT", broker.Buy, 1)
	assert.Error(t, err)
	_, err = b.PlaceMarketOrder(ctx, "ADA/USDT", broker.Buy, 1)
	assert.NoError(t, err)
}

func TestGenerateSeriesDeterministic(t *testing.T) {
	p := SeriesParams{
		Start:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   time.Hour,
		Bars:       50,
		StartPrice: 100,
		Volatility: 0.02,
		Seed:       7,
	}

	a := GenerateSeries(p)
	b := GenerateSeries(p)
	require.Len(t, a, 50)
	assert.Equal(t, a, b)

	// Bars chain: each open is the prior close, times ascend by the interval.
	for i := 1; i < len(a); i++ {
		assert.InDelta(t, a[i-1].Close, a[i].Open, 1e-9)
		assert.Equal(t, a[i-1].Time.Add(time.Hour), a[i].Time)
	}
	for _, c := range a {
		assert.GreaterOrEqual(t, c.High, c.Low)
		assert.Positive(t, c.Volume)
	}
}
