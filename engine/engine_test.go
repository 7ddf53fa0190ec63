package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/cryptobot/broker"
	"github.com/rustyeddy/cryptobot/broker/sim"
	"github.com/rustyeddy/cryptobot/config"
	"github.com/rustyeddy/cryptobot/journal"
	"github.com/rustyeddy/cryptobot/ledger"
	"github.com/rustyeddy/cryptobot/market"
)

func testConfig() *config.Config {
	return &config.Config{
		Capital: config.CapitalConfig{
			Initial:          10000,
			MinTradeNotional: 10,
			FeeRate:          0.001,
		},
		Engine: config.EngineConfig{
			Interval:     "60s",
			CandlePeriod: "1h",
			FetchBars:    300,
			WindowBars:   300,
		},
		Exchange: config.ExchangeConfig{Mode: "sim"},
		Journal:  config.JournalConfig{Type: "none"},
		Strategies: []config.StrategyConfig{
			{
				ID:               "ada_rsi",
				Kind:             config.KindRSIReversal,
				Symbol:           "ADA/USDT",
				Enabled:          true,
				Leverage:         1,
				MaxAllocationPct: 0.20,
				StopLossPct:      0.08,
				TakeProfitPct:    0.15,
				RSIPeriod:        14,
				RSIEntry:         35,
				RSIExit:          60,
			},
		},
	}
}

func fromCloses(closes []float64) []market.Candle {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}
	return out
}

// entrySeries pins RSI(14) at 0 with a steady decline, then bounces +8 so
// the final bar crosses back above the 35 entry threshold. Optional extra
// closes extend the series past the entry bar.
func entrySeries(extra ...float64) []float64 {
	closes := make([]float64, 0, 26+len(extra))
	price := 100.0
	for i := 0; i < 25; i++ {
		closes = append(closes, price)
		price--
	}
	closes = append(closes, closes[len(closes)-1]+8) // close 84, entry bar
	closes = append(closes, extra...)
	return closes
}

func newTestEngine(t *testing.T, cfg *config.Config, b *sim.Broker) *Engine {
	t.Helper()
	e, err := New(cfg, Deps{
		Log:       zerolog.Nop(),
		Data:      b,
		Exec:      b,
		Scheduler: NewManualScheduler(),
		Journal:   journal.Nop{},
	})
	require.NoError(t, err)
	return e
}

// seekToEnd moves every loaded series to its final bar.
func seekToEnd(b *sim.Broker, bars int) {
	for i := 0; i < bars-1; i++ {
		b.Advance()
	}
}

func TestTickOpensPositionOnEntrySignal(t *testing.T) {
	cfg := testConfig()
	b := sim.New(0)
	series := entrySeries()
	b.LoadSeries("ADA/USDT", fromCloses(series))
	seekToEnd(b, len(series))

	e := newTestEngine(t, cfg, b)
	require.NoError(t, e.Tick(context.Background()))

	pos, ok := e.Ledger().Position("ada_rsi")
	require.True(t, ok)
	assert.InDelta(t, 84.0, pos.EntryPrice, 1e-9)
	// 20% of $10k at 1x leverage.
	assert.InDelta(t, 2000.0, pos.Notional, 1e-9)
	assert.InDelta(t, 2000.0/84.0, pos.Units, 1e-9)
	assert.InDelta(t, 84.0*0.92, pos.StopPrice, 1e-9)
	assert.InDelta(t, 84.0*1.15, pos.TargetPrice, 1e-9)
	assert.InDelta(t, 8000.0, e.Allocator().Available(), 1e-9)
}

func TestTickClosesAtTarget(t *testing.T) {
	cfg := testConfig()
	b := sim.New(0)
	// Entry at 84, then 92 (nothing fires), then 100: high clears the
	// 96.6 target.
	series := entrySeries(92, 100)
	b.LoadSeries("ADA/USDT", fromCloses(series))
	seekToEnd(b, len(series)-2)

	e := newTestEngine(t, cfg, b)
	ctx := context.Background()

	require.NoError(t, e.Tick(ctx)) // entry at 84
	b.Advance()
	require.NoError(t, e.Tick(ctx)) // 92: holds
	_, ok := e.Ledger().Position("ada_rsi")
	require.True(t, ok)
	b.Advance()
	require.NoError(t, e.Tick(ctx)) // 100: target exit

	recs := e.Ledger().Records()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "take_profit", rec.Reason)
	// Target exits settle at the target price, not the bar close.
	assert.InDelta(t, 96.6, rec.ExitPrice, 1e-9)

	units := 2000.0 / 84.0
	gross := (96.6 - 84.0) * units
	fees := 0.001 * (84.0 + 96.6) * units
	assert.InDelta(t, gross-fees, rec.RealizedPL, 1e-9)

	// Capital conservation: pool equals seed plus realized P&L, all free.
	assert.InDelta(t, 10000+rec.RealizedPL, e.Allocator().Total(), 1e-6)
	assert.InDelta(t, e.Allocator().Total(), e.Allocator().Available(), 1e-9)
	assert.Empty(t, e.Ledger().OpenPositions())
}

func TestTickSkipsOnFetchFailure(t *testing.T) {
	cfg := testConfig()
	b := sim.New(0)
	series := entrySeries()
	b.LoadSeries("ADA/USDT", fromCloses(series))
	seekToEnd(b, len(series))

	e := newTestEngine(t, cfg, b)
	ctx := context.Background()

	b.FailNextFetch(broker.ErrDataUnavailable)
	require.NoError(t, e.Tick(ctx))
	assert.Empty(t, e.Ledger().OpenPositions())

	// The next tick sees the same entry bar and trades normally.
	require.NoError(t, e.Tick(ctx))
	assert.Len(t, e.Ledger().OpenPositions(), 1)
}

func TestOrderFailureIsolatedToOneStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Strategies = append(cfg.Strategies, config.StrategyConfig{
		ID:               "sol_rsi",
		Kind:             config.KindRSIReversal,
		Symbol:           "SOL/USDT",
		Enabled:          true,
		Leverage:         1,
		MaxAllocationPct: 0.20,
		StopLossPct:      0.08,
		TakeProfitPct:    0.15,
		RSIPeriod:        14,
		RSIEntry:         35,
		RSIExit:          60,
	})

	b := sim.New(0)
	series := entrySeries()
	b.LoadSeries("ADA/USDT", fromCloses(series))
	b.LoadSeries("SOL/USDT", fromCloses(series))
	seekToEnd(b, len(series))

	e := newTestEngine(t, cfg, b)

	// First order of the tick is rejected; the other strategy still trades.
	b.FailNextOrder(&broker.OrderRejectedError{
		Symbol: "ADA/USDT", Side: broker.Buy, Units: 1, Reason: "insufficient balance",
	})
	require.NoError(t, e.Tick(context.Background()))

	open := e.Ledger().OpenPositions()
	require.Len(t, open, 1)
	assert.Equal(t, "sol_rsi", open[0].StrategyID)

	// The failed entry's reservation was returned.
	assert.InDelta(t, 0.0, e.Allocator().Allocated("ada_rsi"), 1e-9)
	assert.InDelta(t, 8000.0, e.Allocator().Available(), 1e-9)
}

func TestDisabledStrategyDoesNotEnter(t *testing.T) {
	cfg := testConfig()
	cfg.Strategies[0].Enabled = false

	b := sim.New(0)
	series := entrySeries()
	b.LoadSeries("ADA/USDT", fromCloses(series))
	seekToEnd(b, len(series))

	e := newTestEngine(t, cfg, b)
	require.NoError(t, e.Tick(context.Background()))
	assert.Empty(t, e.Ledger().OpenPositions())
}

func TestDisabledStrategyStillManagesOpenPosition(t *testing.T) {
	cfg := testConfig()
	cfg.Strategies[0].Enabled = false

	b := sim.New(0)
	// Final bar high 92 clears a 90 target.
	series := entrySeries(92)
	b.LoadSeries("ADA/USDT", fromCloses(series))
	seekToEnd(b, len(series))

	e := newTestEngine(t, cfg, b)

	// Position opened before the strategy was disabled.
	grant, err := e.Allocator().Request("ada_rsi", 2000, 0.20)
	require.NoError(t, err)
	_, err = e.Ledger().Open(ledger.Position{
		StrategyID:  "ada_rsi",
		Symbol:      "ADA/USDT",
		Direction:   ledger.Long,
		EntryPrice:  84,
		EntryTime:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Units:       grant / 84,
		Notional:    grant,
		Leverage:    1,
		StopPrice:   77.28,
		TargetPrice: 90,
	})
	require.NoError(t, err)

	require.NoError(t, e.Tick(context.Background()))

	recs := e.Ledger().Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "take_profit", recs[0].Reason)
	assert.InDelta(t, 90.0, recs[0].ExitPrice, 1e-9)
	assert.InDelta(t, e.Allocator().Total(), e.Allocator().Available(), 1e-9)
}

func TestCircuitBreakersSuppressEntries(t *testing.T) {
	cfg := testConfig()
	cfg.Capital.MaxDailyLossPct = 0.03

	b := sim.New(0)
	series := entrySeries()
	b.LoadSeries("ADA/USDT", fromCloses(series))
	seekToEnd(b, len(series))

	e := newTestEngine(t, cfg, b)

	// Past the $300 daily loss limit: the entry bar must be ignored. The day
	// must match the series' final bar or the rollover resets the counter.
	e.day = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	e.dayRealized = -400
	require.NoError(t, e.Tick(context.Background()))
	assert.True(t, e.halted)
	assert.Empty(t, e.Ledger().OpenPositions())
}

func TestDrawdownBreaker(t *testing.T) {
	cfg := testConfig()
	cfg.Capital.MaxDrawdownPct = 0.15

	b := sim.New(0)
	series := entrySeries()
	b.LoadSeries("ADA/USDT", fromCloses(series))
	seekToEnd(b, len(series))

	e := newTestEngine(t, cfg, b)

	// 20% under the peak trips the 15% limit.
	e.Allocator().ApplyPL(-2000)
	e.updateBreakers()
	assert.True(t, e.halted)

	// Recovery resets the breaker against the old peak.
	e.Allocator().ApplyPL(1500)
	e.updateBreakers()
	assert.False(t, e.halted)
}

func TestTickFailsOnCapitalMismatch(t *testing.T) {
	cfg := testConfig()
	b := sim.New(0)
	// Pure decline: no signals fire, only the accounting check runs.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	b.LoadSeries("ADA/USDT", fromCloses(closes))
	seekToEnd(b, len(closes))

	e := newTestEngine(t, cfg, b)

	// Money appeared from nowhere: the books no longer balance.
	e.Allocator().ApplyPL(500)
	assert.Error(t, e.Tick(context.Background()))
}

func TestRunStopsWhenSchedulerStops(t *testing.T) {
	cfg := testConfig()
	b := sim.New(0)
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	b.LoadSeries("ADA/USDT", fromCloses(closes))

	sched := NewManualScheduler()
	e, err := New(cfg, Deps{
		Log:       zerolog.Nop(),
		Data:      b,
		Exec:      b,
		Scheduler: sched,
		Journal:   journal.Nop{},
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()

	sched.Tick()
	sched.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cfg := testConfig()
	b := sim.New(0)
	b.LoadSeries("ADA/USDT", fromCloses([]float64{100, 99, 98}))

	e, err := New(cfg, Deps{
		Log:       zerolog.Nop(),
		Data:      b,
		Exec:      b,
		Scheduler: NewIntervalScheduler(time.Hour),
		Journal:   journal.Nop{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestNewRejectsUnknownStrategyKind(t *testing.T) {
	cfg := testConfig()
	cfg.Strategies[0].Kind = "martingale"

	_, err := New(cfg, Deps{
		Log:       zerolog.Nop(),
		Data:      sim.New(0),
		Exec:      sim.New(0),
		Scheduler: NewManualScheduler(),
	})
	assert.Error(t, err)
}
