package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPosition(strategyID string) Position {
	return Position{
		StrategyID:  strategyID,
		Symbol:      "ADA/USDT",
		Direction:   Long,
		EntryPrice:  100,
		EntryTime:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Units:       10,
		Notional:    1000,
		Leverage:    1,
		StopPrice:   95,
		TargetPrice: 110,
		TrailingPct: 0.05,
	}
}

func TestOpenAssignsIDAndSeedsMarks(t *testing.T) {
	l := New(0.001)

	pos, err := l.Open(testPosition("ada_rsi"))
	require.NoError(t, err)
	assert.NotEmpty(t, pos.ID)
	assert.InDelta(t, 100.0, pos.HighWater, 1e-9)
	assert.InDelta(t, 100.0, pos.MarkPrice, 1e-9)

	got, ok := l.Position("ada_rsi")
	assert.True(t, ok)
	assert.Equal(t, pos.ID, got.ID)
}

func TestOpenTwiceFails(t *testing.T) {
	l := New(0.001)

	_, err := l.Open(testPosition("ada_rsi"))
	require.NoError(t, err)

	_, err = l.Open(testPosition("ada_rsi"))
	assert.ErrorIs(t, err, ErrAlreadyOpen)

	// A different strategy can hold the same symbol.
	_, err = l.Open(testPosition("ada_rsi_2"))
	assert.NoError(t, err)
}

func TestMarkToMarket(t *testing.T) {
	l := New(0.001)
	_, err := l.Open(testPosition("ada_rsi"))
	require.NoError(t, err)

	pos, err := l.MarkToMarket("ada_rsi", 108)
	require.NoError(t, err)
	assert.InDelta(t, 108.0, pos.MarkPrice, 1e-9)
	assert.InDelta(t, 108.0, pos.HighWater, 1e-9)
	// (108-100) * 10 units = 80
	assert.InDelta(t, 80.0, pos.UnrealizedPL, 1e-9)
	assert.InDelta(t, 80.0, l.UnrealizedPL(), 1e-9)

	// High-water never retreats.
	pos, err = l.MarkToMarket("ada_rsi", 103)
	require.NoError(t, err)
	assert.InDelta(t, 108.0, pos.HighWater, 1e-9)
	assert.InDelta(t, 30.0, pos.UnrealizedPL, 1e-9)
}

func TestMarkToMarketNotOpen(t *testing.T) {
	l := New(0.001)
	_, err := l.MarkToMarket("ghost", 100)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestCloseComputesNetPL(t *testing.T) {
	l := New(0.001)
	opened, err := l.Open(testPosition("ada_rsi"))
	require.NoError(t, err)

	exitAt := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	rec, err := l.Close("ada_rsi", 110, exitAt, "take_profit")
	require.NoError(t, err)

	// Gross: (110-100)*10 = 100. Fees: 0.001*(100+110)*10 = 2.1.
	assert.InDelta(t, 2.1, rec.Fees, 1e-9)
	assert.InDelta(t, 97.9, rec.RealizedPL, 1e-9)
	assert.Equal(t, opened.ID, rec.TradeID)
	assert.Equal(t, "take_profit", rec.Reason)
	assert.Equal(t, exitAt, rec.ExitTime)

	assert.InDelta(t, 97.9, l.RealizedPL(), 1e-9)
	assert.Len(t, l.Records(), 1)
	assert.Empty(t, l.OpenPositions())
}

func TestCloseTwiceFails(t *testing.T) {
	l := New(0.001)
	_, err := l.Open(testPosition("ada_rsi"))
	require.NoError(t, err)

	_, err = l.Close("ada_rsi", 110, time.Now(), "signal")
	require.NoError(t, err)

	_, err = l.Close("ada_rsi", 110, time.Now(), "signal")
	assert.ErrorIs(t, err, ErrNotOpen)
}

func TestReopenAfterClose(t *testing.T) {
	l := New(0)
	first, err := l.Open(testPosition("ada_rsi"))
	require.NoError(t, err)

	_, err = l.Close("ada_rsi", 105, time.Now(), "signal")
	require.NoError(t, err)

	second, err := l.Open(testPosition("ada_rsi"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, l.Records(), 1)
}

func TestTrailingStop(t *testing.T) {
	p := testPosition("ada_rsi")
	p.HighWater = 120
	// 120 * (1 - 0.05) = 114
	assert.InDelta(t, 114.0, p.TrailingStop(), 1e-9)

	p.TrailingPct = 0
	assert.InDelta(t, 0.0, p.TrailingStop(), 1e-9)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "long", Long.String())
	assert.Equal(t, "short", Short.String())
}
