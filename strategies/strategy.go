// Package strategies contains the signal-evaluation rules. Each strategy is
// a pure mapping from a price window (plus the currently open position, if
// any) to a Signal; order placement and capital accounting live elsewhere.
package strategies

import (
	"fmt"

	"github.com/rustyeddy/cryptobot/config"
	"github.com/rustyeddy/cryptobot/indicators"
	"github.com/rustyeddy/cryptobot/ledger"
	"github.com/rustyeddy/cryptobot/market"
)

// Strategy evaluates one symbol's window each tick.
//
// When pos is nil the strategy considers entry rules; when a position is
// open it considers exit rules instead. Exit rules fire in strict priority:
// stop-loss, then target, then trailing stop, then the variant's own signal
// exit. Insufficient data always yields Hold.
type Strategy interface {
	Name() string
	Symbol() string
	Warmup() int
	Evaluate(w *market.Window, pos *ledger.Position) Signal
}

// FromConfig constructs the variant named by cfg.Kind. The set of kinds is
// closed; new strategies are added here, not dispatched from strings at
// runtime.
func FromConfig(cfg config.StrategyConfig) (Strategy, error) {
	switch cfg.Kind {
	case config.KindRSIReversal:
		return NewRSIReversal(cfg), nil
	case config.KindStochCross:
		return NewStochCross(cfg), nil
	case config.KindADXBreakout:
		return NewADXBreakout(cfg), nil
	default:
		return nil, fmt.Errorf("strategies: unknown kind %q", cfg.Kind)
	}
}

// riskExit checks the price-based exits shared by every variant, in priority
// order. On a gap bar that breaches both stop and target, the stop wins and
// the exit settles at the stop price.
func riskExit(pos *ledger.Position, bar market.Candle) (Signal, bool) {
	switch {
	case pos.StopPrice > 0 && bar.Low <= pos.StopPrice:
		return exitAt(ExitStopLoss, pos.StopPrice,
			fmt.Sprintf("low %.4f breached stop %.4f", bar.Low, pos.StopPrice)), true
	case pos.TargetPrice > 0 && bar.High >= pos.TargetPrice:
		return exitAt(ExitTarget, pos.TargetPrice,
			fmt.Sprintf("high %.4f reached target %.4f", bar.High, pos.TargetPrice)), true
	}
	if ts := pos.TrailingStop(); ts > 0 && bar.Close <= ts {
		return exitAt(ExitTrailing, 0,
			fmt.Sprintf("close %.4f under trailing stop %.4f", bar.Close, ts)), true
	}
	return Signal{}, false
}

// trendOK reports whether the fast EMA sits above the slow EMA. A positive
// lookback compares against the slow EMA of that many bars ago. Zero periods
// disable the filter.
func trendOK(candles []market.Candle, fast, slow, lookback int) bool {
	if fast <= 0 || slow <= 0 {
		return true
	}
	f, ok := indicators.EMA(candles, fast)
	if !ok {
		return false
	}
	ref := candles
	if lookback > 0 {
		if len(candles) <= lookback {
			return false
		}
		ref = candles[:len(candles)-lookback]
	}
	s, ok := indicators.EMA(ref, slow)
	if !ok {
		return false
	}
	return f > s
}

// volumeOK reports whether the latest bar's volume clears minRatio of its
// moving average. Zero period or ratio disables the filter.
func volumeOK(candles []market.Candle, period int, minRatio float64) bool {
	if period <= 0 || minRatio <= 0 {
		return true
	}
	avg, ok := indicators.VolumeSMA(candles, period)
	if !ok || avg <= 0 {
		return false
	}
	return candles[len(candles)-1].Volume/avg >= minRatio
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
