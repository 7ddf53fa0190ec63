package strategies

import (
	"fmt"

	"github.com/rustyeddy/cryptobot/config"
	"github.com/rustyeddy/cryptobot/indicators"
	"github.com/rustyeddy/cryptobot/ledger"
	"github.com/rustyeddy/cryptobot/market"
)

// StochCross enters long when %K crosses above %D while still below the
// oversold band, in an uptrend. It exits when %K reaches the overbought
// band.
type StochCross struct {
	cfg config.StrategyConfig
}

func NewStochCross(cfg config.StrategyConfig) *StochCross {
	if cfg.StochKPeriod <= 0 {
		cfg.StochKPeriod = 14
	}
	if cfg.StochDPeriod <= 0 {
		cfg.StochDPeriod = 3
	}
	if cfg.StochEntry <= 0 {
		cfg.StochEntry = 30
	}
	if cfg.StochExit <= 0 {
		cfg.StochExit = 80
	}
	return &StochCross{cfg: cfg}
}

func (s *StochCross) Name() string   { return s.cfg.ID }
func (s *StochCross) Symbol() string { return s.cfg.Symbol }

func (s *StochCross) Warmup() int {
	// One extra bar for the previous %K/%D in the crossover test.
	w := s.cfg.StochKPeriod + s.cfg.StochDPeriod
	if s.cfg.EMASlow > 0 {
		w = maxInt(w, s.cfg.EMASlow+s.cfg.TrendLookback)
	}
	return maxInt(w, s.cfg.WarmupBars)
}

func (s *StochCross) Evaluate(w *market.Window, pos *ledger.Position) Signal {
	candles := w.Candles()
	if len(candles) < s.Warmup() {
		return hold
	}

	k, d, ok := indicators.Stochastic(candles, s.cfg.StochKPeriod, s.cfg.StochDPeriod)
	if !ok {
		return hold
	}

	if pos != nil {
		if sig, fired := riskExit(pos, w.Last()); fired {
			return sig
		}
		if k > s.cfg.StochExit {
			return exitAt(ExitSignal, 0,
				fmt.Sprintf("%%K %.1f above exit level %.1f", k, s.cfg.StochExit))
		}
		return hold
	}

	prevK, prevD, ok := indicators.Stochastic(candles[:len(candles)-1], s.cfg.StochKPeriod, s.cfg.StochDPeriod)
	if !ok {
		return hold
	}

	crossed := k > d && prevK <= prevD
	if !(crossed && k < s.cfg.StochEntry) {
		return hold
	}
	if !trendOK(candles, s.cfg.EMAFast, s.cfg.EMASlow, s.cfg.TrendLookback) {
		return hold
	}

	strength := (s.cfg.StochEntry - k) / s.cfg.StochEntry
	return enterLong(strength,
		fmt.Sprintf("%%K %.1f crossed above %%D %.1f below %.1f", k, d, s.cfg.StochEntry))
}
