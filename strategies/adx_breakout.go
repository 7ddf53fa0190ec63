package strategies

import (
	"fmt"

	"github.com/rustyeddy/cryptobot/config"
	"github.com/rustyeddy/cryptobot/indicators"
	"github.com/rustyeddy/cryptobot/ledger"
	"github.com/rustyeddy/cryptobot/market"
)

// ADXBreakout enters long when trend strength is high and rising and the
// close breaks above the prior N-bar high. It exits when the trend weakens
// below the exit level.
type ADXBreakout struct {
	cfg config.StrategyConfig
}

func NewADXBreakout(cfg config.StrategyConfig) *ADXBreakout {
	if cfg.ADXPeriod <= 0 {
		cfg.ADXPeriod = 14
	}
	if cfg.ADXEntry <= 0 {
		cfg.ADXEntry = 25
	}
	if cfg.ADXExit <= 0 {
		cfg.ADXExit = 20
	}
	if cfg.ADXRiseBars <= 0 {
		cfg.ADXRiseBars = 3
	}
	if cfg.BreakoutBars <= 0 {
		cfg.BreakoutBars = 20
	}
	return &ADXBreakout{cfg: cfg}
}

func (s *ADXBreakout) Name() string   { return s.cfg.ID }
func (s *ADXBreakout) Symbol() string { return s.cfg.Symbol }

func (s *ADXBreakout) Warmup() int {
	// The rising-ADX test recomputes ADX as of ADXRiseBars ago, so the window
	// must cover its full warmup too.
	w := 2*s.cfg.ADXPeriod + 1 + s.cfg.ADXRiseBars
	w = maxInt(w, s.cfg.BreakoutBars+1)
	return maxInt(w, s.cfg.WarmupBars)
}

func (s *ADXBreakout) Evaluate(w *market.Window, pos *ledger.Position) Signal {
	candles := w.Candles()
	if len(candles) < s.Warmup() {
		return hold
	}

	adx, ok := indicators.ADX(candles, s.cfg.ADXPeriod)
	if !ok {
		return hold
	}

	if pos != nil {
		if sig, fired := riskExit(pos, w.Last()); fired {
			return sig
		}
		if adx < s.cfg.ADXExit {
			return exitAt(ExitSignal, 0,
				fmt.Sprintf("adx %.1f below exit level %.1f", adx, s.cfg.ADXExit))
		}
		return hold
	}

	if adx <= s.cfg.ADXEntry {
		return hold
	}

	prevADX, ok := indicators.ADX(candles[:len(candles)-s.cfg.ADXRiseBars], s.cfg.ADXPeriod)
	if !ok || adx <= prevADX {
		return hold
	}

	// Breakout: close above the highest high of the prior BreakoutBars bars,
	// excluding the current bar.
	last := w.Last()
	prior := candles[len(candles)-1-s.cfg.BreakoutBars : len(candles)-1]
	high := prior[0].High
	for _, c := range prior[1:] {
		if c.High > high {
			high = c.High
		}
	}
	if last.Close <= high {
		return hold
	}

	strength := (adx - s.cfg.ADXEntry) / s.cfg.ADXEntry
	return enterLong(strength,
		fmt.Sprintf("adx %.1f rising, close %.4f broke %d-bar high %.4f",
			adx, last.Close, s.cfg.BreakoutBars, high))
}
