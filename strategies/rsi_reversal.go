package strategies

import (
	"fmt"

	"github.com/rustyeddy/cryptobot/config"
	"github.com/rustyeddy/cryptobot/indicators"
	"github.com/rustyeddy/cryptobot/ledger"
	"github.com/rustyeddy/cryptobot/market"
)

// RSIReversal enters long when RSI crosses back above the entry threshold
// after having been below it (oversold reversal), subject to the trend and
// volume filters. It exits when RSI climbs past the exit threshold.
type RSIReversal struct {
	cfg config.StrategyConfig
}

func NewRSIReversal(cfg config.StrategyConfig) *RSIReversal {
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.RSIEntry <= 0 {
		cfg.RSIEntry = 35
	}
	if cfg.RSIExit <= 0 {
		cfg.RSIExit = 60
	}
	return &RSIReversal{cfg: cfg}
}

func (s *RSIReversal) Name() string   { return s.cfg.ID }
func (s *RSIReversal) Symbol() string { return s.cfg.Symbol }

func (s *RSIReversal) Warmup() int {
	// One extra bar: the cross test needs the previous bar's RSI too.
	w := s.cfg.RSIPeriod + 2
	if s.cfg.EMASlow > 0 {
		w = maxInt(w, s.cfg.EMASlow+s.cfg.TrendLookback)
	}
	if s.cfg.VolumePeriod > 0 {
		w = maxInt(w, s.cfg.VolumePeriod)
	}
	return maxInt(w, s.cfg.WarmupBars)
}

func (s *RSIReversal) Evaluate(w *market.Window, pos *ledger.Position) Signal {
	candles := w.Candles()
	if len(candles) < s.Warmup() {
		return hold
	}

	cur, ok := indicators.RSI(candles, s.cfg.RSIPeriod)
	if !ok {
		return hold
	}
	prev, ok := indicators.RSI(candles[:len(candles)-1], s.cfg.RSIPeriod)
	if !ok {
		return hold
	}

	if pos != nil {
		if sig, fired := riskExit(pos, w.Last()); fired {
			return sig
		}
		if cur > s.cfg.RSIExit {
			return exitAt(ExitSignal, 0,
				fmt.Sprintf("rsi %.1f above exit level %.1f", cur, s.cfg.RSIExit))
		}
		return hold
	}

	// Enter only on the bar where RSI crosses back above the threshold;
	// still-oversold bars stay flat.
	if !(prev < s.cfg.RSIEntry && cur >= s.cfg.RSIEntry) {
		return hold
	}
	if !trendOK(candles, s.cfg.EMAFast, s.cfg.EMASlow, s.cfg.TrendLookback) {
		return hold
	}
	if !volumeOK(candles, s.cfg.VolumePeriod, s.cfg.MinVolumeRatio) {
		return hold
	}

	// Deeper prior oversold reads as a stronger reversal.
	strength := (s.cfg.RSIEntry - prev) / s.cfg.RSIEntry
	return enterLong(strength,
		fmt.Sprintf("rsi crossed %.1f from %.1f to %.1f", s.cfg.RSIEntry, prev, cur))
}
