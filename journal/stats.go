package journal

import (
	"math"
	"sort"

	"github.com/rustyeddy/cryptobot/ledger"
)

// Stats summarizes closed-trade performance.
type Stats struct {
	Trades int
	Wins   int
	Losses int

	WinRate      float64 // fraction of trades with positive net P&L
	NetPL        float64
	GrossProfit  float64
	GrossLoss    float64 // reported positive
	ProfitFactor float64 // GrossProfit / GrossLoss; +Inf with no losses
	TotalFees    float64

	AvgWin      float64
	AvgLoss     float64 // reported negative
	LargestWin  float64
	LargestLoss float64

	// MaxDrawdown is the deepest peak-to-trough decline of cumulative
	// realized P&L, ordered by exit time. Reported positive.
	MaxDrawdown float64
}

// ComputeStats derives performance metrics from a set of trade records.
// Trades with zero P&L count as losses.
func ComputeStats(records []ledger.TradeRecord) Stats {
	var s Stats
	s.Trades = len(records)
	if s.Trades == 0 {
		return s
	}

	sorted := make([]ledger.TradeRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ExitTime.Before(sorted[j].ExitTime)
	})

	var cum, peak, maxDD float64
	for _, rec := range sorted {
		pl := rec.RealizedPL
		s.NetPL += pl
		s.TotalFees += rec.Fees

		if pl > 0 {
			s.Wins++
			s.GrossProfit += pl
			if pl > s.LargestWin {
				s.LargestWin = pl
			}
		} else {
			s.Losses++
			s.GrossLoss += -pl
			if pl < s.LargestLoss {
				s.LargestLoss = pl
			}
		}

		cum += pl
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}
	s.MaxDrawdown = maxDD

	s.WinRate = float64(s.Wins) / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = -s.GrossLoss / float64(s.Losses)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	} else if s.GrossProfit > 0 {
		s.ProfitFactor = math.Inf(1)
	}

	return s
}

// StatsByStrategy groups records by strategy id and summarizes each group.
func StatsByStrategy(records []ledger.TradeRecord) map[string]Stats {
	groups := make(map[string][]ledger.TradeRecord)
	for _, rec := range records {
		groups[rec.StrategyID] = append(groups[rec.StrategyID], rec)
	}

	out := make(map[string]Stats, len(groups))
	for id, recs := range groups {
		out[id] = ComputeStats(recs)
	}
	return out
}
