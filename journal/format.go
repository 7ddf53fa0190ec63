package journal

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/cryptobot/ledger"
)

// FormatTrade renders a single trade record as a multi-line block.
func FormatTrade(rec ledger.TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trade %s\n", rec.TradeID)
	fmt.Fprintf(&b, "  Strategy:  %s\n", rec.StrategyID)
	fmt.Fprintf(&b, "  Symbol:    %s %s\n", rec.Symbol, rec.Direction)
	fmt.Fprintf(&b, "  Units:     %.6f\n", rec.Units)
	fmt.Fprintf(&b, "  Entry:     %.6f @ %s\n", rec.EntryPrice, rec.EntryTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "  Exit:      %.6f @ %s\n", rec.ExitPrice, rec.ExitTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "  P/L:       %.2f (fees %.2f)\n", rec.RealizedPL, rec.Fees)
	fmt.Fprintf(&b, "  Reason:    %s\n", rec.Reason)
	return b.String()
}

// FormatTrades renders records as a fixed-width table, one trade per row.
func FormatTrades(recs []ledger.TradeRecord) string {
	if len(recs) == 0 {
		return "no trades"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-28s %-12s %-10s %10s %10s %10s %-14s\n",
		"CLOSED", "STRATEGY", "SYMBOL", "ENTRY", "EXIT", "P/L", "REASON")
	for _, rec := range recs {
		fmt.Fprintf(&b, "%-28s %-12s %-10s %10.4f %10.4f %10.2f %-14s\n",
			rec.ExitTime.Format("2006-01-02 15:04:05"),
			rec.StrategyID, rec.Symbol,
			rec.EntryPrice, rec.ExitPrice, rec.RealizedPL, rec.Reason)
	}
	return b.String()
}

// FormatStats renders a performance summary block.
func FormatStats(s Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trades:         %d (%d wins, %d losses)\n", s.Trades, s.Wins, s.Losses)
	fmt.Fprintf(&b, "Win rate:       %.1f%%\n", s.WinRate*100)
	fmt.Fprintf(&b, "Net P/L:        %.2f\n", s.NetPL)
	fmt.Fprintf(&b, "Gross profit:   %.2f\n", s.GrossProfit)
	fmt.Fprintf(&b, "Gross loss:     %.2f\n", s.GrossLoss)
	if s.Losses > 0 {
		fmt.Fprintf(&b, "Profit factor:  %.2f\n", s.ProfitFactor)
	} else {
		fmt.Fprintf(&b, "Profit factor:  n/a\n")
	}
	fmt.Fprintf(&b, "Total fees:     %.2f\n", s.TotalFees)
	fmt.Fprintf(&b, "Avg win/loss:   %.2f / %.2f\n", s.AvgWin, s.AvgLoss)
	fmt.Fprintf(&b, "Largest win:    %.2f\n", s.LargestWin)
	fmt.Fprintf(&b, "Largest loss:   %.2f\n", s.LargestLoss)
	fmt.Fprintf(&b, "Max drawdown:   %.2f\n", s.MaxDrawdown)
	return b.String()
}
