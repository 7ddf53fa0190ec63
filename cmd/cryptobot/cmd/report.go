package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cryptobot/journal"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Query trade journal data",
	Long: `Query and display trade records from a SQLite journal.

Subcommands:
  stats  - Performance summary over all recorded trades
  trade  - Get details of a specific trade by ID
  day    - List trades closed on a specific day

Examples:
  cryptobot report stats
  cryptobot report trade <trade-id>
  cryptobot report day 2026-08-25`,
}

var reportStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Performance summary over all recorded trades",
	Args:  cobra.NoArgs,
	RunE:  runReportStats,
}

var reportTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportTrade,
}

var reportDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportDay,
}

var reportDBPath string

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportStatsCmd)
	reportCmd.AddCommand(reportTradeCmd)
	reportCmd.AddCommand(reportDayCmd)

	reportCmd.PersistentFlags().StringVarP(&reportDBPath, "db", "d", "./cryptobot.sqlite", "path to SQLite journal DB")
}

func runReportStats(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Print(journal.FormatStats(journal.ComputeStats(recs)))

	for id, s := range journal.StatsByStrategy(recs) {
		fmt.Printf("\n%s: %d trades, win rate %.1f%%, net P/L %.2f\n",
			id, s.Trades, s.WinRate*100, s.NetPL)
	}
	return nil
}

func runReportTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Print(journal.FormatTrade(rec))
	return nil
}

func runReportDay(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Println(journal.FormatTrades(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24 * time.Hour), nil
}
