package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cryptobot",
	Short: "An automated crypto market-taking bot",
	Long: `Cryptobot is an automated trading bot for crypto spot markets written in Go.

It provides tools for:
  - Running multiple indicator-driven strategies against live Binance data
  - Paper-trading the same strategies against generated price series
  - Shared capital allocation across strategies with circuit breakers
  - Journaling trades and equity curves to CSV or SQLite
  - Performance reporting (win rate, profit factor, drawdown)

Complete documentation is available at https://github.com/rustyeddy/cryptobot`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
