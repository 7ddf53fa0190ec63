package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cryptobot/broker/binance"
	"github.com/rustyeddy/cryptobot/config"
	"github.com/rustyeddy/cryptobot/engine"
	"github.com/rustyeddy/cryptobot/internal/logx"
	"github.com/rustyeddy/cryptobot/journal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot against a live exchange",
	Long: `Run the trading loop against Binance using settings from a configuration file.

API credentials are read from the environment variables named in the config
(api_key_env / api_secret_env). Use the testnet flag in the config while
validating a new setup.

Example:
  cryptobot run -f bot.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Exchange.Mode != "binance" {
		return fmt.Errorf("run requires exchange mode %q, got %q (use the simulate command for paper trading)",
			"binance", cfg.Exchange.Mode)
	}

	log, err := logx.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	apiKey := os.Getenv(cfg.Exchange.APIKeyEnv)
	apiSecret := os.Getenv(cfg.Exchange.APISecretEnv)
	if apiKey == "" || apiSecret == "" {
		return fmt.Errorf("missing credentials: set %s and %s", cfg.Exchange.APIKeyEnv, cfg.Exchange.APISecretEnv)
	}

	client := binance.NewClient(binance.Config{
		APIKey:    apiKey,
		APISecret: apiSecret,
		Testnet:   cfg.Exchange.Testnet,
		Interval:  cfg.Engine.CandlePeriod,
	})

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	interval, err := cfg.Engine.ParseInterval()
	if err != nil {
		return fmt.Errorf("parse interval: %w", err)
	}

	e, err := engine.New(cfg, engine.Deps{
		Log:       log,
		Data:      client,
		Exec:      client,
		Scheduler: engine.NewIntervalScheduler(interval),
		Journal:   j,
	})
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.Run(ctx); err != nil {
		return fmt.Errorf("trading loop: %w", err)
	}

	printResults(e, cfg)
	return nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func printResults(e *engine.Engine, cfg *config.Config) {
	recs := e.Ledger().Records()
	stats := journal.ComputeStats(recs)

	fmt.Printf("\nFinal Results:\n")
	fmt.Printf("  Capital: $%.2f (started $%.2f)\n", e.Allocator().Total(), cfg.Capital.Initial)
	fmt.Printf("  Open positions: %d\n", len(e.Ledger().OpenPositions()))
	fmt.Println()
	fmt.Print(journal.FormatStats(stats))

	for id, s := range journal.StatsByStrategy(recs) {
		fmt.Printf("\n%s: %d trades, win rate %.1f%%, net P/L %.2f\n",
			id, s.Trades, s.WinRate*100, s.NetPL)
	}
}
