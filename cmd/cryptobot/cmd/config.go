package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/cryptobot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for the bot.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  cryptobot config init -o bot.yaml
  cryptobot config validate -f bot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with the default three-strategy setup.

Example:
  cryptobot config init -o bot.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  cryptobot config validate -f bot.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "bot.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  cryptobot run -f %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Capital: $%.2f (min trade $%.2f, fee %.3f%%)\n",
		cfg.Capital.Initial, cfg.Capital.MinTradeNotional, cfg.Capital.FeeRate*100)
	fmt.Printf("  Exchange: %s\n", cfg.Exchange.Mode)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	for _, sc := range cfg.Strategies {
		state := "enabled"
		if !sc.Enabled {
			state = "disabled"
		}
		fmt.Printf("  Strategy: %s (%s on %s, %s)\n", sc.ID, sc.Kind, sc.Symbol, state)
	}
	return nil
}
