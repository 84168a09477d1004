// Package cmd implements the chartquery command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/config"
	"github.com/clinicops/chartquery/internal/logging"
)

var (
	flagConfigPath string
	flagDBPath     string
	flagLogLevel   string
	flagCatalog    string
)

// appConfig is loaded once by the root pre-run hook and shared by every
// subcommand through getConfig.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "chartquery",
	Short: "Answer questions about patient visit records",
	Long: `chartquery answers natural-language questions about the patient visit
records kept in a local DuckDB file. Each question runs through a bounded
workflow: extract the patient identifier and the requested fields, fetch
the matching visits with a guard-validated query, and summarize them into
a short clinical narrative.

Questions that name no known patient, or patients with no stored visits,
get a fixed no-data reply instead of an answer.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadAppConfig,
}

// Execute runs the CLI and reports the outcome to stderr.
func Execute() error {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "",
		"path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db-path", "",
		"path to the record database")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "",
		"path to a knowledge base file")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(configCmd)
}

// loadAppConfig loads the configuration with flag overrides applied and
// initializes the process logger. Runs before every subcommand.
func loadAppConfig(_ *cobra.Command, _ []string) error {
	if flagConfigPath != "" {
		if err := os.Setenv("CHARTQUERY_CONFIG", flagConfigPath); err != nil {
			return fmt.Errorf("failed to select config file: %w", err)
		}
	}

	overrides := map[string]interface{}{}
	if flagDBPath != "" {
		overrides["db-path"] = flagDBPath
	}

	if flagLogLevel != "" {
		overrides["log-level"] = flagLogLevel
	}

	if flagCatalog != "" {
		overrides["catalog"] = flagCatalog
	}

	if flagProvider != "" {
		overrides["provider"] = flagProvider
	}

	if flagModel != "" {
		overrides["model"] = flagModel
	}

	if flagMaxHops > 0 {
		overrides["max-hops"] = flagMaxHops
	}

	if flagAddr != "" {
		overrides["addr"] = flagAddr
	}

	cfg, err := config.LoadConfigWithOverrides(overrides)
	if err != nil {
		return err
	}

	cfg.ExpandAllPaths()

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appConfig = cfg

	return nil
}

// getConfig returns the configuration loaded by the root pre-run hook,
// loading it directly when the hook has not executed.
func getConfig() (*config.Config, error) {
	if appConfig != nil {
		return appConfig, nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	cfg.ExpandAllPaths()
	appConfig = cfg

	return cfg, nil
}
