package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Long: `Config prints the configuration after the config file, environment
variables, and command-line flags have been merged. The generation API
key is never printed.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the resolved configuration to the config file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}

	fmt.Println("Current Configuration:")
	fmt.Println()

	fmt.Println("Database:")
	fmt.Printf("  Path:          %s\n", cfg.Database.Path)
	fmt.Printf("  Query timeout: %s\n", cfg.Database.QueryTimeout)
	fmt.Println()

	fmt.Println("Generation:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Model:    %s\n", cfg.LLM.Model)
	fmt.Printf("  API key:  %s\n", redactedKey(cfg.LLM.APIKey))
	fmt.Printf("  Timeout:  %s\n", cfg.LLM.Timeout)
	fmt.Println()

	fmt.Println("Workflow:")
	fmt.Printf("  Max hops: %d\n", cfg.Workflow.MaxHops)
	fmt.Println()

	fmt.Println("Catalog:")
	fmt.Printf("  Path: %s\n", catalogPathLabel(cfg.Catalog.Path))
	fmt.Println()

	fmt.Println("Server:")
	fmt.Printf("  Addr:             %s\n", cfg.Server.Addr)
	fmt.Printf("  Read timeout:     %s\n", cfg.Server.ReadTimeout)
	fmt.Printf("  Write timeout:    %s\n", cfg.Server.WriteTimeout)
	fmt.Printf("  Shutdown timeout: %s\n", cfg.Server.ShutdownTimeout)
	fmt.Println()

	fmt.Println("Cache:")
	fmt.Printf("  Enabled:   %t\n", cfg.Cache.Enabled)
	fmt.Printf("  Directory: %s\n", cfg.Cache.Directory)
	fmt.Printf("  Max size:  %d MB\n", cfg.Cache.MaxSizeMB)
	fmt.Printf("  TTL:       %d hours\n", cfg.Cache.TTLHours)
	fmt.Println()

	fmt.Println("Logging:")
	fmt.Printf("  Level:  %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	return nil
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	if err := config.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Println("Configuration written.")

	return nil
}

// redactedKey hides the API key. Secrets never reach stdout, even
// partially.
func redactedKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	return "********"
}

func catalogPathLabel(path string) string {
	if path == "" {
		return "(embedded)"
	}

	return path
}
