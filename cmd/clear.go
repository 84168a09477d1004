package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/cache"
	"github.com/clinicops/chartquery/internal/storage"
)

var (
	flagClearForce bool
	flagClearCache bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all imported visit records",
	Long: `Clear removes every visit record from the store. The table itself is
kept, so a following import does not need to recreate the schema.

With --cache the completion cache is emptied as well.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&flagClearForce, "force", "f", false,
		"skip the confirmation prompt")
	clearCmd.Flags().BoolVar(&flagClearCache, "cache", false,
		"also clear the completion cache")
}

func runClear(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	if !flagClearForce {
		fmt.Print("This will delete all imported visit records. Continue? (yes/no): ")

		reader := bufio.NewReader(os.Stdin)

		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" && response != "y" {
			fmt.Println("Operation cancelled.")
			return nil
		}
	}

	repo, _, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := runClearWithStorage(ctx, repo); err != nil {
		return err
	}

	if flagClearCache && cfg.Cache.Enabled {
		if err := clearCompletionCache(ctx, cfg.Cache.Directory); err != nil {
			return err
		}

		fmt.Println("Completion cache cleared.")
	}

	return nil
}

func runClearWithStorage(ctx context.Context, repo storage.Repository) error {
	if err := repo.Clear(ctx); err != nil {
		return err
	}

	fmt.Println("All visit records have been removed.")

	return nil
}

func clearCompletionCache(ctx context.Context, directory string) error {
	store, err := cache.NewFileCache(directory, 1, time.Hour, time.Hour)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Clear(ctx)
}
