package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/formatter"
	"github.com/clinicops/chartquery/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record store statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := getConfig()
	if err != nil {
		return err
	}

	repo, _, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	return runStatsWithStorage(ctx, repo)
}

func runStatsWithStorage(ctx context.Context, repo storage.Repository) error {
	stats, err := repo.GetStats(ctx)
	if err != nil {
		return err
	}

	fmt.Println(formatter.NewFormatter().FormatStats(stats))

	return nil
}
