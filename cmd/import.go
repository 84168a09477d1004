package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/logging"
	"github.com/clinicops/chartquery/internal/storage"
)

var flagImportTruncate bool

var importCmd = &cobra.Command{
	Use:   "import <csv-file>",
	Short: "Import visit records from a CSV export",
	Long: `Import loads visit rows from a CSV export into the record store. The
header row must contain every column listed by "chartquery fields"; a
file missing one of them is rejected before any row is written, and
extra columns are ignored.

With --truncate the existing rows are removed first, so the store holds
exactly the contents of the file.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagImportTruncate, "truncate", false,
		"remove existing rows before importing")
}

func runImport(cmd *cobra.Command, args []string) error {
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

	return runImportWithStorage(ctx, repo, args[0], flagImportTruncate)
}

func runImportWithStorage(ctx context.Context, repo storage.Repository, csvPath string, truncate bool) error {
	var imported int64

	err := logging.LoggerMiddleware("import", func() error {
		var importErr error
		imported, importErr = repo.ImportCSV(ctx, csvPath, truncate)

		return importErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d records from %s\n", imported, csvPath)

	return nil
}
