package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicops/chartquery/internal/formatter"
	"github.com/clinicops/chartquery/internal/schema"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the queryable record fields",
	Long: `Fields lists every column the workflow can retrieve, with its category
and description. Right and left eye measurements are separate columns
with Re and Le suffixes.`,
	RunE: runFields,
}

func runFields(_ *cobra.Command, _ []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}

	catalog, err := schema.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	fmt.Println(formatter.NewFormatter().FormatFieldCatalog(catalog.Entries()))

	return nil
}
