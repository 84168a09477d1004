package cmd

import (
	"context"

	"github.com/clinicops/chartquery/internal/config"
	"github.com/clinicops/chartquery/internal/schema"
	"github.com/clinicops/chartquery/internal/storage"
)

// openRepository loads the column catalog and opens the record store,
// running schema migrations so every command sees the visits table.
func openRepository(ctx context.Context, cfg *config.Config) (storage.Repository, *schema.Catalog, error) {
	catalog, err := schema.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, err
	}

	repo, err := storage.NewDuckDBRepositoryFromConfig(&cfg.Database, catalog)
	if err != nil {
		return nil, nil, err
	}

	if err := repo.Initialize(ctx); err != nil {
		repo.Close()
		return nil, nil, err
	}

	return repo, catalog, nil
}
