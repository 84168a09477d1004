package storage

import (
	"fmt"
	"time"

	"github.com/clinicops/chartquery/internal/config"
	"github.com/clinicops/chartquery/internal/schema"
)

// NewDuckDBRepositoryFromConfig creates a new DuckDB repository with settings from config
func NewDuckDBRepositoryFromConfig(
	cfg *config.DatabaseConfig,
	catalog *schema.Catalog,
) (*DuckDBRepository, error) {
	queryTimeout, err := time.ParseDuration(cfg.QueryTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid query_timeout: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}

	connMaxIdleTime, err := time.ParseDuration(cfg.ConnMaxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("invalid conn_max_idle_time: %w", err)
	}

	repo, err := NewDuckDBRepositoryWithTimeout(cfg.Path, catalog, queryTimeout)
	if err != nil {
		return nil, err
	}

	repo.db.SetMaxOpenConns(cfg.MaxConnections)
	repo.db.SetMaxIdleConns(cfg.MaxIdleConns)
	repo.db.SetConnMaxLifetime(connMaxLifetime)
	repo.db.SetConnMaxIdleTime(connMaxIdleTime)

	return repo, nil
}
