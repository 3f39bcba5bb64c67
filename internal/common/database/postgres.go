package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"property-search/internal/common/config"
	apperrors "property-search/internal/common/errors"

	_ "github.com/lib/pq"
)

// PostgresClient owns the pooled connection used by the property repository.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pool and verifies it with a bounded ping.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	client := &PostgresClient{DB: db}
	if err := client.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return client, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.DB.PingContext(ctx); err != nil {
		return apperrors.NewDatabaseConnectionFailedError(fmt.Errorf("postgres ping failed: %w", err))
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
