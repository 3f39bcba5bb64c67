// Package postgres implements the repositories on PostgreSQL through database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/models"
	"property-search/internal/repository"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS agents (
		id             BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		email          TEXT NOT NULL,
		phone          TEXT NOT NULL,
		agency         TEXT NOT NULL DEFAULT '',
		bio            TEXT NOT NULL DEFAULT '',
		specialty      TEXT NOT NULL DEFAULT '',
		rating         DOUBLE PRECISION,
		listings_count INTEGER NOT NULL DEFAULT 0,
		image_url      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS agents_email_lower_idx ON agents (LOWER(email))`,
	`CREATE TABLE IF NOT EXISTS properties (
		id           BIGSERIAL PRIMARY KEY,
		title        TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		type         TEXT NOT NULL,
		purpose      TEXT NOT NULL CHECK (purpose IN ('sale', 'rent')),
		price        DOUBLE PRECISION NOT NULL CHECK (price > 0),
		bedrooms     INTEGER CHECK (bedrooms >= 0),
		bathrooms    INTEGER CHECK (bathrooms >= 0),
		area         DOUBLE PRECISION NOT NULL CHECK (area > 0),
		location     TEXT NOT NULL,
		city         TEXT NOT NULL DEFAULT '',
		neighborhood TEXT NOT NULL DEFAULT '',
		address      TEXT NOT NULL DEFAULT '',
		latitude     DOUBLE PRECISION,
		longitude    DOUBLE PRECISION,
		year_built   INTEGER,
		featured     BOOLEAN NOT NULL DEFAULT FALSE,
		verified     BOOLEAN NOT NULL DEFAULT FALSE,
		agent_id     BIGINT NOT NULL REFERENCES agents (id),
		images       TEXT[] NOT NULL DEFAULT '{}',
		amenities    TEXT[] NOT NULL DEFAULT '{}',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS properties_purpose_idx ON properties (purpose)`,
	`CREATE INDEX IF NOT EXISTS properties_price_idx ON properties (price)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id               BIGSERIAL PRIMARY KEY,
		name             TEXT NOT NULL,
		city             TEXT NOT NULL DEFAULT '',
		properties_count INTEGER NOT NULL DEFAULT 0
	)`,
}

// Store implements repository.Store plus SQL search pushdown.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

// EnsureSchema creates the tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewQueryExecutionFailedError("ensure schema", err)
		}
	}
	s.logger.Info("schema ensured", map[string]interface{}{"statements": len(schemaStatements)})
	return nil
}

func (s *Store) Properties() repository.PropertyRepository { return &PropertyStore{s: s} }
func (s *Store) Agents() repository.AgentRepository         { return &AgentStore{s: s} }
func (s *Store) Locations() repository.LocationRepository   { return &LocationStore{s: s} }

// mapError translates driver errors into the application taxonomy.
func mapError(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return apperrors.NewConflictError(resource, pqErr.Message)
		case pqForeignKeyViolation:
			return apperrors.NewValidationError("agentId", fmt.Sprintf("referenced agent does not exist: %s", pqErr.Detail))
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Search pushes the criteria down to SQL.
func (s *Store) Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error) {
	return (&PropertyStore{s: s}).Search(ctx, c)
}
