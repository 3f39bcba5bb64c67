package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/models"
)

type LocationStore struct {
	s *Store
}

func (r *LocationStore) List(ctx context.Context) ([]models.Location, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT id, name, city, properties_count FROM locations ORDER BY id`)
	if err != nil {
		return nil, mapError("list locations", "Location", err)
	}
	defer rows.Close()

	out := []models.Location{}
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.City, &l.PropertiesCount); err != nil {
			return nil, mapError("list locations", "Location", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list locations", "Location", err)
	}
	return out, nil
}

func (r *LocationStore) GetByID(ctx context.Context, id int64) (models.Location, error) {
	var l models.Location
	err := r.s.db.QueryRowContext(ctx, `SELECT id, name, city, properties_count FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.City, &l.PropertiesCount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Location{}, apperrors.NewNotFoundError("Location", id)
	}
	if err != nil {
		return models.Location{}, mapError("get location", "Location", err)
	}
	return l, nil
}

func (r *LocationStore) Create(ctx context.Context, input models.NewLocation) (models.Location, error) {
	l := input.Build(0)
	err := r.s.db.QueryRowContext(ctx,
		`INSERT INTO locations (name, city, properties_count) VALUES ($1, $2, $3) RETURNING id`,
		l.Name, l.City, l.PropertiesCount,
	).Scan(&l.ID)
	if err != nil {
		return models.Location{}, mapError("create location", "Location", err)
	}
	return l, nil
}
