package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/models"
)

const propertyColumns = `id, title, description, type, purpose, price, bedrooms, bathrooms, area,
	location, city, neighborhood, address, latitude, longitude, year_built, featured, verified,
	agent_id, images, amenities, created_at`

type PropertyStore struct {
	s *Store
}

func (r *PropertyStore) List(ctx context.Context) ([]models.Property, error) {
	return r.query(ctx, "list properties", `SELECT `+propertyColumns+` FROM properties ORDER BY id`)
}

func (r *PropertyStore) GetByID(ctx context.Context, id int64) (models.Property, error) {
	row := r.s.db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanProperty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Property{}, apperrors.NewNotFoundError("Property", id)
	}
	if err != nil {
		return models.Property{}, mapError("get property", "Property", err)
	}
	return p, nil
}

func (r *PropertyStore) Create(ctx context.Context, input models.NewProperty) (models.Property, error) {
	p := input.Build(0, time.Time{})

	err := r.s.db.QueryRowContext(ctx, `INSERT INTO properties (
		title, description, type, purpose, price, bedrooms, bathrooms, area,
		location, city, neighborhood, address, latitude, longitude, year_built, featured, verified,
		agent_id, images, amenities
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	RETURNING id, created_at`,
		p.Title, p.Description, string(p.Type), p.Purpose, p.Price, nullInt(p.Bedrooms), nullInt(p.Bathrooms), p.Area,
		p.Location, p.City, p.Neighborhood, p.Address, nullFloat(p.Latitude), nullFloat(p.Longitude), nullInt(p.YearBuilt),
		p.Featured, p.Verified, p.AgentID, pq.Array(p.ImageURLs), pq.Array(p.Amenities),
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return models.Property{}, mapError("create property", "Property", err)
	}

	p.CreatedAt = p.CreatedAt.UTC()
	r.s.logger.Info("property created", map[string]interface{}{"propertyId": p.ID, "agentId": p.AgentID})
	return p, nil
}

// Search runs the criteria as a single SQL statement ordered by id.
func (r *PropertyStore) Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error) {
	where, args := buildWhere(c)
	query := `SELECT ` + propertyColumns + ` FROM properties`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY id`
	return r.query(ctx, "search properties", query, args...)
}

func (r *PropertyStore) query(ctx context.Context, op, query string, args ...interface{}) ([]models.Property, error) {
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, "Property", err)
	}
	defer rows.Close()

	out := []models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, mapError(op, "Property", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, "Property", err)
	}
	return out, nil
}

func scanProperty(row scanner) (models.Property, error) {
	var (
		p                   models.Property
		propType            string
		bedrooms, bathrooms sql.NullInt64
		yearBuilt           sql.NullInt64
		lat, lng            sql.NullFloat64
		images, amenities   pq.StringArray
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &propType, &p.Purpose, &p.Price, &bedrooms, &bathrooms, &p.Area,
		&p.Location, &p.City, &p.Neighborhood, &p.Address, &lat, &lng, &yearBuilt, &p.Featured, &p.Verified,
		&p.AgentID, &images, &amenities, &p.CreatedAt,
	)
	if err != nil {
		return models.Property{}, err
	}

	p.Type = models.PropertyType(propType)
	p.Bedrooms = intPtr(bedrooms)
	p.Bathrooms = intPtr(bathrooms)
	p.YearBuilt = intPtr(yearBuilt)
	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lng)
	p.ImageURLs = append([]string{}, images...)
	p.Amenities = append([]string{}, amenities...)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
