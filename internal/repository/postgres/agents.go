package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/models"
)

const agentColumns = `id, name, email, phone, agency, bio, specialty, rating, listings_count, image_url`

type AgentStore struct {
	s *Store
}

func (r *AgentStore) List(ctx context.Context) ([]models.Agent, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY id`)
	if err != nil {
		return nil, mapError("list agents", "Agent", err)
	}
	defer rows.Close()

	out := []models.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, mapError("list agents", "Agent", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list agents", "Agent", err)
	}
	return out, nil
}

func (r *AgentStore) GetByID(ctx context.Context, id int64) (models.Agent, error) {
	a, err := scanAgent(r.s.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Agent{}, apperrors.NewNotFoundError("Agent", id)
	}
	if err != nil {
		return models.Agent{}, mapError("get agent", "Agent", err)
	}
	return a, nil
}

func (r *AgentStore) Create(ctx context.Context, input models.NewAgent) (models.Agent, error) {
	a := input.Build(0)
	err := r.s.db.QueryRowContext(ctx, `INSERT INTO agents (
		name, email, phone, agency, bio, specialty, rating, listings_count, image_url
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`,
		a.Name, a.Email, a.Phone, a.Agency, a.Bio, a.Specialty, nullFloat(a.Rating), a.ListingsCount, a.ImageURL,
	).Scan(&a.ID)
	if err != nil {
		return models.Agent{}, mapError("create agent", "Agent", err)
	}
	return a, nil
}

func scanAgent(row scanner) (models.Agent, error) {
	var (
		a      models.Agent
		rating sql.NullFloat64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.Agency, &a.Bio, &a.Specialty,
		&rating, &a.ListingsCount, &a.ImageURL); err != nil {
		return models.Agent{}, err
	}
	a.Rating = floatPtr(rating)
	return a, nil
}
