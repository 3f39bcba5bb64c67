// Package repository defines the storage contracts for listings, agents and locations.
// Every implementation returns a NotFoundError for unknown ids and lists in id order.
package repository

import (
	"context"

	"property-search/internal/models"
)

type PropertyRepository interface {
	List(ctx context.Context) ([]models.Property, error)
	GetByID(ctx context.Context, id int64) (models.Property, error)
	Create(ctx context.Context, input models.NewProperty) (models.Property, error)
}

type AgentRepository interface {
	List(ctx context.Context) ([]models.Agent, error)
	GetByID(ctx context.Context, id int64) (models.Agent, error)
	Create(ctx context.Context, input models.NewAgent) (models.Agent, error)
}

type LocationRepository interface {
	List(ctx context.Context) ([]models.Location, error)
	GetByID(ctx context.Context, id int64) (models.Location, error)
	Create(ctx context.Context, input models.NewLocation) (models.Location, error)
}

// Store groups the three repositories behind one backend.
type Store interface {
	Properties() PropertyRepository
	Agents() AgentRepository
	Locations() LocationRepository
}
