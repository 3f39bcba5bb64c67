// Package memory is the non-persistent store used for demos and tests. The process entry
// point owns the instance; reads return copies.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/models"
	"property-search/internal/repository"
)

type Store struct {
	mu sync.RWMutex

	properties []models.Property
	agents     []models.Agent
	locations  []models.Location

	nextPropertyID int64
	nextAgentID    int64
	nextLocationID int64

	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		nextPropertyID: 1,
		nextAgentID:    1,
		nextLocationID: 1,
		now:            func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Properties() repository.PropertyRepository { return propertyRepo{s} }
func (s *Store) Agents() repository.AgentRepository         { return agentRepo{s} }
func (s *Store) Locations() repository.LocationRepository   { return locationRepo{s} }

type propertyRepo struct{ s *Store }

func (r propertyRepo) List(ctx context.Context) ([]models.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Property, len(r.s.properties))
	for i, p := range r.s.properties {
		out[i] = p.Clone()
	}
	return out, nil
}

func (r propertyRepo) GetByID(_ context.Context, id int64) (models.Property, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.properties {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return models.Property{}, apperrors.NewNotFoundError("Property", id)
}

func (r propertyRepo) Create(_ context.Context, input models.NewProperty) (models.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.agentExists(input.AgentID) {
		return models.Property{}, apperrors.NewValidationError("agentId",
			fmt.Sprintf("agent %d does not exist", input.AgentID))
	}

	p := input.Build(r.s.nextPropertyID, r.s.now())
	r.s.nextPropertyID++
	r.s.properties = append(r.s.properties, p)
	return p.Clone(), nil
}

type agentRepo struct{ s *Store }

func (r agentRepo) List(ctx context.Context) ([]models.Agent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Agent, len(r.s.agents))
	for i, a := range r.s.agents {
		out[i] = cloneAgent(a)
	}
	return out, nil
}

func (r agentRepo) GetByID(_ context.Context, id int64) (models.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.agents {
		if a.ID == id {
			return cloneAgent(a), nil
		}
	}
	return models.Agent{}, apperrors.NewNotFoundError("Agent", id)
}

func (r agentRepo) Create(_ context.Context, input models.NewAgent) (models.Agent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, a := range r.s.agents {
		if strings.EqualFold(a.Email, input.Email) {
			return models.Agent{}, apperrors.NewConflictError("Agent",
				fmt.Sprintf("email %s is already registered", input.Email))
		}
	}

	a := input.Build(r.s.nextAgentID)
	r.s.nextAgentID++
	r.s.agents = append(r.s.agents, a)
	return cloneAgent(a), nil
}

type locationRepo struct{ s *Store }

func (r locationRepo) List(ctx context.Context) ([]models.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Location, len(r.s.locations))
	copy(out, r.s.locations)
	return out, nil
}

func (r locationRepo) GetByID(_ context.Context, id int64) (models.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, l := range r.s.locations {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Location{}, apperrors.NewNotFoundError("Location", id)
}

func (r locationRepo) Create(_ context.Context, input models.NewLocation) (models.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l := input.Build(r.s.nextLocationID)
	r.s.nextLocationID++
	r.s.locations = append(r.s.locations, l)
	return l, nil
}

// agentExists must be called with mu held.
func (s *Store) agentExists(id int64) bool {
	for _, a := range s.agents {
		if a.ID == id {
			return true
		}
	}
	return false
}

func cloneAgent(a models.Agent) models.Agent {
	if a.Rating != nil {
		r := *a.Rating
		a.Rating = &r
	}
	return a
}
