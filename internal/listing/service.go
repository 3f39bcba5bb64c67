// Package listing serves the browse, detail and administrative create paths over the
// repositories, plus cached AI insights for a single listing.
package listing

import (
	"context"
	"strings"
	"time"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/common/validation"
	"property-search/internal/models"
	"property-search/internal/repository"
	"property-search/internal/search"
)

// Default page sizes used by the HTTP layer when no limit is given.
const (
	DefaultFeaturedLimit        = 3
	DefaultPurposeLimit         = 3
	DefaultNewDevelopmentsLimit = 2
	DefaultAgentsLimit          = 4
	DefaultLocationsLimit       = 6
)

type InsightsGenerator interface {
	Insights(ctx context.Context, p models.Property, language string) (models.Insights, error)
}

type InsightsCache interface {
	GetInsights(ctx context.Context, propertyID int64, language string) (models.Insights, bool, error)
	SetInsights(ctx context.Context, propertyID int64, language string, insights models.Insights) error
}

// SearchInvalidator drops cached search results after the catalog changes.
type SearchInvalidator interface {
	InvalidateSearches(ctx context.Context) error
}

type PropertyPublisher interface {
	PublishPropertyCreated(ctx context.Context, p models.Property) error
}

type Service struct {
	store       repository.Store
	insights    InsightsGenerator
	cache       InsightsCache
	invalidator SearchInvalidator
	publisher   PropertyPublisher
	now         func() time.Time
	logger      logger.Logger
}

type Option func(*Service)

func WithInsightsCache(c InsightsCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithSearchInvalidator(inv SearchInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func WithPublisher(p PropertyPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock sets the time source used to decide what counts as a new development.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store repository.Store, insights InsightsGenerator, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		insights: insights,
		now:      time.Now,
		logger:   log.WithFields(map[string]interface{}{"component": "listing"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Properties lists every listing, or only featured ones. limit <= 0 means no limit.
func (s *Service) Properties(ctx context.Context, limit int, featuredOnly bool) ([]models.Property, error) {
	return s.selectProperties(ctx, limit, func(p models.Property) bool {
		return !featuredOnly || p.Featured
	})
}

func (s *Service) Featured(ctx context.Context, limit int) ([]models.Property, error) {
	return s.Properties(ctx, limit, true)
}

// ByPurpose lists listings stored with the given purpose (sale or rent).
func (s *Service) ByPurpose(ctx context.Context, purpose string, limit int) ([]models.Property, error) {
	purpose = strings.ToLower(strings.TrimSpace(purpose))
	if purpose != models.PurposeSale && purpose != models.PurposeRent {
		return nil, apperrors.NewValidationError("purpose", "purpose must be sale or rent")
	}
	return s.selectProperties(ctx, limit, func(p models.Property) bool {
		return p.Purpose == purpose
	})
}

func (s *Service) ByType(ctx context.Context, propertyType string, limit int) ([]models.Property, error) {
	propertyType = strings.TrimSpace(propertyType)
	return s.selectProperties(ctx, limit, func(p models.Property) bool {
		return strings.EqualFold(string(p.Type), propertyType)
	})
}

// NewDevelopments lists listings built this year or later.
func (s *Service) NewDevelopments(ctx context.Context, limit int) ([]models.Property, error) {
	currentYear := s.now().Year()
	return s.selectProperties(ctx, limit, func(p models.Property) bool {
		return p.YearBuilt != nil && *p.YearBuilt >= currentYear
	})
}

func (s *Service) selectProperties(ctx context.Context, limit int, keep func(models.Property) bool) ([]models.Property, error) {
	all, err := s.store.Properties().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Property, 0, len(all))
	for _, p := range all {
		if !keep(p) {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Detail returns a listing together with its agent.
func (s *Service) Detail(ctx context.Context, id int64) (models.PropertyDetail, error) {
	p, err := s.store.Properties().GetByID(ctx, id)
	if err != nil {
		return models.PropertyDetail{}, err
	}
	agent, err := s.store.Agents().GetByID(ctx, p.AgentID)
	if err != nil {
		return models.PropertyDetail{}, err
	}
	return models.PropertyDetail{Property: p, Agent: agent}, nil
}

func (s *Service) Agents(ctx context.Context, limit int) ([]models.Agent, error) {
	agents, err := s.store.Agents().List(ctx)
	if err != nil {
		return nil, err
	}
	return head(agents, limit), nil
}

func (s *Service) Agent(ctx context.Context, id int64) (models.Agent, error) {
	return s.store.Agents().GetByID(ctx, id)
}

func (s *Service) Locations(ctx context.Context, limit int) ([]models.Location, error) {
	locations, err := s.store.Locations().List(ctx)
	if err != nil {
		return nil, err
	}
	return head(locations, limit), nil
}

// CreateProperty stores a listing, announces it and drops stale cached searches.
// Publish and invalidation failures are logged; the listing is already stored.
func (s *Service) CreateProperty(ctx context.Context, input models.NewProperty) (models.Property, error) {
	if err := validation.Struct(input); err != nil {
		return models.Property{}, err
	}
	p, err := s.store.Properties().Create(ctx, input)
	if err != nil {
		return models.Property{}, err
	}

	log := s.logger.WithFields(map[string]interface{}{"propertyId": p.ID})
	if s.publisher != nil {
		if err := s.publisher.PublishPropertyCreated(ctx, p); err != nil {
			log.Warn("property.created publish failed", map[string]interface{}{"error": err})
		}
	}
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateSearches(ctx); err != nil {
			log.Warn("search cache invalidation failed", map[string]interface{}{"error": err})
		}
	}
	log.Info("property created", map[string]interface{}{"type": p.Type, "purpose": p.Purpose})
	return p, nil
}

func (s *Service) CreateAgent(ctx context.Context, input models.NewAgent) (models.Agent, error) {
	if err := validation.Struct(input); err != nil {
		return models.Agent{}, err
	}
	return s.store.Agents().Create(ctx, input)
}

func (s *Service) CreateLocation(ctx context.Context, input models.NewLocation) (models.Location, error) {
	if err := validation.Struct(input); err != nil {
		return models.Location{}, err
	}
	return s.store.Locations().Create(ctx, input)
}

// Insights returns the AI analysis of a listing, served from cache when possible.
func (s *Service) Insights(ctx context.Context, id int64, language string) (models.Insights, error) {
	language = search.NormalizeLanguage(language)
	p, err := s.store.Properties().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetInsights(ctx, id, language)
		if err != nil {
			s.logger.Warn("insights cache read failed", map[string]interface{}{"error": err, "propertyId": id})
		} else if ok {
			return cached, nil
		}
	}

	insights, err := s.insights.Insights(ctx, p, language)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetInsights(ctx, id, language, insights); err != nil {
			s.logger.Warn("insights cache write failed", map[string]interface{}{"error": err, "propertyId": id})
		}
	}
	return insights, nil
}

func head[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
