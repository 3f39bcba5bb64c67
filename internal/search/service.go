package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"property-search/internal/common/logger"
	"property-search/internal/common/metrics"
	"property-search/internal/common/observability"
	"property-search/internal/models"
)

// Backend evaluates criteria against a property collection, returning matches ordered by id.
type Backend interface {
	Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error)
}

// Lister supplies the snapshot the in-process engine filters.
type Lister interface {
	List(ctx context.Context) ([]models.Property, error)
}

// ResultCache stores search results keyed by criteria.
type ResultCache interface {
	GetSearch(ctx context.Context, c models.SearchCriteria) ([]models.Property, bool, error)
	SetSearch(ctx context.Context, c models.SearchCriteria, properties []models.Property) error
}

// EngineBackend filters a full repository snapshot in process.
type EngineBackend struct {
	lister Lister
}

func NewEngineBackend(lister Lister) *EngineBackend {
	return &EngineBackend{lister: lister}
}

func (b *EngineBackend) Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error) {
	all, err := b.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(c, all), nil
}

type Service struct {
	backend     Backend
	backendName string
	cache       ResultCache
	parser      *QueryParser
	obs         *observability.Observability
	logger      logger.Logger
}

type Option func(*Service)

// WithCache enables result caching. Cache errors never fail a search.
func WithCache(cache ResultCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithObservability(obs *observability.Observability) Option {
	return func(s *Service) { s.obs = obs }
}

func NewService(backendName string, backend Backend, parser *QueryParser, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		backend:     backend,
		backendName: backendName,
		parser:      parser,
		logger:      log.WithFields(map[string]interface{}{"component": "search", "backend": backendName}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns every property matching c. Backend failures propagate unchanged.
func (s *Service) Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error) {
	ctx, span := observability.StartSpan(ctx, "search.Search",
		attribute.String("search.backend", s.backendName),
		attribute.Bool("search.empty_criteria", c.IsEmpty()),
	)
	defer span.End()

	if s.cache != nil {
		cached, ok, err := s.cache.GetSearch(ctx, c)
		switch {
		case err != nil:
			metrics.SearchCache.WithLabelValues("error").Inc()
			s.logger.Warn("search cache read failed", map[string]interface{}{"error": err})
		case ok:
			metrics.SearchCache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("search.cache_hit", true))
			return cached, nil
		default:
			metrics.SearchCache.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	results, err := s.backend.Search(ctx, c)
	if err != nil {
		metrics.SearchRequests.WithLabelValues(s.backendName, "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	if results == nil {
		results = []models.Property{}
	}

	metrics.SearchRequests.WithLabelValues(s.backendName, "ok").Inc()
	metrics.SearchResults.Observe(float64(len(results)))
	s.obs.RecordSearch(ctx, s.backendName, time.Since(start), len(results))
	span.SetAttributes(attribute.Int("search.results", len(results)))

	if s.cache != nil {
		if err := s.cache.SetSearch(ctx, c, results); err != nil {
			s.logger.Warn("search cache write failed", map[string]interface{}{"error": err})
		}
	}
	return results, nil
}

// AISearch parses a free-text query and runs the resulting criteria. An unparseable query
// searches with empty criteria.
func (s *Service) AISearch(ctx context.Context, query, language string) (models.AISearchResult, error) {
	criteria, err := s.parser.Parse(ctx, query, language)
	if err != nil {
		return models.AISearchResult{}, err
	}
	properties, err := s.Search(ctx, criteria)
	if err != nil {
		return models.AISearchResult{}, err
	}
	return models.AISearchResult{Criteria: criteria, Properties: properties}, nil
}

// Parser exposes the natural-language parser to workflow workers.
func (s *Service) Parser() *QueryParser {
	return s.parser
}
