// Package api exposes the listing, search, enquiry and assistant operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"property-search/internal/common/logger"
	"property-search/internal/models"
)

type Listings interface {
	Properties(ctx context.Context, limit int, featuredOnly bool) ([]models.Property, error)
	Featured(ctx context.Context, limit int) ([]models.Property, error)
	ByPurpose(ctx context.Context, purpose string, limit int) ([]models.Property, error)
	ByType(ctx context.Context, propertyType string, limit int) ([]models.Property, error)
	NewDevelopments(ctx context.Context, limit int) ([]models.Property, error)
	Detail(ctx context.Context, id int64) (models.PropertyDetail, error)
	Agents(ctx context.Context, limit int) ([]models.Agent, error)
	Agent(ctx context.Context, id int64) (models.Agent, error)
	Locations(ctx context.Context, limit int) ([]models.Location, error)
	CreateProperty(ctx context.Context, input models.NewProperty) (models.Property, error)
	CreateAgent(ctx context.Context, input models.NewAgent) (models.Agent, error)
	CreateLocation(ctx context.Context, input models.NewLocation) (models.Location, error)
	Insights(ctx context.Context, id int64, language string) (models.Insights, error)
}

type Searcher interface {
	Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error)
	AISearch(ctx context.Context, query, language string) (models.AISearchResult, error)
}

type Enquiries interface {
	Submit(ctx context.Context, propertyID int64, input models.NewEnquiry) (models.EnquiryReceipt, error)
}

// Assistant never fails: it degrades to an apology or the untranslated text.
type Assistant interface {
	Consult(ctx context.Context, history []models.ChatMessage, language string) string
	Translate(ctx context.Context, text, source, target string) string
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Dependencies struct {
	Listings  Listings
	Search    Searcher
	Enquiries Enquiries
	Assistant Assistant
	Ready     map[string]ReadinessCheck
}

type Handler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRouter wires middleware, the /api routes and the operational endpoints.
func NewRouter(deps Dependencies, allowedOrigins []string, log logger.Logger) http.Handler {
	h := &Handler{deps: deps, logger: log.WithFields(map[string]interface{}{"component": "api"})}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(traceMiddleware, middleware.RealIP, loggerMiddleware(h.logger), middleware.Recoverer)
	r.Use(instrumentMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", TraceHeader},
		ExposedHeaders: []string{TraceHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Get("/ready", h.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.listProperties)
			r.Post("/", h.createProperty)
			r.Get("/featured", h.featured)
			r.Get("/sale", h.byPurpose("sale"))
			r.Get("/rent", h.byPurpose("rent"))
			r.Get("/new-developments", h.newDevelopments)
			r.Get("/type/{type}", h.byType)
			r.Get("/search", h.search)
			r.Post("/ai-search", h.aiSearch)
			r.Get("/{id}", h.propertyDetail)
			r.Post("/{id}/insights", h.insights)
			r.Post("/{id}/enquiries", h.submitEnquiry)
		})
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.listAgents)
			r.Post("/", h.createAgent)
			r.Get("/{id}", h.agent)
		})
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", h.listLocations)
			r.Post("/", h.createLocation)
		})
		r.Post("/ai/consultant", h.consult)
		r.Post("/ai/translate", h.translate)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps.Ready))
	status := http.StatusOK
	for name, check := range h.deps.Ready {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	respondJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}
