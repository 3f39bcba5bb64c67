package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/validation"
	"property-search/internal/listing"
	"property-search/internal/models"
	"property-search/internal/search"
)

const maxBodyBytes = 1 << 20

// decodeBody validates the request body against a named schema before unmarshalling it.
func decodeBody(w http.ResponseWriter, r *http.Request, schema string, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError("(root)", "request body could not be read: "+err.Error())
	}
	return validation.Decode(schema, body, dst)
}

func (h *Handler) listProperties(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	featured := r.URL.Query().Get("featured") == "true"

	properties, err := h.deps.Listings.Properties(r.Context(), limit, featured)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

func (h *Handler) featured(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, listing.DefaultFeaturedLimit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	properties, err := h.deps.Listings.Featured(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

func (h *Handler) byPurpose(purpose string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := limitParam(r, listing.DefaultPurposeLimit)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		properties, err := h.deps.Listings.ByPurpose(r.Context(), purpose, limit)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		respondJSON(w, http.StatusOK, properties)
	}
}

// byType has no default limit.
func (h *Handler) byType(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	properties, err := h.deps.Listings.ByType(r.Context(), chi.URLParam(r, "type"), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

func (h *Handler) newDevelopments(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, listing.DefaultNewDevelopmentsLimit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	properties, err := h.deps.Listings.NewDevelopments(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	criteria, err := search.NormalizeQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	properties, err := h.deps.Search.Search(r.Context(), criteria)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, properties)
}

type aiSearchRequest struct {
	Query    string `json:"query"`
	Language string `json:"language"`
}

func (h *Handler) aiSearch(w http.ResponseWriter, r *http.Request) {
	var req aiSearchRequest
	if err := decodeBody(w, r, validation.SchemaAISearch, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.deps.Search.AISearch(r.Context(), req.Query, req.Language)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) propertyDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	detail, err := h.deps.Listings.Detail(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) createProperty(w http.ResponseWriter, r *http.Request) {
	var input models.NewProperty
	if err := decodeBody(w, r, validation.SchemaCreateProperty, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.deps.Listings.CreateProperty(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	insights, err := h.deps.Listings.Insights(r.Context(), id, r.URL.Query().Get("lang"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (h *Handler) submitEnquiry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var input models.NewEnquiry
	if err := decodeBody(w, r, validation.SchemaEnquiry, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	receipt, err := h.deps.Enquiries.Submit(r.Context(), id, input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, listing.DefaultAgentsLimit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	agents, err := h.deps.Listings.Agents(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, agents)
}

func (h *Handler) agent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	agent, err := h.deps.Listings.Agent(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, agent)
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var input models.NewAgent
	if err := decodeBody(w, r, validation.SchemaCreateAgent, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	agent, err := h.deps.Listings.CreateAgent(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, agent)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, listing.DefaultLocationsLimit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	locations, err := h.deps.Listings.Locations(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var input models.NewLocation
	if err := decodeBody(w, r, validation.SchemaCreateLocation, &input); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	loc, err := h.deps.Listings.CreateLocation(r.Context(), input)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, loc)
}

type consultRequest struct {
	Messages []models.ChatMessage `json:"messages"`
	Language string               `json:"language"`
}

func (h *Handler) consult(w http.ResponseWriter, r *http.Request) {
	var req consultRequest
	if err := decodeBody(w, r, validation.SchemaConsultant, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	reply := h.deps.Assistant.Consult(r.Context(), req.Messages, req.Language)
	respondJSON(w, http.StatusOK, map[string]string{"response": reply})
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

func (h *Handler) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeBody(w, r, validation.SchemaTranslate, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	translated := h.deps.Assistant.Translate(r.Context(), req.Text, req.Source, req.Target)
	respondJSON(w, http.StatusOK, map[string]string{"translatedText": translated})
}
