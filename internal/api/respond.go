package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
)

type errorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"traceId,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps err onto its status. Unclassified errors are logged and answered with
// a generic message.
func writeError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	std := apperrors.Normalize(err)
	resp := errorResponse{
		Message: std.Message,
		Code:    string(std.Code),
		Details: std.Details,
		TraceID: TraceID(r.Context()),
	}
	if field, ok := std.Metadata["field"].(string); ok {
		resp.Field = field
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", map[string]interface{}{
			"trace_id": resp.TraceID,
			"path":     r.URL.Path,
			"status":   status,
			"error":    err,
		})
		if status == http.StatusInternalServerError {
			resp.Message = "Internal server error"
			resp.Code = string(apperrors.ErrCodeInternal)
			resp.Details = ""
		}
	}
	respondJSON(w, status, resp)
}

// limitParam returns def when the query has no limit; a present limit must be a positive integer.
func limitParam(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperrors.NewValidationError("limit", "limit must be a positive integer")
	}
	return limit, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(name, name+" must be a positive integer")
	}
	return id, nil
}
