package normalizesearchfilters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"property-search/internal/common/camunda"
	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/search"
)

const TaskType = "normalize-search-filters"

type Handler struct {
	config *Config
	logger logger.Logger
	errors *apperrors.JobErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		logger: log,
		errors: apperrors.NewJobErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		camunda.FailJob(ctx, client, job, h.errors,
			apperrors.NewInvalidSearchCriteriaError("rawFilters", fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		camunda.FailJob(ctx, client, job, h.errors, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err})
	}
}

// execute reports a rejected field as INVALID_SEARCH_CRITERIA so the process can route it.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	criteria, err := search.NormalizeFilters(input.RawFilters)
	if err != nil {
		if std, ok := apperrors.As(err); ok && std.Code == apperrors.ErrCodeValidationFailed {
			field, _ := std.Metadata["field"].(string)
			return nil, apperrors.NewInvalidSearchCriteriaError(field, std.Details)
		}
		return nil, err
	}

	h.logger.Debug("filters normalized", map[string]interface{}{"criteria": criteria})
	return &Output{Criteria: criteria}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
