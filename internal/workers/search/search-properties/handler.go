package searchproperties

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"property-search/internal/common/camunda"
	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/logger"
	"property-search/internal/models"
)

const TaskType = "search-properties"

type Searcher interface {
	Search(ctx context.Context, c models.SearchCriteria) ([]models.Property, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	logger   logger.Logger
	errors   *apperrors.JobErrorHandler
}

func NewHandler(config *Config, searcher Searcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		logger:   log,
		errors:   apperrors.NewJobErrorHandler(log),
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
			apperrors.NewInvalidSearchCriteriaError("criteria", fmt.Sprintf("parse input: %v", err)))
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Criteria.Purpose != nil && !models.IsSearchPurpose(*input.Criteria.Purpose) {
		return nil, apperrors.NewInvalidSearchCriteriaError("purpose",
			fmt.Sprintf("purpose must be one of buy, rent, commercial; got %q", *input.Criteria.Purpose))
	}

	properties, err := h.searcher.Search(ctx, input.Criteria)
	if err != nil {
		return nil, err
	}
	h.logger.Info("search completed", map[string]interface{}{"total": len(properties)})
	return &Output{Properties: properties, Total: len(properties)}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
