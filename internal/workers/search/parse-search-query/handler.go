package parsesearchquery

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
	"property-search/internal/search"
)

const TaskType = "parse-search-query"

type Parser interface {
	Parse(ctx context.Context, query, language string) (models.SearchCriteria, error)
}

type Handler struct {
	config *Config
	parser Parser
	logger logger.Logger
	errors *apperrors.JobErrorHandler
}

func NewHandler(config *Config, parser Parser, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		parser: parser,
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
			apperrors.NewValidationError("query", fmt.Sprintf("parse input: %v", err)))
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

// execute only fails for a blank query; extraction failures already degrade to empty criteria.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	language := search.NormalizeLanguage(input.Language)
	criteria, err := h.parser.Parse(ctx, input.Query, language)
	if err != nil {
		return nil, err
	}
	return &Output{Criteria: criteria, Language: language}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
