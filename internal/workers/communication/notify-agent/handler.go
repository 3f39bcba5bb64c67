package notifyagent

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

const TaskType = "notify-agent"

type Submitter interface {
	Submit(ctx context.Context, propertyID int64, input models.NewEnquiry) (models.EnquiryReceipt, error)
}

type Handler struct {
	config    *Config
	submitter Submitter
	logger    logger.Logger
	errors    *apperrors.JobErrorHandler
}

func NewHandler(config *Config, submitter Submitter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		submitter: submitter,
		logger:    log,
		errors:    apperrors.NewJobErrorHandler(log),
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
			apperrors.NewValidationError("enquiry", fmt.Sprintf("parse input: %v", err)))
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
	if input.PropertyID <= 0 {
		return nil, apperrors.NewValidationError("propertyId", "propertyId must be positive")
	}
	receipt, err := h.submitter.Submit(ctx, input.PropertyID, input.Enquiry)
	if err != nil {
		return nil, err
	}
	return &Output{EnquiryID: receipt.Enquiry.ID, Channels: receipt.Channels}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
