package camunda

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "property-search/internal/common/errors"
	"property-search/internal/common/metrics"
)

// CompleteJob completes job with output as its variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("build complete command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete command: %w", err)
	}
	metrics.WorkerJobsCompleted.WithLabelValues(job.Type).Inc()
	return nil
}

// FailJob hands err to the error handler, which retries or throws it as a BPMN error.
func FailJob(ctx context.Context, client worker.JobClient, job entities.Job, handler *apperrors.JobErrorHandler, err error) {
	code := apperrors.Normalize(err).Code
	metrics.WorkerJobsFailed.WithLabelValues(job.Type, string(code)).Inc()
	handler.HandleJobError(ctx, client, job, err)
}
