package camunda

import (
	"context"
	"time"

	"property-search/internal/common/config"
	"property-search/internal/common/metrics"
	"property-search/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler completes, fails or throws the job itself.
type JobHandler func(client worker.JobClient, job entities.Job)

// StartWorker opens a job worker for taskType and instruments every job.
func StartWorker(client zbc.Client, taskType string, cfg config.WorkerConfig, handler JobHandler, obs *observability.Observability, log *zap.Logger) worker.JobWorker {
	w := client.NewJobWorker().
		JobType(taskType).
		Handler(instrument(taskType, handler, obs)).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(config.GetDuration(cfg.Timeout)).
		Name(taskType).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", cfg.MaxJobsActive),
		zap.Int("timeoutMs", cfg.Timeout),
	)
	return w
}

func instrument(taskType string, handler JobHandler, obs *observability.Observability) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		defer func() {
			elapsed := time.Since(start)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			obs.RecordJob(context.Background(), taskType, "handled", elapsed)
		}()
		handler(client, job)
	}
}
