// cmd/property-api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"property-search/internal/ai"
	"property-search/internal/api"
	"property-search/internal/common/aws"
	"property-search/internal/common/camunda"
	"property-search/internal/common/config"
	"property-search/internal/common/database"
	"property-search/internal/common/logger"
	"property-search/internal/common/observability"
	"property-search/internal/enquiry"
	"property-search/internal/events"
	"property-search/internal/listing"
	"property-search/internal/models"
	"property-search/internal/repository"
	"property-search/internal/repository/cache"
	esindex "property-search/internal/repository/elasticsearch"
	"property-search/internal/repository/memory"
	"property-search/internal/repository/postgres"
	"property-search/internal/search"
	"property-search/pkg/catalog"

	na "property-search/internal/workers/communication/notify-agent"
	nsf "property-search/internal/workers/search/normalize-search-filters"
	psq "property-search/internal/workers/search/parse-search-query"
	sp "property-search/internal/workers/search/search-properties"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// indexingPublisher indexes new listings directly when no broker is configured.
type indexingPublisher struct {
	index *esindex.Index
}

func (p indexingPublisher) PublishPropertyCreated(ctx context.Context, prop models.Property) error {
	return p.index.IndexProperty(ctx, prop)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting property API...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("search", cfg.Search.Backend),
	)

	obs := observability.New(cfg.App.Name, zapLog)
	shutdownTracing, err := observability.InitTracing(cfg.App.Name, cfg.App.Version, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio)
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := map[string]api.ReadinessCheck{}

	// --- Storage ---
	var store repository.Store
	var pgStore *postgres.Store
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
			return err
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		pgStore = postgres.New(pg.DB, log)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("postgres schema setup failed", zap.Error(err))
		}
		store = pgStore
		ready["postgres"] = pg.Ping
		zapLog.Info("PostgreSQL connected successfully")
	default:
		store = memory.New()
	}

	if cfg.App.CatalogPath != "" {
		seedCatalog(ctx, cfg.App.CatalogPath, store, zapLog)
	}

	// --- Search backend ---
	var backend search.Backend = search.NewEngineBackend(store.Properties())
	var index *esindex.Index
	switch cfg.Search.Backend {
	case config.SearchPostgres:
		backend = pgStore
	case config.SearchElasticsearch:
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}

		index = esindex.NewIndex(es.Client, es.Index, cfg.Search.MaxResults, log)
		if err := index.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		if n, err := reindex(ctx, store, index); err != nil {
			zapLog.Warn("initial reindex incomplete", zap.Error(err), zap.Int("indexed", n))
		} else {
			zapLog.Info("properties indexed", zap.Int("count", n))
		}
		backend = index
		ready["elasticsearch"] = es.Ping
	}

	// --- Clients ---
	genai := ai.NewClient(ai.Config{
		BaseURL: cfg.APIs.GenAI.BaseURL,
		APIKey:  cfg.APIs.GenAI.APIKey,
		Model:   cfg.APIs.GenAI.Model,
		Timeout: config.GetDuration(cfg.APIs.GenAI.Timeout),
	}, log)

	searchOpts := []search.Option{search.WithObservability(obs)}
	listingOpts := []listing.Option{}
	var consumerOpts []events.ConsumerOption

	if cfg.Database.Redis.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(ctx, cfg.Database.Redis)
			return err
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()

		c := cache.NewSearchCache(rdb.Client, config.GetDuration(cfg.Search.CacheTTL), config.GetDuration(cfg.AI.InsightsTTL), log)
		if cfg.Search.CacheEnabled {
			searchOpts = append(searchOpts, search.WithCache(c))
			listingOpts = append(listingOpts, listing.WithSearchInvalidator(c))
			consumerOpts = append(consumerOpts, events.WithInvalidator(c))
		}
		listingOpts = append(listingOpts, listing.WithInsightsCache(c))
		ready["redis"] = rdb.Ping
		zapLog.Info("Redis connected successfully")
	}

	// --- Events ---
	var broker *events.Connection
	if url := cfg.Messaging.RabbitMQ.URL; url != "" {
		err = retryWithBackoff(func() error {
			var err error
			broker, err = events.Dial(url)
			return err
		}, 10, 2*time.Second, zapLog, "RabbitMQ connection")
		if err != nil {
			zapLog.Fatal("rabbitmq failed after retries", zap.Error(err))
		}
		defer broker.Close()

		publisher, err := events.NewPublisher(broker.Channel, cfg.Messaging.RabbitMQ.Exchange, log)
		if err != nil {
			zapLog.Fatal("rabbitmq publisher setup failed", zap.Error(err))
		}
		listingOpts = append(listingOpts, listing.WithPublisher(publisher))
		ready["rabbitmq"] = func(context.Context) error {
			if broker.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}

		if index != nil {
			consumerConn, err := events.Dial(url)
			if err != nil {
				zapLog.Fatal("rabbitmq consumer connection failed", zap.Error(err))
			}
			defer consumerConn.Close()

			consumer := events.NewConsumer(consumerConn.Channel, cfg.Messaging.RabbitMQ.Exchange, cfg.Messaging.RabbitMQ.Queue, index, log, consumerOpts...)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					zapLog.Error("property indexer stopped", zap.Error(err))
				}
			}()
		}
		zapLog.Info("RabbitMQ connected successfully")
	} else if index != nil {
		listingOpts = append(listingOpts, listing.WithPublisher(indexingPublisher{index: index}))
	}

	// --- Services ---
	parser := search.NewQueryParser(genai, log)
	searchSvc := search.NewService(cfg.Search.Backend, backend, parser, log, searchOpts...)
	listingSvc := listing.NewService(store, genai, log, listingOpts...)
	enquirySvc := enquiry.NewService(store, log, notificationOptions(ctx, cfg, zapLog)...)

	// --- Workflow workers ---
	if cfg.Camunda.Enabled {
		zc, workers := startWorkers(ctx, cfg, parser, searchSvc, enquirySvc, obs, log, zapLog)
		ready["zeebe"] = zc.HealthCheck
		defer func() {
			for _, w := range workers {
				w.Close()
				w.AwaitClose()
			}
			_ = zc.Close()
		}()
	}

	// --- HTTP ---
	router := api.NewRouter(api.Dependencies{
		Listings:  listingSvc,
		Search:    searchSvc,
		Enquiries: enquirySvc,
		Assistant: genai,
		Ready:     ready,
	}, cfg.Server.AllowedOrigins, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutting down property API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("metrics shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Warn("tracing shutdown failed", zap.Error(err))
	}

	zapLog.Info("Property API stopped")
}

func seedCatalog(ctx context.Context, path string, store repository.Store, zapLog *zap.Logger) {
	cat, err := catalog.Load(path)
	if err != nil {
		zapLog.Warn("catalog not loaded", zap.String("path", path), zap.Error(err))
		return
	}
	sum, seeded, err := cat.SeedIfEmpty(ctx, store)
	if err != nil {
		zapLog.Fatal("catalog seed failed", zap.String("path", path), zap.Error(err))
	}
	if seeded {
		zapLog.Info("catalog seeded",
			zap.String("version", cat.Version),
			zap.Int("agents", sum.Agents),
			zap.Int("locations", sum.Locations),
			zap.Int("properties", sum.Properties),
		)
	}
}

func reindex(ctx context.Context, store repository.Store, index *esindex.Index) (int, error) {
	props, err := store.Properties().List(ctx)
	if err != nil {
		return 0, err
	}
	for i, p := range props {
		if err := index.IndexProperty(ctx, p); err != nil {
			return i, err
		}
	}
	return len(props), nil
}

func notificationOptions(ctx context.Context, cfg *config.Config, zapLog *zap.Logger) []enquiry.Option {
	if !cfg.Notify.Email.Enabled && !cfg.Notify.SMS.Enabled {
		zapLog.Info("agent notifications disabled, enquiries are only logged")
		return nil
	}

	awsCfg, err := aws.LoadConfig(ctx, cfg.Notify.Region)
	if err != nil {
		zapLog.Fatal("aws config load failed", zap.Error(err))
	}

	var opts []enquiry.Option
	if cfg.Notify.Email.Enabled {
		opts = append(opts, enquiry.WithEmail(aws.NewSESClient(awsCfg, cfg.Notify.Email.FromEmail)))
	}
	if cfg.Notify.SMS.Enabled {
		opts = append(opts, enquiry.WithSMS(aws.NewSNSClient(awsCfg, cfg.Notify.SMS.SenderID)))
	}
	return opts
}

func startWorkers(
	ctx context.Context,
	cfg *config.Config,
	parser *search.QueryParser,
	searchSvc *search.Service,
	enquirySvc *enquiry.Service,
	obs *observability.Observability,
	log logger.Logger,
	zapLog *zap.Logger,
) (*camunda.Client, []worker.JobWorker) {
	var zc *camunda.Client
	err := retryWithBackoff(func() error {
		var err error
		zc, err = camunda.NewClient(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}

	topology, err := zc.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return zc.Raw().NewTopologyCommand().Send(ctx)
	}, "topology")
	if err != nil {
		zapLog.Fatal("zeebe gateway unreachable", zap.Error(err))
	}
	if t, ok := topology.(*pb.TopologyResponse); ok {
		zapLog.Info("Zeebe client connected successfully",
			zap.Int("brokers", len(t.GetBrokers())),
			zap.Int32("clusterSize", t.GetClusterSize()),
		)
	}

	var workers []worker.JobWorker
	start := func(taskType string, handler camunda.JobHandler) {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.StartWorker(zc.Raw(), taskType, wcfg, handler, obs, zapLog))
	}

	start(nsf.TaskType, nsf.NewHandler(nsf.NewConfig(config.GetWorkerConfig(cfg, nsf.TaskType)), log).Handle)
	start(psq.TaskType, psq.NewHandler(psq.NewConfig(config.GetWorkerConfig(cfg, psq.TaskType)), parser, log).Handle)
	start(sp.TaskType, sp.NewHandler(sp.NewConfig(config.GetWorkerConfig(cfg, sp.TaskType)), searchSvc, log).Handle)
	start(na.TaskType, na.NewHandler(na.NewConfig(config.GetWorkerConfig(cfg, na.TaskType)), enquirySvc, log).Handle)

	zapLog.Info("workflow workers started", zap.Int("count", len(workers)))
	return zc, workers
}
