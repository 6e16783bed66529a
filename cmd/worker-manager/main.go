// cmd/worker-manager/main.go
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

	"go.uber.org/zap"

	"bvester-assessment/internal/assessment"
	awsclients "bvester-assessment/internal/common/aws"
	"bvester-assessment/internal/common/camunda"
	"bvester-assessment/internal/common/config"
	"bvester-assessment/internal/common/database"
	"bvester-assessment/internal/common/logger"
	"bvester-assessment/internal/common/observability"
	"bvester-assessment/internal/httpapi"
	"bvester-assessment/internal/notify"
	"bvester-assessment/internal/store/results"
	"bvester-assessment/internal/store/search"
	"bvester-assessment/internal/store/sessions"

	ea "bvester-assessment/internal/workers/assessment/evaluate-assessment"
	nq "bvester-assessment/internal/workers/assessment/next-question"
	nra "bvester-assessment/internal/workers/assessment/notify-risk-alert"
	pr "bvester-assessment/internal/workers/assessment/persist-result"
	"bvester-assessment/pkg/registry"
)

const outboxReplayInterval = time.Minute

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

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	var obsOpts []observability.Option
	if cfg.Observability.JaegerEndpoint != "" {
		obsOpts = append(obsOpts, observability.WithJaeger(cfg.Observability.JaegerEndpoint))
	}
	obs, err := observability.New(cfg.Observability.ServiceName, obsOpts...)
	if err != nil {
		zapLog.Warn("observability init incomplete", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Assessment engine ---
	catalog, err := loadCatalog(cfg.Assessment.CatalogPath)
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err))
	}
	engine := assessment.NewEngine()
	zapLog.Info("Question catalog loaded",
		zap.String("version", catalog.Version),
		zap.Int("questions", catalog.Len()),
	)

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	repo := results.NewPostgresRepository(pg.GetDB())
	if err := repo.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("result schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	sessionStore := sessions.NewStore(rdb.GetClient(), cfg.Assessment.SessionTTL(), log)
	zapLog.Info("Redis connected successfully")

	// --- Local outbox ---
	sqlite, err := database.NewSQLite(cfg.Database.SQLite)
	if err != nil {
		zapLog.Fatal("sqlite outbox open failed", zap.Error(err), zap.String("path", cfg.Database.SQLite.Path))
	}
	defer sqlite.Close()
	outbox, err := results.NewLocalOutbox(ctx, sqlite.DB)
	if err != nil {
		zapLog.Fatal("sqlite outbox init failed", zap.Error(err))
	}
	persister := results.NewPersister(repo, outbox,
		cfg.Assessment.PersistRetries,
		config.GetDuration(cfg.Assessment.RetryDelay),
		log,
	)

	deps := map[string]database.Pinger{
		"zeebe":    zeebe,
		"postgres": pg,
		"redis":    rdb,
		"sqlite":   sqlite,
	}

	// --- Elasticsearch (optional) ---
	var indexer pr.ResultIndexer
	if cfg.Database.Elasticsearch.GetURL() != "" {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, search indexing disabled", zap.Error(err))
		} else {
			indexer = search.NewIndexer(es.Client, cfg.Database.Elasticsearch.Index)
			deps["elasticsearch"] = es
			zapLog.Info("Elasticsearch connected successfully")
		}
	}

	alerter, err := newAlerter(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("notification clients failed", zap.Error(err))
	}

	activities, err := registry.Default()
	if err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	timeout := func(taskType string, fallback time.Duration) time.Duration {
		return workerTimeout(cfg, taskType, activities.TimeoutOf(taskType, fallback))
	}

	// --- Handlers ---
	evaluate := ea.NewHandler(&ea.Config{Timeout: timeout(ea.TaskType, ea.LoadConfig().Timeout)}, engine, catalog, obs, log)
	next := nq.NewHandler(&nq.Config{Timeout: timeout(nq.TaskType, nq.LoadConfig().Timeout)}, engine, catalog, sessionStore, log)
	persistCfg := pr.LoadConfig()
	persistCfg.Timeout = timeout(pr.TaskType, persistCfg.Timeout)
	persist := pr.NewHandler(persistCfg, persister, indexer, log)
	alert := nra.NewHandler(&nra.Config{Timeout: timeout(nra.TaskType, nra.LoadConfig().Timeout)}, alerter, log)

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	for taskType, handler := range map[string]camunda.JobHandler{
		ea.TaskType:  evaluate,
		nq.TaskType:  next,
		pr.TaskType:  persist,
		nra.TaskType: alert,
	} {
		if _, ok := activities.Find(taskType); !ok {
			zapLog.Warn("task type missing from activity registry", zap.String("taskType", taskType))
		}
		if w := startWorker(zeebe, cfg, taskType, handler, zapLog); w != nil {
			workers = append(workers, w)
		}
	}
	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	go replayOutbox(ctx, persister, zapLog)

	// --- HTTP API, health & metrics ---
	api := httpapi.New(httpapi.Options{
		Catalog:        catalog,
		Evaluator:      evaluate,
		Navigator:      next,
		Dependencies:   deps,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		ReadyTimeout:   3 * time.Second,
		Logger:         log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func loadCatalog(path string) (*assessment.Catalog, error) {
	if path == "" {
		return assessment.DefaultCatalog()
	}
	return assessment.LoadCatalog(path)
}

// newAlerter builds the risk alerter from the enabled notification channels.
func newAlerter(ctx context.Context, cfg *config.Config, log logger.Logger) (*notify.Alerter, error) {
	threshold, ok := assessment.ParseRiskLevel(cfg.Notifications.AlertThreshold)
	if !ok {
		return nil, fmt.Errorf("unknown alert threshold %q", cfg.Notifications.AlertThreshold)
	}

	var topic notify.TopicPublisher
	if cfg.Notifications.SNS.Enabled {
		c, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			return nil, err
		}
		topic = c
	}

	var email notify.EmailSender
	if cfg.Notifications.SES.Enabled {
		c, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SES.FromEmail)
		if err != nil {
			return nil, err
		}
		email = c
	}

	return notify.NewAlerter(topic, email, threshold, log), nil
}

// workerTimeout returns the configured job timeout, or fallback when the
// worker has no explicit entry.
func workerTimeout(cfg *config.Config, taskType string, fallback time.Duration) time.Duration {
	if w, ok := cfg.Workers[taskType]; ok && w.Timeout > 0 {
		return config.GetDuration(w.Timeout)
	}
	return fallback
}

func startWorker(client *camunda.Client, cfg *config.Config, taskType string, handler camunda.JobHandler, log *zap.Logger) *camunda.CamundaWorker {
	if !config.IsWorkerEnabled(cfg, taskType) {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	wcfg := config.GetWorkerConfig(cfg, taskType)
	w := camunda.NewWorker(client.GetClient(), taskType, camunda.WorkerOptions{
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}, handler, log)
	w.Start()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)
	return w
}

// replayOutbox periodically pushes outbox results to Postgres until ctx ends.
func replayOutbox(ctx context.Context, persister *results.Persister, log *zap.Logger) {
	ticker := time.NewTicker(outboxReplayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := persister.Replay(ctx, 100)
			if err != nil {
				log.Warn("outbox replay failed", zap.Error(err))
				continue
			}
			if report.Replayed > 0 || report.Failed > 0 {
				log.Info("outbox replayed",
					zap.Int("replayed", report.Replayed),
					zap.Int("failed", report.Failed),
					zap.Int("pending", report.Pending),
				)
			}
		}
	}
}
