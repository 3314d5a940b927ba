package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bryanwahyu/riskrules/internal/application"
	appai "github.com/bryanwahyu/riskrules/internal/application/ai"
	appanalysis "github.com/bryanwahyu/riskrules/internal/application/analysis"
	apprules "github.com/bryanwahyu/riskrules/internal/application/rules"
	"github.com/bryanwahyu/riskrules/internal/config"
	domai "github.com/bryanwahyu/riskrules/internal/domain/ai"
	"github.com/bryanwahyu/riskrules/internal/domain/rules"
	"github.com/bryanwahyu/riskrules/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/riskrules/internal/infra/db/mysql"
	"github.com/bryanwahyu/riskrules/internal/infra/db/postgres"
	"github.com/bryanwahyu/riskrules/internal/infra/db/sqlite"
	"github.com/bryanwahyu/riskrules/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/riskrules/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/riskrules/internal/infra/storage"
	"github.com/bryanwahyu/riskrules/internal/logging"
	"github.com/bryanwahyu/riskrules/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx := context.Background()

	dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return err
	}
	db, err := connect(ctx, cfg, dialect)
	if err != nil {
		return fmt.Errorf("%s connect: %w", dialect, err)
	}
	defer db.Close()

	if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// init repo
	analysisRepo := sqlstore.NewAnalysisRepository(db, dialect)
	ruleRepo := sqlstore.NewRuleRepository(db, dialect)
	resultRepo := sqlstore.NewRuleResultRepository(db, dialect)

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}

	// init minio (optional)
	var archive rules.ResultArchive
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		store = store.WithPrefix(cfg.Minio.Prefix)
		archive = store
		checkers["archive"] = middleware.CheckFunc(store.Ping)
		logger.Infow("rule result archive enabled", "bucket", cfg.Minio.BucketName)
	}

	// init services
	clock := application.SystemClock{}
	analysisSvc := &appanalysis.Service{
		Repo:   analysisRepo,
		Clock:  clock,
		Logger: logger.Named("analysis"),
	}
	rulesSvc := &apprules.Service{
		Analyses: analysisRepo,
		Rules:    ruleRepo,
		Results:  resultRepo,
		Archive:  archive,
		Clock:    clock,
		Logger:   logger.Named("rules"),
		Metrics:  middleware.SessionRecorder{},
	}

	var aiSvc *appai.Service
	if cfg.OpenAI.APIKey != "" {
		var client domai.Client = openai.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		aiSvc = appai.NewService(client)
		logger.Infow("criteria drafting enabled", "model", cfg.OpenAI.Model)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RPS)
		defer limiter.Close()
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(httpserver.Deps{
		Analyses:    analysisSvc,
		Rules:       rulesSvc,
		AI:          aiSvc,
		Logger:      logger.Named("http"),
		APIKeys:     cfg.Auth.APIKeys,
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
		Checkers:    checkers,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server listening", "addr", addr, "driver", dialect)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func connect(ctx context.Context, cfg *config.Config, d sqlstore.Dialect) (*sql.DB, error) {
	switch d {
	case sqlstore.MySQL:
		return mysqlp.Connect(ctx, cfg.MySQLDSN())
	case sqlstore.Postgres:
		return postgres.Connect(ctx, cfg.PostgresDSN())
	default:
		return sqlite.Open(ctx, cfg.Database.Path)
	}
}
