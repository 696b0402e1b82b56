package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberguardx/cyberguardx/internal/application"
	appchecks "github.com/cyberguardx/cyberguardx/internal/application/checks"
	appscans "github.com/cyberguardx/cyberguardx/internal/application/scans"
	"github.com/cyberguardx/cyberguardx/internal/breach"
	"github.com/cyberguardx/cyberguardx/internal/config"
	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
	localai "github.com/cyberguardx/cyberguardx/internal/infra/ai/local"
	openaiClient "github.com/cyberguardx/cyberguardx/internal/infra/ai/openai"
	mysqldb "github.com/cyberguardx/cyberguardx/internal/infra/db/mysql"
	postgresdb "github.com/cyberguardx/cyberguardx/internal/infra/db/postgres"
	"github.com/cyberguardx/cyberguardx/internal/infra/httpserver"
	"github.com/cyberguardx/cyberguardx/internal/infra/progress"
	minioStore "github.com/cyberguardx/cyberguardx/internal/infra/storage"
	"github.com/cyberguardx/cyberguardx/internal/logging"
	"github.com/cyberguardx/cyberguardx/internal/middleware"
	"github.com/cyberguardx/cyberguardx/internal/phishing"
	"github.com/cyberguardx/cyberguardx/internal/scanner"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	ctx := context.Background()

	// The service refuses to start without a classifier; every other
	// dependency degrades gracefully.
	model, err := phishing.LoadModel(cfg.Phishing.ModelPath)
	if err != nil {
		logger.WithError(err).Fatal("phishing model load failed")
	}
	info := model.Info()
	logger.WithField("model", info.Name).WithField("version", info.Version).Info("phishing model loaded")

	dataset, err := breach.LoadDataset(cfg.Breach.DatasetPath)
	if err != nil {
		logger.WithError(err).Fatal("breach dataset load failed")
	}
	logger.WithField("entries", dataset.Size()).Info("breach dataset loaded")

	var remote *breach.HIBPClient
	if cfg.Breach.HIBPAPIKey != "" {
		remote = breach.NewHIBPClient(cfg.Breach.HIBPAPIKey, logger)
	}

	// history store: mysql or postgres by config
	var history domain.HistoryRepository
	healthCheckers := map[string]middleware.HealthChecker{}
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgresdb.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			logger.WithError(err).Fatal("postgres connect error")
		}
		defer db.Close()
		history = postgresdb.NewHistoryRepository(db)
		healthCheckers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			logger.WithError(err).Fatal("mysql connect error")
		}
		defer db.Close()
		history = mysqldb.NewHistoryRepository(db)
		healthCheckers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// progress store: redis behind a load balancer, in-memory otherwise
	var progressStore domain.ProgressStore
	if cfg.Redis.Enabled {
		store, err := progress.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Fatal("redis connect error")
		}
		defer store.Close()
		progressStore = store
	} else {
		store := progress.NewMemoryStore()
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				store.Cleanup()
			}
		}()
		progressStore = store
	}

	// report artifacts are optional
	var reports domain.ReportStore
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
			logger.WithError(err).Fatal("minio init error")
		}
		reports = store
	}

	// analyst: OpenAI when a key is configured, local rules otherwise
	var analyst domain.Analyst
	if cfg.OpenAI.APIKey != "" {
		analyst = openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	} else {
		analyst = localai.New()
	}

	websiteScanner := scanner.New(scanner.Options{
		CheckTimeout: time.Duration(cfg.Scanner.CheckTimeoutSeconds) * time.Second,
		DNSServers:   cfg.Scanner.DNSServers,
	}, logger)

	clock := application.SystemClock{}
	checksSvc := &appchecks.Service{
		Breach:  breach.NewChecker(dataset, remote, logger),
		Model:   model,
		History: history,
		Clock:   clock,
		Logger:  logger,
	}
	scansSvc := &appscans.Service{
		History:  history,
		Progress: progressStore,
		Scanner:  websiteScanner,
		Reports:  reports,
		Analyst:  analyst,
		Clock:    clock,
		Logger:   logger,
	}

	handler := httpserver.NewRouter(checksSvc, scansSvc, httpserver.Options{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        cfg.Server.APIKeys,
		RateLimit:      cfg.RateLimit.Burst,
		RateRefill:     cfg.RateLimit.RefillPerSecond,
		HealthCheckers: healthCheckers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // scans run within the request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}
}
