package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"

	syncapp "github.com/solarops/backend/internal/application/sync"
	"github.com/solarops/backend/internal/infrastructure/auth"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/cache"
	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/solarops/backend/internal/infrastructure/logger"
	"github.com/solarops/backend/internal/infrastructure/persistence"
	"github.com/solarops/backend/internal/infrastructure/scheduler"
	"github.com/solarops/backend/internal/infrastructure/storage"
	"github.com/solarops/backend/internal/infrastructure/telemetry"
	"github.com/solarops/backend/internal/interfaces/http/handler"
	"github.com/solarops/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting SolarOps Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry: tracing, metrics and continuous profiling. All three
	// are no-ops unless enabled in config.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	profiler, err := telemetry.NewProfiler(cfg.Profiling, cfg.App.Name, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	if cfg.Profiling.Enabled && cfg.Profiling.SpanProfiles {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.DB.Use(otelgorm.NewPlugin()); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}

	// Migrated-file storage: local disk or an S3-compatible bucket
	var fileStore storage.Store
	if cfg.Storage.Backend == "s3" {
		s3Store, err := storage.NewS3Store(&cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure S3 bucket", zap.Error(err))
		}
		fileStore = s3Store
		log.Info("Using S3 file storage", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		localStore, err := storage.NewLocalStore(cfg.Files.Root)
		if err != nil {
			log.Fatal("Failed to initialize local file storage", zap.Error(err))
		}
		fileStore = localStore
		log.Info("Using local file storage", zap.String("root", cfg.Files.Root))
	}

	// Run lock: Redis when enabled, in-memory otherwise. With Redis
	// enabled an unreachable server is fatal rather than silently
	// degrading to a single-instance lock.
	lockFactory := cache.NewRunLockFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithMemoryFallback(false),
	)
	runLock, err := lockFactory.CreateLock()
	if err != nil {
		log.Fatal("Failed to create run lock", zap.Error(err))
	}

	// Sync engine
	bubbleClient := bubble.NewClient(&cfg.Bubble)
	tableStore := persistence.NewTableStore(db)
	runRepo := persistence.NewGormSyncRunRepository(db)

	syncer := syncapp.NewTableSyncer(bubbleClient, tableStore, log)
	migrator := syncapp.NewFileMigrator(bubbleClient, tableStore, fileStore, &cfg.Files, cfg.Bubble.FileHosts, log)
	validator := syncapp.NewValidator(tableStore, log)
	syncService := syncapp.NewService(
		syncer, migrator, validator,
		tableStore, runRepo,
		runLock, cfg.Sync.LockTTL, cfg.Sync.RunHistoryLimit,
		log,
	)

	if meterProvider.IsEnabled() {
		syncMetrics, err := telemetry.NewSyncMetrics(meterProvider, log)
		if err != nil {
			log.Warn("Failed to initialize sync metrics", zap.Error(err))
		} else {
			syncService.SetRunObserver(syncMetrics)
		}
	}

	// Nightly incremental sync
	if cfg.Scheduler.Enabled {
		syncScheduler, err := scheduler.NewSyncScheduler(cfg.Scheduler, syncService, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			if err := syncScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.String("schedule", cfg.Scheduler.CronSchedule),
			zap.Time("next_run", syncScheduler.NextRun()),
		)
	}

	// HTTP layer
	jwtService := auth.NewJWTService(cfg.JWT)
	credentials := auth.NewCredentialChecker(cfg.Admin)

	engine := router.New(router.Dependencies{
		Config:        cfg,
		Logger:        log,
		JWTService:    jwtService,
		AuthHandler:   handler.NewAuthHandler(credentials, jwtService, log),
		SyncHandler:   handler.NewSyncHandler(syncService, log),
		SystemHandler: handler.NewSystemHandler(db, log),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
