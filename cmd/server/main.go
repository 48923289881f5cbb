package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alcyxob/fitflow/internal/api"
	"alcyxob/fitflow/internal/app"
	"alcyxob/fitflow/internal/config"
	"alcyxob/fitflow/internal/logging"
	"alcyxob/fitflow/internal/metrics"
	"alcyxob/fitflow/internal/realtime"
	"alcyxob/fitflow/internal/service"
	"alcyxob/fitflow/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// @title FitFlow API
// @version 1.0
// @description Workout calendar: routines, exercises, sets, templates and live snapshots.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("could not load config: %s", err)
	}

	logging.Setup(logging.LoggerSetupParams{
		LogFileName:   cfg.Log.File,
		LogToStdout:   cfg.Log.ToStdout,
		LogLevel:      cfg.Log.Level,
		LogFormatJSON: cfg.Log.JSON,
	})
	log.Infoln("starting fitflow server...")

	ctx := context.Background()

	stores, err := app.OpenStores(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("could not open stores: %s", err)
	}
	defer stores.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsManager := metrics.NewManager("fitflow", "server", reg)

	var fileStorage storage.FileStorage
	if s3Storage, err := storage.NewS3Storage(ctx, cfg.S3); err == nil {
		fileStorage = s3Storage
	} else if errors.Is(err, storage.ErrStorageDisabled) {
		log.Infoln("s3 bucket not configured, exports are disabled")
	} else {
		log.Fatalf("failed to initialize s3 storage: %s", err)
	}

	authService := service.NewAuthService(stores.Users, cfg.JWT.Secret, cfg.JWT.Expiration)
	workoutService := service.NewWorkoutService(stores.Workouts, metricsManager,
		service.WithTemplateCache(cfg.Cache.TemplateCacheSize, cfg.Cache.TemplateTTL),
	)
	migrationService := service.NewMigrationService(workoutService)
	exportService := service.NewExportService(workoutService, fileStorage, cfg.S3.PresignExpiry)
	hub := realtime.NewHub(stores.Workouts, metricsManager)

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Dependencies{
		AuthService:      authService,
		WorkoutService:   workoutService,
		MigrationService: migrationService,
		ExportService:    exportService,
		Hub:              hub,
		Metrics:          metricsManager,
		Gatherer:         reg,
	})

	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// no WriteTimeout: snapshot streams stay open
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen and serve: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infoln("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// closing the hub ends open streams so Shutdown does not wait on them
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Errorf("realtime hub shutdown: %s", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %s", err)
	}

	log.Infoln("server exiting")
}
