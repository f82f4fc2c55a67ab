package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoice-pipeline/internal/auth"
	"invoice-pipeline/internal/backup"
	"invoice-pipeline/internal/config"
	"invoice-pipeline/internal/emailcheck"
	"invoice-pipeline/internal/extraction"
	"invoice-pipeline/internal/handlers"
	"invoice-pipeline/internal/logging"
	"invoice-pipeline/internal/repository"
	"invoice-pipeline/pkg/database"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.NodeEnv)
	defer logger.Sync()

	logger.Info("starting invoice ingestion pipeline", zap.String("env", cfg.NodeEnv))

	db := database.Init(cfg.DataDir, cfg.DBPath)
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed migrating database", zap.Error(err))
	}

	users := repository.NewUserRepository()
	monitors := repository.NewMonitorRepository()
	monitorLocks := repository.NewMonitorLockRepository()
	checkRuns := repository.NewCheckRunRepository()
	processingLogs := repository.NewProcessingLogRepository()
	ingestionRuns := repository.NewIngestionRunRepository()
	parseTraces := repository.NewParseTraceRepository()

	jwtExpiresIn, err := time.ParseDuration(cfg.JWTExpiresIn)
	if err != nil {
		logger.Warn("invalid JWT_EXPIRES_IN, defaulting to 168h", zap.String("value", cfg.JWTExpiresIn))
		jwtExpiresIn = 168 * time.Hour
	}
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, jwtExpiresIn)

	lockService := emailcheck.NewLockService(monitorLocks)
	pipeline := extraction.NewPipeline()
	adapter := extraction.NewEmailAttachmentAdapter(pipeline)
	checkService := emailcheck.NewService(monitors, checkRuns, processingLogs, ingestionRuns, parseTraces, lockService, adapter, cfg.EmailEncryptionKey)

	supervisor := backup.NewSupervisor(backup.Options{
		BackupPath:           cfg.Backup.Path,
		IntervalHours:        cfg.Backup.IntervalHours,
		RetentionDays:        cfg.Backup.RetentionDays,
		CompressThresholdMB:  cfg.Backup.CompressThresholdMB,
		OffsiteUploadEnabled: cfg.Backup.OffsiteUploadEnabled,
		LiveDBPath:           database.Path,
	}, logger)
	if cfg.Backup.Enabled {
		supervisor.Start()
		logger.Info("backup supervisor started",
			zap.Int("interval_hours", cfg.Backup.IntervalHours),
			zap.Int("retention_days", cfg.Backup.RetentionDays))
	}

	stopScheduler := startScheduledChecks(monitors, checkService, logger)

	if cfg.NodeEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginZapLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  cfg.NodeEnv != "production",
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "payload": gin.H{"status": "ok", "timestamp": time.Now().Format(time.RFC3339)}})
	})

	handlers.RegisterRoutes(api, handlers.Deps{
		Users:         users,
		Monitors:      monitors,
		Issuer:        issuer,
		CheckService:  checkService,
		Supervisor:    supervisor,
		EncryptionKey: cfg.EmailEncryptionKey,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	close(stopScheduler)
	supervisor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown did not complete cleanly", zap.Error(err))
	}
}

// startScheduledChecks runs an unattended check() pass over every active
// monitor on a fixed tick (§5 "scheduled checks run on a timer,
// independent of any HTTP caller"). Returns a channel that, when closed,
// stops the loop.
func startScheduledChecks(monitors *repository.MonitorRepository, svc *emailcheck.Service, logger *zap.Logger) chan struct{} {
	const tick = 5 * time.Minute
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				runScheduledPass(monitors, svc, logger)
			}
		}
	}()

	return stop
}

func runScheduledPass(monitors *repository.MonitorRepository, svc *emailcheck.Service, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	active, err := monitors.FindAllActive(ctx)
	if err != nil {
		logger.Error("scheduled check pass: failed listing active monitors", zap.Error(err))
		return
	}

	for _, m := range active {
		if _, err := svc.Check(ctx, m.ID, "scheduled", emailcheck.Options{}); err != nil {
			logger.Warn("scheduled check failed", zap.String("monitor_id", m.ID), zap.Error(err))
		}
	}
}

func ginZapLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
