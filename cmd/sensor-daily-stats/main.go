package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/tame-insitu/sensor-daily-stats/internal/api/http"
	"github.com/tame-insitu/sensor-daily-stats/internal/config"
	"github.com/tame-insitu/sensor-daily-stats/internal/daily"
	"github.com/tame-insitu/sensor-daily-stats/internal/ingest"
	"github.com/tame-insitu/sensor-daily-stats/internal/logging"
	"github.com/tame-insitu/sensor-daily-stats/internal/scheduler"
	"github.com/tame-insitu/sensor-daily-stats/internal/statslog"
	"github.com/tame-insitu/sensor-daily-stats/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.NewDefaultLogger()

	// Raw CSV source, scoped to the start year like the raw file layout.
	merger := ingest.NewMerger(cfg.RawBaseDir, cfg.RawPattern, cfg.StartDate.Year(), cfg.Timezone, logger)

	// Per-sensor append-only statistics logs.
	statsLog := statslog.New(cfg.OutputDir)

	// In-memory store backing the status API.
	statusStore := store.NewMemoryStore()

	// Core service orchestrating the per-sensor pipeline.
	service := daily.NewService(daily.ServiceConfig{
		StartDate:  cfg.StartDate,
		AnchorHour: cfg.AnchorHour,
		Timezone:   cfg.Timezone,
		MaxWorkers: cfg.MaxWorkers,
	}, merger, statsLog, statusStore, logger)

	// Scheduler that periodically re-runs the pipeline.
	sched := scheduler.New(service, cfg.RunInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Initial run at startup; later runs come from the scheduler.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()
		if err := service.Run(ctx); err != nil {
			logger.Error("initial pipeline run failed: %v", err)
		}
	}()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "sensor-daily-stats",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "sensor-daily-stats",
		})
	})

	// Prometheus metrics.
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, statusStore, statsLog)

	// Start server with graceful shutdown
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
