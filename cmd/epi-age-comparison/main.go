package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/epi-age-comparison/internal/agegroup"
	httpapi "github.com/i474232898/epi-age-comparison/internal/api/http"
	"github.com/i474232898/epi-age-comparison/internal/config"
	"github.com/i474232898/epi-age-comparison/internal/epidemic"
	"github.com/i474232898/epi-age-comparison/internal/epidemic/sources"
	"github.com/i474232898/epi-age-comparison/internal/logger"
	"github.com/i474232898/epi-age-comparison/internal/metrics"
	"github.com/i474232898/epi-age-comparison/internal/scheduler"
	"github.com/i474232898/epi-age-comparison/internal/store"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()
	if !dotenv {
		lg.Info("no .env file found; using process environment")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Shared HTTP client for catalog and series downloads.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	var comparisons epidemic.Store
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		sq, err := store.OpenSQLite(cfg.SQLitePath, cfg.StoreMaxHistory)
		if err != nil {
			lg.Fatal("failed to open sqlite store", "path", cfg.SQLitePath, "error", err)
		}
		defer sq.Close()
		comparisons = sq
	default:
		comparisons = store.NewMemoryStore(cfg.StoreMaxHistory)
	}

	// The age bucket table is built once and shared read-only.
	registry := agegroup.Default()

	catalog := sources.NewCKANCatalog(httpClient, cfg.PackageURL, sources.DefaultBackoff)
	fetcher := sources.NewHTTPFetcher(httpClient, sources.DefaultBackoff, m, lg)
	service := epidemic.NewService(catalog, fetcher, comparisons, registry, lg, epidemic.WithRecorder(m))

	sched := scheduler.New(cfg.Regions, scheduler.Window{Start: cfg.StartDate, End: cfg.EndDate},
		cfg.RefreshInterval, service, lg)
	if err := sched.Start(); err != nil {
		lg.Fatal("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "epi-age-comparison",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          5 * time.Minute, // comparisons download three full datasets
		ErrorHandler: func(c *fiber.Ctx, err error) error {
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

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "epi-age-comparison",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	httpapi.RegisterRoutes(app, service, registry, 4*time.Minute)

	go func() {
		lg.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("error during shutdown", "error", err)
	}
}
