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

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/taxi-insights/backend/internal/api"
	"github.com/taxi-insights/backend/internal/config"
	"github.com/taxi-insights/backend/internal/database"
	"github.com/taxi-insights/backend/internal/graph"
	"github.com/taxi-insights/backend/internal/intake"
	"github.com/taxi-insights/backend/internal/objectstore"
	"github.com/taxi-insights/backend/internal/queue"
	"github.com/taxi-insights/backend/internal/trips"
	"golang.org/x/sync/errgroup"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Printf("Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load XML configuration
	configPath := config.Path()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration in %s:\n%v\n", configPath, err)
		os.Exit(1)
	}

	logger := log.New("taxi-api")
	logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`)
	logger.SetLevel(logLevel(cfg.Advanced.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, configPath, logger); err != nil {
		logger.Errorj(log.JSON{"event": "server_exit", "error": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, configPath string, logger *log.Logger) error {
	db, err := database.Open(ctx, cfg.Database.URL, cfg.DatabaseOptions())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if cfg.Database.CreateSchema {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if cfg.Database.CreateIndexes {
		if err := db.CreateIndexes(ctx); err != nil {
			return fmt.Errorf("creating indexes: %w", err)
		}
	}

	store, err := objectstore.New(ctx, cfg.ObjectStoreSettings())
	if err != nil {
		return fmt.Errorf("initializing object store: %w", err)
	}
	defer func() {
		if err := objectstore.Close(store); err != nil {
			logger.Warnj(log.JSON{"event": "close_failed", "component": "object_store", "error": err.Error()})
		}
	}()

	sender, err := queue.New(ctx, cfg.QueueSettings())
	if err != nil {
		return fmt.Errorf("initializing queue: %w", err)
	}
	defer func() {
		if err := queue.Close(sender); err != nil {
			logger.Warnj(log.JSON{"event": "close_failed", "component": "queue", "error": err.Error()})
		}
	}()

	repo := trips.NewRepository(db.Dialect)
	schema, err := graph.NewSchema(repo)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger = logger

	api.SetupMiddleware(e, api.MiddlewareOptions{
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		BodyLimit:      cfg.Server.BodyLimit,
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.AllowedOrigins(),
	})

	handlers := api.NewHandlers(&api.Dependencies{
		DB:      db.DB,
		Repo:    repo,
		Intake:  intake.NewService(store, sender, cfg.IntakeSettings(), logger),
		Graph:   schema,
		Version: Version,
	})
	api.RegisterRoutes(e, handlers, db.DB)

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath, db.Dialect.Name, store.Backend(), sender.Backend())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infoj(log.JSON{"event": "shutdown_started"})

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Infoj(log.JSON{"event": "shutdown_complete"})
	return nil
}

func logLevel(name string) log.Lvl {
	switch name {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

func printBanner(cfg *config.AppConfig, configPath, dialect, storeBackend, queueBackend string) {
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Taxi Trip API Server                            ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Database:  %-46s║\n", dialect)
	fmt.Printf("║  Store:     %-46s║\n", storeBackend+" / "+cfg.ObjectStore.Bucket)
	fmt.Printf("║  Queue:     %-46s║\n", queueBackend+" / "+cfg.QueueTarget())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
