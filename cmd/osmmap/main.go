package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpadapter "github.com/samirrijal/osmmap/internal/adapters/http"
	mcpadapter "github.com/samirrijal/osmmap/internal/adapters/mcp"
	natsadapter "github.com/samirrijal/osmmap/internal/adapters/nats"
	"github.com/samirrijal/osmmap/internal/adapters/postgres"
	"github.com/samirrijal/osmmap/internal/adapters/push"
	"github.com/samirrijal/osmmap/internal/adapters/valkey"
	"github.com/samirrijal/osmmap/internal/core/ports"
	"github.com/samirrijal/osmmap/internal/core/usecases"
	"github.com/samirrijal/osmmap/internal/pkg/config"
	"github.com/samirrijal/osmmap/internal/pkg/logging"
	"github.com/samirrijal/osmmap/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("osmmap")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP stdio transport.
	log := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("osmmap stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			log.Warn("telemetry init failed", "error", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	deps := &httpadapter.Dependencies{
		PingInterval: cfg.Push.PingInterval,
		Version:      version,
		Logger:       log,
	}

	// Database. The map keeps working without it; the query tools report
	// that the connection is unavailable.
	var (
		queryRepo   ports.QueryRepository
		schemaRepo  ports.SchemaRepository
		featureRepo ports.FeatureRepository
	)
	db, err := postgres.New(ctx, cfg.Database.DSN(), postgres.Options{
		MaxConns:           cfg.Database.MaxConns,
		StatementTimeoutMS: cfg.Query.StatementTimeoutMS,
		ReadOnly:           cfg.Database.ReadOnly,
	})
	if err != nil {
		log.Warn("database unavailable, query tools disabled", "host", cfg.Database.Host, "dbname", cfg.Database.DBName, "error", err)
	} else {
		defer db.Close()
		queryRepo = postgres.NewQueryRepo(db)
		schemaRepo = postgres.NewSchemaRepo(db)
		featureRepo = postgres.NewFeatureRepo(db)
		deps.DB = db
		go db.ReportPoolStats(ctx, 15*time.Second)
		log.Info("database connected", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	}

	// Event mirror
	var publisher ports.EventPublisher
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Warn("nats unavailable, events not mirrored", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			deps.NATS = pub
		}
	}

	// State mirror
	var cache ports.CacheService
	if cfg.Valkey.Addr != "" {
		c, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			log.Warn("valkey unavailable, map state not persisted", "error", err)
		} else {
			defer c.Close()
			cache = c
			deps.Cache = c
		}
	}

	hub := push.NewHub(cfg.Push.QueueSize, log)
	mapSvc := usecases.NewMapService(hub, publisher, cache)
	if restored, err := mapSvc.Restore(ctx, cfg.Valkey.StateKey); err != nil {
		log.Warn("could not restore map state", "error", err)
	} else if restored {
		log.Info("map state restored", "seq", mapSvc.Snapshot().Seq)
	}

	persistCtx, stopPersist := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mapSvc.RunPersistence(persistCtx, cfg.Valkey.StateKey, cfg.Valkey.StateTTL)
	}()

	deps.Map = mapSvc
	deps.Queries = usecases.NewQueryService(queryRepo, schemaRepo, cfg.Query.MaxRows)

	// Viewer HTTP server
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Web.ReadTimeout) * time.Second,
		BodyLimit:             1024 * 1024,
		AppName:               "osmmap",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	httpadapter.SetupRoutes(app, deps)

	ln, err := httpadapter.Listen(cfg.Web.Host, cfg.Web.Port, cfg.Web.PortAttempts, log)
	if err != nil {
		stopPersist()
		wg.Wait()
		return err
	}
	webErr := make(chan error, 1)
	go func() {
		log.Info("map viewer listening", "url", "http://"+ln.Addr().String())
		webErr <- app.Listener(ln)
	}()

	// MCP
	mcpSrv := mcpadapter.NewServer(mcpadapter.Dependencies{
		Map:      mapSvc,
		Queries:  deps.Queries,
		Features: usecases.NewFeatureService(featureRepo),
		Logger:   log,
	}, version)

	mcpDone := make(chan error, 1)
	go func() {
		switch cfg.MCP.Transport {
		case "http":
			mcpDone <- mcpadapter.ServeHTTP(ctx, mcpSrv, cfg.MCP.Addr, log)
		default:
			log.Info("mcp serving on stdio")
			mcpDone <- mcpadapter.ServeStdio(ctx, mcpSrv, log)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-mcpDone:
		// The client closing stdin ends the session.
		runErr = err
		log.Info("mcp session ended")
	case err := <-webErr:
		runErr = fmt.Errorf("web server: %w", err)
	}

	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
	}

	stopPersist()
	wg.Wait()

	log.Info("server stopped")
	return runErr
}
